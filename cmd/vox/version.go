package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/voxlane/vox"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of vox",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vox version %s\n", vox.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
