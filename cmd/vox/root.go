package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vox",
	Short: "Vox is a real-time command router for voice-session agents",
	Long: `Vox dispatches named commands against live voice sessions, tracks the
task lifecycle per session, and persists outcomes to a backing data service.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./vox.yaml)")
}
