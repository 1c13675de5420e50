package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxlane/vox/internal/config"
	"github.com/voxlane/vox/pkg/dataclient"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the backing data service",
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		data, err := dataclient.New(dataclient.Config{
			BaseURL:     cfg.DataService.BaseURL,
			Timeout:     cfg.DataService.Timeout,
			MaxAttempts: 1,
		})
		if err != nil {
			fmt.Printf("Error initializing data client: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := data.HealthCheck(ctx); err != nil {
			fmt.Printf("Data service unhealthy: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Data service healthy: %s\n", cfg.DataService.BaseURL)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
