package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/voxlane/vox"
	"github.com/voxlane/vox/internal/config"
	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/internal/metrics"
	httpAdapter "github.com/voxlane/vox/pkg/adapters/http"
	"github.com/voxlane/vox/pkg/adapters/memory"
	redisAdapter "github.com/voxlane/vox/pkg/adapters/redis"
	"github.com/voxlane/vox/pkg/dataclient"
	"github.com/voxlane/vox/pkg/notify"
	"github.com/voxlane/vox/pkg/ports"
	"github.com/voxlane/vox/pkg/reconcile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent and its HTTP gateway",
	Long:  `Starts the vox agent and exposes the session/command gateway over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if addr != "" {
			cfg.HTTP.Addr = addr
		}

		logger := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

		data, err := dataclient.New(dataclient.Config{
			BaseURL:        cfg.DataService.BaseURL,
			Timeout:        cfg.DataService.Timeout,
			MaxAttempts:    cfg.DataService.MaxAttempts,
			RetryBaseDelay: cfg.DataService.RetryBaseDelay,
			Logger:         logger,
		})
		if err != nil {
			fmt.Printf("Error initializing data client: %v\n", err)
			os.Exit(1)
		}

		var spool ports.WriteSpool
		if cfg.Spool.RedisAddr != "" {
			spool = redisAdapter.New(cfg.Spool.RedisAddr, cfg.Spool.RedisPassword, cfg.Spool.RedisDB)
			logger.Info("using redis write spool", "addr", cfg.Spool.RedisAddr)
		} else {
			spool = memory.NewSpool(memory.WithLogger(logger))
		}

		var notifier ports.Notifier = notify.Nop{}
		if cfg.Slack.Token != "" && cfg.Slack.ChannelID != "" {
			notifier = notify.NewSlack(cfg.Slack.Token, cfg.Slack.ChannelID, notify.WithLogger(logger))
			logger.Info("slack notifications enabled", "channel", cfg.Slack.ChannelID)
		}

		registry := prometheus.NewRegistry()
		m := metrics.New(registry)

		agent, err := vox.New(data,
			vox.WithLogger(logger),
			vox.WithSpool(spool),
			vox.WithNotifier(notifier),
			vox.WithHooks(m.Hooks()),
			vox.WithReconcilerOptions(reconcile.WithInterval(cfg.Spool.DrainInterval)),
		)
		if err != nil {
			fmt.Printf("Error initializing agent: %v\n", err)
			os.Exit(1)
		}
		defer agent.Close()

		handler := httpAdapter.NewHandler(agent,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		)

		srv := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting vox gateway", "addr", srv.Addr, "data_service", cfg.DataService.BaseURL)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("error killing server", "err", err)
				}
			}
			logger.Info("vox gateway stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")
}
