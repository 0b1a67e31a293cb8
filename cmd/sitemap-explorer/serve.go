package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sitemap analysis as a JSON HTTP API",
		Long: `Serve starts an HTTP server with the following routes:

  POST /api/sitemap   {"url": "example.com"} -> sitemap report
  GET  /api/sitemap   API description
  GET  /healthz       liveness check
  GET  /metrics       Prometheus metrics

Successful reports are cached per site for --cache-ttl. The analysis
endpoint is rate limited to --rate-limit requests per second.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("listen", defaults.ListenAddr, "Address to listen on")
	cmd.Flags().Int("cache-size", defaults.CacheSize, "Number of reports kept in memory (0 disables caching)")
	cmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "How long a cached report stays valid")
	cmd.Flags().Float64("rate-limit", defaults.RateLimit, "Analysis requests per second (0 disables limiting)")
	cmd.Flags().Int("rate-burst", defaults.RateBurst, "Burst size for the rate limiter")
	addFetchFlags(cmd)

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	explorer, err := newExplorer(cfg)
	if err != nil {
		return fmt.Errorf("initialising explorer: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting server",
		slog.String("addr", cfg.ListenAddr),
		slog.Int("cache_size", cfg.CacheSize),
		slog.Float64("rate_limit", cfg.RateLimit),
	)
	srv := server.New(cfg, explorer, explorer.Metrics.Registry)
	return srv.ListenAndServe(ctx)
}
