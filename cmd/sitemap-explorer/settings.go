package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/scraper"
	"github.com/spf13/cobra"
)

// newExplorer is swapped in tests to install a mock transport.
var newExplorer = scraper.NewExplorer

// loadConfig layers defaults, config file, environment and explicitly set
// flags, validates the result and installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, used, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	setupLogging(cfg.Verbose)
	if used != "" {
		slog.Debug("config file loaded", slog.String("path", used))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every flag the user set on the command line. Flags a
// command does not define are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	var err error
	set := func(e error) {
		if err == nil {
			err = e
		}
	}

	if changed("verbose") {
		v, e := flags.GetBool("verbose")
		set(e)
		cfg.Verbose = v
	}
	if changed("timeout") {
		v, e := flags.GetDuration("timeout")
		set(e)
		cfg.Timeout = v
	}
	if changed("user-agent") {
		v, e := flags.GetString("user-agent")
		set(e)
		cfg.UserAgent = v
	}
	if changed("concurrency") {
		v, e := flags.GetInt("concurrency")
		set(e)
		cfg.Concurrency = v
	}
	if changed("parallel") {
		v, e := flags.GetInt("parallel")
		set(e)
		cfg.Parallelism = v
	}
	if changed("format") {
		v, e := flags.GetString("format")
		set(e)
		cfg.OutputFormat = strings.ToLower(v)
	}
	if changed("output") {
		v, e := flags.GetString("output")
		set(e)
		cfg.OutputFile = v
	}
	if changed("listen") {
		v, e := flags.GetString("listen")
		set(e)
		cfg.ListenAddr = v
	}
	if changed("cache-size") {
		v, e := flags.GetInt("cache-size")
		set(e)
		cfg.CacheSize = v
	}
	if changed("cache-ttl") {
		v, e := flags.GetDuration("cache-ttl")
		set(e)
		cfg.CacheTTL = v
	}
	if changed("rate-limit") {
		v, e := flags.GetFloat64("rate-limit")
		set(e)
		cfg.RateLimit = v
	}
	if changed("rate-burst") {
		v, e := flags.GetInt("rate-burst")
		set(e)
		cfg.RateBurst = v
	}
	return err
}

// addFetchFlags registers the flags shared by analyze and serve.
func addFetchFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	cmd.Flags().DurationP("timeout", "t", defaults.Timeout,
		"Timeout for each sitemap request")
	cmd.Flags().String("user-agent", defaults.UserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int("concurrency", defaults.Concurrency,
		"Maximum simultaneous sitemap fetches (0 = one per child sitemap)")
}
