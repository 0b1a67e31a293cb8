// Package config holds runtime settings for the explorer, its HTTP API and
// the batch pipeline.
package config

import (
	"fmt"
	"time"
)

// AppName names the config directory and environment prefix.
const AppName = "sitemap-explorer"

// Output formats understood by the pipeline writers.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatDual     = "dual"
)

// Config holds explorer configuration.
type Config struct {
	// Fetching
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	MaxBodySize int           `yaml:"max_body_size"`
	Concurrency int           `yaml:"concurrency"` // 0 = unbounded child fan-out

	// Batch analysis
	Parallelism   int    `yaml:"parallel"`
	BatchSize     int    `yaml:"batch_size"`
	DedupeMaxSize int    `yaml:"dedupe_max_size"`
	OutputFile    string `yaml:"output"`
	OutputFormat  string `yaml:"format"`

	// HTTP API
	ListenAddr string        `yaml:"listen"`
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	RateLimit  float64       `yaml:"rate_limit"`
	RateBurst  int           `yaml:"rate_burst"`

	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		UserAgent:     "Mozilla/5.0 (compatible; SitemapExplorer/1.0)",
		MaxBodySize:   50 * 1024 * 1024,
		Concurrency:   0,
		Parallelism:   4,
		BatchSize:     16,
		DedupeMaxSize: 10000,
		OutputFile:    "-",
		OutputFormat:  FormatText,
		ListenAddr:    ":8080",
		CacheSize:     256,
		CacheTTL:      5 * time.Minute,
		RateLimit:     5,
		RateBurst:     10,
		Verbose:       false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case FormatText, FormatJSON, FormatCSV, FormatMarkdown:
	case FormatDual:
		if c.OutputFile == "-" {
			return fmt.Errorf("output format dual requires an output file")
		}
	default:
		return fmt.Errorf("output format must be text, json, csv, markdown, or dual")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive when the cache is enabled")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("rate burst must be positive when rate limiting is enabled")
	}

	return nil
}
