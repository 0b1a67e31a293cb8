package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SITEMAP_EXPLORER_"

// EnvString returns the trimmed value of key and whether it was set to
// something non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overrides fields of c from SITEMAP_EXPLORER_* variables.
func ApplyEnv(c *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"USER_AGENT", &c.UserAgent},
		{"OUTPUT", &c.OutputFile},
		{"FORMAT", &c.OutputFormat},
		{"LISTEN", &c.ListenAddr},
	}
	for _, s := range strs {
		if value, ok := EnvString(EnvPrefix + s.key); ok {
			*s.dst = value
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_BODY_SIZE", &c.MaxBodySize},
		{"CONCURRENCY", &c.Concurrency},
		{"PARALLEL", &c.Parallelism},
		{"BATCH_SIZE", &c.BatchSize},
		{"DEDUPE_MAX_SIZE", &c.DedupeMaxSize},
		{"CACHE_SIZE", &c.CacheSize},
		{"RATE_BURST", &c.RateBurst},
	}
	for _, i := range ints {
		value, ok, err := EnvInt(EnvPrefix + i.key)
		if err != nil {
			return err
		}
		if ok {
			*i.dst = value
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TIMEOUT", &c.Timeout},
		{"CACHE_TTL", &c.CacheTTL},
	}
	for _, d := range durations {
		value, ok, err := EnvDuration(EnvPrefix + d.key)
		if err != nil {
			return err
		}
		if ok {
			*d.dst = value
		}
	}

	if value, ok, err := EnvFloat(EnvPrefix + "RATE_LIMIT"); err != nil {
		return err
	} else if ok {
		c.RateLimit = value
	}
	if value, ok, err := EnvBool(EnvPrefix + "VERBOSE"); err != nil {
		return err
	} else if ok {
		c.Verbose = value
	}

	c.OutputFormat = strings.ToLower(c.OutputFormat)
	return nil
}
