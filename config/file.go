package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = ".sitemap-explorer.yaml"

// ErrConfigNotFound is returned when an explicitly named file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// XDGConfigFile returns the per-user config path, e.g.
// ~/.config/sitemap-explorer/config.yaml on Linux.
func XDGConfigFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// FindConfigFile returns the first existing file among explicit,
// ./.sitemap-explorer.yaml and the XDG config file. An explicit path is
// never substituted: if it is missing the result is empty.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	candidate := XDGConfigFile()
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// LoadFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values; unknown keys are rejected.
func LoadFile(c *Config, path string) error {
	f, err := os.Open(path) //nolint:gosec // user supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from defaults, the first config file found and the
// environment, in that order. It returns the file used, if any.
func Load(explicit string) (*Config, string, error) {
	cfg := DefaultConfig()

	path := FindConfigFile(explicit)
	if explicit != "" && path == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, "", err
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, "", fmt.Errorf("environment: %w", err)
	}
	return cfg, path, nil
}
