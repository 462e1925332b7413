// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, and command-line flags, in ascending precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/physicalai/authd/internal/xdg"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Default values for the serve command.
const (
	DefaultListenAddr  = ":8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultSessionTTL  = 7 * 24 * time.Hour
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
)

// Config holds the authd service configuration.
type Config struct {
	// ListenAddr is the address the API server binds to.
	ListenAddr string `koanf:"listen-addr"`

	// MetricsAddr is the metrics/health listener address. Empty disables it.
	MetricsAddr string `koanf:"metrics-addr"`

	// DatabaseURL is the PostgreSQL connection string. Falls back to the
	// DATABASE_URL environment variable when unset.
	DatabaseURL string `koanf:"database-url"`

	// SessionTTL is the lifetime of issued sessions.
	SessionTTL time.Duration `koanf:"session-ttl"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`

	// LogLevel is the minimum log level: debug, info, warn or error.
	LogLevel string `koanf:"log-level"`
}

// Load builds a Config from defaults, the optional YAML file at path, and
// the given flag set. Flags explicitly set on the command line win over the
// file; the file wins over flag defaults. When path is empty the default
// XDG location is used if a file exists there.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if candidate := xdg.ConfigFile(); fileExists(candidate) {
			path = candidate
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Passing k lets file values win over unchanged flag defaults.
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := &Config{
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		SessionTTL:  DefaultSessionTTL,
		LogFormat:   DefaultLogFormat,
		LogLevel:    DefaultLogLevel,
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen-addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url (or DATABASE_URL) is required")
	}
	if c.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session-ttl must be positive, got %s", c.SessionTTL)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	return nil
}
