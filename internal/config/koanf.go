// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/onionfront/config.yaml",
	"/etc/onionfront/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. These are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			PublicHost:      "0.0.0.0",
			PublicPort:      8080,
			OnionHost:       "127.0.0.1",
			OnionPort:       3000,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Tor: TorConfig{
			Binary:         "tor",
			Torrc:          "/etc/tor/torrc",
			MaxRestarts:    5,
			RestartBackoff: 3 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Command:      "cat /var/lib/tor/onionfront/hostname",
			InitialDelay: 2 * time.Second,
			Timeout:      30 * time.Second,
			Interval:     5 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// A present but blank environment variable is ignored (the lower layer
// wins); a present, non-blank value that cannot be parsed into its field is
// a load error.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority). Loaded into a
	// separate instance so blank values can be dropped before merging,
	// leaving the defaults intact.
	ke := koanf.New(".")
	if err := ke.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	pruneBlankValues(ke)
	if err := k.Merge(ke); err != nil {
		return nil, fmt.Errorf("failed to merge environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths. Returns
// the first file found, or empty string if none exist.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// pruneBlankValues drops keys whose value is empty or whitespace-only, so a
// variable that is set but blank falls back to the lower layers.
func pruneBlankValues(k *koanf.Koanf) {
	for _, key := range k.Keys() {
		if s, ok := k.Get(key).(string); ok && strings.TrimSpace(s) == "" {
			k.Delete(key)
		}
	}
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return empty string and are skipped, preventing random
// environment variables from polluting the config.
//
// Examples:
//   - PORT -> server.public_port
//   - TOR_BINARY -> tor.binary
//   - DISCOVERY_TIMEOUT -> discovery.timeout
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		// Server mappings
		"port":             "server.public_port",
		"http_host":        "server.public_host",
		"onion_port":       "server.onion_port",
		"onion_host":       "server.onion_host",
		"http_timeout":     "server.timeout",
		"shutdown_timeout": "server.shutdown_timeout",

		// Tor mappings
		"tor_binary":          "tor.binary",
		"torrc_path":          "tor.torrc",
		"tor_max_restarts":    "tor.max_restarts",
		"tor_restart_backoff": "tor.restart_backoff",

		// Discovery mappings
		"discovery_command":       "discovery.command",
		"discovery_initial_delay": "discovery.initial_delay",
		"discovery_timeout":       "discovery.timeout",
		"discovery_interval":      "discovery.interval",

		// Security mappings
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
