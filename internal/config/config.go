// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

// Package config loads and validates Onionfront configuration from layered
// sources: built-in defaults, an optional YAML config file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Onionfront server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Tor       TorConfig       `koanf:"tor"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds settings for the two HTTP listeners.
//
// The onion listener is only ever reached through the tor daemon's local
// forwarding, so it binds to loopback. The public listener is reachable
// directly.
type ServerConfig struct {
	// PublicHost is the bind address of the public listener.
	PublicHost string `koanf:"public_host" validate:"required"`

	// PublicPort is the port of the public listener. Overridden by the
	// PORT environment variable.
	PublicPort int `koanf:"public_port" validate:"min=1,max=65535"`

	// OnionHost is the bind address of the onion listener. Loopback only.
	OnionHost string `koanf:"onion_host" validate:"required"`

	// OnionPort is the port the tor hidden service forwards to.
	OnionPort int `koanf:"onion_port" validate:"min=1,max=65535"`

	// Timeout is the per-request read/write timeout.
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// ShutdownTimeout is the maximum time to drain in-flight requests
	// during graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
}

// TorConfig holds settings for the supervised tor helper process.
type TorConfig struct {
	// Binary is the tor executable. Resolved via PATH if not absolute.
	Binary string `koanf:"binary" validate:"required"`

	// Torrc is the tor configuration file passed as `tor -f <torrc>`.
	Torrc string `koanf:"torrc" validate:"required"`

	// MaxRestarts is the relaunch budget. Exceeding it is terminal for
	// the whole process.
	MaxRestarts int `koanf:"max_restarts" validate:"min=1"`

	// RestartBackoff is the fixed delay between relaunch attempts.
	RestartBackoff time.Duration `koanf:"restart_backoff" validate:"min=1ms"`
}

// DiscoveryConfig holds settings for onion address discovery.
type DiscoveryConfig struct {
	// Command is the query command whose stdout is scanned for the onion
	// hostname, split on whitespace. Tor publishes the hostname file
	// asynchronously after the service is registered.
	Command string `koanf:"command" validate:"required"`

	// InitialDelay gives tor time to initialize before the first query.
	InitialDelay time.Duration `koanf:"initial_delay"`

	// Timeout bounds the whole discovery run. Once exceeded the address
	// stays permanently unknown.
	Timeout time.Duration `koanf:"timeout" validate:"min=1ms"`

	// Interval is the fixed wait between query attempts.
	Interval time.Duration `koanf:"interval" validate:"min=1ms"`
}

// SecurityConfig holds settings for the public listener's middleware.
type SecurityConfig struct {
	// RateLimitReqs is the request budget per RateLimitWindow per client IP.
	RateLimitReqs int `koanf:"rate_limit_reqs" validate:"min=1"`

	// RateLimitWindow is the rate limiting window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"min=1s"`

	// RateLimitDisabled turns off rate limiting entirely.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed CORS origins for the public listener.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PublicAddr returns the public listener's bind address.
func (c *Config) PublicAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.PublicHost, c.Server.PublicPort)
}

// OnionAddr returns the onion listener's bind address.
func (c *Config) OnionAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.OnionHost, c.Server.OnionPort)
}
