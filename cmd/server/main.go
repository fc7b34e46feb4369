// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

// Package main is the entry point for the Onionfront server.
//
// Onionfront serves a small web site on two listeners: a loopback-only
// listener that a Tor onion service forwards to, and a directly reachable
// public listener. It owns the lifecycle of the tor daemon that provides
// the onion service, and discovers the service's .onion hostname once tor
// publishes it.
//
// # Application Architecture
//
// Startup proceeds in the following order:
//
//  1. Configuration: defaults, optional config.yaml, environment variables
//     (Koanf v2). A malformed PORT or other setting aborts startup.
//  2. Listeners: both sockets are bound up front; a bind failure aborts
//     before anything runs.
//  3. Discovery: a fire-and-forget task polls the tor hostname file and
//     publishes the .onion address for the handlers to advertise.
//  4. Supervision: a Suture tree runs the tor process supervisor (network
//     layer) and the two HTTP listeners (api layer).
//
// # Configuration
//
// Environment variables (highest priority; see internal/config):
//   - PORT: public listener port (default 8080; blank falls back to the
//     default, a non-numeric value is a startup error)
//   - ONION_PORT: loopback port the hidden service forwards to (default 3000)
//   - TOR_BINARY, TORRC_PATH: helper process launch command
//   - TOR_MAX_RESTARTS, TOR_RESTART_BACKOFF: relaunch budget and delay
//   - DISCOVERY_COMMAND, DISCOVERY_INITIAL_DELAY, DISCOVERY_TIMEOUT,
//     DISCOVERY_INTERVAL: hostname discovery
//   - LOG_LEVEL, LOG_FORMAT: logging
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listeners drain
// in-flight requests and the tor process is terminated and reaped.
//
// # Exit Codes
//
// 0 on clean shutdown. Nonzero on any startup error, on a listener failing
// at runtime, or on the tor restart budget being exceeded.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/onionfront/onionfront/internal/api"
	"github.com/onionfront/onionfront/internal/config"
	"github.com/onionfront/onionfront/internal/logging"
	"github.com/onionfront/onionfront/internal/onion"
	"github.com/onionfront/onionfront/internal/supervisor"
	"github.com/onionfront/onionfront/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("torrc", cfg.Tor.Torrc).
		Int("tor_max_restarts", cfg.Tor.MaxRestarts).
		Msg("Starting Onionfront")

	cell := onion.NewAddressCell()
	handler := api.NewHandler(cell)

	// Bind both listeners before anything else starts. A bind failure is a
	// startup error and must leave no partial state running.
	onionLn, err := net.Listen("tcp", cfg.OnionAddr())
	if err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.OnionAddr()).Msg("Unable to bind onion listener")
	}
	logging.Info().Str("addr", onionLn.Addr().String()).Msg("Onion endpoint listening")

	publicLn, err := net.Listen("tcp", cfg.PublicAddr())
	if err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.PublicAddr()).Msg("Unable to bind public listener")
	}
	logging.Info().Str("addr", publicLn.Addr().String()).Msg("Public endpoint listening")

	// Address discovery is fire-and-forget: its only contract with the rest
	// of the system is the write into the cell, and a failure to discover is
	// not fatal.
	discoverer, err := onion.NewDiscoverer(cell, onion.ExecRunner{}, onion.DiscoveryConfig{
		Command:      strings.Fields(cfg.Discovery.Command),
		InitialDelay: cfg.Discovery.InitialDelay,
		Timeout:      cfg.Discovery.Timeout,
		Interval:     cfg.Discovery.Interval,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid discovery configuration")
	}
	go discoverer.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddNetworkService(services.NewTorService(onion.ExecLauncher{}, services.TorServiceConfig{
		Binary:         cfg.Tor.Binary,
		Torrc:          cfg.Tor.Torrc,
		MaxRestarts:    cfg.Tor.MaxRestarts,
		RestartBackoff: cfg.Tor.RestartBackoff,
	}))

	onionServer := &http.Server{
		Handler:      handler.NewOnionRouter(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	publicServer := &http.Server{
		Handler:      handler.NewPublicRouter(cfg.Security),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewListenerService("onion-listener", onionServer, onionLn, cfg.Server.ShutdownTimeout))
	tree.AddAPIService(services.NewListenerService("public-listener", publicServer, publicLn, cfg.Server.ShutdownTimeout))

	// Signals are the only external producer of shutdown; internal failures
	// terminate the tree directly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	err = <-tree.ServeBackground(ctx)

	// Report services that failed to stop within the shutdown timeout.
	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree terminated with error")
	}

	logging.Info().Msg("Onionfront stopped gracefully")
}
