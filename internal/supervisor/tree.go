// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

// Package supervisor provides Suture-based supervision for Onionfront.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// Tree is the supervisor hierarchy for Onionfront, organized in two layers:
//   - network: the tor process supervisor
//   - api: the onion and public HTTP listeners
//
// The layers isolate failure accounting; a flapping tor process does not
// count against the listeners. Terminal failures (the tor restart budget, a
// listener serve error) escalate with suture.ErrTerminateSupervisorTree and
// stop the whole tree.
type Tree struct {
	root    *suture.Supervisor
	network *suture.Supervisor
	api     *suture.Supervisor
	config  TreeConfig
}

// NewTree creates a supervisor tree with the given configuration. Suture
// events are logged through the provided slog logger (bridged to zerolog by
// logging.NewSlogLogger).
func NewTree(logger *slog.Logger, config TreeConfig) (*Tree, error) {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// sutureslog's hook constructor has a pointer receiver:
	// (&Handler{Logger: logger}).MustHook()
	handler := &sutureslog.Handler{Logger: logger}
	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Child supervisors inherit the EventHook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("onionfront", rootSpec)
	network := suture.New("network-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(network)
	root.Add(api)

	return &Tree{root: root, network: network, api: api, config: config}, nil
}

// AddNetworkService adds a service to the network layer supervisor.
// Use this for the tor process supervisor.
func (t *Tree) AddNetworkService(svc suture.Service) suture.ServiceToken {
	return t.network.Add(svc)
}

// AddAPIService adds a service to the API layer supervisor.
// Use this for the HTTP listeners.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve starts the supervisor tree and blocks until the context is canceled
// or a service terminates the tree.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine and returns a
// channel that receives the error (or nil) when the supervisor stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns services that failed to stop within the
// configured shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
