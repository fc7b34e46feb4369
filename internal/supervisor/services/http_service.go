// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

// Package services wraps Onionfront's long-running components as
// suture.Service implementations.
package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"
)

// HTTPServer matches the *http.Server methods the listener service needs.
// Serving happens over a pre-bound net.Listener: the orchestrator binds all
// sockets up front so bind failures abort startup before anything runs.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// ListenerService serves one routing table over one pre-bound listener as a
// supervised service.
//
// It translates http.Server's blocking Serve into suture's context-aware
// Serve: the server runs on a goroutine, and the service waits for either
// context cancellation or a server error. On shutdown it drains in-flight
// requests via Shutdown with the configured timeout.
//
// A serve error outside the shutdown path is unrecoverable for the whole
// process (the socket's state is unknown), so it is returned wrapping
// suture.ErrTerminateSupervisorTree rather than letting suture restart the
// listener.
type ListenerService struct {
	server          HTTPServer
	ln              net.Listener
	shutdownTimeout time.Duration
	name            string
}

// NewListenerService creates a supervised listener named name (used in
// suture's log output) serving on the already-bound ln.
func NewListenerService(name string, server HTTPServer, ln net.Listener, shutdownTimeout time.Duration) *ListenerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &ListenerService{
		server:          server,
		ln:              ln,
		shutdownTimeout: shutdownTimeout,
		name:            name,
	}
}

// Serve implements suture.Service.
func (s *ListenerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listener %s failed: %w: %w", s.name, err, suture.ErrTerminateSupervisorTree)
		}
		// Server closed without error (externally triggered).
		return nil

	case <-ctx.Done():
		// Graceful shutdown on a fresh context; the original is canceled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("listener %s shutdown failed: %w", s.name, err)
		}

		// Wait for the serve goroutine to finish draining.
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *ListenerService) String() string {
	return s.name
}
