// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/onionfront/onionfront/internal/logging"
	"github.com/onionfront/onionfront/internal/metrics"
	"github.com/onionfront/onionfront/internal/onion"
)

// ErrRestartBudgetExceeded is returned when the tor process has been
// relaunched the maximum number of times. It wraps
// suture.ErrTerminateSupervisorTree, so the whole tree shuts down instead of
// looping forever on a broken helper.
var ErrRestartBudgetExceeded = errors.New("tor restart budget exceeded")

// TorServiceConfig holds the launch command and restart policy for the
// supervised tor process.
type TorServiceConfig struct {
	// Binary is the tor executable.
	Binary string

	// Torrc is passed to tor as `-f <torrc>`.
	Torrc string

	// MaxRestarts is the relaunch budget for one supervision session.
	// Default: 5
	MaxRestarts int

	// RestartBackoff is the fixed delay between relaunch attempts.
	// Default: 3s
	RestartBackoff time.Duration
}

// TorService keeps the tor helper process running, within a restart budget,
// while cooperating with global shutdown.
//
// Exactly one tor process exists at a time; the service is its sole owner.
// tor is meant to run indefinitely, so any exit, clean or not, is unexpected
// and triggers a relaunch after the backoff. Launch failures (missing
// binary, permissions) also count against the budget. Exceeding the budget
// is terminal: the service returns an error wrapping
// suture.ErrTerminateSupervisorTree, taking down the listeners with it.
//
// On context cancellation the process is forcibly terminated and reaped, in
// that order, and the service stops cleanly.
type TorService struct {
	launcher onion.Launcher
	cfg      TorServiceConfig
	name     string
}

// NewTorService creates a tor supervision service spawning through launcher.
func NewTorService(launcher onion.Launcher, cfg TorServiceConfig) *TorService {
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = 5
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = 3 * time.Second
	}
	return &TorService{
		launcher: launcher,
		cfg:      cfg,
		name:     "tor-supervisor",
	}
}

// Serve implements suture.Service. It runs the launch/wait/relaunch loop
// until shutdown or budget exhaustion.
func (s *TorService) Serve(ctx context.Context) error {
	attempts := 0

	for {
		if attempts >= s.cfg.MaxRestarts {
			logging.Error().
				Int("attempts", attempts).
				Msg("Tor restart budget exceeded, shutting down")
			return fmt.Errorf("%w after %d attempts: %w",
				ErrRestartBudgetExceeded, attempts, suture.ErrTerminateSupervisorTree)
		}

		metrics.TorLaunches.Inc()
		proc, err := s.launcher.Start(s.cfg.Binary, "-f", s.cfg.Torrc)
		if err != nil {
			metrics.TorLaunchFailures.Inc()
			attempts++
			logging.Warn().
				Err(err).
				Int("attempt", attempts).
				Int("budget", s.cfg.MaxRestarts).
				Msg("Failed to launch tor, backing off")
			if s.backoff(ctx) {
				return ctx.Err()
			}
			continue
		}

		metrics.TorRunning.Set(1)
		logging.Info().
			Str("binary", s.cfg.Binary).
			Str("torrc", s.cfg.Torrc).
			Int("attempt", attempts).
			Msg("Tor process started")

		waitCh := make(chan error, 1)
		go func() {
			waitCh <- proc.Wait()
		}()

		select {
		case err := <-waitCh:
			metrics.TorRunning.Set(0)
			attempts++
			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.TorExits.WithLabelValues(status).Inc()
			logging.Warn().
				Err(err).
				Int("attempt", attempts).
				Int("budget", s.cfg.MaxRestarts).
				Msg("Tor process exited unexpectedly, restarting after backoff")
			if s.backoff(ctx) {
				return ctx.Err()
			}

		case <-ctx.Done():
			// Terminate first, then reap. Wait must not be skipped or
			// the child is left as a zombie.
			if err := proc.Kill(); err != nil {
				logging.Warn().Err(err).Msg("Failed to kill tor process")
			}
			<-waitCh
			metrics.TorRunning.Set(0)
			logging.Info().Msg("Tor process terminated")
			return ctx.Err()
		}
	}
}

// backoff sleeps for the restart backoff, returning true if shutdown
// arrived during the sleep.
func (s *TorService) backoff(ctx context.Context) bool {
	timer := time.NewTimer(s.cfg.RestartBackoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-ctx.Done():
		return true
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *TorService) String() string {
	return s.name
}
