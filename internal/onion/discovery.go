// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

package onion

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/onionfront/onionfront/internal/logging"
	"github.com/onionfront/onionfront/internal/metrics"
)

// hostnamePattern is the exact shape of a v3 onion hostname: 56 base32
// characters followed by ".onion". Anything else on the query output is
// ignored, however similar it looks.
var hostnamePattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// ErrEmptyCommand is returned when a Discoverer is created without a query
// command.
var ErrEmptyCommand = errors.New("discovery query command is empty")

// DiscoveryConfig holds the timing and query command of a discovery run.
type DiscoveryConfig struct {
	// Command is the query command and its arguments.
	Command []string

	// InitialDelay is slept once before the first query, giving the tor
	// process time to initialize.
	InitialDelay time.Duration

	// Timeout bounds the run. The deadline is computed once, after the
	// initial delay, and checked only between attempts; an in-flight
	// query is never cut short.
	Timeout time.Duration

	// Interval is the fixed wait between attempts.
	Interval time.Duration
}

// Discoverer polls the query command for the onion hostname tor publishes,
// and writes the first match into the shared address cell.
//
// A Discoverer is fire-and-forget: start Run on its own goroutine and never
// join it. Its only contract with the rest of the system is the single
// write into the cell. It has no external cancellation and stops on its own,
// either on the first match or when the deadline passes.
type Discoverer struct {
	cell   *AddressCell
	runner CommandRunner
	cfg    DiscoveryConfig
}

// NewDiscoverer creates a discovery task publishing into cell.
func NewDiscoverer(cell *AddressCell, runner CommandRunner, cfg DiscoveryConfig) (*Discoverer, error) {
	if len(cfg.Command) == 0 {
		return nil, ErrEmptyCommand
	}
	return &Discoverer{cell: cell, runner: runner, cfg: cfg}, nil
}

// Run executes the discovery loop until the address is published or the
// deadline passes. It blocks; callers run it on a goroutine.
func (d *Discoverer) Run() {
	time.Sleep(d.cfg.InitialDelay)
	deadline := time.Now().Add(d.cfg.Timeout)

	for {
		metrics.DiscoveryAttempts.Inc()

		if addr, ok := d.query(); ok {
			d.cell.Set(addr)
			metrics.DiscoveryPublished.Set(1)
			logging.Info().Str("address", addr).Msg("Onion address discovered")
			return
		}

		if time.Now().After(deadline) {
			logging.Warn().
				Dur("timeout", d.cfg.Timeout).
				Msg("Onion address not discovered before deadline, giving up")
			return
		}

		time.Sleep(d.cfg.Interval)
	}
}

// query runs the query command once and scans its stdout for the first line
// matching the onion hostname shape, with per-line whitespace trimmed.
func (d *Discoverer) query() (string, bool) {
	out, err := d.runner.Output(context.Background(), d.cfg.Command[0], d.cfg.Command[1:]...)
	if err != nil {
		logging.Debug().Err(err).Msg("Onion address query failed")
		return "", false
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if hostnamePattern.MatchString(line) {
			return line, true
		}
	}
	return "", false
}
