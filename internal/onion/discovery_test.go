// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

package onion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// validAddr is exactly 56 base32 characters plus ".onion".
const validAddr = "abcdefghijklmnopqrstuvwxyz234567abcdefghijklmnopqrstuvwx.onion"

// scriptedRunner returns one scripted result per call, repeating the last
// entry once the script is exhausted.
type scriptedRunner struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	calls   int
}

func (r *scriptedRunner) Output(_ context.Context, _ string, _ ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	if i >= len(r.outputs) {
		i = len(r.outputs) - 1
	}
	r.calls++
	return []byte(r.outputs[i]), r.errs[i]
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func testDiscoveryConfig(cmd []string) DiscoveryConfig {
	return DiscoveryConfig{
		Command:      cmd,
		InitialDelay: 0,
		Timeout:      100 * time.Millisecond,
		Interval:     time.Millisecond,
	}
}

func TestNewDiscoverer_RequiresCommand(t *testing.T) {
	if _, err := NewDiscoverer(NewAddressCell(), &scriptedRunner{}, testDiscoveryConfig(nil)); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestDiscoverer_PublishesFirstMatch(t *testing.T) {
	cell := NewAddressCell()
	runner := &scriptedRunner{
		outputs: []string{"foo\n  " + validAddr + "  \nbar\n"},
		errs:    []error{nil},
	}

	d, err := NewDiscoverer(cell, runner, testDiscoveryConfig([]string{"cat", "hostname"}))
	if err != nil {
		t.Fatal(err)
	}
	d.Run()

	addr, ok := cell.Get()
	if !ok {
		t.Fatal("expected address to be published")
	}
	if addr != validAddr {
		t.Errorf("expected %q, got %q", validAddr, addr)
	}
	if runner.callCount() != 1 {
		t.Errorf("expected a single query, got %d", runner.callCount())
	}
}

func TestDiscoverer_IgnoresMalformedLines(t *testing.T) {
	malformed := []string{
		validAddr[1:],   // 55 characters
		"a" + validAddr, // 57 characters
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ234567ABCDEFGHIJKLMNOPQRSTUVWX.onion", // uppercase
		"abcdefghijklmnopqrstuvwxyz189067abcdefghijklmnopqrstuvwx.onion", // digits outside 2-7
		validAddr[:len(validAddr)-6], // missing .onion suffix
		validAddr + ":80",            // trailing junk
		"prefix " + validAddr,        // not the entire line
	}

	for _, line := range malformed {
		cell := NewAddressCell()
		runner := &scriptedRunner{
			outputs: []string{line + "\n"},
			errs:    []error{nil},
		}
		d, err := NewDiscoverer(cell, runner, testDiscoveryConfig([]string{"cat"}))
		if err != nil {
			t.Fatal(err)
		}
		d.Run()

		if addr, ok := cell.Get(); ok {
			t.Errorf("malformed line %q was published as %q", line, addr)
		}
	}
}

func TestDiscoverer_RetriesAfterQueryError(t *testing.T) {
	cell := NewAddressCell()
	runner := &scriptedRunner{
		outputs: []string{"", "no match yet", validAddr},
		errs:    []error{errors.New("exit status 1"), nil, nil},
	}

	d, err := NewDiscoverer(cell, runner, testDiscoveryConfig([]string{"cat"}))
	if err != nil {
		t.Fatal(err)
	}
	d.Run()

	if addr, ok := cell.Get(); !ok || addr != validAddr {
		t.Fatalf("expected %q after retries, got %q (%v)", validAddr, addr, ok)
	}
	if runner.callCount() != 3 {
		t.Errorf("expected 3 queries, got %d", runner.callCount())
	}
}

func TestDiscoverer_GivesUpAtDeadline(t *testing.T) {
	cell := NewAddressCell()
	runner := &scriptedRunner{
		outputs: []string{"nothing here"},
		errs:    []error{nil},
	}

	cfg := testDiscoveryConfig([]string{"cat"})
	cfg.Timeout = 10 * time.Millisecond

	d, err := NewDiscoverer(cell, runner, cfg)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("discovery did not stop at its deadline")
	}

	if _, ok := cell.Get(); ok {
		t.Error("cell must stay unset when no match appears before the deadline")
	}
	if runner.callCount() < 2 {
		t.Errorf("expected repeated attempts before the deadline, got %d", runner.callCount())
	}
}

func TestDiscoverer_LateMatchBeforeDeadlineCheckCounts(t *testing.T) {
	// The deadline is only checked between attempts, so a match returned by
	// an attempt that started before the deadline still wins.
	cell := NewAddressCell()
	runner := &slowRunner{output: validAddr, delay: 20 * time.Millisecond}

	cfg := testDiscoveryConfig([]string{"cat"})
	cfg.Timeout = 5 * time.Millisecond

	d, err := NewDiscoverer(cell, runner, cfg)
	if err != nil {
		t.Fatal(err)
	}
	d.Run()

	if addr, ok := cell.Get(); !ok || addr != validAddr {
		t.Fatalf("expected late match to be published, got %q (%v)", addr, ok)
	}
}

type slowRunner struct {
	output string
	delay  time.Duration
}

func (r *slowRunner) Output(_ context.Context, _ string, _ ...string) ([]byte, error) {
	time.Sleep(r.delay)
	return []byte(r.output), nil
}
