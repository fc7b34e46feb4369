// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

// Package onion manages the tor helper process and the discovery of the
// onion service hostname it publishes.
package onion

import "sync"

// AddressCell is a shared slot holding the discovered onion address.
//
// It starts empty, is written at most once by the discovery task, and is
// read by any number of concurrent request handlers. Once set, the value is
// never cleared or replaced.
type AddressCell struct {
	mu   sync.RWMutex
	addr string
}

// NewAddressCell returns an empty cell.
func NewAddressCell() *AddressCell {
	return &AddressCell{}
}

// Set publishes the discovered address. The first non-empty write wins;
// subsequent calls are no-ops.
func (c *AddressCell) Set(addr string) {
	if addr == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addr == "" {
		c.addr = addr
	}
}

// Get returns the discovered address and whether it is known yet.
func (c *AddressCell) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr, c.addr != ""
}
