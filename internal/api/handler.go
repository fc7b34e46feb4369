// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

// Package api provides HTTP routing and handlers for the onion and public
// listeners.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/onionfront/onionfront/internal/logging"
	"github.com/onionfront/onionfront/internal/onion"
)

const (
	onionBody = `<h1>Hello!</h1><p>You are connected via the Tor network (onion service).</p>`

	publicBody = `<h1>Hello!</h1><p>You are connected via the public endpoint. ` +
		`If you reached this through the Tor network, your connection is indirect; ` +
		`otherwise, you're connected directly.</p>`
)

// Handler serves both listeners' routes. The only shared state it reads is
// the address cell the discovery task publishes into; a request racing the
// first write may still see the address as unknown.
type Handler struct {
	cell *onion.AddressCell
}

// NewHandler creates a handler reading the discovered address from cell.
func NewHandler(cell *onion.AddressCell) *Handler {
	return &Handler{cell: cell}
}

// OnionHome serves the front page of the onion listener.
func (h *Handler) OnionHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(onionBody))
}

// PublicHome serves the front page of the public listener. Once the onion
// address is known it is advertised in the page body.
func (h *Handler) PublicHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	body := publicBody
	if addr, ok := h.cell.Get(); ok {
		body += `<p>This site is also available as an onion service: <code>` + addr + `</code></p>`
	}
	_, _ = w.Write([]byte(body))
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status         string `json:"status"`
	OnionPublished bool   `json:"onion_published"`
	OnionAddress   string `json:"onion_address,omitempty"`
}

// Health reports liveness and whether the onion address has been discovered.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.cell.Get()
	resp := healthResponse{
		Status:         "ok",
		OnionPublished: ok,
		OnionAddress:   addr,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode health response")
	}
}
