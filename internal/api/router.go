// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onionfront/onionfront/internal/config"
	"github.com/onionfront/onionfront/internal/metrics"
)

// NewOnionRouter builds the routing table served behind the onion service.
// It carries no rate limiting or CORS; the tor daemon is the only client
// that can reach it.
func (h *Handler) NewOnionRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(countRequests("onion"))

	r.Get("/", h.OnionHome)
	r.Get("/healthz", h.Health)

	return r
}

// NewPublicRouter builds the routing table of the directly reachable
// listener. Prometheus metrics are exposed here only; the onion side stays
// minimal.
func (h *Handler) NewPublicRouter(sec config.SecurityConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sec.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	if !sec.RateLimitDisabled {
		r.Use(httprate.LimitByIP(sec.RateLimitReqs, sec.RateLimitWindow))
	}
	r.Use(h.onionLocation)
	r.Use(countRequests("public"))

	r.Get("/", h.PublicHome)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// onionLocation advertises the onion mirror via the Onion-Location header
// once the address is known, per the Tor Browser convention.
func (h *Handler) onionLocation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if addr, ok := h.cell.Get(); ok {
			w.Header().Set("Onion-Location", "http://"+addr+r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// countRequests records per-listener request counts with status codes.
func countRequests(listener string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			metrics.HTTPRequestsTotal.
				WithLabelValues(listener, r.Method, strconv.Itoa(ww.Status())).
				Inc()
		})
	}
}
