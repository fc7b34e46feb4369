// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

// Package metrics provides Prometheus instrumentation for the tor
// supervision loop, onion address discovery, and the HTTP listeners.
// Metrics are exposed on the public listener's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tor supervision metrics
	TorLaunches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "onionfront",
			Name:      "tor_launches_total",
			Help:      "Total number of tor process launch attempts",
		},
	)

	TorLaunchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "onionfront",
			Name:      "tor_launch_failures_total",
			Help:      "Total number of failed tor process launches",
		},
	)

	TorExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onionfront",
			Name:      "tor_exits_total",
			Help:      "Total number of unexpected tor process exits",
		},
		[]string{"status"}, // "ok", "error"
	)

	TorRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onionfront",
			Name:      "tor_running",
			Help:      "Whether a tor process is currently running (1) or not (0)",
		},
	)

	// Discovery metrics
	DiscoveryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "onionfront",
			Name:      "onion_discovery_attempts_total",
			Help:      "Total number of onion address query attempts",
		},
	)

	DiscoveryPublished = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onionfront",
			Name:      "onion_address_published",
			Help:      "Whether the onion address has been discovered (1) or not (0)",
		},
	)

	// HTTP listener metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onionfront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"listener", "method", "status_code"},
	)
)
