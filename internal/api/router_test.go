// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/onionfront/onionfront/internal/config"
	"github.com/onionfront/onionfront/internal/onion"
)

const testAddr = "abcdefghijklmnopqrstuvwxyz234567abcdefghijklmnopqrstuvwx.onion"

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		RateLimitReqs:   100,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOnionRouter_Home(t *testing.T) {
	h := NewHandler(onion.NewAddressCell())
	rec := get(t, h.NewOnionRouter(), "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "connected via the Tor network") {
		t.Errorf("unexpected onion body: %q", body)
	}
}

func TestPublicRouter_Home(t *testing.T) {
	t.Run("before the address is known", func(t *testing.T) {
		h := NewHandler(onion.NewAddressCell())
		rec := get(t, h.NewPublicRouter(testSecurityConfig()), "/")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "connected via the public endpoint") {
			t.Errorf("unexpected public body: %q", body)
		}
		if strings.Contains(body, ".onion") {
			t.Errorf("body must not advertise an address before discovery: %q", body)
		}
		if loc := rec.Header().Get("Onion-Location"); loc != "" {
			t.Errorf("unexpected Onion-Location header %q", loc)
		}
	})

	t.Run("after the address is known", func(t *testing.T) {
		cell := onion.NewAddressCell()
		cell.Set(testAddr)
		h := NewHandler(cell)
		rec := get(t, h.NewPublicRouter(testSecurityConfig()), "/")

		body := rec.Body.String()
		if !strings.Contains(body, "<code>"+testAddr+"</code>") {
			t.Errorf("body must advertise the onion address: %q", body)
		}
		if loc := rec.Header().Get("Onion-Location"); loc != "http://"+testAddr+"/" {
			t.Errorf("unexpected Onion-Location header %q", loc)
		}
	})
}

func TestRouters_Health(t *testing.T) {
	cell := onion.NewAddressCell()
	h := NewHandler(cell)

	for name, router := range map[string]http.Handler{
		"onion":  h.NewOnionRouter(),
		"public": h.NewPublicRouter(testSecurityConfig()),
	} {
		t.Run(name, func(t *testing.T) {
			rec := get(t, router, "/healthz")

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			var resp healthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding health response: %v", err)
			}
			if resp.Status != "ok" {
				t.Errorf("expected status ok, got %q", resp.Status)
			}
			if resp.OnionPublished {
				t.Error("onion_published must be false before discovery")
			}
		})
	}

	cell.Set(testAddr)
	rec := get(t, h.NewPublicRouter(testSecurityConfig()), "/healthz")

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OnionPublished || resp.OnionAddress != testAddr {
		t.Errorf("expected published address %q, got %+v", testAddr, resp)
	}
}

func TestPublicRouter_Metrics(t *testing.T) {
	h := NewHandler(onion.NewAddressCell())
	rec := get(t, h.NewPublicRouter(testSecurityConfig()), "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "onionfront_") {
		t.Error("expected onionfront metrics in the exposition")
	}
}

func TestOnionRouter_NoMetricsEndpoint(t *testing.T) {
	h := NewHandler(onion.NewAddressCell())
	rec := get(t, h.NewOnionRouter(), "/metrics")

	if rec.Code != http.StatusNotFound {
		t.Errorf("the onion listener must not expose /metrics, got %d", rec.Code)
	}
}

func TestPublicRouter_RateLimit(t *testing.T) {
	sec := testSecurityConfig()
	sec.RateLimitReqs = 2
	h := NewHandler(onion.NewAddressCell())
	router := h.NewPublicRouter(sec)

	for i := 0; i < 2; i++ {
		if rec := get(t, router, "/"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if rec := get(t, router, "/"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after exceeding the limit, got %d", rec.Code)
	}
}

func TestPublicRouter_RateLimitDisabled(t *testing.T) {
	sec := testSecurityConfig()
	sec.RateLimitReqs = 1
	sec.RateLimitDisabled = true
	h := NewHandler(onion.NewAddressCell())
	router := h.NewPublicRouter(sec)

	for i := 0; i < 5; i++ {
		if rec := get(t, router, "/"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with rate limiting disabled, got %d", i+1, rec.Code)
		}
	}
}
