// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/showrunner/internal/metrics"
)

func TestPrometheusMetrics_RoutePatternLabels(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Post("/api/v1/overlays/{channel}/{type}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	pattern := "/api/v1/overlays/{channel}/{type}"
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, pattern, "202")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/api/v1/overlays/poster/SHOW", "/api/v1/overlays/lower-third/HIDE"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests recorded under %s = %v, want 2", pattern, got)
	}
}

func TestPrometheusMetrics_UnmatchedAndImplicitStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	okCounter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/ok", "200")
	missCounter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	okBefore := testutil.ToFloat64(okCounter)
	missBefore := testutil.ToFloat64(missCounter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin.php", nil))

	if got := testutil.ToFloat64(okCounter) - okBefore; got != 1 {
		t.Errorf("ok requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(missCounter) - missBefore; got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestPrometheusMetrics_KeepsHijacker(t *testing.T) {
	var hijackable bool
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, hijackable = w.(http.Hijacker)
	}))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	if !hijackable {
		t.Error("wrapped ResponseWriter does not implement http.Hijacker")
	}
}
