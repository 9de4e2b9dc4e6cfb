package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/careslot/internal/app/bootstrap"
	"github.com/wolfman30/careslot/internal/observability/metrics"
)

func TestSetupMetricsExposesBookingMetrics(t *testing.T) {
	reg, handler := setupMetrics()
	if reg == nil || handler == nil {
		t.Fatalf("expected non-nil registry and handler")
	}

	m := metrics.NewBookingMetrics(reg)
	m.ObserveBooking("created")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "careslot_booking_create_total") {
		t.Fatalf("expected booking counter to be exported")
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected go runtime collector to be exported")
	}
}

func TestHealthChecksSkipUnconfiguredDependencies(t *testing.T) {
	if checks := healthChecks(&bootstrap.Runtime{}); len(checks) != 0 {
		t.Fatalf("expected no checks, got %d", len(checks))
	}
}
