package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveValidation("email", true)
	m.ObserveValidation("email", true)
	m.ObserveValidation("phone", false)
	m.ObserveAvailability("available")
	m.ObserveSubmissionAttempt(false)
	m.ObserveSubmissionAttempt(true)
	m.ObserveBooking("success")
	m.ObserveProviderLatency("create_booking", 0.2)

	if got := testutil.ToFloat64(m.validationsTotal.WithLabelValues("email", "true")); got != 2 {
		t.Fatalf("email validations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.submissionAttempts.WithLabelValues("error")); got != 1 {
		t.Fatalf("failed attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("bookings = %v, want 1", got)
	}
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveValidation("email", true)
	m.ObserveAvailability("error")
	m.ObserveSubmissionAttempt(true)
	m.ObserveBooking("conflict")
	m.ObserveProviderLatency("slots", 0.1)
}
