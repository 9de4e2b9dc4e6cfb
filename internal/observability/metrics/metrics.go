package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the booking core.
type BookingMetrics struct {
	validationsTotal   *prometheus.CounterVec
	availabilityTotal  *prometheus.CounterVec
	submissionAttempts *prometheus.CounterVec
	bookingsTotal      *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		validationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "validations_total",
			Help:      "Contact detail validations by kind and outcome",
		}, []string{"kind", "valid"}),
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "availability_checks_total",
			Help:      "Availability reconciliation results",
		}, []string{"result"}),
		submissionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "submission_attempts_total",
			Help:      "Individual booking submission calls to the scheduling provider",
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "create_total",
			Help:      "CreateBooking outcomes by terminal state",
		}, []string{"outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careslot",
			Subsystem: "provider",
			Name:      "request_latency_seconds",
			Help:      "Latency of scheduling provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.validationsTotal, m.availabilityTotal, m.submissionAttempts, m.bookingsTotal, m.providerLatency)
	return m
}

func (m *BookingMetrics) ObserveValidation(kind string, valid bool) {
	if m == nil {
		return
	}
	m.validationsTotal.WithLabelValues(kind, strconv.FormatBool(valid)).Inc()
}

// ObserveAvailability records one reconciliation; result is "available",
// "unavailable" or "error".
func (m *BookingMetrics) ObserveAvailability(result string) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveSubmissionAttempt(success bool) {
	if m == nil {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	m.submissionAttempts.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveProviderLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(operation).Observe(seconds)
}
