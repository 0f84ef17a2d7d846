package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wayfarer"

// BookingMetrics tracks checkout throughput and payment latency.
type BookingMetrics struct {
	payments        *prometheus.CounterVec
	paymentLatency  *prometheus.HistogramVec
	bookings        prometheus.Counter
	commitConflicts prometheus.Counter
}

// NewBookingMetrics registers booking collectors. A nil registerer yields a no-op recorder.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	m := &BookingMetrics{
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment attempts by method and outcome.",
		}, []string{"method", "status"}),
		paymentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_seconds",
			Help:      "Gateway round trip for payment attempts.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10},
		}, []string{"method"}),
		bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_confirmed_total",
			Help:      "Trips marked booked after a successful payment.",
		}),
		commitConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "itinerary_commit_conflicts_total",
			Help:      "Itinerary commits rejected because of a stale version.",
		}),
	}
	reg.MustRegister(m.payments, m.paymentLatency, m.bookings, m.commitConflicts)
	return m
}

// ObservePayment records one gateway attempt.
func (m *BookingMetrics) ObservePayment(method, status string, took time.Duration) {
	if m == nil || m.payments == nil {
		return
	}
	method = normalizeLabel(method)
	m.payments.WithLabelValues(method, normalizeLabel(status)).Inc()
	m.paymentLatency.WithLabelValues(method).Observe(took.Seconds())
}

// IncBooked counts a confirmed booking.
func (m *BookingMetrics) IncBooked() {
	if m == nil || m.bookings == nil {
		return
	}
	m.bookings.Inc()
}

// IncCommitConflict counts a rejected stale commit.
func (m *BookingMetrics) IncCommitConflict() {
	if m == nil || m.commitConflicts == nil {
		return
	}
	m.commitConflicts.Inc()
}
