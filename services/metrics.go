package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus instruments. Each Metrics registers on
// the registerer it is given so tests can use a private registry.
type Metrics struct {
	AllocationsCreated   *prometheus.CounterVec
	AllocationsCancelled *prometheus.CounterVec
	Rejections           *prometheus.CounterVec
	RefreshDuration      *prometheus.HistogramVec
	Unplaced             *prometheus.CounterVec
	ReconcileFixes       prometheus.Counter
	NotifyFailures       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AllocationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accommodation",
			Name:      "allocations_created_total",
			Help:      "Allocations created, by accommodation and room type.",
		}, []string{"accommodation_type", "room_type"}),
		AllocationsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accommodation",
			Name:      "allocations_cancelled_total",
			Help:      "Allocations cancelled, by accommodation type.",
		}, []string{"accommodation_type"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accommodation",
			Name:      "allocation_rejections_total",
			Help:      "Booking requests rejected, by reason.",
		}, []string{"reason"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accommodation",
			Name:      "bulk_assignment_duration_seconds",
			Help:      "Duration of refresh and assign passes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		Unplaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accommodation",
			Name:      "unplaced_occupants_total",
			Help:      "Occupants left without a room by a bulk pass.",
		}, []string{"mode"}),
		ReconcileFixes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accommodation",
			Name:      "reconcile_corrections_total",
			Help:      "Cached counters rewritten by reconcile.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accommodation",
			Name:      "notify_failures_total",
			Help:      "Allocation notifications that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.AllocationsCreated,
			m.AllocationsCancelled,
			m.Rejections,
			m.RefreshDuration,
			m.Unplaced,
			m.ReconcileFixes,
			m.NotifyFailures,
		)
	}
	return m
}

func (m *Metrics) reject(err error) {
	m.Rejections.WithLabelValues(rejectionReason(err)).Inc()
}
