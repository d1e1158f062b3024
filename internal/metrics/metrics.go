// Package metrics exposes Prometheus instruments for the ledger and the RPC
// layer. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tabkeeper"

type Metrics struct {
	allocations        *prometheus.CounterVec
	partialAllocations prometheus.Counter
	versionConflicts   prometheus.Counter
	rpcDuration        *prometheus.HistogramVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_allocations_total",
			Help:      "Payment allocation attempts by outcome.",
		}, []string{"outcome"}),
		partialAllocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_allocations_total",
			Help:      "Allocations whose transaction update succeeded but whose payment record was not written.",
		}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Conditional transaction updates rejected because of a concurrent change.",
		}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Duration of unary RPCs by procedure and code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	reg.MustRegister(m.allocations, m.partialAllocations, m.versionConflicts, m.rpcDuration)
	return m
}

// RecordAllocation counts one allocation attempt. outcome is "applied" or
// the failure kind.
func (m *Metrics) RecordAllocation(outcome string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordPartialAllocation() {
	if m == nil {
		return
	}
	m.partialAllocations.Inc()
}

func (m *Metrics) RecordVersionConflict() {
	if m == nil {
		return
	}
	m.versionConflicts.Inc()
}

// ObserveRPC records the duration of one RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}
