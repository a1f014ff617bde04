// Copyright 2025 Certen Protocol
//
// Package metrics wires the teacher's unwired prometheus/client_golang
// dependency into the pre-handle core: counts of dispatched signature
// verifications, pre-handle outcomes by status and response code, and
// worker-pool occupancy gauges.

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the collectors the pre-handle core reports.
type Registry struct {
	VerificationsDispatched *prometheus.CounterVec
	PreHandleOutcomes       *prometheus.CounterVec
	WorkerPoolOccupancy     *prometheus.GaugeVec
	VerificationLatency     *prometheus.HistogramVec
}

// NewRegistry constructs and registers the pre-handle core's collectors
// against reg. Passing prometheus.NewRegistry() keeps metrics scoped to a
// single Workflow instance; passing prometheus.DefaultRegisterer shares the
// process-wide default registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		VerificationsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prehandle",
			Name:      "verifications_dispatched_total",
			Help:      "Signature verifications dispatched, by key kind.",
		}, []string{"kind"}),
		PreHandleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prehandle",
			Name:      "outcomes_total",
			Help:      "PreHandle results, by status and response code.",
		}, []string{"status", "response_code"}),
		WorkerPoolOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "prehandle",
			Name:      "worker_pool_occupancy",
			Help:      "In-flight units occupying a bounded pool.",
		}, []string{"pool"}),
		VerificationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prehandle",
			Name:      "verification_latency_seconds",
			Help:      "Time from dispatch to completion of a signature verification.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.VerificationsDispatched,
		m.PreHandleOutcomes,
		m.WorkerPoolOccupancy,
		m.VerificationLatency,
	)
	return m
}
