// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PushEventsTotal tracks push events by type and outcome.
	PushEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_push_events_total",
			Help: "Push events processed by the reconciliation engine",
		},
		[]string{"type", "outcome"},
	)

	// CrossTenantDropsTotal tracks payloads rejected by the tenant guard.
	CrossTenantDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_cross_tenant_drops_total",
			Help: "Payloads dropped because they belong to another tenant",
		},
		[]string{"source"},
	)

	// DuplicatesSuppressedTotal tracks messages the deduplicator merged away.
	DuplicatesSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_duplicates_suppressed_total",
			Help: "Incoming messages suppressed as duplicates",
		},
		[]string{"rule"},
	)

	// StaleFetchesDiscardedTotal tracks fetch results rejected by the selection guard.
	StaleFetchesDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_stale_fetches_discarded_total",
			Help: "Fetch results discarded because the selection changed",
		},
	)

	// SnapshotMergesTotal tracks snapshot merges by whether they changed state.
	SnapshotMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_snapshot_merges_total",
			Help: "Conversation-list snapshot merges",
		},
		[]string{"result"},
	)

	// OptimisticSendsTotal tracks optimistic send outcomes.
	OptimisticSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_optimistic_sends_total",
			Help: "Optimistic message sends by outcome",
		},
		[]string{"outcome"},
	)

	// RequestDuration tracks HTTP request duration on the facade.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests on the facade.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// AssistSuggestionsTotal tracks reply-suggestion requests by outcome.
	AssistSuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_assist_suggestions_total",
			Help: "Reply suggestion requests",
		},
		[]string{"provider", "outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
