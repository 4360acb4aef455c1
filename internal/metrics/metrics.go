// Package metrics defines the Prometheus instrumentation shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broadcaster metrics
var (
	// BroadcasterConnectedClients tracks the number of connected WebSocket clients
	BroadcasterConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcaster_connected_clients",
			Help: "Number of connected WebSocket dashboard clients",
		},
	)

	// BroadcasterTicksTotal counts broadcast ticks
	BroadcasterTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcaster_ticks_total",
			Help: "Total broadcast scheduler ticks",
		},
	)

	// BroadcasterSlowClientsEvicted tracks number of slow clients evicted
	BroadcasterSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcaster_slow_clients_evicted_total",
			Help: "Total number of slow WebSocket clients evicted due to buffer full",
		},
	)

	// BroadcasterPanicsTotal tracks broadcaster panic recoveries
	BroadcasterPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcaster_panics_recovered_total",
			Help: "Total panics recovered in the broadcaster goroutine",
		},
	)

	// BroadcasterTickDuration tracks how long one broadcast tick takes
	BroadcasterTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcaster_tick_duration_seconds",
			Help:    "Broadcast tick duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)
)

// Snapshot generation metrics
var (
	// SnapshotsGeneratedTotal counts generated dashboard snapshots by source
	SnapshotsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshots_generated_total",
			Help: "Total dashboard snapshots produced by data source",
		},
		[]string{"source"},
	)

	// SnapshotGenerationDuration tracks snapshot synthesis latency
	SnapshotGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_generation_duration_seconds",
			Help:    "Snapshot synthesis duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)

// Advisor (external AI text service) metrics
var (
	// AdvisorRequestsTotal counts AI service requests by outcome
	AdvisorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_requests_total",
			Help: "Total AI advisor requests by status (ok/error/fallback)",
		},
		[]string{"status"},
	)

	// AdvisorRequestDuration tracks AI service request latency
	AdvisorRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_request_duration_seconds",
			Help:    "AI advisor request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// AdvisorBreakerState tracks the advisor circuit breaker state (0=closed, 1=half-open, 2=open)
	AdvisorBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_circuit_breaker_state",
			Help: "Advisor circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Archive metrics
var (
	// ArchiveWritesTotal counts fire-and-forget snapshot archive writes by status
	ArchiveWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_writes_total",
			Help: "Total snapshot archive writes by status",
		},
		[]string{"status"},
	)
)

// WebSocket client writer metrics
var (
	// WebSocketPingFailures counts failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures",
		},
	)
)
