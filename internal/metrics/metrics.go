package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Shared cache hit/miss counters
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_cache_hits_total",
			Help: "Total number of shared cache hits",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_cache_misses_total",
			Help: "Total number of shared cache misses",
		},
		[]string{"namespace", "cause"}, // cause: absent, expired, version
	)

	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_cache_writes_total",
			Help: "Total number of shared cache writes",
		},
		[]string{"operation", "origin"}, // operation: update, invalidate, clear; origin: local, remote
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_cache_errors_total",
			Help: "Total number of cache errors",
		},
		[]string{"level", "kind"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "route_guard_cache_entries",
			Help: "Number of entries in the local store",
		},
	)

	SweptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "route_guard_cache_swept_total",
			Help: "Total number of expired entries removed by the sweep",
		},
	)

	// Broadcast counters
	BroadcastMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_broadcast_messages_total",
			Help: "Total number of broadcast messages by direction and outcome",
		},
		[]string{"direction", "type", "outcome"}, // direction: sent, received
	)

	// Validator latency and failures
	ValidatorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "route_guard_validator_duration_seconds",
			Help:    "Duration of remote license validator calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"validator"},
	)

	ValidatorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_validator_errors_total",
			Help: "Total number of failed validator calls",
		},
		[]string{"validator"},
	)

	LicenseStates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_license_states_total",
			Help: "Total number of resolved license states by kind and source",
		},
		[]string{"kind", "source"}, // source: cache, validator
	)

	// Access decisions
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_decisions_total",
			Help: "Total number of access decisions by outcome and reason",
		},
		[]string{"allowed", "reason"},
	)

	Navigations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_navigations_total",
			Help: "Total number of navigation attempts by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: committed, redirected, superseded
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "route_guard_websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)
)

// RecordCacheHit records a shared cache hit
func RecordCacheHit(namespace string) {
	CacheHits.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss records a shared cache miss with its cause
func RecordCacheMiss(namespace, cause string) {
	CacheMisses.WithLabelValues(namespace, cause).Inc()
}

// RecordCacheWrite records an applied cache mutation
func RecordCacheWrite(operation string, remote bool) {
	origin := "local"
	if remote {
		origin = "remote"
	}
	CacheWrites.WithLabelValues(operation, origin).Inc()
}

// RecordCacheError records a cache error with level and kind
func RecordCacheError(level, kind string) {
	CacheErrors.WithLabelValues(level, kind).Inc()
}

// UpdateCacheEntries updates the local store size gauge
func UpdateCacheEntries(count int) {
	CacheEntries.Set(float64(count))
}

// RecordSwept records entries removed by a sweep pass
func RecordSwept(count int) {
	SweptEntries.Add(float64(count))
}

// RecordBroadcast records a broadcast message
func RecordBroadcast(direction, msgType, outcome string) {
	BroadcastMessages.WithLabelValues(direction, msgType, outcome).Inc()
}

// TimeValidatorCall returns a timer function for measuring a validator call
func TimeValidatorCall(validator string) func() {
	timer := prometheus.NewTimer(ValidatorDuration.WithLabelValues(validator))
	return func() {
		timer.ObserveDuration()
	}
}

// RecordValidatorError records a failed validator call
func RecordValidatorError(validator string) {
	ValidatorErrors.WithLabelValues(validator).Inc()
}

// RecordLicenseState records a resolved license state
func RecordLicenseState(kind, source string) {
	LicenseStates.WithLabelValues(kind, source).Inc()
}

// RecordDecision records an access decision
func RecordDecision(allowed bool, reason string) {
	label := "false"
	if allowed {
		label = "true"
	}
	Decisions.WithLabelValues(label, reason).Inc()
}

// RecordNavigation records a navigation attempt outcome
func RecordNavigation(kind, outcome string) {
	Navigations.WithLabelValues(kind, outcome).Inc()
}

// UpdateWebSocketClients updates the WebSocket client gauge
func UpdateWebSocketClients(count int) {
	WebSocketClients.Set(float64(count))
}
