package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// StoreQueryLatency records store latency by operation and collection.
	StoreQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadline_store_query_latency_seconds",
		Help:    "Document store query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation", "collection"})

	// InteractionToggles counts like/follow mutations by outcome.
	InteractionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_interaction_toggles_total",
		Help: "Like and follow mutations by kind and outcome",
	}, []string{"kind", "outcome"})

	// CounterSoftFailures counts denormalized counter writes that failed after
	// the edge mutation already succeeded.
	CounterSoftFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_counter_soft_failures_total",
		Help: "Denormalized counter updates that failed after a successful edge write",
	}, []string{"counter"})

	// CounterRepairs counts posts whose counters were rewritten by a recount.
	CounterRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_counter_repairs_total",
		Help: "Counters corrected by the reconciliation job",
	}, []string{"counter"})

	// Notifications counts notification jobs by kind and result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_notifications_total",
		Help: "Notification jobs by kind and result (created, failed, dropped, suppressed)",
	}, []string{"kind", "result"})

	// NotificationQueueDepth is the number of jobs waiting for a worker.
	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadline_notification_queue_depth",
		Help: "Notification jobs waiting for a worker",
	})

	// RateLimitDecisions counts admission decisions by route class.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_rate_limit_decisions_total",
		Help: "Rate limiter decisions by route class",
	}, []string{"class", "decision"})

	// RateLimitBuckets is the number of live token buckets.
	RateLimitBuckets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadline_rate_limit_buckets",
		Help: "Token buckets currently held in memory",
	})

	// FeedItemsDropped counts feed rows left out of a page.
	FeedItemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_feed_items_dropped_total",
		Help: "Feed items dropped during assembly by reason",
	}, []string{"reason"})

	// WebSocketConnections is the gauge of open realtime connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadline_websocket_connections",
		Help: "Open realtime notification connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadline_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records store latency when called (e.g. defer).
func TrackQuery(backend, operation, collection string) func() {
	start := time.Now()
	return func() {
		StoreQueryLatency.WithLabelValues(backend, operation, collection).Observe(time.Since(start).Seconds())
	}
}
