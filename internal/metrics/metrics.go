package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewDeliveryCommandsTotal returns a counter of coordinator commands by command and result
func NewDeliveryCommandsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_commands_total",
		Help: "Total number of delivery commands by command and result",
	}, []string{"command", "result"})
}

// NewTrackingSessionsExpiredTotal returns a counter of GPS sessions closed by the duration ceiling
func NewTrackingSessionsExpiredTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracking_sessions_expired_total",
		Help: "Total number of GPS tracking sessions closed by the duration ceiling",
	})
}

// NewRealtimeEventsPublishedTotal returns a counter of events published to realtime topics by kind
func NewRealtimeEventsPublishedTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_published_total",
		Help: "Total number of events published to realtime topics by kind",
	}, []string{"kind"})
}

// NewRealtimeEventsDroppedTotal returns a counter of events dropped for slow subscribers
func NewRealtimeEventsDroppedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_events_dropped_total",
		Help: "Total number of events dropped because a subscriber buffer was full",
	})
}

// NewRealtimeSubscribers returns a gauge of connected realtime subscribers
func NewRealtimeSubscribers() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_subscribers",
		Help: "Number of connected realtime subscribers",
	})
}

// NewEventRelayPublishedTotal returns a counter of delivery events written to Kafka
func NewEventRelayPublishedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "event_relay_published_total",
		Help: "Total number of delivery events written to Kafka",
	})
}

// NewEventRelayDroppedTotal returns a counter of delivery events the relay could not write
func NewEventRelayDroppedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "event_relay_dropped_total",
		Help: "Total number of delivery events dropped by the Kafka relay",
	})
}

// NewGPSSamplesThrottledTotal returns a counter of GPS samples rejected by the per-delivery limiter
func NewGPSSamplesThrottledTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gps_samples_throttled_total",
		Help: "Total number of GPS samples rejected by the per-delivery rate limiter",
	})
}

// NewHTTPRequestsTotal returns a counter of served HTTP requests by method, route and status
func NewHTTPRequestsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
}

// NewHTTPRequestDuration returns a histogram of HTTP request latency by method, route and status
func NewHTTPRequestDuration() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
}
