package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-delivery/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceeded prometheus.Counter     `name:"rate_limit_exceeded_total"`
	Commands          *prometheus.CounterVec `name:"delivery_commands_total"`
	TrackingExpired   prometheus.Counter     `name:"tracking_sessions_expired_total"`
	EventsPublished   *prometheus.CounterVec `name:"realtime_events_published_total"`
	EventsDropped     prometheus.Counter     `name:"realtime_events_dropped_total"`
	Subscribers       prometheus.Gauge       `name:"realtime_subscribers"`
	RelayPublished    prometheus.Counter     `name:"event_relay_published_total"`
	RelayDropped      prometheus.Counter     `name:"event_relay_dropped_total"`
	GPSThrottled      prometheus.Counter     `name:"gps_samples_throttled_total"`

	HTTPRequests *prometheus.CounterVec   `name:"http_requests_total"`
	HTTPDuration *prometheus.HistogramVec `name:"http_request_duration_seconds"`
}

func newMetrics(reg prometheus.Registerer) (metricsOut, error) {
	out := metricsOut{
		RateLimitExceeded: metrics.NewRateLimitExceededTotal(),
		Commands:          metrics.NewDeliveryCommandsTotal(),
		TrackingExpired:   metrics.NewTrackingSessionsExpiredTotal(),
		EventsPublished:   metrics.NewRealtimeEventsPublishedTotal(),
		EventsDropped:     metrics.NewRealtimeEventsDroppedTotal(),
		Subscribers:       metrics.NewRealtimeSubscribers(),
		RelayPublished:    metrics.NewEventRelayPublishedTotal(),
		RelayDropped:      metrics.NewEventRelayDroppedTotal(),
		GPSThrottled:      metrics.NewGPSSamplesThrottledTotal(),
		HTTPRequests:      metrics.NewHTTPRequestsTotal(),
		HTTPDuration:      metrics.NewHTTPRequestDuration(),
	}
	for _, c := range []prometheus.Collector{
		out.RateLimitExceeded, out.Commands, out.TrackingExpired,
		out.EventsPublished, out.EventsDropped, out.Subscribers,
		out.RelayPublished, out.RelayDropped, out.GPSThrottled,
		out.HTTPRequests, out.HTTPDuration,
	} {
		if err := reg.Register(c); err != nil {
			return metricsOut{}, fmt.Errorf("register collector: %w", err)
		}
	}
	return out, nil
}

func registerMetrics(container *dig.Container, reg prometheus.Registerer, gatherer prometheus.Gatherer) error {
	return provideAll(container,
		func() prometheus.Registerer { return reg },
		func() prometheus.Gatherer { return gatherer },
		newMetrics,
	)
}
