package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-delivery/internal/config"
	"service-delivery/internal/jobs"
	"service-delivery/internal/logx"
	"service-delivery/internal/ratelimit"
	"service-delivery/internal/realtime"
	"service-delivery/internal/service/delivery"
	"service-delivery/internal/service/orders"
	"service-delivery/internal/transport/kafka"
	"service-delivery/internal/transport/mqtt"
)

const (
	gpsBucketTTL = 10 * time.Minute
	gpsMaxBucket = 100_000
)

var newSyncProducer = kafka.NewSyncProducer

func newOrdersConsumer(cfg *config.Config, logger logx.Logger, p *orders.Processor) (*kafka.Consumer, error) {
	k := cfg.Kafka
	return kafka.NewConsumer(logger, k.Brokers, k.GroupID, k.OrdersTopic, makeOrdersKafka(p))
}

type relayIn struct {
	dig.In

	Config    *config.Config
	Logger    logx.Logger
	Hub       *realtime.Hub
	Published prometheus.Counter `name:"event_relay_published_total"`
	Dropped   prometheus.Counter `name:"event_relay_dropped_total"`
}

// newEventRelay also attaches the relay to the hub, so every published event is forwarded.
func newEventRelay(in relayIn) (*kafka.Relay, error) {
	producer, err := newSyncProducer(in.Config.Kafka.Brokers)
	if err != nil {
		return nil, err
	}
	relay := kafka.NewRelay(in.Logger, producer, in.Config.Kafka.EventsTopic, kafka.DefaultRelayBuffer, kafka.RelayMetrics{
		Published: in.Published,
		Dropped:   in.Dropped,
	})
	if relay != nil {
		in.Hub.AddSink(relay)
	}
	return relay, nil
}

type gpsIn struct {
	dig.In

	Config      *config.Config
	Logger      logx.Logger
	Coordinator *delivery.Coordinator
	Throttled   prometheus.Counter `name:"gps_samples_throttled_total"`
}

func newGPSListener(in gpsIn) *mqtt.Listener {
	c := in.Config.MQTT
	limiter := ratelimit.PerWindow(ratelimit.RealClock{}, c.GPSLimitPerMinute, time.Minute, gpsBucketTTL, gpsMaxBucket)
	return mqtt.NewListener(in.Logger, mqtt.Config{
		Broker:      c.Broker,
		ClientID:    c.ClientID,
		TopicPrefix: c.TopicPrefix,
	}, in.Coordinator, limiter, in.Throttled)
}

func newJanitor(cfg *config.Config, logger logx.Logger, c *delivery.Coordinator) *jobs.Janitor {
	return jobs.NewJanitor(logger, c, cfg.Delivery.JanitorSchedule, cfg.Delivery.EvictAfter)
}

func registerTransport(container *dig.Container) error {
	return provideAll(container,
		newOrdersConsumer,
		newEventRelay,
		newGPSListener,
		newJanitor,
	)
}
