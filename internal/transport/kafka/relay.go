package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
)

// DefaultRelayBuffer is the number of events held while the producer is slow.
const DefaultRelayBuffer = 256

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

var newSyncProducer = sarama.NewSyncProducer

// NewSyncProducer connects a producer for the relay. It returns nil, nil when Kafka is not configured.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	// один ключ = одна партиция, порядок событий доставки сохраняется
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return newSyncProducer(brokers, cfg)
}

// RelayMetrics are the counters updated by the relay.
type RelayMetrics struct {
	Published prometheus.Counter
	Dropped   prometheus.Counter
}

// Relay forwards delivery events to a Kafka topic for downstream consumers.
// It never blocks the publisher: events that do not fit in the buffer are dropped.
type Relay struct {
	producer sarama.SyncProducer
	topic    string
	breaker  *gobreaker.CircuitBreaker
	buf      chan domain.Event
	logger   logx.Logger
	metrics  RelayMetrics

	closeOnce sync.Once
}

// NewRelay returns nil when producer is nil so an unconfigured relay can be wired as-is.
func NewRelay(logger logx.Logger, producer sarama.SyncProducer, topic string, buffer int, m RelayMetrics) *Relay {
	if producer == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if buffer <= 0 {
		buffer = DefaultRelayBuffer
	}
	logger = logger.With(logx.String("topic", topic))

	r := &Relay{
		producer: producer,
		topic:    topic,
		buf:      make(chan domain.Event, buffer),
		logger:   logger,
		metrics:  m,
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-relay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logx.String("name", name),
				logx.String("from", from.String()),
				logx.String("to", to.String()),
			)
		},
	})
	return r
}

// Offer queues e for sending.
func (r *Relay) Offer(e domain.Event) {
	if r == nil {
		return
	}
	select {
	case r.buf <- e:
	default:
		r.drop()
		r.logger.Debug("relay buffer full, event dropped",
			logx.String("delivery_id", e.DeliveryID),
			logx.String("kind", string(e.Kind)),
		)
	}
}

// Run sends queued events until ctx is done, then flushes what is already buffered.
func (r *Relay) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil
		case e := <-r.buf:
			r.send(e)
		}
	}
}

// Close closes the producer.
func (r *Relay) Close() error {
	if r == nil {
		return nil
	}
	var err error
	r.closeOnce.Do(func() { err = r.producer.Close() })
	return err
}

func (r *Relay) flush() {
	for {
		select {
		case e := <-r.buf:
			r.send(e)
		default:
			return
		}
	}
}

func (r *Relay) send(e domain.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		r.drop()
		r.logger.Error("relay marshal failed", logx.String("delivery_id", e.DeliveryID), logx.Err(err))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: r.topic,
		Key:   sarama.StringEncoder(e.DeliveryID),
		Value: sarama.ByteEncoder(payload),
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		_, _, err := r.producer.SendMessage(msg)
		return nil, err
	})
	if err != nil {
		r.drop()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return
		}
		r.logger.Warn("relay send failed",
			logx.String("delivery_id", e.DeliveryID),
			logx.String("kind", string(e.Kind)),
			logx.Err(err),
		)
		return
	}
	if r.metrics.Published != nil {
		r.metrics.Published.Inc()
	}
}

func (r *Relay) drop() {
	if r.metrics.Dropped != nil {
		r.metrics.Dropped.Inc()
	}
}
