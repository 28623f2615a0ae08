package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/ratelimit"
	"service-delivery/internal/validation"
)

const (
	connectTimeout   = 5 * time.Second
	subscribeTimeout = 5 * time.Second
	qosAtMostOnce    = 0
)

// maxSampleAge drops samples that sat in a device queue too long.
const maxSampleAge = 2 * time.Minute

// LocationReporter applies a GPS sample to a delivery.
type LocationReporter interface {
	ReportLocation(ctx context.Context, id string, loc domain.Location) (domain.Snapshot, error)
}

// Config describes the broker connection.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// Listener receives GPS samples published by agent devices on <prefix>/<deliveryID>/location.
type Listener struct {
	cfg       Config
	reporter  LocationReporter
	limiter   ratelimit.Limiter
	throttled prometheus.Counter
	logger    logx.Logger
	now       func() time.Time

	client paho.Client

	mu        sync.RWMutex
	connected bool
	baseCtx   context.Context
}

// NewListener returns nil when no broker is configured.
func NewListener(logger logx.Logger, cfg Config, reporter LocationReporter, limiter ratelimit.Limiter, throttled prometheus.Counter) *Listener {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if limiter == nil {
		limiter = ratelimit.NopLimiter{}
	}
	cfg.TopicPrefix = strings.Trim(cfg.TopicPrefix, "/")
	return &Listener{
		cfg:       cfg,
		reporter:  reporter,
		limiter:   limiter,
		throttled: throttled,
		logger:    logger.With(logx.String("broker", cfg.Broker)),
		now:       time.Now,
		baseCtx:   context.Background(),
	}
}

// Topic is the subscription filter.
func (l *Listener) Topic() string {
	return l.cfg.TopicPrefix + "/+/location"
}

// Start connects to the broker. Subscriptions are (re)made on every connect.
func (l *Listener) Start(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	l.baseCtx = ctx
	l.mu.Unlock()

	opts := paho.NewClientOptions()
	opts.AddBroker(brokerURL(l.cfg.Broker))
	opts.SetClientID(l.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetCleanSession(true)

	opts.OnConnect = func(c paho.Client) {
		l.setConnected(true)
		l.logger.Info("mqtt connection established", logx.String("topic", l.Topic()))
		tok := c.Subscribe(l.Topic(), qosAtMostOnce, l.onMessage)
		if !tok.WaitTimeout(subscribeTimeout) {
			l.logger.Error("mqtt subscribe timeout", logx.String("topic", l.Topic()))
			return
		}
		if err := tok.Error(); err != nil {
			l.logger.Error("mqtt subscribe failed", logx.String("topic", l.Topic()), logx.Err(err))
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		l.setConnected(false)
		l.logger.Warn("mqtt connection lost, will auto-reconnect", logx.Err(err))
	}

	l.client = paho.NewClient(opts)
	tok := l.client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		// с SetConnectRetry клиент продолжит попытки в фоне
		l.logger.Warn("mqtt connect is taking long, retrying in background")
		return nil
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects from the broker.
func (l *Listener) Stop() {
	if l == nil || l.client == nil {
		return
	}
	l.client.Disconnect(250)
	l.setConnected(false)
}

// Connected reports the last known connection state.
func (l *Listener) Connected() bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

func (l *Listener) setConnected(v bool) {
	l.mu.Lock()
	l.connected = v
	l.mu.Unlock()
}

func (l *Listener) context() context.Context {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.baseCtx
}

func (l *Listener) onMessage(_ paho.Client, msg paho.Message) {
	l.handle(l.context(), msg.Topic(), msg.Payload())
}

type sample struct {
	Lat       *float64   `json:"lat" validate:"required,latitude"`
	Lng       *float64   `json:"lng" validate:"required,longitude"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// handle processes one sample. Bad samples are logged and dropped; there is no reply channel.
func (l *Listener) handle(ctx context.Context, topic string, payload []byte) {
	id, ok := deliveryIDFromTopic(l.cfg.TopicPrefix, topic)
	if !ok {
		l.logger.Warn("mqtt unexpected topic", logx.String("topic", topic))
		return
	}
	logger := l.logger.With(logx.String("delivery_id", id))

	var s sample
	if err := json.Unmarshal(payload, &s); err != nil {
		logger.Warn("mqtt bad json", logx.Err(err))
		return
	}
	if err := validation.CheckInput(s); err != nil {
		logger.Warn("mqtt invalid sample", logx.Err(err))
		return
	}
	if s.Timestamp != nil && l.now().Sub(*s.Timestamp) > maxSampleAge {
		logger.Debug("mqtt stale sample dropped", logx.Duration("age", l.now().Sub(*s.Timestamp)))
		return
	}
	if !l.limiter.Allow(id) {
		if l.throttled != nil {
			l.throttled.Inc()
		}
		logger.Debug("mqtt sample throttled")
		return
	}

	_, err := l.reporter.ReportLocation(ctx, id, domain.Location{Lat: *s.Lat, Lng: *s.Lng})
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrDeliveryNotActive), errors.Is(err, apperr.ErrNotFound):
		logger.Debug("mqtt sample ignored", logx.Err(err))
		// трекинг закончился, бакет больше не нужен
		if f, ok := l.limiter.(forgetter); ok {
			f.Forget(id)
		}
	default:
		logger.Warn("mqtt report location failed", logx.Err(err))
	}
}

type forgetter interface {
	Forget(key string)
}

// deliveryIDFromTopic extracts the id from <prefix>/<id>/location.
func deliveryIDFromTopic(prefix, topic string) (string, bool) {
	rest := topic
	if prefix != "" {
		var ok bool
		rest, ok = strings.CutPrefix(topic, prefix+"/")
		if !ok {
			return "", false
		}
	}
	id, ok := strings.CutSuffix(rest, "/location")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}
