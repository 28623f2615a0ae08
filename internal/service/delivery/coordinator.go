package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/realtime"
	"service-delivery/internal/validation"
)

// Config holds coordinator tunables.
type Config struct {
	// TrackingMaxDuration is the hard ceiling of one GPS session. Zero disables it.
	TrackingMaxDuration time.Duration
	// OperationTimeout bounds every storage call.
	OperationTimeout time.Duration
}

// NewDelivery is the input of Register.
type NewDelivery struct {
	OrderID     int64
	Items       []domain.ItemRef
	Destination *domain.Location
}

type stopper interface {
	Stop() bool
}

// entry is the unit of locking: one per delivery.
type entry struct {
	mu         sync.Mutex
	d          *domain.Delivery
	timer      stopper
	timerEpoch int
}

// Coordinator is the only writer of Delivery state. Commands on the same
// delivery are serialised by the entry lock; different deliveries never contend
// beyond the short registry lookup.
type Coordinator struct {
	store  deliveryStore
	events eventPublisher
	codes  codeGenerator
	logger logx.Logger
	cfg    Config

	now       func() time.Time
	newID     func() string
	afterFunc func(time.Duration, func()) stopper

	commands *prometheus.CounterVec
	expired  prometheus.Counter

	mu      sync.Mutex
	entries map[string]*entry
	closed  atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics attaches the command and session-expiry counters.
func WithMetrics(commands *prometheus.CounterVec, expired prometheus.Counter) Option {
	return func(c *Coordinator) {
		c.commands = commands
		c.expired = expired
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator returns a Coordinator.
func NewCoordinator(
	store deliveryStore,
	events eventPublisher,
	codes codeGenerator,
	cfg Config,
	logger logx.Logger,
	opts ...Option,
) *Coordinator {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	c := &Coordinator{
		store:   store,
		events:  events,
		codes:   codes,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		entries: make(map[string]*entry),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.OperationTimeout)
}

// Register creates the delivery of an order with a fresh validation code.
// Registering the same order again returns the existing delivery and false.
func (c *Coordinator) Register(ctx context.Context, in NewDelivery) (domain.Snapshot, bool, error) {
	const command = "register"
	if in.OrderID <= 0 {
		c.fail(command, "", apperr.ErrInvalid)
		return domain.Snapshot{}, false, apperr.ErrInvalid
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if existing, err := c.store.GetByOrderID(ctx, in.OrderID); err == nil {
		c.count(command, nil)
		return existing.Snapshot(), false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		c.fail(command, "", err)
		return domain.Snapshot{}, false, err
	}

	code, err := c.codes.Generate()
	if err != nil {
		c.fail(command, "", err)
		return domain.Snapshot{}, false, err
	}

	d, err := domain.NewDelivery(c.newID(), in.OrderID, code, in.Items, in.Destination, c.now())
	if err != nil {
		c.fail(command, "", err)
		return domain.Snapshot{}, false, err
	}

	if err := c.store.Create(ctx, d); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			// lost a race with another registration of the same order
			existing, getErr := c.store.GetByOrderID(ctx, in.OrderID)
			if getErr == nil {
				c.count(command, nil)
				return existing.Snapshot(), false, nil
			}
		}
		c.fail(command, "", err)
		return domain.Snapshot{}, false, err
	}

	c.mu.Lock()
	c.entries[d.ID] = &entry{d: d.Clone()}
	c.mu.Unlock()

	snap := d.Snapshot()
	c.events.Prime(snap)
	c.count(command, nil)
	c.logger.Info("delivery registered",
		logx.String("event", "delivery_registered"),
		logx.String("delivery_id", d.ID),
		logx.Int64("order_id", d.OrderID),
		logx.Int("total_items", d.TotalItems()),
	)
	return snap, true, nil
}

// Get returns the current snapshot of a delivery.
func (c *Coordinator) Get(ctx context.Context, id string) (domain.Snapshot, error) {
	e, err := c.acquire(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer e.mu.Unlock()
	return e.d.Snapshot(), nil
}

// QRPayload returns the value the buyer app renders as a QR code.
func (c *Coordinator) QRPayload(ctx context.Context, id string) (validation.Payload, error) {
	e, err := c.acquire(ctx, id)
	if err != nil {
		return validation.Payload{}, err
	}
	defer e.mu.Unlock()

	if e.d.Validated() {
		return validation.Payload{}, apperr.ErrAlreadyValidated
	}
	return validation.NewPayload(e.d.ValidationCode, e.d.OrderID, c.now()), nil
}

// Subscribe attaches a subscriber to the delivery topic. Unknown deliveries
// still get a subscription; it just never carries events.
func (c *Coordinator) Subscribe(ctx context.Context, id, subscriberID string) (*realtime.Subscription, error) {
	snap, err := c.Get(ctx, id)
	switch {
	case err == nil:
		c.events.Prime(snap)
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, err
	}
	return c.events.Subscribe(id, subscriberID)
}

// EvictTerminal forgets deliveries delivered before olderThan and drops their
// topics. It returns how many were evicted.
func (c *Coordinator) EvictTerminal(olderThan time.Time) int {
	c.mu.Lock()
	candidates := make(map[string]*entry, len(c.entries))
	for id, e := range c.entries {
		candidates[id] = e
	}
	c.mu.Unlock()

	evicted := 0
	for id, e := range candidates {
		e.mu.Lock()
		done := e.d != nil && e.d.Status.Terminal() &&
			e.d.DeliveredAt != nil && e.d.DeliveredAt.Before(olderThan)
		e.mu.Unlock()
		if !done {
			continue
		}

		c.mu.Lock()
		if c.entries[id] == e {
			delete(c.entries, id)
			evicted++
		}
		c.mu.Unlock()
		c.events.Drop(id)
	}

	if evicted > 0 {
		c.logger.Info("terminal deliveries evicted",
			logx.String("event", "deliveries_evicted"),
			logx.Int("count", evicted),
		)
	}
	return evicted
}

// Shutdown stops every tracking timer and disconnects all subscribers.
func (c *Coordinator) Shutdown() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		c.stopTimer(e)
		e.mu.Unlock()
	}
	c.events.Close()
	c.logger.Info("delivery coordinator stopped")
}

// acquire returns the locked entry of a delivery, loading it from the store on
// first use. The caller must unlock it.
func (c *Coordinator) acquire(ctx context.Context, id string) (*entry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty delivery id", apperr.ErrInvalid)
	}

	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	if e.d != nil {
		return e, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	d, err := c.store.Get(ctx, id)
	if err != nil {
		e.mu.Unlock()
		c.mu.Lock()
		if c.entries[id] == e {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return nil, err
	}

	e.d = d
	c.syncTimer(id, e)
	return e, nil
}

// change describes what a successful command did to the clone it was given.
type change struct {
	persist bool
	events  func(snap domain.Snapshot, at time.Time) []domain.Event
}

// apply runs fn against a clone of the delivery. The clone is persisted when
// asked and only then becomes the current state; events are published after
// the swap, still under the entry lock, so subscribers see them in apply order.
func (c *Coordinator) apply(
	ctx context.Context,
	id, command string,
	fn func(next *domain.Delivery, now time.Time) (change, error),
) (*domain.Delivery, error) {
	e, err := c.acquire(ctx, id)
	if err != nil {
		c.fail(command, id, err)
		return nil, err
	}
	defer e.mu.Unlock()

	now := c.now()
	next := e.d.Clone()
	ch, err := fn(next, now)
	if err != nil {
		c.fail(command, id, err)
		return nil, err
	}

	if ch.persist {
		saveCtx, cancel := c.withTimeout(ctx)
		err := c.store.Save(saveCtx, next)
		cancel()
		if err != nil {
			err = fmt.Errorf("save delivery %s: %w", id, err)
			c.fail(command, id, err)
			return nil, err
		}
	}

	e.d = next
	if ch.events != nil {
		for _, ev := range ch.events(next.Snapshot(), now) {
			c.events.Publish(ev)
		}
	}
	c.syncTimer(id, e)
	c.count(command, nil)
	return next.Clone(), nil
}

func (c *Coordinator) count(command string, err error) {
	if c.commands == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = apperr.Code(err)
	}
	c.commands.WithLabelValues(command, result).Inc()
}

// fail counts and logs a rejected command. Taxonomy errors are expected and go
// to warn; anything else is a storage or wiring problem.
func (c *Coordinator) fail(command, id string, err error) {
	c.count(command, err)
	fields := []logx.Field{
		logx.String("event", command+"_failed"),
		logx.String("delivery_id", id),
		logx.String("code", apperr.Code(err)),
		logx.Err(err),
	}
	switch {
	case command == cmdReportLocation && errors.Is(err, apperr.ErrDeliveryNotActive):
		c.logger.Debug("stale gps sample dropped", fields...)
	case apperr.Code(err) == "internal":
		c.logger.Error("delivery command failed", fields...)
	default:
		c.logger.Warn("delivery command rejected", fields...)
	}
}
