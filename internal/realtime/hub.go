// Package realtime fans delivery events out to live subscribers.
//
// Every delivery has its own topic. Publishing never blocks: each subscriber
// owns a bounded buffer and an event that does not fit is dropped for that
// subscriber only. Topics cache the latest snapshot so a subscriber joining late
// can redraw without replaying history.
//
// Locks: the hub map is guarded by an RWMutex, each topic by its own mutex.
// A topic lock may be held while taking the hub lock, never the other way
// round. Neither is held while calling into the coordinator.
package realtime

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
)

var (
	// ErrSubscriberExists is returned when the subscriber id is already attached to the topic.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrHubClosed is returned after Close.
	ErrHubClosed = errors.New("hub is closed")
)

// Disconnect reasons carried by the disconnected signal.
const (
	ReasonCompleted    = "completed"
	ReasonEvicted      = "evicted"
	ReasonShutdown     = "shutdown"
	ReasonUnsubscribed = "unsubscribed"
)

// DefaultBuffer is the per-subscriber buffer used when none is configured.
const DefaultBuffer = 32

// Sink receives every published event after subscriber fan-out. Offer must not block.
type Sink interface {
	Offer(e domain.Event)
}

// Metrics are the optional collectors updated by the hub.
type Metrics struct {
	Published   *prometheus.CounterVec
	Dropped     prometheus.Counter
	Subscribers prometheus.Gauge
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Topics         int
	Subscribers    int
	TotalPublished uint64
	TotalDropped   uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithMetrics attaches prometheus collectors.
func WithMetrics(m Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithClock overrides the time source used for signals.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// Hub owns all delivery topics.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topic
	sinks  []Sink
	closed bool

	buffer  int
	log     logx.Logger
	metrics Metrics
	now     func() time.Time

	totalPublished atomic.Uint64
	totalDropped   atomic.Uint64
}

type topic struct {
	mu         sync.Mutex
	deliveryID string
	seq        uint64
	snapshot   *domain.Snapshot
	terminal   bool
	removed    bool
	subs       map[string]*Subscription
}

// NewHub returns an empty hub. A non-positive buffer falls back to DefaultBuffer.
func NewHub(buffer int, logger logx.Logger, opts ...Option) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = logx.Nop()
	}
	h := &Hub{
		topics: make(map[string]*topic),
		buffer: buffer,
		log:    logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddSink registers a sink. Sinks added after events were published only see later events.
func (h *Hub) AddSink(s Sink) {
	if s == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, s)
	h.mu.Unlock()
}

// Subscribe attaches subscriberID to the delivery's topic. The subscriber first
// gets a connected signal, then the cached snapshot if there is one. On a
// terminal topic the stream is closed right after that snapshot.
func (h *Hub) Subscribe(deliveryID, subscriberID string) (*Subscription, error) {
	if deliveryID == "" || subscriberID == "" {
		return nil, fmt.Errorf("%w: delivery and subscriber ids are required", apperr.ErrInvalid)
	}

	t, err := h.lockedTopic(deliveryID)
	if err != nil {
		return nil, err
	}
	defer t.mu.Unlock()

	if _, exists := t.subs[subscriberID]; exists {
		return nil, ErrSubscriberExists
	}

	sub := &Subscription{
		id:         subscriberID,
		deliveryID: deliveryID,
		events:     make(chan domain.Event, h.buffer),
		signals:    make(chan Signal, 2),
		hub:        h,
	}
	sub.signal(Signal{State: Connected, At: h.now()})

	if t.snapshot != nil {
		sub.offer(domain.NewSnapshotEvent(*t.snapshot, h.now()))
	}
	if t.terminal {
		sub.disconnect(ReasonCompleted, h.now())
		h.removeIfIdle(t)
		return sub, nil
	}

	t.subs[subscriberID] = sub
	h.subscriberAdded()
	return sub, nil
}

// Publish stamps the topic sequence number on e and offers it to every
// subscriber of e.DeliveryID, then to the sinks. A delivery_completed event
// marks the topic terminal and disconnects its subscribers. Events for a
// terminal topic are ignored.
func (h *Hub) Publish(e domain.Event) {
	if e.DeliveryID == "" {
		return
	}

	h.mu.RLock()
	sinks := h.sinks
	h.mu.RUnlock()

	t, err := h.lockedTopic(e.DeliveryID)
	if err != nil {
		return
	}
	defer t.mu.Unlock()

	if t.terminal {
		h.log.Debug("event for completed delivery ignored",
			logx.String("delivery_id", e.DeliveryID),
			logx.String("kind", string(e.Kind)),
		)
		return
	}

	t.seq++
	e.Seq = t.seq
	snap := e.Snapshot
	t.snapshot = &snap

	h.totalPublished.Add(1)
	if h.metrics.Published != nil {
		h.metrics.Published.WithLabelValues(string(e.Kind)).Inc()
	}

	for id, sub := range t.subs {
		if sub.offer(e) {
			continue
		}
		h.totalDropped.Add(1)
		if h.metrics.Dropped != nil {
			h.metrics.Dropped.Inc()
		}
		h.log.Debug("subscriber buffer full, event dropped",
			logx.String("delivery_id", e.DeliveryID),
			logx.String("subscriber_id", id),
			logx.String("kind", string(e.Kind)),
			logx.Any("seq", e.Seq),
		)
	}

	// sinks see events in the order subscribers do
	for _, s := range sinks {
		s.Offer(e)
	}

	if e.Terminal() {
		t.terminal = true
		h.disconnectAll(t, ReasonCompleted)
	}
}

// Prime seeds the cached snapshot of a topic without emitting an event. It
// never overwrites a snapshot set by Publish. A Delivered snapshot marks the
// topic terminal.
func (h *Hub) Prime(snap domain.Snapshot) {
	if snap.DeliveryID == "" {
		return
	}
	t, err := h.lockedTopic(snap.DeliveryID)
	if err != nil {
		return
	}
	defer t.mu.Unlock()
	if t.snapshot != nil {
		return
	}
	cp := snap
	t.snapshot = &cp
	if snap.Status.Terminal() {
		t.terminal = true
	}
}

// Drop evicts a topic and disconnects its subscribers.
func (h *Hub) Drop(deliveryID string) {
	h.mu.Lock()
	t, ok := h.topics[deliveryID]
	if ok {
		delete(h.topics, deliveryID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	t.removed = true
	h.disconnectAll(t, ReasonEvicted)
	t.mu.Unlock()
}

// Close disconnects every subscriber. Later Subscribe calls fail with ErrHubClosed
// and later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	topics := h.topics
	h.topics = make(map[string]*topic)
	h.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		t.removed = true
		h.disconnectAll(t, ReasonShutdown)
		t.mu.Unlock()
	}
}

// SubscriberCount returns the number of live subscribers of a delivery.
func (h *Hub) SubscriberCount(deliveryID string) int {
	h.mu.RLock()
	t, ok := h.topics[deliveryID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Stats returns hub-wide counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	topics := make([]*topic, 0, len(h.topics))
	for _, t := range h.topics {
		topics = append(topics, t)
	}
	h.mu.RUnlock()

	st := Stats{
		Topics:         len(topics),
		TotalPublished: h.totalPublished.Load(),
		TotalDropped:   h.totalDropped.Load(),
	}
	for _, t := range topics {
		t.mu.Lock()
		st.Subscribers += len(t.subs)
		t.mu.Unlock()
	}
	return st
}

func (h *Hub) topicFor(deliveryID string) (*topic, error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return nil, ErrHubClosed
	}
	t, ok := h.topics[deliveryID]
	h.mu.RUnlock()
	if ok {
		return t, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	if t, ok = h.topics[deliveryID]; ok {
		return t, nil
	}
	t = &topic{deliveryID: deliveryID, subs: make(map[string]*Subscription)}
	h.topics[deliveryID] = t
	return t, nil
}

// lockedTopic returns the live topic of deliveryID with its lock held. A topic
// removed while the caller waited for the lock is skipped.
func (h *Hub) lockedTopic(deliveryID string) (*topic, error) {
	for {
		t, err := h.topicFor(deliveryID)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		if !t.removed {
			return t, nil
		}
		t.mu.Unlock()
	}
}

// removeIfIdle forgets a topic nobody listens to and that carries no state,
// e.g. one created by a subscriber of an unknown delivery. Called with t.mu held.
func (h *Hub) removeIfIdle(t *topic) {
	if len(t.subs) > 0 || t.snapshot != nil {
		return
	}
	h.mu.Lock()
	if h.topics[t.deliveryID] == t {
		delete(h.topics, t.deliveryID)
	}
	h.mu.Unlock()
	t.removed = true
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.RLock()
	t, ok := h.topics[sub.deliveryID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.subs[sub.id]; !ok || cur != sub {
		return
	}
	delete(t.subs, sub.id)
	h.subscriberRemoved()
	sub.disconnect(ReasonUnsubscribed, h.now())
	h.removeIfIdle(t)
}

// disconnectAll must be called with t.mu held.
func (h *Hub) disconnectAll(t *topic, reason string) {
	at := h.now()
	for id, sub := range t.subs {
		delete(t.subs, id)
		h.subscriberRemoved()
		sub.disconnect(reason, at)
	}
}

func (h *Hub) subscriberAdded() {
	if h.metrics.Subscribers != nil {
		h.metrics.Subscribers.Inc()
	}
}

func (h *Hub) subscriberRemoved() {
	if h.metrics.Subscribers != nil {
		h.metrics.Subscribers.Dec()
	}
}
