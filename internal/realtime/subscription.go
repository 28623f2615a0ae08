package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"service-delivery/internal/domain"
)

// ConnState is the connection state reported on the signal channel.
type ConnState string

// Connection states.
const (
	Connected    ConnState = "connected"
	Disconnected ConnState = "disconnected"
)

// Signal reports a connection state change, separate from domain events.
type Signal struct {
	State  ConnState `json:"state"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// SubscriberStats counts what the hub did with events for one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// Subscription is one subscriber attached to one delivery topic.
// Both channels are closed by the hub when the subscriber is disconnected.
type Subscription struct {
	id         string
	deliveryID string
	events     chan domain.Event
	signals    chan Signal
	hub        *Hub

	once    sync.Once
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// ID returns the subscriber id.
func (s *Subscription) ID() string { return s.id }

// DeliveryID returns the topic the subscription is attached to.
func (s *Subscription) DeliveryID() string { return s.deliveryID }

// Events returns the domain event stream.
func (s *Subscription) Events() <-chan domain.Event { return s.events }

// Signals returns the connection signal stream. It buffers both the connected
// and the disconnected signal, so neither is lost to a slow reader.
func (s *Subscription) Signals() <-chan Signal { return s.signals }

// Stats returns the delivery counters of this subscriber.
func (s *Subscription) Stats() SubscriberStats {
	return SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}
}

// Close detaches the subscriber. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// offer and signal are called with the topic lock held, so the hub is the
// only sender and a channel is never written after it is closed.
func (s *Subscription) offer(e domain.Event) bool {
	select {
	case s.events <- e:
		s.sent.Add(1)
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

func (s *Subscription) signal(sig Signal) {
	select {
	case s.signals <- sig:
		return
	default:
	}
	// full: the newest state wins
	select {
	case <-s.signals:
	default:
	}
	select {
	case s.signals <- sig:
	default:
	}
}

func (s *Subscription) disconnect(reason string, at time.Time) {
	s.once.Do(func() {
		s.signal(Signal{State: Disconnected, Reason: reason, At: at})
		close(s.signals)
		close(s.events)
	})
}
