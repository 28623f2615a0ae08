package domain

import (
	"time"

	"github.com/google/uuid"

	"service-delivery/internal/geo"
)

// EventKind tags the outbound event union.
type EventKind string

// List of event kinds published on a delivery topic.
const (
	EventSnapshot          EventKind = "snapshot"
	EventLocationUpdated   EventKind = "location_updated"
	EventStatusChanged     EventKind = "status_changed"
	EventItemCollected     EventKind = "item_collected"
	EventDeliveryReady     EventKind = "delivery_ready"
	EventDeliveryCompleted EventKind = "delivery_completed"
	EventTrackingStopped   EventKind = "tracking_stopped"
)

// Reasons carried by tracking_stopped.
const (
	TrackingReasonExpired = "expired"
	TrackingReasonStopped = "stopped"
)

// Snapshot is an immutable view of a delivery, sufficient for a client to redraw.
// It never carries the validation code.
type Snapshot struct {
	DeliveryID              string             `json:"delivery_id"`
	OrderID                 int64              `json:"order_id"`
	Status                  DeliveryStatus     `json:"status"`
	Collections             []CollectionRecord `json:"collections"`
	TotalItems              int                `json:"total_items"`
	CollectedCount          int                `json:"collected_count"`
	Progress                float64            `json:"progress"`
	Destination             *Location          `json:"destination,omitempty"`
	LastKnownLocation       *Location          `json:"last_known_location,omitempty"`
	LocationAt              *time.Time         `json:"location_at,omitempty"`
	DistanceToDestinationKm *float64           `json:"distance_to_destination_km,omitempty"`
	BearingToDestinationDeg *float64           `json:"bearing_to_destination_deg,omitempty"`
	GPSActive               bool               `json:"gps_active"`
	TrackingEndsAt          *time.Time         `json:"tracking_ends_at,omitempty"`
	CreatedAt               time.Time          `json:"created_at"`
	PickedUpAt              *time.Time         `json:"picked_up_at,omitempty"`
	DeliveredAt             *time.Time         `json:"delivered_at,omitempty"`
}

// Snapshot returns a value copy of the delivery's observable state.
func (d *Delivery) Snapshot() Snapshot {
	c := d.Clone()
	s := Snapshot{
		DeliveryID:        c.ID,
		OrderID:           c.OrderID,
		Status:            c.Status,
		Collections:       c.Collections,
		TotalItems:        c.TotalItems(),
		CollectedCount:    c.CollectedCount(),
		Progress:          c.Progress(),
		Destination:       c.Destination,
		LastKnownLocation: c.LastKnownLocation,
		LocationAt:        c.LocationAt,
		GPSActive:         c.GPSActive,
		TrackingEndsAt:    c.TrackingEndsAt,
		CreatedAt:         c.CreatedAt,
		PickedUpAt:        c.PickedUpAt,
		DeliveredAt:       c.DeliveredAt,
	}
	if s.Destination != nil && s.LastKnownLocation != nil {
		from, to := *s.LastKnownLocation, *s.Destination
		dist := geo.DistanceKm(from.Lat, from.Lng, to.Lat, to.Lng)
		bearing := geo.BearingDeg(from.Lat, from.Lng, to.Lat, to.Lng)
		s.DistanceToDestinationKm = &dist
		s.BearingToDestinationDeg = &bearing
	}
	return s
}

// ItemCollected is the payload of item_collected.
type ItemCollected struct {
	ProductID      string `json:"product_id"`
	ShopID         string `json:"shop_id"`
	CollectedCount int    `json:"collected_count"`
	TotalItems     int    `json:"total_items"`
}

// TrackingChange is the payload of tracking_stopped.
type TrackingChange struct {
	Reason string `json:"reason"`
}

// Event is one message of a delivery topic. Seq is stamped by the realtime hub.
type Event struct {
	ID           string          `json:"id"`
	DeliveryID   string          `json:"delivery_id"`
	Kind         EventKind       `json:"kind"`
	Seq          uint64          `json:"seq"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Location     *Location       `json:"location,omitempty"`
	StatusChange *StatusChange   `json:"status_change,omitempty"`
	Item         *ItemCollected  `json:"item,omitempty"`
	Tracking     *TrackingChange `json:"tracking,omitempty"`
	Snapshot     Snapshot        `json:"snapshot"`
}

func newEvent(kind EventKind, snap Snapshot, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		DeliveryID: snap.DeliveryID,
		Kind:       kind,
		OccurredAt: at,
		Snapshot:   snap,
	}
}

// NewSnapshotEvent builds the bootstrap event sent to new subscribers.
func NewSnapshotEvent(snap Snapshot, at time.Time) Event {
	return newEvent(EventSnapshot, snap, at)
}

// NewLocationUpdated builds a location_updated event.
func NewLocationUpdated(snap Snapshot, loc Location, at time.Time) Event {
	e := newEvent(EventLocationUpdated, snap, at)
	e.Location = &loc
	return e
}

// NewStatusChanged builds a status_changed event.
func NewStatusChanged(snap Snapshot, change StatusChange, at time.Time) Event {
	e := newEvent(EventStatusChanged, snap, at)
	e.StatusChange = &change
	return e
}

// NewItemCollected builds an item_collected event.
func NewItemCollected(snap Snapshot, out CollectionOutcome, at time.Time) Event {
	e := newEvent(EventItemCollected, snap, at)
	e.Item = &ItemCollected{
		ProductID:      out.Record.ProductID,
		ShopID:         out.Record.ShopID,
		CollectedCount: out.CollectedCount,
		TotalItems:     out.TotalItems,
	}
	return e
}

// NewDeliveryReady builds a delivery_ready event.
func NewDeliveryReady(snap Snapshot, at time.Time) Event {
	return newEvent(EventDeliveryReady, snap, at)
}

// NewDeliveryCompleted builds a delivery_completed event.
func NewDeliveryCompleted(snap Snapshot, at time.Time) Event {
	return newEvent(EventDeliveryCompleted, snap, at)
}

// NewTrackingStopped builds a tracking_stopped event.
func NewTrackingStopped(snap Snapshot, reason string, at time.Time) Event {
	e := newEvent(EventTrackingStopped, snap, at)
	e.Tracking = &TrackingChange{Reason: reason}
	return e
}

// Terminal reports whether the event closes the topic.
func (e Event) Terminal() bool {
	return e.Kind == EventDeliveryCompleted
}
