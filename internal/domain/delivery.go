package domain

import (
	"fmt"
	"strings"
	"time"

	"service-delivery/internal/apperr"
	"service-delivery/internal/geo"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within range.
func (l Location) Valid() bool { return geo.ValidCoordinates(l.Lat, l.Lng) }

// ItemRef identifies one (product, shop) pickup of an order.
type ItemRef struct {
	ProductID string
	ShopID    string
}

// CollectionRecord tracks the pickup of one (product, shop) pair.
type CollectionRecord struct {
	ProductID   string           `json:"product_id"`
	ShopID      string           `json:"shop_id"`
	Status      CollectionStatus `json:"status"`
	CollectedAt *time.Time       `json:"collected_at,omitempty"`
}

// StatusChange describes one forward step of the lifecycle.
type StatusChange struct {
	From DeliveryStatus `json:"old_status"`
	To   DeliveryStatus `json:"new_status"`
}

// CollectionOutcome is the result of a successful RecordCollection.
type CollectionOutcome struct {
	Record         CollectionRecord
	CollectedCount int
	TotalItems     int
	// Transitions lists auto-advances caused by the collection, in the order applied.
	Transitions []StatusChange
	// Ready is true when this collection completed the pickup list.
	Ready bool
}

// Delivery is the root aggregate tracked by the coordinator.
// It is mutated exclusively through its methods; callers own the locking.
type Delivery struct {
	ID             string
	OrderID        int64
	Status         DeliveryStatus
	ValidationCode string
	CodeEpoch      int
	CodeConsumedAt *time.Time
	Collections    []CollectionRecord
	Destination    *Location

	LastKnownLocation *Location
	LocationAt        *time.Time

	GPSActive         bool
	TrackingEpoch     int
	TrackingStartedAt *time.Time
	TrackingEndsAt    *time.Time

	CreatedAt    time.Time
	CollectingAt *time.Time
	PickedUpAt   *time.Time
	DeliveredAt  *time.Time

	// Version is bumped by the store on every successful save.
	Version int64
}

// NewDelivery creates a Pending delivery with one pending record per distinct item.
func NewDelivery(id string, orderID int64, code string, items []ItemRef, dest *Location, now time.Time) (*Delivery, error) {
	id = strings.TrimSpace(id)
	if id == "" || orderID <= 0 || strings.TrimSpace(code) == "" {
		return nil, apperr.ErrInvalid
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: delivery needs at least one item", apperr.ErrInvalid)
	}
	if dest != nil && !dest.Valid() {
		return nil, fmt.Errorf("%w: destination out of range", apperr.ErrInvalid)
	}

	seen := make(map[ItemRef]struct{}, len(items))
	records := make([]CollectionRecord, 0, len(items))
	for _, it := range items {
		ref := ItemRef{ProductID: strings.TrimSpace(it.ProductID), ShopID: strings.TrimSpace(it.ShopID)}
		if ref.ProductID == "" || ref.ShopID == "" {
			return nil, fmt.Errorf("%w: empty product or shop id", apperr.ErrInvalid)
		}
		if _, dup := seen[ref]; dup {
			return nil, fmt.Errorf("%w: duplicate item %s@%s", apperr.ErrInvalid, ref.ProductID, ref.ShopID)
		}
		seen[ref] = struct{}{}
		records = append(records, CollectionRecord{
			ProductID: ref.ProductID,
			ShopID:    ref.ShopID,
			Status:    CollectionPending,
		})
	}

	d := &Delivery{
		ID:             id,
		OrderID:        orderID,
		Status:         StatusPending,
		ValidationCode: code,
		CodeEpoch:      1,
		Collections:    records,
		CreatedAt:      now,
	}
	if dest != nil {
		cp := *dest
		d.Destination = &cp
	}
	return d, nil
}

// TotalItems returns the fixed number of pickups.
func (d *Delivery) TotalItems() int { return len(d.Collections) }

// CollectedCount returns the number of collected pickups.
func (d *Delivery) CollectedCount() int {
	n := 0
	for _, c := range d.Collections {
		if c.Status == CollectionCollected {
			n++
		}
	}
	return n
}

// Progress returns collectedCount / totalItems in [0, 1].
func (d *Delivery) Progress() float64 {
	total := d.TotalItems()
	if total == 0 {
		return 0
	}
	return float64(d.CollectedCount()) / float64(total)
}

// RecordCollection marks the (product, shop) record as collected and applies the
// auto-advances: Pending → Collecting on the first pickup and Collecting → InTransit
// once every record is collected. Entering InTransit opens a tracking session
// bounded by sessionLimit.
func (d *Delivery) RecordCollection(productID, shopID string, now time.Time, sessionLimit time.Duration) (CollectionOutcome, error) {
	if d.Status.Terminal() {
		return CollectionOutcome{}, apperr.ErrInvalidTransition
	}

	idx := -1
	for i, c := range d.Collections {
		if c.ProductID == productID && c.ShopID == shopID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return CollectionOutcome{}, apperr.ErrUnknownItem
	}
	if d.Collections[idx].Status == CollectionCollected {
		return CollectionOutcome{}, apperr.ErrAlreadyCollected
	}

	at := now
	d.Collections[idx].Status = CollectionCollected
	d.Collections[idx].CollectedAt = &at

	out := CollectionOutcome{
		Record:     d.Collections[idx],
		TotalItems: d.TotalItems(),
	}
	out.CollectedCount = d.CollectedCount()

	if d.Status == StatusPending {
		out.Transitions = append(out.Transitions, d.advance(StatusCollecting, now))
	}
	if out.CollectedCount == out.TotalItems && d.Status == StatusCollecting {
		out.Transitions = append(out.Transitions, d.enterTransit(now, sessionLimit))
		out.Ready = true
	}
	return out, nil
}

// StartTransit is the explicit Collecting → InTransit command for when the
// auto-advance did not fire.
func (d *Delivery) StartTransit(now time.Time, sessionLimit time.Duration) (StatusChange, error) {
	if d.Status != StatusCollecting {
		return StatusChange{}, apperr.ErrInvalidTransition
	}
	if d.CollectedCount() != d.TotalItems() {
		return StatusChange{}, apperr.ErrNotAllCollected
	}
	return d.enterTransit(now, sessionLimit), nil
}

// MarkDelivered finishes the lifecycle, consumes the validation code and
// closes any tracking session.
func (d *Delivery) MarkDelivered(now time.Time) (StatusChange, error) {
	if d.Status != StatusInTransit {
		return StatusChange{}, apperr.ErrInvalidTransition
	}
	change := d.advance(StatusDelivered, now)
	at := now
	d.DeliveredAt = &at
	d.CodeConsumedAt = &at
	d.GPSActive = false
	return change, nil
}

// Validated reports whether the validation code has been consumed.
func (d *Delivery) Validated() bool {
	return d.CodeConsumedAt != nil || d.Status == StatusDelivered
}

// TrackingActive reports whether GPS samples are accepted at now.
func (d *Delivery) TrackingActive(now time.Time) bool {
	if d.Status != StatusInTransit || !d.GPSActive {
		return false
	}
	return d.TrackingEndsAt == nil || now.Before(*d.TrackingEndsAt)
}

// TrackingExpired reports whether the session is still flagged active but its
// ceiling has passed.
func (d *Delivery) TrackingExpired(now time.Time) bool {
	return d.Status == StatusInTransit && d.GPSActive &&
		d.TrackingEndsAt != nil && !now.Before(*d.TrackingEndsAt)
}

// UpdateLocation overwrites the last known location.
func (d *Delivery) UpdateLocation(loc Location, now time.Time) error {
	if !d.TrackingActive(now) {
		return apperr.ErrDeliveryNotActive
	}
	if !loc.Valid() {
		return fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}
	cp := loc
	at := now
	d.LastKnownLocation = &cp
	d.LocationAt = &at
	return nil
}

// ExpireTracking closes the session with the given epoch. It returns false when
// that session is no longer the active one.
func (d *Delivery) ExpireTracking(epoch int) bool {
	if !d.GPSActive || d.TrackingEpoch != epoch {
		return false
	}
	d.GPSActive = false
	return true
}

// StopTracking closes the current session on request of the agent.
func (d *Delivery) StopTracking() (bool, error) {
	if d.Status != StatusInTransit {
		return false, apperr.ErrDeliveryNotActive
	}
	if !d.GPSActive {
		return false, nil
	}
	d.GPSActive = false
	return true, nil
}

// ResumeTracking opens a new session epoch for an InTransit delivery whose
// previous session was stopped. It is a no-op while a session is running.
// The ceiling counts from pickup, so a resumed session ends when the first one
// would have, and nothing can be resumed past it.
func (d *Delivery) ResumeTracking(now time.Time, sessionLimit time.Duration) (bool, error) {
	if d.Status != StatusInTransit {
		return false, apperr.ErrDeliveryNotActive
	}
	if d.TrackingActive(now) {
		return false, nil
	}
	end := d.trackingCeiling(sessionLimit)
	if end != nil && !now.Before(*end) {
		return false, apperr.ErrDeliveryNotActive
	}
	d.openSession(now, end)
	return true, nil
}

// RotateValidationCode replaces the code while the delivery is still Pending and
// starts a new code epoch.
func (d *Delivery) RotateValidationCode(code string) error {
	if d.Status != StatusPending {
		return apperr.ErrInvalidTransition
	}
	if strings.TrimSpace(code) == "" {
		return apperr.ErrInvalid
	}
	d.ValidationCode = code
	d.CodeEpoch++
	return nil
}

// Clone returns a deep copy.
func (d *Delivery) Clone() *Delivery {
	cp := *d
	cp.Collections = make([]CollectionRecord, len(d.Collections))
	for i, c := range d.Collections {
		c.CollectedAt = copyTime(c.CollectedAt)
		cp.Collections[i] = c
	}
	cp.CodeConsumedAt = copyTime(d.CodeConsumedAt)
	cp.Destination = copyLocation(d.Destination)
	cp.LastKnownLocation = copyLocation(d.LastKnownLocation)
	cp.LocationAt = copyTime(d.LocationAt)
	cp.TrackingStartedAt = copyTime(d.TrackingStartedAt)
	cp.TrackingEndsAt = copyTime(d.TrackingEndsAt)
	cp.CollectingAt = copyTime(d.CollectingAt)
	cp.PickedUpAt = copyTime(d.PickedUpAt)
	cp.DeliveredAt = copyTime(d.DeliveredAt)
	return &cp
}

func (d *Delivery) advance(next DeliveryStatus, now time.Time) StatusChange {
	change := StatusChange{From: d.Status, To: next}
	d.Status = next
	if next == StatusCollecting {
		at := now
		d.CollectingAt = &at
	}
	return change
}

func (d *Delivery) enterTransit(now time.Time, sessionLimit time.Duration) StatusChange {
	change := d.advance(StatusInTransit, now)
	at := now
	d.PickedUpAt = &at
	d.openSession(now, d.trackingCeiling(sessionLimit))
	return change
}

// trackingCeiling is PickedUpAt + sessionLimit; nil when there is no limit.
func (d *Delivery) trackingCeiling(sessionLimit time.Duration) *time.Time {
	if sessionLimit <= 0 || d.PickedUpAt == nil {
		return nil
	}
	end := d.PickedUpAt.Add(sessionLimit)
	return &end
}

func (d *Delivery) openSession(now time.Time, end *time.Time) {
	d.GPSActive = true
	d.TrackingEpoch++
	start := now
	d.TrackingStartedAt = &start
	d.TrackingEndsAt = end
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	v := *l
	return &v
}
