package domain

type (
	// DeliveryStatus represents the lifecycle status of a delivery.
	DeliveryStatus string
	// CollectionStatus represents the status of a single (product, shop) pickup.
	CollectionStatus string
)

// List of possible delivery statuses, in lifecycle order.
const (
	StatusPending    DeliveryStatus = "pending"
	StatusCollecting DeliveryStatus = "collecting"
	StatusInTransit  DeliveryStatus = "in_transit"
	StatusDelivered  DeliveryStatus = "delivered"
)

// List of possible collection statuses.
const (
	CollectionPending   CollectionStatus = "pending"
	CollectionCollected CollectionStatus = "collected"
)

var statusOrder = [...]DeliveryStatus{
	StatusPending, StatusCollecting, StatusInTransit, StatusDelivered,
}

func (s DeliveryStatus) rank() int {
	for i, v := range statusOrder {
		if s == v {
			return i
		}
	}
	return -1
}

// Valid checks if the DeliveryStatus is valid
func (s DeliveryStatus) Valid() bool {
	return s.rank() >= 0
}

// Terminal reports whether no further mutation is permitted.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered
}

// CanAdvanceTo reports whether next is exactly one step forward from s.
// The lifecycle never skips or regresses.
func (s DeliveryStatus) CanAdvanceTo(next DeliveryStatus) bool {
	r := s.rank()
	return r >= 0 && next.rank() == r+1
}

// Valid checks if the CollectionStatus is valid
func (s CollectionStatus) Valid() bool {
	return s == CollectionPending || s == CollectionCollected
}
