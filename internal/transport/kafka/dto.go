package kafka

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"service-delivery/internal/service/orders"
)

// ErrEmptyOrderID is returned by ToDomain when the event has no usable order id.
var ErrEmptyOrderID = errors.New("empty order_id")

// ItemDTO is one ordered product
type ItemDTO struct {
	ProductID string `json:"product_id"`
	ShopID    string `json:"shop_id"`
}

// PointDTO is a coordinate pair
type PointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EventDTO is a data transfer object for orders.Event.
// order_id is accepted both as a number and as a numeric string.
type EventDTO struct {
	OrderID     json.Number `json:"order_id"`
	Status      string      `json:"status"`
	Items       []ItemDTO   `json:"items"`
	Destination *PointDTO   `json:"destination,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ToDomain converts EventDTO to orders.Event
func ToDomain(dto EventDTO) (orders.Event, error) {
	raw := strings.TrimSpace(dto.OrderID.String())
	if raw == "" {
		return orders.Event{}, ErrEmptyOrderID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return orders.Event{}, ErrEmptyOrderID
	}

	ev := orders.Event{
		OrderID:   id,
		Status:    strings.TrimSpace(dto.Status),
		Items:     make([]orders.Item, 0, len(dto.Items)),
		CreatedAt: dto.CreatedAt,
	}
	for _, it := range dto.Items {
		ev.Items = append(ev.Items, orders.Item{
			ProductID: strings.TrimSpace(it.ProductID),
			ShopID:    strings.TrimSpace(it.ShopID),
		})
	}
	if dto.Destination != nil {
		ev.Destination = &orders.Destination{Lat: dto.Destination.Lat, Lng: dto.Destination.Lng}
	}
	return ev, nil
}
