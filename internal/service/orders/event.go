package orders

import (
	"time"
)

// Item is a product ordered from a shop
type Item struct {
	ProductID string `json:"product_id"`
	ShopID    string `json:"shop_id"`
}

// Destination is the drop-off point of an order
type Destination struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a single order event
type Event struct {
	OrderID     int64        `json:"order_id"`
	Status      string       `json:"status"`
	Items       []Item       `json:"items"`
	Destination *Destination `json:"destination,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
