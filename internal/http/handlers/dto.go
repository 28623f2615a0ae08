package handlers

import "service-delivery/internal/domain"

type itemDTO struct {
	ProductID string `json:"product_id" validate:"required"`
	ShopID    string `json:"shop_id" validate:"required"`
}

type pointDTO struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type registerDeliveryRequest struct {
	OrderID     int64     `json:"order_id" validate:"required,min=1"`
	Items       []itemDTO `json:"items" validate:"required,min=1,dive"`
	Destination *pointDTO `json:"destination,omitempty"`
}

type registerDeliveryResponse struct {
	Created  bool            `json:"created"`
	Delivery domain.Snapshot `json:"delivery"`
}

type collectItemRequest = itemDTO

type locationRequest = pointDTO

// validateRequest carries the scanned text when the client does not parse it itself.
type validateRequest struct {
	Payload *string `json:"payload"`
}

type qrResponse struct {
	Value          string `json:"value"`
	ValidationCode string `json:"validation_code"`
	OrderID        *int64 `json:"order_id,omitempty"`
	Timestamp      string `json:"timestamp"`
}
