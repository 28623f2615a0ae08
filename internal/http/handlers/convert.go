package handlers

import (
	"service-delivery/internal/domain"
	"service-delivery/internal/service/delivery"
	"service-delivery/internal/validation"
)

func (r registerDeliveryRequest) toModel() delivery.NewDelivery {
	in := delivery.NewDelivery{
		OrderID: r.OrderID,
		Items:   make([]domain.ItemRef, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, domain.ItemRef{ProductID: it.ProductID, ShopID: it.ShopID})
	}
	if r.Destination != nil {
		loc := r.Destination.toModel()
		in.Destination = &loc
	}
	return in
}

// toModel expects a validated point.
func (p pointDTO) toModel() domain.Location {
	return domain.Location{Lat: *p.Lat, Lng: *p.Lng}
}

func payloadToResponse(p validation.Payload) (qrResponse, error) {
	value, err := p.Encode()
	if err != nil {
		return qrResponse{}, err
	}
	return qrResponse{
		Value:          value,
		ValidationCode: p.ValidationCode,
		OrderID:        p.OrderID,
		Timestamp:      p.Timestamp,
	}, nil
}
