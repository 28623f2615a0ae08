package handlers

import (
	"context"

	"service-delivery/internal/domain"
	"service-delivery/internal/realtime"
	"service-delivery/internal/service/delivery"
	"service-delivery/internal/validation"
)

type deliveryUsecase interface {
	Register(ctx context.Context, in delivery.NewDelivery) (domain.Snapshot, bool, error)
	Get(ctx context.Context, id string) (domain.Snapshot, error)
	QRPayload(ctx context.Context, id string) (validation.Payload, error)
	CollectItem(ctx context.Context, id, productID, shopID string) (domain.Snapshot, error)
	StartTransit(ctx context.Context, id string) (domain.Snapshot, error)
	ReportLocation(ctx context.Context, id string, loc domain.Location) (domain.Snapshot, error)
	StopTracking(ctx context.Context, id string) (domain.Snapshot, error)
	ResumeTracking(ctx context.Context, id string) (domain.Snapshot, error)
	Validate(ctx context.Context, id string, p validation.Payload) (domain.Snapshot, error)
	RotateCode(ctx context.Context, id string) (validation.Payload, error)
}

type streamUsecase interface {
	Subscribe(ctx context.Context, id, subscriberID string) (*realtime.Subscription, error)
}

// NewDeliveryUsecase wires a Coordinator into a deliveryUsecase.
func NewDeliveryUsecase(c *delivery.Coordinator) deliveryUsecase {
	return c
}

// NewStreamUsecase wires a Coordinator into a streamUsecase.
func NewStreamUsecase(c *delivery.Coordinator) streamUsecase {
	return c
}
