//go:generate mockgen -source=contracts.go -destination=delivery_mocks_test.go -package=delivery

package delivery

import (
	"context"

	"service-delivery/internal/domain"
	"service-delivery/internal/realtime"
)

// deliveryStore persists the Delivery aggregate. Save and Create bump Version.
type deliveryStore interface {
	Create(ctx context.Context, d *domain.Delivery) error
	Get(ctx context.Context, id string) (*domain.Delivery, error)
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Delivery, error)
	Save(ctx context.Context, d *domain.Delivery) error
}

// eventPublisher is the realtime side of the coordinator.
type eventPublisher interface {
	Publish(e domain.Event)
	Prime(snap domain.Snapshot)
	Subscribe(deliveryID, subscriberID string) (*realtime.Subscription, error)
	Drop(deliveryID string)
	Close()
}

type codeGenerator interface {
	Generate() (string, error)
}
