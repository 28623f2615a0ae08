//go:generate mockgen -source=contracts.go -destination=orders_mocks_test.go -package=orders_test

package orders

import (
	"context"

	"service-delivery/internal/domain"
	"service-delivery/internal/service/delivery"
)

// DeliveryPort abstracts the subset of delivery coordinator operations
// needed by orders Processor when handling order events
type DeliveryPort interface {
	Register(ctx context.Context, in delivery.NewDelivery) (domain.Snapshot, bool, error)
}
