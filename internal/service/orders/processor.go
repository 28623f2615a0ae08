package orders

import (
	"context"
	"errors"
	"fmt"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/service/delivery"
)

// Processor turns order events into delivery registrations
type Processor struct {
	delivery DeliveryPort
	logger   logx.Logger
	factory  *actionFactory
}

// NewProcessor creates a new orders.Processor
func NewProcessor(deliverySvc DeliveryPort, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Processor{
		delivery: deliverySvc,
		logger:   logger,
	}
	p.factory = newActionFactory(p.onPlaced)
	return p
}

// Handle processes a single orders.Event
func (p *Processor) Handle(ctx context.Context, e Event) error {
	if p.factory == nil {
		return nil
	}
	fn, known := p.factory.get(e.Status)
	if fn == nil {
		if !known {
			p.logger.Debug("unknown order status skipped",
				logx.Int64("order_id", e.OrderID),
				logx.String("status", e.Status),
			)
		}
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onPlaced(ctx context.Context, e Event) error {
	in := delivery.NewDelivery{
		OrderID: e.OrderID,
		Items:   make([]domain.ItemRef, 0, len(e.Items)),
	}
	for _, it := range e.Items {
		in.Items = append(in.Items, domain.ItemRef{ProductID: it.ProductID, ShopID: it.ShopID})
	}
	if e.Destination != nil {
		in.Destination = &domain.Location{Lat: e.Destination.Lat, Lng: e.Destination.Lng}
	}

	snap, created, err := p.delivery.Register(ctx, in)
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return nil
	case errors.Is(err, apperr.ErrInvalid):
		p.logger.Warn("order event rejected",
			logx.Int64("order_id", e.OrderID),
			logx.Err(err),
		)
		return fmt.Errorf("order %d: %w", e.OrderID, err)
	case err != nil:
		return fmt.Errorf("register delivery for order %d: %w", e.OrderID, err)
	}

	if created {
		p.logger.Info("delivery registered from order event",
			logx.Int64("order_id", e.OrderID),
			logx.String("delivery_id", snap.DeliveryID),
		)
	}
	return nil
}
