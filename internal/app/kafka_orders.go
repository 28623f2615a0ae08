package app

import (
	"context"
	"errors"

	"service-delivery/internal/apperr"
	"service-delivery/internal/service/orders"
	"service-delivery/internal/transport/kafka"
)

// makeOrdersKafka adapts the processor to the consumer. Events that can never
// become a delivery are marked permanent so the consumer skips them instead of retrying.
func makeOrdersKafka(p *orders.Processor) kafka.HandleFunc {
	return func(ctx context.Context, event orders.Event) error {
		err := p.Handle(ctx, event)
		if errors.Is(err, apperr.ErrInvalid) {
			return kafka.Permanent(err)
		}
		return err
	}
}
