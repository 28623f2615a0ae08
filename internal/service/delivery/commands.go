package delivery

import (
	"context"
	"time"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/validation"
)

// Command names used in logs and metrics.
const (
	cmdCollectItem    = "collect_item"
	cmdStartTransit   = "start_transit"
	cmdReportLocation = "report_location"
	cmdStopTracking   = "stop_tracking"
	cmdResumeTracking = "resume_tracking"
	cmdValidate       = "validate"
	cmdRotateCode     = "rotate_code"
)

// CollectItem records the pickup of one (product, shop) pair. It publishes
// item_collected, a status_changed per auto-advance, and delivery_ready when the
// last item was collected.
func (c *Coordinator) CollectItem(ctx context.Context, id, productID, shopID string) (domain.Snapshot, error) {
	var out domain.CollectionOutcome
	d, err := c.apply(ctx, id, cmdCollectItem, func(next *domain.Delivery, now time.Time) (change, error) {
		var err error
		out, err = next.RecordCollection(productID, shopID, now, c.cfg.TrackingMaxDuration)
		if err != nil {
			return change{}, err
		}
		return change{
			persist: true,
			events: func(snap domain.Snapshot, at time.Time) []domain.Event {
				evs := []domain.Event{domain.NewItemCollected(snap, out, at)}
				for _, tr := range out.Transitions {
					evs = append(evs, domain.NewStatusChanged(snap, tr, at))
				}
				if out.Ready {
					evs = append(evs, domain.NewDeliveryReady(snap, at))
				}
				return evs
			},
		}, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	c.logger.Info("item collected",
		logx.String("event", cmdCollectItem),
		logx.String("delivery_id", d.ID),
		logx.String("product_id", productID),
		logx.String("shop_id", shopID),
		logx.Int("collected", out.CollectedCount),
		logx.Int("total", out.TotalItems),
		logx.String("status", string(d.Status)),
	)
	return d.Snapshot(), nil
}

// StartTransit is the manual Collecting → InTransit override.
func (c *Coordinator) StartTransit(ctx context.Context, id string) (domain.Snapshot, error) {
	d, err := c.apply(ctx, id, cmdStartTransit, func(next *domain.Delivery, now time.Time) (change, error) {
		tr, err := next.StartTransit(now, c.cfg.TrackingMaxDuration)
		if err != nil {
			return change{}, err
		}
		return change{
			persist: true,
			events: func(snap domain.Snapshot, at time.Time) []domain.Event {
				return []domain.Event{domain.NewStatusChanged(snap, tr, at)}
			},
		}, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	c.logger.Info("transit started",
		logx.String("event", cmdStartTransit),
		logx.String("delivery_id", d.ID),
	)
	return d.Snapshot(), nil
}

// Validate checks the scanned payload and completes the delivery. Failed
// attempts leave the delivery untouched and can be retried.
func (c *Coordinator) Validate(ctx context.Context, id string, p validation.Payload) (domain.Snapshot, error) {
	d, err := c.apply(ctx, id, cmdValidate, func(next *domain.Delivery, now time.Time) (change, error) {
		if next.Validated() {
			return change{}, apperr.ErrAlreadyValidated
		}
		if err := validation.Match(next.ValidationCode, next.OrderID, p); err != nil {
			return change{}, err
		}
		tr, err := next.MarkDelivered(now)
		if err != nil {
			return change{}, err
		}
		return change{
			persist: true,
			events: func(snap domain.Snapshot, at time.Time) []domain.Event {
				return []domain.Event{
					domain.NewStatusChanged(snap, tr, at),
					domain.NewDeliveryCompleted(snap, at),
				}
			},
		}, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	c.logger.Info("delivery validated",
		logx.String("event", cmdValidate),
		logx.String("delivery_id", d.ID),
		logx.Int64("order_id", d.OrderID),
	)
	return d.Snapshot(), nil
}

// RotateCode issues a new validation code. Only legal while the delivery is Pending.
func (c *Coordinator) RotateCode(ctx context.Context, id string) (validation.Payload, error) {
	code, err := c.codes.Generate()
	if err != nil {
		c.fail(cmdRotateCode, id, err)
		return validation.Payload{}, err
	}

	d, err := c.apply(ctx, id, cmdRotateCode, func(next *domain.Delivery, _ time.Time) (change, error) {
		if err := next.RotateValidationCode(code); err != nil {
			return change{}, err
		}
		return change{persist: true}, nil
	})
	if err != nil {
		return validation.Payload{}, err
	}

	c.logger.Info("validation code rotated",
		logx.String("event", cmdRotateCode),
		logx.String("delivery_id", d.ID),
		logx.Int("code_epoch", d.CodeEpoch),
	)
	return validation.NewPayload(d.ValidationCode, d.OrderID, c.now()), nil
}
