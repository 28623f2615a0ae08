package delivery

import (
	"context"
	"time"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
)

// ReportLocation overwrites the last known location and publishes
// location_updated. Samples for a delivery that is not tracking are rejected
// with ErrDeliveryNotActive and leave the delivery untouched; GPS samples are
// expected to arrive late, so the rejection is only logged at debug. Location
// is not persisted.
func (c *Coordinator) ReportLocation(ctx context.Context, id string, loc domain.Location) (domain.Snapshot, error) {
	e, err := c.acquire(ctx, id)
	if err != nil {
		c.fail(cmdReportLocation, id, err)
		return domain.Snapshot{}, err
	}
	defer e.mu.Unlock()

	now := c.now()
	if e.d.TrackingExpired(now) {
		// the timer has not run yet; close the session on its behalf
		c.expireLocked(ctx, id, e, e.d.TrackingEpoch)
		c.fail(cmdReportLocation, id, apperr.ErrDeliveryNotActive)
		return domain.Snapshot{}, apperr.ErrDeliveryNotActive
	}

	next := e.d.Clone()
	if err := next.UpdateLocation(loc, now); err != nil {
		c.fail(cmdReportLocation, id, err)
		return domain.Snapshot{}, err
	}

	e.d = next
	snap := next.Snapshot()
	c.events.Publish(domain.NewLocationUpdated(snap, loc, now))
	c.count(cmdReportLocation, nil)
	c.logger.Debug("location reported",
		logx.String("event", cmdReportLocation),
		logx.String("delivery_id", id),
		logx.Float64("lat", loc.Lat),
		logx.Float64("lng", loc.Lng),
	)
	return snap, nil
}

// StopTracking ends the current GPS session. Stopping an already stopped
// session is a no-op.
func (c *Coordinator) StopTracking(ctx context.Context, id string) (domain.Snapshot, error) {
	d, err := c.apply(ctx, id, cmdStopTracking, func(next *domain.Delivery, _ time.Time) (change, error) {
		stopped, err := next.StopTracking()
		if err != nil || !stopped {
			return change{}, err
		}
		return change{
			persist: true,
			events: func(snap domain.Snapshot, at time.Time) []domain.Event {
				return []domain.Event{domain.NewTrackingStopped(snap, domain.TrackingReasonStopped, at)}
			},
		}, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	c.logger.Info("tracking stopped",
		logx.String("event", cmdStopTracking),
		logx.String("delivery_id", d.ID),
	)
	return d.Snapshot(), nil
}

// ResumeTracking reopens a stopped GPS session of an InTransit delivery. It
// never reaches past the ceiling set at pickup; after that the delivery is not
// active. A running session is left as is.
func (c *Coordinator) ResumeTracking(ctx context.Context, id string) (domain.Snapshot, error) {
	d, err := c.apply(ctx, id, cmdResumeTracking, func(next *domain.Delivery, now time.Time) (change, error) {
		opened, err := next.ResumeTracking(now, c.cfg.TrackingMaxDuration)
		if err != nil || !opened {
			return change{}, err
		}
		return change{
			persist: true,
			events: func(snap domain.Snapshot, at time.Time) []domain.Event {
				return []domain.Event{domain.NewSnapshotEvent(snap, at)}
			},
		}, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	c.logger.Info("tracking resumed",
		logx.String("event", cmdResumeTracking),
		logx.String("delivery_id", d.ID),
		logx.Int("tracking_epoch", d.TrackingEpoch),
	)
	return d.Snapshot(), nil
}

// syncTimer keeps exactly one expiry timer per running session. Called with e.mu held.
func (c *Coordinator) syncTimer(id string, e *entry) {
	d := e.d
	if d == nil || d.Status != domain.StatusInTransit || !d.GPSActive || d.TrackingEndsAt == nil {
		c.stopTimer(e)
		return
	}
	if e.timer != nil && e.timerEpoch == d.TrackingEpoch {
		return
	}
	c.stopTimer(e)
	if c.closed.Load() {
		return
	}

	epoch := d.TrackingEpoch
	wait := d.TrackingEndsAt.Sub(c.now())
	if wait < 0 {
		wait = 0
	}
	e.timer = c.afterFunc(wait, func() { c.expire(id, epoch) })
	e.timerEpoch = epoch
}

func (c *Coordinator) stopTimer(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// expire is the timer callback of session epoch.
func (c *Coordinator) expire(id string, epoch int) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.d == nil {
		return
	}
	if e.timerEpoch == epoch {
		e.timer = nil
	}
	c.expireLocked(context.Background(), id, e, epoch)
}

// expireLocked closes session epoch if it is still the running one. Called with e.mu held.
func (c *Coordinator) expireLocked(ctx context.Context, id string, e *entry, epoch int) {
	next := e.d.Clone()
	if !next.ExpireTracking(epoch) {
		return
	}

	saveCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.store.Save(saveCtx, next); err != nil {
		c.logger.Error("tracking expiry not saved",
			logx.String("event", "tracking_expired"),
			logx.String("delivery_id", id),
			logx.Err(err),
		)
		return
	}

	e.d = next
	c.stopTimer(e)
	now := c.now()
	c.events.Publish(domain.NewTrackingStopped(next.Snapshot(), domain.TrackingReasonExpired, now))
	if c.expired != nil {
		c.expired.Inc()
	}
	c.logger.Info("tracking session expired",
		logx.String("event", "tracking_expired"),
		logx.String("delivery_id", id),
		logx.Int("tracking_epoch", epoch),
	)
}
