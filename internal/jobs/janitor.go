package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"service-delivery/internal/logx"
)

// DefaultSchedule is used when no cron spec is configured.
const DefaultSchedule = "@every 1m"

// Evictor drops terminal deliveries that settled before olderThan and reports how many went.
type Evictor interface {
	EvictTerminal(olderThan time.Time) int
}

// Janitor periodically evicts settled deliveries from the coordinator cache.
type Janitor struct {
	evictor  Evictor
	schedule string
	keep     time.Duration
	cron     *cron.Cron
	logger   logx.Logger
	now      func() time.Time
}

// NewJanitor keeps terminal deliveries in memory for keep after they settle.
func NewJanitor(logger logx.Logger, evictor Evictor, schedule string, keep time.Duration) *Janitor {
	if logger == nil {
		logger = logx.Nop()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Janitor{
		evictor:  evictor,
		schedule: schedule,
		keep:     keep,
		cron:     cron.New(),
		logger:   logger.With(logx.String("component", "janitor")),
		now:      time.Now,
	}
}

// Start registers the job and starts the scheduler.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce() }); err != nil {
		return fmt.Errorf("janitor schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("janitor started", logx.String("schedule", j.schedule), logx.Duration("keep", j.keep))
	return nil
}

// Stop stops the scheduler and waits for a running job until ctx is done.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("janitor stop timed out")
	}
	j.logger.Info("janitor stopped")
}

// RunOnce performs a single eviction pass.
func (j *Janitor) RunOnce() int {
	n := j.evictor.EvictTerminal(j.now().Add(-j.keep))
	if n > 0 {
		j.logger.Info("evicted settled deliveries", logx.Int("count", n))
	}
	return n
}
