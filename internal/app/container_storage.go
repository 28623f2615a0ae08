package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-delivery/internal/config"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/repository"
)

const (
	dbConnectRetries = 10
	dbConnectDelay   = time.Second
	dbAttemptTimeout = 3 * time.Second
)

type dbConnectFunc func(ctx context.Context, logger logx.Logger, dsn string, attempts int, delay time.Duration) (*pgxpool.Pool, error)

// newPool is swapped in tests.
var newPool = repository.NewPool

// deliveryStore is what the coordinator needs from either storage driver.
type deliveryStore interface {
	Create(ctx context.Context, d *domain.Delivery) error
	Get(ctx context.Context, id string) (*domain.Delivery, error)
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Delivery, error)
	Save(ctx context.Context, d *domain.Delivery) error
}

// storage is the selected driver; pool is nil for the in-memory one.
type storage struct {
	store deliveryStore
	pool  *pgxpool.Pool
}

func (s *storage) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks postgres; the in-memory driver is always ready.
func (s *storage) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func registerStorage(container *dig.Container, dbConnect dbConnectFunc) error {
	return provideAll(container, func(ctx context.Context, cfg *config.Config, logger logx.Logger) (*storage, error) {
		if cfg.Storage == config.StorageMemory {
			logger.Warn("using in-memory storage, deliveries are lost on restart")
			return &storage{store: repository.NewMemoryRepo()}, nil
		}

		pool, err := dbConnect(ctx, logger, cfg.DB.DSN(), dbConnectRetries, dbConnectDelay)
		if err != nil {
			return nil, err
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &storage{store: repository.NewDeliveryRepo(pool), pool: pool}, nil
	})
}

// connectPostgres keeps dialing until a pool answers ping, attempts run out or ctx ends.
// Postgres usually comes up after us in docker compose.
func connectPostgres(ctx context.Context, logger logx.Logger, dsn string, attempts int, delay time.Duration) (*pgxpool.Pool, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; ; attempt++ {
		pool, err := dialOnce(ctx, dsn)
		if err == nil {
			logger.Info("db connected", logx.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		logger.Warn("db connect failed",
			logx.Int("attempt", attempt),
			logx.Int("attempts", attempts),
			logx.Err(err),
		)
		if attempt == attempts {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempts, lastErr)
}

func dialOnce(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbAttemptTimeout)
	defer cancel()
	return newPool(ctx, dsn)
}
