package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/repository"
)

func newDelivery(t *testing.T, id string, orderID int64) *domain.Delivery {
	t.Helper()
	d, err := domain.NewDelivery(id, orderID, "SOMBAGO-AB12C3",
		[]domain.ItemRef{{ProductID: "p1", ShopID: "s1"}, {ProductID: "p2", ShopID: "s2"}},
		&domain.Location{Lat: 14.69, Lng: -17.44},
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return d
}

func TestMemoryRepo_CreateGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	d := newDelivery(t, "d1", 42)

	require.NoError(t, repo.Create(ctx, d))
	require.Equal(t, int64(1), d.Version)

	got, err := repo.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, d, got)

	byOrder, err := repo.GetByOrderID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "d1", byOrder.ID)

	// callers get copies
	got.Collections[0].Status = domain.CollectionCollected
	again, err := repo.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, domain.CollectionPending, again.Collections[0].Status)
}

func TestMemoryRepo_CreateDuplicateOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.Create(ctx, newDelivery(t, "d1", 42)))

	err := repo.Create(ctx, newDelivery(t, "d2", 42))
	require.ErrorIs(t, err, apperr.ErrConflict)
	err = repo.Create(ctx, newDelivery(t, "d1", 43))
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestMemoryRepo_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()

	_, err := repo.Get(ctx, "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.GetByOrderID(ctx, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	err = repo.Save(ctx, newDelivery(t, "nope", 1))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryRepo_SaveOptimisticVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	d := newDelivery(t, "d1", 42)
	require.NoError(t, repo.Create(ctx, d))

	stale := d.Clone()

	now := d.CreatedAt.Add(time.Minute)
	_, err := d.RecordCollection("p1", "s1", now, time.Hour)
	require.NoError(t, err)
	d.LastKnownLocation = &domain.Location{Lat: 1, Lng: 1}
	require.NoError(t, repo.Save(ctx, d))
	require.Equal(t, int64(2), d.Version)

	got, err := repo.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCollecting, got.Status)
	require.Equal(t, 1, got.CollectedCount())
	require.Nil(t, got.LastKnownLocation, "location is not stored")

	err = repo.Save(ctx, stale)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestMemoryRepo_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := repository.NewMemoryRepo()
	require.ErrorIs(t, repo.Create(ctx, newDelivery(t, "d1", 1)), context.Canceled)
	_, err := repo.Get(ctx, "d1")
	require.ErrorIs(t, err, context.Canceled)
}
