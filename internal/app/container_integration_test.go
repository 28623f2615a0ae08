//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"service-delivery/internal/config"
	"service-delivery/internal/domain"
	"service-delivery/internal/service/delivery"
)

// Needs a reachable PostgreSQL configured by DB_* variables.
func TestBuildContainer_PostgresIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadFrom(pflag.NewFlagSet("test", pflag.ContinueOnError), nil)
	require.NoError(t, err)
	cfg.Storage = config.StoragePostgres
	cfg.Debug = config.Debug{}

	c := NewContainerBuilder().
		WithConfig(cfg).
		WithRegistry(prometheus.NewRegistry()).
		WithLogFatalf(t.Fatalf).
		MustBuild(ctx)

	err = c.Invoke(func(st *storage, coord *delivery.Coordinator) {
		defer st.Close()
		require.NotNil(t, st.pool)

		snap, created, err := coord.Register(ctx, delivery.NewDelivery{
			OrderID: time.Now().UnixNano(),
			Items:   []domain.ItemRef{{ProductID: "p1", ShopID: "s1"}},
		})
		require.NoError(t, err)
		require.True(t, created)

		got, err := coord.Get(ctx, snap.DeliveryID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, got.Status)
	})
	require.NoError(t, err)
}
