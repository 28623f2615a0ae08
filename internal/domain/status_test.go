package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeliveryStatus_CanAdvanceTo(t *testing.T) {
	t.Parallel()

	require.True(t, StatusPending.CanAdvanceTo(StatusCollecting))
	require.True(t, StatusCollecting.CanAdvanceTo(StatusInTransit))
	require.True(t, StatusInTransit.CanAdvanceTo(StatusDelivered))

	require.False(t, StatusPending.CanAdvanceTo(StatusInTransit), "skip")
	require.False(t, StatusInTransit.CanAdvanceTo(StatusCollecting), "regress")
	require.False(t, StatusDelivered.CanAdvanceTo(StatusDelivered))
	require.False(t, DeliveryStatus("lost").CanAdvanceTo(StatusPending))
}

func TestDeliveryStatus_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range statusOrder {
		require.True(t, s.Valid())
	}
	require.False(t, DeliveryStatus("").Valid())
	require.True(t, StatusDelivered.Terminal())
	require.False(t, StatusInTransit.Terminal())

	require.True(t, CollectionCollected.Valid())
	require.False(t, CollectionStatus("lost").Valid())
}
