package kafka_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-delivery/internal/service/orders"
	"service-delivery/internal/transport/kafka"
)

func TestToDomain_TrimsAndCopiesFields(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	dto := kafka.EventDTO{
		OrderID:     "42",
		Status:      "  created  ",
		Items:       []kafka.ItemDTO{{ProductID: " p1 ", ShopID: "s1"}},
		Destination: &kafka.PointDTO{Lat: 14.69, Lng: -17.44},
		CreatedAt:   ts,
	}

	got, err := kafka.ToDomain(dto)
	require.NoError(t, err)
	require.Equal(t, orders.Event{
		OrderID:     42,
		Status:      "created",
		Items:       []orders.Item{{ProductID: "p1", ShopID: "s1"}},
		Destination: &orders.Destination{Lat: 14.69, Lng: -17.44},
		CreatedAt:   ts,
	}, got)
}

func TestToDomain_RejectsMissingOrderID(t *testing.T) {
	t.Parallel()

	for _, id := range []json.Number{"", "0", "-3", "1.5"} {
		_, err := kafka.ToDomain(kafka.EventDTO{OrderID: id, Status: "created"})
		require.ErrorIs(t, err, kafka.ErrEmptyOrderID, string(id))
	}
}

func TestEventDTO_AcceptsNumericStringOrderID(t *testing.T) {
	t.Parallel()

	var dto kafka.EventDTO
	require.NoError(t, json.Unmarshal([]byte(`{"order_id":"77","status":"placed"}`), &dto))

	got, err := kafka.ToDomain(dto)
	require.NoError(t, err)
	require.Equal(t, int64(77), got.OrderID)
}
