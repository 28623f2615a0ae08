package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/service/delivery"
	"service-delivery/internal/service/orders"
	"service-delivery/internal/transport/kafka"
)

type stubDeliveryPort struct {
	err   error
	calls int
}

func (s *stubDeliveryPort) Register(_ context.Context, in delivery.NewDelivery) (domain.Snapshot, bool, error) {
	s.calls++
	if s.err != nil {
		return domain.Snapshot{}, false, s.err
	}
	return domain.Snapshot{DeliveryID: "d1", OrderID: in.OrderID}, true, nil
}

func orderEvent() orders.Event {
	return orders.Event{
		OrderID: 7,
		Status:  "created",
		Items:   []orders.Item{{ProductID: "p1", ShopID: "s1"}},
	}
}

func TestMakeOrdersKafka_Success(t *testing.T) {
	t.Parallel()

	port := &stubDeliveryPort{}
	h := makeOrdersKafka(orders.NewProcessor(port, logx.Nop()))

	require.NoError(t, h(context.Background(), orderEvent()))
	require.Equal(t, 1, port.calls)
}

func TestMakeOrdersKafka_InvalidIsPermanent(t *testing.T) {
	t.Parallel()

	port := &stubDeliveryPort{err: fmt.Errorf("%w: items required", apperr.ErrInvalid)}
	h := makeOrdersKafka(orders.NewProcessor(port, logx.Nop()))

	err := h(context.Background(), orderEvent())
	require.Error(t, err)
	require.True(t, kafka.IsPermanent(err))
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestMakeOrdersKafka_TransientIsRetried(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("db down")
	port := &stubDeliveryPort{err: sentinel}
	h := makeOrdersKafka(orders.NewProcessor(port, logx.Nop()))

	err := h(context.Background(), orderEvent())
	require.ErrorIs(t, err, sentinel)
	require.False(t, kafka.IsPermanent(err))
}

func TestMakeOrdersKafka_IgnoredStatus(t *testing.T) {
	t.Parallel()

	port := &stubDeliveryPort{}
	h := makeOrdersKafka(orders.NewProcessor(port, logx.Nop()))

	ev := orderEvent()
	ev.Status = "cooking"
	require.NoError(t, h(context.Background(), ev))
	require.Zero(t, port.calls)
}
