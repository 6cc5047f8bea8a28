package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-simulator/internal/domain"
)

func orders(ids ...int64) []domain.Order {
	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Order{ID: id, Status: domain.OrderCreated})
	}
	return out
}

func couriers(ids ...int64) []domain.Courier {
	out := make([]domain.Courier, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Courier{ID: id, Available: true})
	}
	return out
}

func TestPair_MoreOrdersThanCouriers(t *testing.T) {
	t.Parallel()

	got := domain.Pair(orders(7, 3, 9), couriers(1, 2))

	require.Len(t, got, 2)
	require.Equal(t, int64(7), got[0].Order.ID)
	require.Equal(t, int64(1), got[0].Courier.ID)
	require.Equal(t, int64(3), got[1].Order.ID)
	require.Equal(t, int64(2), got[1].Courier.ID)
}

func TestPair_MoreCouriersThanOrders(t *testing.T) {
	t.Parallel()

	got := domain.Pair(orders(5), couriers(4, 8, 10))

	require.Len(t, got, 1)
	require.Equal(t, int64(5), got[0].Order.ID)
	require.Equal(t, int64(4), got[0].Courier.ID)
}

func TestPair_Empty(t *testing.T) {
	t.Parallel()

	require.Empty(t, domain.Pair(nil, couriers(1)))
	require.Empty(t, domain.Pair(orders(1), nil))
}

func TestDelivery_Open(t *testing.T) {
	t.Parallel()

	d := domain.Delivery{ID: 1}
	require.True(t, d.Open())

	at := time.Now()
	d.DeliveredAt = &at
	require.False(t, d.Open())
}
