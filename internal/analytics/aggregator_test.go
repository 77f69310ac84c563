package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

type stubStore struct {
	orders     []model.Order
	users      []time.Time
	ordersErr  error
	blockUntil bool
}

func (s *stubStore) OrderTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	revenue := decimal.Zero
	for _, o := range s.orders {
		if o.Payment.Paid {
			revenue = revenue.Add(o.TotalPrice)
		}
	}
	return int64(len(s.orders)), revenue, nil
}

func (s *stubStore) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

func (s *stubStore) CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, u := range s.users {
		if !u.Before(from) && u.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *stubStore) ListOrdersCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	if s.blockUntil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.ordersErr != nil {
		return nil, s.ordersErr
	}
	var res []model.Order
	for _, o := range s.orders {
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			res = append(res, o)
		}
	}
	return res, nil
}

func (s *stubStore) ListRecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return recentOrdersFixture(s.orders, limit), nil
}

// recentOrdersFixture эмулирует сортировку хранилища.
func recentOrdersFixture(orders []model.Order, limit int) []model.Order {
	res := make([]model.Order, 0, len(orders))
	for _, s := range RecentActivity(orders, limit) {
		for _, o := range orders {
			if o.ID == s.ID {
				res = append(res, o)
			}
		}
	}
	return res
}

func TestDashboard_WindowComparison(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	store := &stubStore{
		orders: []model.Order{
			{
				ID: "o1", CreatedAt: now.Add(-40 * day), TotalPrice: dec("100"),
				Payment:   model.PaymentState{Paid: true},
				LineItems: []model.LineItem{{ProductRef: "old", Name: "Old", Quantity: 9, UnitPrice: dec("1")}},
			},
			{
				ID: "o2", CreatedAt: now.Add(-10 * day), TotalPrice: dec("200"),
				Payment:   model.PaymentState{Paid: true},
				LineItems: []model.LineItem{{ProductRef: "new", Name: "New", Quantity: 2, UnitPrice: dec("100")}},
			},
		},
		users: []time.Time{now.Add(-70 * day), now.Add(-3 * day)},
	}

	a := NewAggregator(store, DefaultConfig(), zap.NewNop(), WithClock(func() time.Time { return now }))

	d, err := a.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), d.RecentOrders)
	assert.True(t, d.RecentRevenue.Equal(dec("200")))
	assert.Equal(t, int64(1), d.PreviousOrders)
	assert.True(t, d.PreviousRevenue.Equal(dec("100")))
	assert.Equal(t, float64(100), d.RevenueGrowth)
	assert.Equal(t, float64(0), d.OrderGrowth)

	assert.Equal(t, int64(2), d.TotalOrders)
	assert.True(t, d.TotalRevenue.Equal(dec("300")))
	assert.True(t, d.AvgOrderValue.Equal(dec("150")))

	assert.Equal(t, int64(2), d.TotalUsers)
	assert.Equal(t, int64(1), d.RecentUsers)
	assert.Equal(t, int64(0), d.PreviousUsers)
	assert.Equal(t, float64(100), d.UserGrowth)

	require.Len(t, d.TopProducts, 1, "only orders from the recent window are ranked")
	assert.Equal(t, "new", d.TopProducts[0].ProductRef)

	require.Len(t, d.DailySales, 7)
	require.Len(t, d.RecentActivity, 2)
	assert.Equal(t, "o2", d.RecentActivity[0].ID)
}

func TestDashboard_EmptyStore(t *testing.T) {
	a := NewAggregator(&stubStore{}, DefaultConfig(), zap.NewNop())

	d, err := a.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, d.AvgOrderValue.IsZero())
	assert.Equal(t, float64(0), d.RevenueGrowth)
	assert.Empty(t, d.TopProducts)
	assert.Len(t, d.DailySales, 7)
}

func TestDashboard_FailsAsWhole(t *testing.T) {
	store := &stubStore{ordersErr: errors.New("db down")}
	a := NewAggregator(store, DefaultConfig(), zap.NewNop())

	d, err := a.Dashboard(context.Background())
	require.Error(t, err)
	assert.Nil(t, d)
}

func TestDashboard_Deadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	a := NewAggregator(&stubStore{blockUntil: true}, cfg, zap.NewNop())

	start := time.Now()
	_, err := a.Dashboard(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
