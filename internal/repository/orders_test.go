package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

func TestCentsConversion(t *testing.T) {
	assert.Equal(t, int64(3000), toCents(decimal.RequireFromString("30")))
	assert.Equal(t, int64(1999), toCents(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(10), toCents(decimal.RequireFromString("0.100")))
	assert.True(t, fromCents(2550).Equal(decimal.RequireFromString("25.5")))
}

func TestLineItemsSnapshotKeepsPrice(t *testing.T) {
	items := []model.LineItem{
		{ProductRef: "sku-1", Name: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("10.25")},
	}

	data, err := encodeLineItems(items)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"product_ref":"sku-1","name":"Mug","quantity":2,"unit_price":1025}]`, string(data))

	got, err := decodeLineItems(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].UnitPrice.Equal(items[0].UnitPrice))
	assert.Equal(t, "Mug", got[0].Name)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "version conflict", err: ErrVersionConflict, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestWithRetry(t *testing.T) {
	r := &PostgresRepository{delays: []time.Duration{time.Millisecond, time.Millisecond}}

	calls := 0
	err := r.withRetry(context.Background(), func() error {
		calls++
		if calls < 2 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = r.withRetry(context.Background(), func() error {
		calls++
		return ErrVersionConflict
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 1, calls)

	calls = 0
	err = r.withRetry(context.Background(), func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestParseOrderID(t *testing.T) {
	lower, err := parseOrderID("6f1c2b0e-8d3a-4c57-9a61-2f0e5b7d9c10")
	require.NoError(t, err)

	upper, err := parseOrderID("6F1C2B0E-8D3A-4C57-9A61-2F0E5B7D9C10")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)

	compact, err := parseOrderID("6f1c2b0e8d3a4c579a612f0e5b7d9c10")
	require.NoError(t, err)
	assert.Equal(t, lower, compact)

	_, err = parseOrderID("not-an-order")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRetryOn_ConditionalUpdate(t *testing.T) {
	r := &PostgresRepository{delays: []time.Duration{time.Millisecond, time.Millisecond}}

	// обновление могло примениться до обрыва соединения
	calls := 0
	err := r.retryOn(context.Background(), isRolledBack, func() error {
		calls++
		return errors.New("read tcp: connection reset by peer")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = r.retryOn(context.Background(), isRolledBack, func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
