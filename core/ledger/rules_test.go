package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
	inmemdb "github.com/trezcool/schooloffice/storage/database/inmem"
)

func newRules() *ledger.Rules {
	return ledger.NewRules(core.DefaultFeePolicy(), inmemdb.NewDeliveryRepository(inmemdb.Open()))
}

func TestRules_Unlocks(t *testing.T) {
	rules := newRules()

	tests := []struct {
		name   string
		number int
		amount string
		want   bool
	}{
		{name: "first installment at threshold", number: 1, amount: "100000", want: true},
		{name: "first installment above threshold", number: 1, amount: "250000.50", want: true},
		{name: "first installment below threshold", number: 1, amount: "99999.99"},
		{name: "other installment at threshold", number: 2, amount: "100000"},
		{name: "other installment above threshold", number: 5, amount: "400000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Unlocks(tt.number, decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestRules_ApplyInstallment(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	ledger.NowFunc = func() time.Time { return now }
	defer func() { ledger.NowFunc = time.Now }()

	ctx := context.Background()
	rules := newRules()
	require.NoError(t, rules.CreateStatuses(ctx, 1))

	// below threshold: nothing moves
	unlock, err := rules.ApplyInstallment(ctx, 1, 1, decimal.NewFromInt(50000), nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.Unlock{}, unlock)
	uniform, books, err := rules.Statuses(ctx, 1)
	require.NoError(t, err)
	assert.False(t, uniform.IsDelivered)
	assert.False(t, books.IsDelivered)

	unlock, err = rules.ApplyInstallment(ctx, 1, 1, decimal.NewFromInt(100000), nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.Unlock{Uniform: true, Books: true}, unlock)
	uniform, books, err = rules.Statuses(ctx, 1)
	require.NoError(t, err)
	assert.True(t, uniform.IsDelivered)
	assert.True(t, books.IsDelivered)
	assert.Equal(t, now, uniform.DeliveredAt.Time)

	// already delivered: the delivery date is kept
	ledger.NowFunc = func() time.Time { return now.Add(time.Hour) }
	_, err = rules.ApplyInstallment(ctx, 1, 1, decimal.NewFromInt(100000), nil)
	require.NoError(t, err)
	uniform, _, err = rules.Statuses(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, now, uniform.DeliveredAt.Time)

	// students without statuses get them on unlock
	_, err = rules.ApplyInstallment(ctx, 2, 1, decimal.NewFromInt(100000), nil)
	require.NoError(t, err)
	uniform, books, err = rules.Statuses(ctx, 2)
	require.NoError(t, err)
	assert.True(t, uniform.IsDelivered)
	assert.True(t, books.IsDelivered)
}

func TestRules_SetDelivery(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	ledger.NowFunc = func() time.Time { return now }
	defer func() { ledger.NowFunc = time.Now }()

	ctx := context.Background()
	rules := newRules()

	// a missing status reads as not delivered
	uniform, books, err := rules.Statuses(ctx, 7)
	require.NoError(t, err)
	assert.False(t, uniform.IsDelivered)
	assert.False(t, books.IsDelivered)
	assert.Zero(t, uniform.ID)

	status, err := rules.SetDelivery(ctx, ledger.ItemBooks, 7, true)
	require.NoError(t, err)
	assert.True(t, status.IsDelivered)
	assert.Equal(t, now, status.DeliveredAt.Time)

	status, err = rules.SetDelivery(ctx, ledger.ItemBooks, 7, false)
	require.NoError(t, err)
	assert.False(t, status.IsDelivered)
	assert.False(t, status.DeliveredAt.Valid)

	// the other item is untouched
	uniform, _, err = rules.Statuses(ctx, 7)
	require.NoError(t, err)
	assert.False(t, uniform.IsDelivered)
}
