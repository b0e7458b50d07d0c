package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/model"
	"tradesim/internal/model/enum"
)

var ts = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func marketSpec(qty int64) model.OrderSpec {
	return model.OrderSpec{
		Symbol:   "BTCUSDT",
		Side:     enum.OrderSideBuy,
		Kind:     enum.OrderKindMarket,
		Quantity: decimal.NewFromInt(qty),
	}
}

func TestApplyFillAccounting(t *testing.T) {
	l := New()
	o, err := l.Create(marketSpec(10), ts)
	require.NoError(t, err)
	require.Equal(t, enum.OrderStatusPending, o.Status)

	fills := []struct {
		qty   string
		price string
	}{
		{"3", "100"},
		{"4", "101"},
		{"3", "99.5"},
	}
	for i, f := range fills {
		_, err := l.ApplyFill(o, decimal.RequireFromString(f.qty), decimal.RequireFromString(f.price), ts.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)

		sum := decimal.Zero
		weighted := decimal.Zero
		for _, fill := range o.Fills {
			sum = sum.Add(fill.Quantity)
			weighted = weighted.Add(fill.Price.Mul(fill.Quantity))
		}
		assert.True(t, sum.Equal(o.FilledQuantity), "fill sum must equal filled quantity")

		vwap := weighted.Div(sum)
		assert.True(t, vwap.Sub(o.AvgFillPrice).Abs().LessThanOrEqual(decimal.New(1, -9)),
			"avg fill price %s should match vwap %s", o.AvgFillPrice, vwap)
	}

	assert.Equal(t, enum.OrderStatusFilled, o.Status)
	assert.Len(t, o.Fills, 3)
}

func TestApplyFillPartialThenStatus(t *testing.T) {
	l := New()
	o, err := l.Create(marketSpec(10), ts)
	require.NoError(t, err)

	_, err = l.ApplyFill(o, decimal.NewFromInt(4), decimal.NewFromInt(100), ts)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPartialFilled, o.Status)

	// overfill is rejected, state untouched
	_, err = l.ApplyFill(o, decimal.NewFromInt(7), decimal.NewFromInt(100), ts)
	require.ErrorIs(t, err, ErrInvalidFill)
	assert.True(t, o.FilledQuantity.Equal(decimal.NewFromInt(4)))

	_, err = l.ApplyFill(o, decimal.NewFromInt(6), decimal.NewFromInt(102), ts)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFilled, o.Status)

	// terminal orders accept nothing further
	_, err = l.ApplyFill(o, decimal.NewFromInt(1), decimal.NewFromInt(100), ts)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyFillEpsilonDrift(t *testing.T) {
	l := New()
	o, err := l.Create(model.OrderSpec{
		Symbol:   "BTCUSDT",
		Side:     enum.OrderSideBuy,
		Kind:     enum.OrderKindMarket,
		Quantity: decimal.NewFromInt(1),
	}, ts)
	require.NoError(t, err)

	third := decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	for i := 0; i < 3; i++ {
		_, err := l.ApplyFill(o, third, decimal.NewFromInt(100), ts)
		require.NoError(t, err)
	}
	assert.Equal(t, enum.OrderStatusFilled, o.Status, "three thirds must count as filled")
}

func TestCreateRejections(t *testing.T) {
	l := New()
	qty := decimal.NewFromInt(5)

	tests := []struct {
		name string
		spec model.OrderSpec
		err  error
	}{
		{
			name: "non-positive quantity",
			spec: model.OrderSpec{Symbol: "X", Side: enum.OrderSideBuy, Kind: enum.OrderKindMarket, Quantity: decimal.Zero},
			err:  ErrNonPositiveQuantity,
		},
		{
			name: "invalid side",
			spec: model.OrderSpec{Symbol: "X", Kind: enum.OrderKindMarket, Quantity: qty},
			err:  ErrInvalidSide,
		},
		{
			name: "limit without price",
			spec: model.OrderSpec{Symbol: "X", Side: enum.OrderSideBuy, Kind: enum.OrderKindLimit, Quantity: qty},
			err:  ErrMissingLimitPrice,
		},
		{
			name: "stop without price",
			spec: model.OrderSpec{Symbol: "X", Side: enum.OrderSideSell, Kind: enum.OrderKindStop, Quantity: qty},
			err:  ErrMissingStopPrice,
		},
		{
			name: "stop equals entry",
			spec: model.OrderSpec{
				Symbol: "X", Side: enum.OrderSideSell, Kind: enum.OrderKindStop, Quantity: qty,
				StopPrice: decimal.NewFromInt(100), ReferencePrice: decimal.NewFromInt(100),
			},
			err: ErrStopEqualsEntry,
		},
		{
			name: "trailing without distance",
			spec: model.OrderSpec{Symbol: "X", Side: enum.OrderSideSell, Kind: enum.OrderKindTrailingStop, Quantity: qty},
			err:  ErrInvalidTrailDistance,
		},
		{
			name: "stealth without slice",
			spec: model.OrderSpec{
				Symbol: "X", Side: enum.OrderSideBuy, Kind: enum.OrderKindStealth, Quantity: qty,
				LimitPrice: decimal.NewFromInt(100),
			},
			err: ErrInvalidSliceSize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Create(tt.spec, ts)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	// nothing was stored by the rejected specs
	assert.Empty(t, l.Pending("X"))
}

func TestCancelIdempotent(t *testing.T) {
	l := New()
	o, err := l.Create(marketSpec(10), ts)
	require.NoError(t, err)

	assert.True(t, l.Cancel(o.ID, ts))
	assert.Equal(t, enum.OrderStatusCanceled, o.Status)

	// second cancel reports false, no error, status unchanged
	assert.False(t, l.Cancel(o.ID, ts))
	assert.Equal(t, enum.OrderStatusCanceled, o.Status)

	// unknown id
	assert.False(t, l.Cancel(9999, ts))
}

func TestCancelAfterPartialFill(t *testing.T) {
	l := New()
	o, err := l.Create(marketSpec(10), ts)
	require.NoError(t, err)

	_, err = l.ApplyFill(o, decimal.NewFromInt(4), decimal.NewFromInt(100), ts)
	require.NoError(t, err)

	assert.True(t, l.Cancel(o.ID, ts))
	assert.Equal(t, enum.OrderStatusCanceled, o.Status)
	assert.True(t, o.FilledQuantity.Equal(decimal.NewFromInt(4)), "fills survive a cancel")
}

func TestCreatePairValidation(t *testing.T) {
	l := New()
	qty := decimal.NewFromInt(10)
	limitLeg := model.OrderSpec{
		Symbol: "ETHUSDT", Side: enum.OrderSideSell, Kind: enum.OrderKindLimit,
		Quantity: qty, LimitPrice: decimal.NewFromInt(110),
	}
	stopLeg := model.OrderSpec{
		Symbol: "ETHUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindStop,
		Quantity: qty, StopPrice: decimal.NewFromInt(90),
	}

	t.Run("mismatched symbol", func(t *testing.T) {
		bad := stopLeg
		bad.Symbol = "BTCUSDT"
		_, err := l.CreatePair(model.OCOSpec{Primary: limitLeg, Secondary: bad}, ts)
		assert.ErrorIs(t, err, ErrInconsistentPair)
	})

	t.Run("mismatched quantity", func(t *testing.T) {
		bad := stopLeg
		bad.Quantity = decimal.NewFromInt(7)
		_, err := l.CreatePair(model.OCOSpec{Primary: limitLeg, Secondary: bad}, ts)
		assert.ErrorIs(t, err, ErrInconsistentPair)
	})

	t.Run("invalid leg kind", func(t *testing.T) {
		bad := stopLeg
		bad.Kind = enum.OrderKindMarket
		_, err := l.CreatePair(model.OCOSpec{Primary: limitLeg, Secondary: bad}, ts)
		assert.ErrorIs(t, err, ErrInconsistentPair)
	})

	t.Run("valid pair", func(t *testing.T) {
		pair, err := l.CreatePair(model.OCOSpec{Primary: limitLeg, Secondary: stopLeg}, ts)
		require.NoError(t, err)
		assert.Equal(t, enum.PairStateActive, pair.State)
		assert.Equal(t, enum.OrderStatusPending, pair.Primary.Status)
		assert.Equal(t, enum.OrderStatusPending, pair.Secondary.Status)
		assert.Len(t, l.ActivePairs("ETHUSDT"), 1)
		// legs are not listed as standalone orders
		assert.Empty(t, l.Pending("ETHUSDT"))
	})
}

func TestCancelLegCancelsPair(t *testing.T) {
	l := New()
	qty := decimal.NewFromInt(10)
	pair, err := l.CreatePair(model.OCOSpec{
		Primary: model.OrderSpec{
			Symbol: "ETHUSDT", Side: enum.OrderSideSell, Kind: enum.OrderKindLimit,
			Quantity: qty, LimitPrice: decimal.NewFromInt(110),
		},
		Secondary: model.OrderSpec{
			Symbol: "ETHUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindStop,
			Quantity: qty, StopPrice: decimal.NewFromInt(90),
		},
	}, ts)
	require.NoError(t, err)

	assert.True(t, l.Cancel(pair.Primary.ID, ts))
	assert.Equal(t, enum.PairStateCanceled, pair.State)
	assert.Equal(t, enum.OrderStatusCanceled, pair.Primary.Status)
	assert.Equal(t, enum.OrderStatusCanceled, pair.Secondary.Status)
	assert.Empty(t, l.ActivePairs("ETHUSDT"))

	assert.False(t, l.CancelPair(pair.ID, ts), "terminal pair cancel is idempotent")
}
