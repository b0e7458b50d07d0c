package live

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/ledger"
	"tradesim/internal/model"
	"tradesim/internal/model/enum"
)

var sessionStart = time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return sessionStart.Add(time.Duration(sec) * time.Second)
}

func TestSubmitAndFill(t *testing.T) {
	m := NewManager(Config{})
	o, err := m.Submit(model.OrderSpec{
		Symbol: "BTCUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindLimit,
		Quantity: decimal.NewFromInt(2), LimitPrice: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	rec, ok := m.Order(o.ID)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusPending, rec.Status)
	assert.Equal(t, 1, m.OpenCount("BTCUSDT"))

	assert.Empty(t, m.OnTick("BTCUSDT", 105, at(1)))
	events := m.OnTick("BTCUSDT", 99, at(2))
	require.Len(t, events, 1)
	assert.True(t, events[0].Price.Equal(decimal.NewFromInt(100)))

	rec, _ = m.Order(o.ID)
	assert.Equal(t, enum.OrderStatusFilled, rec.Status)
	assert.Equal(t, 0, m.OpenCount("BTCUSDT"))
	assert.Len(t, m.FillHistory(), 1)

	snap := m.Metrics()
	assert.Equal(t, uint64(1), snap.Submitted)
	assert.Equal(t, uint64(2), snap.Ticks)
	assert.Equal(t, uint64(1), snap.Fills)
}

func TestSubmitRejection(t *testing.T) {
	m := NewManager(Config{})
	_, err := m.Submit(model.OrderSpec{
		Symbol: "BTCUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindLimit,
		Quantity: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ledger.ErrMissingLimitPrice)
	assert.Equal(t, uint64(1), m.Metrics().Rejected)
}

func TestOCOSessionFlow(t *testing.T) {
	m := NewManager(Config{})
	qty := decimal.NewFromInt(10)
	pair, err := m.SubmitOCO(model.OCOSpec{
		Primary: model.OrderSpec{
			Symbol: "ETHUSDT", Side: enum.OrderSideSell, Kind: enum.OrderKindLimit,
			Quantity: qty, LimitPrice: decimal.NewFromInt(110),
		},
		Secondary: model.OrderSpec{
			Symbol: "ETHUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindStop,
			Quantity: qty, StopPrice: decimal.NewFromInt(90),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, m.OpenCount("ETHUSDT"))

	assert.Empty(t, m.OnTick("ETHUSDT", 105, at(1)), "stop leg already beyond its level must stay dormant")
	events := m.OnTick("ETHUSDT", 111, at(2))
	require.Len(t, events, 1)
	assert.Equal(t, enum.TriggerOCOPrimary, events[0].Trigger)
	assert.True(t, events[0].Price.Equal(decimal.NewFromInt(110)))

	got, ok := m.Pair(pair.ID)
	require.True(t, ok)
	assert.Equal(t, enum.PairStatePrimaryExecuted, got.State)
	assert.Equal(t, 0, m.OpenCount("ETHUSDT"))
}

func TestCancelIdempotent(t *testing.T) {
	m := NewManager(Config{})
	o, err := m.Submit(model.OrderSpec{
		Symbol: "BTCUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindMarket,
		Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	assert.True(t, m.Cancel(o.ID))
	assert.False(t, m.Cancel(o.ID))
	assert.False(t, m.Cancel(424242))
	assert.Equal(t, uint64(1), m.Metrics().Canceled)
}

func TestOnTickRejectsBadInput(t *testing.T) {
	m := NewManager(Config{Symbols: []string{"BTCUSDT"}})

	assert.Empty(t, m.OnTick("DOGEUSDT", 100, at(1)))
	assert.Empty(t, m.OnTick("BTCUSDT", math.NaN(), at(2)))
	assert.Empty(t, m.OnTick("BTCUSDT", math.Inf(1), at(3)))
	assert.Empty(t, m.OnTick("BTCUSDT", -5, at(4)))
	assert.Empty(t, m.OnTick("BTCUSDT", 0, at(5)))

	d := m.Diagnostics()
	assert.Equal(t, 5, d.SkippedTicks)
	require.Len(t, d.Gaps, 5)
	assert.Equal(t, model.GapUnknownSymbol, d.Gaps[0].Reason)
	assert.Equal(t, model.GapNonFinitePrice, d.Gaps[1].Reason)
	assert.Equal(t, model.GapNonFinitePrice, d.Gaps[2].Reason)
	assert.Equal(t, model.GapNegativePrice, d.Gaps[3].Reason)
	assert.Equal(t, model.GapNegativePrice, d.Gaps[4].Reason)

	assert.Equal(t, uint64(5), m.Metrics().TicksRejected)
}

func TestOnTickOutOfOrderStillProcessed(t *testing.T) {
	m := NewManager(Config{})
	_, err := m.Submit(model.OrderSpec{
		Symbol: "BTCUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindLimit,
		Quantity: decimal.NewFromInt(1), LimitPrice: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.Empty(t, m.OnTick("BTCUSDT", 105, at(10)))

	// stale timestamp is recorded but the price still trades
	events := m.OnTick("BTCUSDT", 99, at(5))
	require.Len(t, events, 1)

	d := m.Diagnostics()
	assert.Equal(t, 1, d.OutOfOrder)
	assert.Equal(t, 0, d.SkippedTicks)
}

func TestGapDetailBound(t *testing.T) {
	m := NewManager(Config{Symbols: []string{"BTCUSDT"}, MaxGapDetails: 3})
	for i := 0; i < 10; i++ {
		m.OnTick("UNKNOWN", 100, at(i))
	}
	d := m.Diagnostics()
	assert.Equal(t, 10, d.SkippedTicks, "counters keep counting past the bound")
	assert.Len(t, d.Gaps, 3)
}

func TestFillHistoryIsACopy(t *testing.T) {
	m := NewManager(Config{})
	_, err := m.Submit(model.OrderSpec{
		Symbol: "BTCUSDT", Side: enum.OrderSideBuy, Kind: enum.OrderKindMarket,
		Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	m.OnTick("BTCUSDT", 100, at(1))

	h := m.FillHistory()
	require.Len(t, h, 1)
	h[0].OrderID = 999
	assert.NotEqual(t, uint64(999), m.FillHistory()[0].OrderID)
}
