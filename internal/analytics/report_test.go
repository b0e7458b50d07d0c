package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/model"
)

func trade(net string) model.Trade {
	return model.Trade{NetPnL: decimal.RequireFromString(net)}
}

func curve(values ...string) []model.EquityPoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.EquityPoint, len(values))
	for i, v := range values {
		out[i] = model.EquityPoint{At: base.AddDate(0, 0, i), Equity: decimal.RequireFromString(v)}
	}
	return out
}

func TestComputeZeroTrades(t *testing.T) {
	r := Compute(nil, decimal.NewFromInt(10000), nil)

	assert.Equal(t, 0, r.TotalTrades)
	assert.Equal(t, model.Ratio(0), r.WinRate)
	assert.Equal(t, model.Ratio(0), r.ProfitFactor)
	assert.Equal(t, model.Ratio(0), r.Sharpe)
	assert.Equal(t, model.Ratio(0), r.MaxDrawdownPct)
	assert.True(t, r.FinalEquity.Equal(decimal.NewFromInt(10000)))
	assert.NotEmpty(t, r.Render(), "a zero report still renders")
}

func TestProfitFactorSentinels(t *testing.T) {
	t.Run("all winners", func(t *testing.T) {
		r := Compute([]model.Trade{trade("50"), trade("30")}, decimal.NewFromInt(1000), nil)
		assert.True(t, math.IsInf(float64(r.ProfitFactor), 1))
	})
	t.Run("all losers", func(t *testing.T) {
		r := Compute([]model.Trade{trade("-50"), trade("-30")}, decimal.NewFromInt(1000), nil)
		assert.Equal(t, model.Ratio(0), r.ProfitFactor)
	})
	t.Run("mixed", func(t *testing.T) {
		r := Compute([]model.Trade{trade("100"), trade("-40")}, decimal.NewFromInt(1000), nil)
		assert.InDelta(t, 2.5, float64(r.ProfitFactor), 1e-12)
	})
}

func TestComputeBasicAggregates(t *testing.T) {
	trades := []model.Trade{
		trade("100"), trade("-50"), trade("60"), trade("-30"), trade("0"),
	}
	r := Compute(trades, decimal.NewFromInt(10000), nil)

	assert.Equal(t, 5, r.TotalTrades)
	assert.Equal(t, 2, r.Wins)
	assert.Equal(t, 2, r.Losses)
	assert.InDelta(t, 0.4, float64(r.WinRate), 1e-12)
	assert.True(t, r.TotalProfit.Equal(decimal.NewFromInt(160)))
	assert.True(t, r.TotalLoss.Equal(decimal.NewFromInt(-80)))
	assert.True(t, r.NetProfit.Equal(decimal.NewFromInt(80)))
	assert.True(t, r.AvgWin.Equal(decimal.NewFromInt(80)))
	assert.True(t, r.AvgLoss.Equal(decimal.NewFromInt(-40)))
	assert.InDelta(t, 2.0, float64(r.ProfitFactor), 1e-12)

	// expectancy = 0.4*80 + 0.6*(-40)
	assert.InDelta(t, 8.0, float64(r.Expectancy), 1e-9)

	assert.True(t, r.FinalEquity.Equal(decimal.NewFromInt(10080)),
		"without a curve, final equity is capital plus net profit")
}

func TestStreaks(t *testing.T) {
	trades := []model.Trade{
		trade("1"), trade("1"), trade("-1"), trade("1"), trade("1"), trade("1"),
		trade("-1"), trade("-1"), trade("0"), trade("-1"),
	}
	r := Compute(trades, decimal.NewFromInt(1000), nil)
	assert.Equal(t, 3, r.LongestWinStreak)
	assert.Equal(t, 2, r.LongestLossStreak)
}

func TestMaxDrawdown(t *testing.T) {
	eq := curve("100", "120", "90", "130", "104")
	r := Compute(nil, decimal.NewFromInt(100), eq)

	// worst decline is 120 -> 90
	assert.InDelta(t, 25.0, float64(r.MaxDrawdownPct), 1e-9)
	assert.True(t, r.FinalEquity.Equal(decimal.NewFromInt(104)),
		"with a curve, final equity comes from its last point")
}

func TestMonotonicCurveHasNoDrawdown(t *testing.T) {
	eq := curve("100", "101", "102", "103")
	r := Compute(nil, decimal.NewFromInt(100), eq)
	assert.Equal(t, model.Ratio(0), r.MaxDrawdownPct)
	assert.True(t, math.IsInf(float64(r.Sortino), 1), "gains with zero downside")
	assert.True(t, math.IsInf(float64(r.Calmar), 1))
	assert.Greater(t, float64(r.AnnualizedReturn), 0.0)
}

func TestSharpeZeroVariance(t *testing.T) {
	eq := curve("100", "100", "100")
	r := Compute(nil, decimal.NewFromInt(100), eq)
	assert.Equal(t, model.Ratio(0), r.Sharpe)
	assert.Equal(t, model.Ratio(0), r.Sortino)
}

func TestRatioJSONRoundTrip(t *testing.T) {
	eq := curve("100", "110")
	r := Compute([]model.Trade{trade("10")}, decimal.NewFromInt(100), eq)
	require.True(t, math.IsInf(float64(r.ProfitFactor), 1))

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"+inf"`)

	var back model.PerformanceReport
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, math.IsInf(float64(back.ProfitFactor), 1))
	assert.InDelta(t, float64(r.Sharpe), float64(back.Sharpe), 1e-12)
}
