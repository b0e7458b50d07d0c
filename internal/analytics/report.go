// Package analytics derives a PerformanceReport from a closed-trade list and
// an equity curve. It is a pure computation: no state, no side effects, and
// every ratio resolves division by zero to a documented sentinel instead of
// propagating NaN.
package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"tradesim/internal/model"
)

// tradingDaysPerYear annualizes the daily-return statistics.
const tradingDaysPerYear = 252

// Compute builds the report. The equity curve is treated as one sample per
// trading day when annualizing. A zero-trade run yields a zero report, not
// an error.
func Compute(trades []model.Trade, startingCapital decimal.Decimal, equity []model.EquityPoint) model.PerformanceReport {
	r := model.PerformanceReport{
		TotalTrades:     len(trades),
		StartingCapital: startingCapital,
		TotalProfit:     decimal.Zero,
		TotalLoss:       decimal.Zero,
		NetProfit:       decimal.Zero,
		AvgWin:          decimal.Zero,
		AvgLoss:         decimal.Zero,
	}

	for _, t := range trades {
		r.NetProfit = r.NetProfit.Add(t.NetPnL)
		switch t.NetPnL.Sign() {
		case 1:
			r.Wins++
			r.TotalProfit = r.TotalProfit.Add(t.NetPnL)
		case -1:
			r.Losses++
			r.TotalLoss = r.TotalLoss.Add(t.NetPnL)
		}
	}

	if r.TotalTrades > 0 {
		r.WinRate = model.Ratio(float64(r.Wins) / float64(r.TotalTrades))
	}
	if r.Wins > 0 {
		r.AvgWin = r.TotalProfit.Div(decimal.NewFromInt(int64(r.Wins)))
	}
	if r.Losses > 0 {
		r.AvgLoss = r.TotalLoss.Div(decimal.NewFromInt(int64(r.Losses)))
	}
	r.ProfitFactor = profitFactor(r.TotalProfit, r.TotalLoss)
	r.Expectancy = expectancy(float64(r.WinRate), r.AvgWin.InexactFloat64(), r.AvgLoss.InexactFloat64())
	r.LongestWinStreak, r.LongestLossStreak = streaks(trades)

	r.FinalEquity = startingCapital.Add(r.NetProfit)
	if len(equity) > 0 {
		r.FinalEquity = equity[len(equity)-1].Equity
	}

	curve := toFloats(equity)
	maxDD := maxDrawdown(curve)
	r.MaxDrawdownPct = model.Ratio(maxDD * 100)

	returns := dailyReturns(curve)
	r.Sharpe = sharpe(returns)
	r.Sortino = sortino(returns)

	annReturn := annualizedReturn(startingCapital.InexactFloat64(), r.FinalEquity.InexactFloat64(), len(curve))
	r.AnnualizedReturn = model.Ratio(annReturn)
	r.Calmar = calmar(annReturn, maxDD)
	return r
}

// profitFactor is |sum winning| / |sum losing|: +Inf exactly when there is
// profit and no loss, 0 when there is loss and no profit, 0 on no trades.
func profitFactor(totalProfit, totalLoss decimal.Decimal) model.Ratio {
	if totalLoss.IsZero() {
		if totalProfit.Sign() > 0 {
			return model.Ratio(math.Inf(1))
		}
		return 0
	}
	if totalProfit.Sign() == 0 {
		return 0
	}
	return model.Ratio(totalProfit.Div(totalLoss.Abs()).InexactFloat64())
}

func expectancy(winRate, avgWin, avgLoss float64) model.Ratio {
	return model.Ratio(winRate*avgWin + (1-winRate)*avgLoss)
}

func streaks(trades []model.Trade) (win, loss int) {
	var curWin, curLoss int
	for _, t := range trades {
		switch t.NetPnL.Sign() {
		case 1:
			curWin++
			curLoss = 0
		case -1:
			curLoss++
			curWin = 0
		default:
			curWin, curLoss = 0, 0
		}
		if curWin > win {
			win = curWin
		}
		if curLoss > loss {
			loss = curLoss
		}
	}
	return win, loss
}

// maxDrawdown returns the largest peak-to-trough decline as a fraction of
// the peak, from a single pass with a running peak.
func maxDrawdown(curve []float64) float64 {
	var peak, maxDD float64
	for _, e := range curve {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func dailyReturns(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] > 0 {
			out = append(out, (curve[i]-curve[i-1])/curve[i-1])
		}
	}
	return out
}

// sharpe is the annualized mean daily return over the annualized daily
// standard deviation, 0 when the deviation is zero.
func sharpe(returns []float64) model.Ratio {
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return model.Ratio(mean / std * math.Sqrt(tradingDaysPerYear))
}

// sortino substitutes downside-only deviation: +Inf when returns are
// positive with no downside at all, 0 otherwise on zero deviation.
func sortino(returns []float64) model.Ratio {
	if len(returns) == 0 {
		return 0
	}
	var mean, downSq float64
	for _, r := range returns {
		mean += r
		if r < 0 {
			downSq += r * r
		}
	}
	mean /= float64(len(returns))
	down := math.Sqrt(downSq / float64(len(returns)))
	if down == 0 {
		if mean > 0 {
			return model.Ratio(math.Inf(1))
		}
		return 0
	}
	return model.Ratio(mean / down * math.Sqrt(tradingDaysPerYear))
}

// calmar is the annualized return over the absolute max drawdown fraction:
// +Inf on positive return with zero drawdown, 0 otherwise on zero drawdown.
func calmar(annReturn, maxDD float64) model.Ratio {
	if maxDD == 0 {
		if annReturn > 0 {
			return model.Ratio(math.Inf(1))
		}
		return 0
	}
	return model.Ratio(annReturn / maxDD)
}

func annualizedReturn(start, final float64, samples int) float64 {
	if start <= 0 || final <= 0 || samples < 2 {
		return 0
	}
	years := float64(samples) / tradingDaysPerYear
	return math.Pow(final/start, 1/years) - 1
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / (n - 1))
}

func toFloats(equity []model.EquityPoint) []float64 {
	out := make([]float64, len(equity))
	for i, p := range equity {
		out[i] = p.Equity.InexactFloat64()
	}
	return out
}
