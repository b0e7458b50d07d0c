package backtest

import (
	"github.com/shopspring/decimal"

	"tradesim/internal/model"
)

// Action is the strategy's request for one bar.
type Action uint8

const (
	ActionNone Action = iota
	ActionEnterLong
	ActionEnterShort
	ActionExit
)

// Signal is the strategy output for one bar.
type Signal struct {
	Action Action
}

// SignalFunc maps the current bar (with the full series for lookback) to a
// Signal. It must be deterministic for reproducible runs.
type SignalFunc func(i int, bar model.Bar, bars []model.Bar) Signal

// MACross returns a simple moving-average crossover strategy: long when the
// fast average crosses above the slow one, exit when it crosses back below.
// Useful as the reference strategy for the CLI and for exercising the
// driver end to end.
func MACross(fast, slow int) SignalFunc {
	if fast <= 0 {
		fast = 5
	}
	if slow <= fast {
		slow = fast * 4
	}
	return func(i int, _ model.Bar, bars []model.Bar) Signal {
		if i < slow {
			return Signal{}
		}
		fastNow := sma(bars, i, fast)
		slowNow := sma(bars, i, slow)
		fastPrev := sma(bars, i-1, fast)
		slowPrev := sma(bars, i-1, slow)
		if fastPrev.LessThanOrEqual(slowPrev) && fastNow.GreaterThan(slowNow) {
			return Signal{Action: ActionEnterLong}
		}
		if fastPrev.GreaterThanOrEqual(slowPrev) && fastNow.LessThan(slowNow) {
			return Signal{Action: ActionExit}
		}
		return Signal{}
	}
}

// sma averages the closes of the n bars ending at index i.
func sma(bars []model.Bar, i, n int) decimal.Decimal {
	if i+1 < n {
		n = i + 1
	}
	sum := decimal.Zero
	for j := i - n + 1; j <= i; j++ {
		sum = sum.Add(bars[j].Close)
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}
