package backtest

import (
	"github.com/shopspring/decimal"

	"tradesim/internal/model/enum"
)

// sizeNotional returns the capital to commit for one entry at the given
// price, per the configured sizing mode.
func (d *Driver) sizeNotional(price decimal.Decimal) decimal.Decimal {
	s := d.cfg.Sizing
	equity := d.markEquity(price)
	switch s.Mode {
	case enum.SizingModeFixed:
		return s.Value
	case enum.SizingModePercent:
		return equity.Mul(s.Value)
	case enum.SizingModeKelly:
		return equity.Mul(d.kellyFraction())
	default:
		return decimal.Zero
	}
}

// kellyFraction estimates f = W - (1-W)/R from the trailing trade window,
// where W is the win rate and R the win/loss ratio, scaled by the configured
// multiplier and clamped to [0, Cap]. With too little history, or without
// both a winner and a loser to estimate R from, the fallback fraction is
// used.
func (d *Driver) kellyFraction() decimal.Decimal {
	s := d.cfg.Sizing
	window := d.trades
	if len(window) > s.Window {
		window = window[len(window)-s.Window:]
	}
	if len(window) < s.MinTrades {
		return s.Fallback
	}

	var wins, losses int
	sumWin, sumLoss := decimal.Zero, decimal.Zero
	for _, t := range window {
		switch t.NetPnL.Sign() {
		case 1:
			wins++
			sumWin = sumWin.Add(t.NetPnL)
		case -1:
			losses++
			sumLoss = sumLoss.Add(t.NetPnL)
		}
	}
	if wins == 0 || losses == 0 {
		return s.Fallback
	}

	avgWin := sumWin.Div(decimal.NewFromInt(int64(wins)))
	avgLoss := sumLoss.Abs().Div(decimal.NewFromInt(int64(losses)))
	if avgLoss.Sign() == 0 {
		return s.Fallback
	}

	w := decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(len(window))))
	r := avgWin.Div(avgLoss)
	one := decimal.NewFromInt(1)
	f := w.Sub(one.Sub(w).Div(r)).Mul(s.Value)

	if f.Sign() <= 0 {
		return decimal.Zero
	}
	return decimal.Min(f, s.Cap)
}
