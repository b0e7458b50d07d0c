package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/model/enum"
)

// Sizing selects how each entry is sized.
//
//   - fixed:   Value is a notional amount of capital per trade
//   - percent: Value is a fraction of current equity
//   - kelly:   Value is a multiplier on the fractional-Kelly estimate
//     derived from the trailing trade window, clamped to Cap
type Sizing struct {
	Mode  enum.SizingMode `json:"mode"`
	Value decimal.Decimal `json:"value"`

	// Kelly tuning. Window is the number of trailing closed trades the
	// estimate is derived from; before MinTrades have closed the Fallback
	// equity fraction is used instead.
	Window    int             `json:"window"`
	MinTrades int             `json:"minTrades"`
	Cap       decimal.Decimal `json:"cap"`
	Fallback  decimal.Decimal `json:"fallback"`
}

// Config enumerates one backtest run.
type Config struct {
	Symbol          string          `json:"symbol"`
	StartingCapital decimal.Decimal `json:"startingCapital"`
	CommissionRate  decimal.Decimal `json:"commissionRate"`
	SlippageRate    decimal.Decimal `json:"slippageRate"`
	MaxPositions    int             `json:"maxPositions"`
	Sizing          Sizing          `json:"sizing"`

	// Optional global exit percentages applied to every entry.
	StopLossPct   decimal.Decimal `json:"stopLossPct"`
	TakeProfitPct decimal.Decimal `json:"takeProfitPct"`

	// Optional date-range filter; zero means unbounded.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (c Config) withDefaults() Config {
	if c.Symbol == "" {
		c.Symbol = "UNSET"
	}
	if c.MaxPositions <= 0 {
		c.MaxPositions = 1
	}
	if !c.Sizing.Mode.IsAvailable() {
		c.Sizing.Mode = enum.SizingModePercent
		if c.Sizing.Value.Sign() <= 0 {
			c.Sizing.Value = decimal.NewFromFloat(0.1)
		}
	}
	if c.Sizing.Window <= 0 {
		c.Sizing.Window = 20
	}
	if c.Sizing.MinTrades <= 0 {
		c.Sizing.MinTrades = 5
	}
	if c.Sizing.Cap.Sign() <= 0 {
		c.Sizing.Cap = decimal.NewFromFloat(0.25)
	}
	if c.Sizing.Fallback.Sign() <= 0 {
		c.Sizing.Fallback = decimal.NewFromFloat(0.02)
	}
	return c
}

func (c Config) outOfRange(at time.Time) bool {
	if !c.From.IsZero() && at.Before(c.From) {
		return true
	}
	if !c.To.IsZero() && at.After(c.To) {
		return true
	}
	return false
}
