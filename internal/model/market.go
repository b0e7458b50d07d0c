package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one normalized quote: the engine's uniform live-mode input.
type Tick struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
	At     time.Time       `json:"at"`
}

// Bar is one OHLCV candle: the engine's uniform backtest-mode input.
type Bar struct {
	At     time.Time       `json:"at"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Valid reports whether the bar is usable: positive prices and high >= low.
func (b Bar) Valid() bool {
	if b.Open.Sign() <= 0 || b.High.Sign() <= 0 || b.Low.Sign() <= 0 || b.Close.Sign() <= 0 {
		return false
	}
	return !b.High.LessThan(b.Low)
}

// GapReason classifies a skipped tick or bar.
type GapReason string

const (
	GapNonFinitePrice GapReason = "non_finite_price"
	GapNegativePrice  GapReason = "negative_price"
	GapUnknownSymbol  GapReason = "unknown_symbol"
	GapInvalidBar     GapReason = "invalid_bar"
	GapOutOfOrder     GapReason = "out_of_order"
)

// DataGap records one rejected input. Gaps are counted and surfaced, never
// silently dropped and never turned into caller-visible failures.
type DataGap struct {
	Reason GapReason `json:"reason"`
	Symbol string    `json:"symbol"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

// Diagnostics accumulates data gaps over a session or replay.
type Diagnostics struct {
	SkippedTicks int       `json:"skippedTicks"`
	SkippedBars  int       `json:"skippedBars"`
	OutOfOrder   int       `json:"outOfOrder"`
	Gaps         []DataGap `json:"gaps,omitempty"`

	// MaxDetails bounds the retained Gaps entries on long sessions; the
	// counters keep counting past the bound. Zero keeps every entry.
	MaxDetails int `json:"-"`
}

// AddTickGap records a rejected tick.
func (d *Diagnostics) AddTickGap(gap DataGap) {
	d.SkippedTicks++
	d.appendDetail(gap)
}

// AddBarGap records a rejected bar.
func (d *Diagnostics) AddBarGap(gap DataGap) {
	d.SkippedBars++
	d.appendDetail(gap)
}

// AddOutOfOrder notes a timestamp regression. Live ticks are still processed;
// replayed bars are dropped.
func (d *Diagnostics) AddOutOfOrder(gap DataGap) {
	d.OutOfOrder++
	d.appendDetail(gap)
}

func (d *Diagnostics) appendDetail(gap DataGap) {
	if d.MaxDetails > 0 && len(d.Gaps) >= d.MaxDetails {
		return
	}
	d.Gaps = append(d.Gaps, gap)
}
