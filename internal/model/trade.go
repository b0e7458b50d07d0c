package model

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/model/enum"
)

// Trade is one closed round trip.
type Trade struct {
	ID         uint64          `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       enum.OrderSide  `json:"side"`
	EntryAt    time.Time       `json:"entryAt"`
	ExitAt     time.Time       `json:"exitAt"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	ExitPrice  decimal.Decimal `json:"exitPrice"`
	Quantity   decimal.Decimal `json:"quantity"`
	Commission decimal.Decimal `json:"commission"`
	Slippage   decimal.Decimal `json:"slippage"`
	NetPnL     decimal.Decimal `json:"netPnl"`
	PnLPercent float64         `json:"pnlPercent"`
	Duration   time.Duration   `json:"duration"`
	ExitReason enum.ExitReason `json:"exitReason"`
}

// GrossPnL is the price move times quantity, signed by side.
func (t Trade) GrossPnL() decimal.Decimal {
	move := t.ExitPrice.Sub(t.EntryPrice)
	if t.Side == enum.OrderSideSell {
		move = move.Neg()
	}
	return move.Mul(t.Quantity)
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	At     time.Time       `json:"at"`
	Equity decimal.Decimal `json:"equity"`
}
