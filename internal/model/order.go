package model

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/model/enum"
)

// OrderSpec is a caller-supplied order request. Zero decimal fields mean
// "unset"; the ledger validates which fields each kind requires.
type OrderSpec struct {
	Symbol        string                `json:"symbol"`
	Side          enum.OrderSide        `json:"side"`
	Kind          enum.OrderKind        `json:"kind"`
	Quantity      decimal.Decimal       `json:"quantity"`
	LimitPrice    decimal.Decimal       `json:"limitPrice"`
	StopPrice     decimal.Decimal       `json:"stopPrice"`
	TrailDistance decimal.Decimal       `json:"trailDistance"`
	SliceSize     decimal.Decimal       `json:"sliceSize"`
	TimeInForce   enum.OrderTimeInForce `json:"timeInForce"`

	// ReferencePrice is the entry price the spec was quoted against,
	// used to reject degenerate stops. Optional.
	ReferencePrice decimal.Decimal `json:"referencePrice"`
}

// OCOSpec describes a one-cancels-other pair. Both legs are created
// atomically; when one bar satisfies both legs, the primary wins.
type OCOSpec struct {
	Primary   OrderSpec `json:"primary"`
	Secondary OrderSpec `json:"secondary"`
}

// Fill is an immutable execution slice of one order.
type Fill struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	At       time.Time       `json:"at"`
}

// Order is the engine-owned order state. The ledger is the sole mutator of
// filled quantity and status; everything else holds it read-only.
type Order struct {
	ID          uint64
	Symbol      string
	Side        enum.OrderSide
	Kind        enum.OrderKind
	Status      enum.OrderStatus
	Quantity    decimal.Decimal
	LimitPrice  decimal.Decimal
	StopPrice   decimal.Decimal
	TimeInForce enum.OrderTimeInForce

	FilledQuantity decimal.Decimal
	AvgFillPrice   decimal.Decimal
	Fills          []Fill

	// Trailing-stop ratchet state. TrailExtreme tracks the running
	// favorable extreme, TrailStop the current stop derived from it.
	TrailDistance decimal.Decimal
	TrailExtreme  decimal.Decimal
	TrailStop     decimal.Decimal

	// Stealth slicing state.
	SliceSize decimal.Decimal
	Revealed  decimal.Decimal

	// Stop crossing state. Primed marks that price has been observed on
	// the non-triggering side of the stop, via ReferencePrice at creation
	// or a later tick/bar; only a primed stop can breach. Armed is the
	// stop-limit second stage, set once a primed stop condition has held.
	Primed bool
	Armed  bool

	PairID    uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remaining returns the unfilled quantity, floored at zero.
func (o *Order) Remaining() decimal.Decimal {
	rem := o.Quantity.Sub(o.FilledQuantity)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Live reports whether the order can still receive fills.
func (o *Order) Live() bool {
	return !o.Status.IsTerminal()
}

// OCOPair links two sibling orders. At most one leg ever fills; the instant
// either fills the other is force-canceled and the pair turns terminal.
type OCOPair struct {
	ID        uint64
	Primary   *Order
	Secondary *Order
	State     enum.PairState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FillEvent is the serializable record emitted for every executed fill.
type FillEvent struct {
	OrderID  uint64           `json:"orderId"`
	PairID   uint64           `json:"pairId,omitempty"`
	Symbol   string           `json:"symbol"`
	Side     enum.OrderSide   `json:"side"`
	Kind     enum.OrderKind   `json:"kind"`
	Trigger  enum.TriggerKind `json:"trigger"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    decimal.Decimal  `json:"price"`
	At       time.Time        `json:"at"`
	Complete bool             `json:"complete"`
}
