package model

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/model/enum"
)

// OrderRecord is the plain serializable snapshot of an Order. Converting an
// order to its record and back reproduces identical status, quantity and
// price state.
type OrderRecord struct {
	ID             uint64                `json:"id"`
	Symbol         string                `json:"symbol"`
	Side           enum.OrderSide        `json:"side"`
	Kind           enum.OrderKind        `json:"kind"`
	Status         enum.OrderStatus      `json:"status"`
	Quantity       decimal.Decimal       `json:"quantity"`
	LimitPrice     decimal.Decimal       `json:"limitPrice"`
	StopPrice      decimal.Decimal       `json:"stopPrice"`
	TimeInForce    enum.OrderTimeInForce `json:"timeInForce"`
	FilledQuantity decimal.Decimal       `json:"filledQuantity"`
	AvgFillPrice   decimal.Decimal       `json:"avgFillPrice"`
	Fills          []Fill                `json:"fills,omitempty"`
	TrailDistance  decimal.Decimal       `json:"trailDistance"`
	TrailExtreme   decimal.Decimal       `json:"trailExtreme"`
	TrailStop      decimal.Decimal       `json:"trailStop"`
	SliceSize      decimal.Decimal       `json:"sliceSize"`
	Revealed       decimal.Decimal       `json:"revealed"`
	Primed         bool                  `json:"primed"`
	Armed          bool                  `json:"armed"`
	PairID         uint64                `json:"pairId,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Snapshot copies the order into its record form.
func (o *Order) Snapshot() OrderRecord {
	fills := make([]Fill, len(o.Fills))
	copy(fills, o.Fills)
	return OrderRecord{
		ID:             o.ID,
		Symbol:         o.Symbol,
		Side:           o.Side,
		Kind:           o.Kind,
		Status:         o.Status,
		Quantity:       o.Quantity,
		LimitPrice:     o.LimitPrice,
		StopPrice:      o.StopPrice,
		TimeInForce:    o.TimeInForce,
		FilledQuantity: o.FilledQuantity,
		AvgFillPrice:   o.AvgFillPrice,
		Fills:          fills,
		TrailDistance:  o.TrailDistance,
		TrailExtreme:   o.TrailExtreme,
		TrailStop:      o.TrailStop,
		SliceSize:      o.SliceSize,
		Revealed:       o.Revealed,
		Primed:         o.Primed,
		Armed:          o.Armed,
		PairID:         o.PairID,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// Restore rebuilds an Order from its record form.
func (r OrderRecord) Restore() *Order {
	fills := make([]Fill, len(r.Fills))
	copy(fills, r.Fills)
	return &Order{
		ID:             r.ID,
		Symbol:         r.Symbol,
		Side:           r.Side,
		Kind:           r.Kind,
		Status:         r.Status,
		Quantity:       r.Quantity,
		LimitPrice:     r.LimitPrice,
		StopPrice:      r.StopPrice,
		TimeInForce:    r.TimeInForce,
		FilledQuantity: r.FilledQuantity,
		AvgFillPrice:   r.AvgFillPrice,
		Fills:          fills,
		TrailDistance:  r.TrailDistance,
		TrailExtreme:   r.TrailExtreme,
		TrailStop:      r.TrailStop,
		SliceSize:      r.SliceSize,
		Revealed:       r.Revealed,
		Primed:         r.Primed,
		Armed:          r.Armed,
		PairID:         r.PairID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
