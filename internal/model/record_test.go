package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/model/enum"
)

func sampleOrder() *Order {
	created := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	return &Order{
		ID:             42,
		Symbol:         "BTCUSDT",
		Side:           enum.OrderSideSell,
		Kind:           enum.OrderKindStealth,
		Status:         enum.OrderStatusPartialFilled,
		Quantity:       decimal.NewFromInt(10),
		LimitPrice:     decimal.RequireFromString("101.5"),
		TimeInForce:    enum.OrderTimeInForceGTC,
		FilledQuantity: decimal.NewFromInt(3),
		AvgFillPrice:   decimal.RequireFromString("101.5"),
		Fills: []Fill{
			{Quantity: decimal.NewFromInt(3), Price: decimal.RequireFromString("101.5"), At: created.Add(time.Minute)},
		},
		SliceSize: decimal.NewFromInt(3),
		Revealed:  decimal.NewFromInt(3),
		Primed:    true,
		PairID:    7,
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	o := sampleOrder()
	back := o.Snapshot().Restore()

	assert.Equal(t, o.ID, back.ID)
	assert.Equal(t, o.Status, back.Status)
	assert.Equal(t, o.Kind, back.Kind)
	assert.True(t, o.Quantity.Equal(back.Quantity))
	assert.True(t, o.FilledQuantity.Equal(back.FilledQuantity))
	assert.True(t, o.AvgFillPrice.Equal(back.AvgFillPrice))
	assert.True(t, o.Revealed.Equal(back.Revealed))
	require.Len(t, back.Fills, 1)
	assert.True(t, o.Fills[0].Quantity.Equal(back.Fills[0].Quantity))
	assert.Equal(t, o.Primed, back.Primed)
	assert.Equal(t, o.PairID, back.PairID)
}

func TestSnapshotIsDetached(t *testing.T) {
	o := sampleOrder()
	rec := o.Snapshot()

	o.Status = enum.OrderStatusFilled
	o.Fills[0].Quantity = decimal.NewFromInt(99)

	assert.Equal(t, enum.OrderStatusPartialFilled, rec.Status)
	assert.True(t, rec.Fills[0].Quantity.Equal(decimal.NewFromInt(3)),
		"snapshot fills must not alias the live slice")
}

func TestRecordJSONRoundTrip(t *testing.T) {
	rec := sampleOrder().Snapshot()

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var back OrderRecord
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.Status, back.Status)
	assert.True(t, rec.Quantity.Equal(back.Quantity))
	assert.True(t, rec.AvgFillPrice.Equal(back.AvgFillPrice))
	assert.True(t, rec.CreatedAt.Equal(back.CreatedAt))
}

func TestRemainingFloorsAtZero(t *testing.T) {
	o := &Order{Quantity: decimal.NewFromInt(5), FilledQuantity: decimal.RequireFromString("5.000000001")}
	assert.True(t, o.Remaining().IsZero())

	o.FilledQuantity = decimal.NewFromInt(2)
	assert.True(t, o.Remaining().Equal(decimal.NewFromInt(3)))
}
