// Package trigger evaluates one tick or bar against the pending orders of a
// symbol and applies the resulting fills through the ledger.
//
// Evaluation order within one input is strict: OCO pairs first, then the
// standalone orders in creation order. When a single bar could satisfy both
// legs of a pair, the primary leg takes priority.
package trigger

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/ledger"
	"tradesim/internal/model"
	"tradesim/internal/model/enum"
)

type Engine struct {
	ledger *ledger.Ledger
}

func New(l *ledger.Ledger) *Engine {
	return &Engine{ledger: l}
}

// view is the uniform input: a scalar last price in live mode, or an OHLC
// range in backtest mode. In bar mode trigger-priced fills (limit, stop)
// execute at their trigger price since the intrabar path is unknown; market
// fills execute at the close.
type view struct {
	last decimal.Decimal
	high decimal.Decimal
	low  decimal.Decimal
	at   time.Time
	bar  bool
}

func tickView(t model.Tick) view {
	return view{last: t.Price, high: t.Price, low: t.Price, at: t.At}
}

func barView(b model.Bar) view {
	return view{last: b.Close, high: b.High, low: b.Low, at: b.At, bar: true}
}

// EvaluateTick runs one live-mode step for the tick's symbol.
func (e *Engine) EvaluateTick(tick model.Tick) []model.FillEvent {
	if tick.Price.Sign() <= 0 {
		return nil
	}
	return e.evaluate(tick.Symbol, tickView(tick))
}

// EvaluateBar runs one backtest-mode step for a symbol using the bar range.
func (e *Engine) EvaluateBar(symbol string, bar model.Bar) []model.FillEvent {
	if !bar.Valid() {
		return nil
	}
	return e.evaluate(symbol, barView(bar))
}

func (e *Engine) evaluate(symbol string, v view) []model.FillEvent {
	var events []model.FillEvent
	for _, pair := range e.ledger.ActivePairs(symbol) {
		if ev, ok := e.settlePair(pair, v); ok {
			events = append(events, ev)
		}
	}
	for _, o := range e.ledger.Pending(symbol) {
		if ev, ok := e.fire(o, v); ok {
			events = append(events, ev)
		}
	}
	return events
}

// settlePair tests both legs and executes at most one. The winning leg fills
// fully; the sibling is force-canceled in the same step.
func (e *Engine) settlePair(pair *model.OCOPair, v view) (model.FillEvent, bool) {
	if price, ok := legTrigger(pair.Primary, v); ok {
		ev, applied := e.apply(pair.Primary, pair.Primary.Remaining(), price, enum.TriggerOCOPrimary, v.at)
		if !applied {
			return model.FillEvent{}, false
		}
		e.ledger.SettlePair(pair, true, v.at)
		return ev, true
	}
	if price, ok := legTrigger(pair.Secondary, v); ok {
		ev, applied := e.apply(pair.Secondary, pair.Secondary.Remaining(), price, enum.TriggerOCOSecondary, v.at)
		if !applied {
			return model.FillEvent{}, false
		}
		e.ledger.SettlePair(pair, false, v.at)
		return ev, true
	}
	return model.FillEvent{}, false
}

// legTrigger applies the leg's own rule: limit legs fill at the limit price
// once crossed, stop legs fill at the prevailing price once breached.
func legTrigger(o *model.Order, v view) (decimal.Decimal, bool) {
	switch o.Kind {
	case enum.OrderKindLimit:
		if limitCrossed(o, v) {
			return o.LimitPrice, true
		}
	case enum.OrderKindStop:
		primeStop(o, v)
		if stopBreached(o, v) {
			return stopFillPrice(o, v), true
		}
	}
	return decimal.Decimal{}, false
}

func (e *Engine) fire(o *model.Order, v view) (model.FillEvent, bool) {
	switch o.Kind {
	case enum.OrderKindMarket:
		qty := o.Remaining()
		trig := enum.TriggerMarket
		if o.SliceSize.Sign() > 0 {
			qty = decimal.Min(o.SliceSize, qty)
			trig = enum.TriggerStealthSlice
		}
		return e.apply(o, qty, v.last, trig, v.at)

	case enum.OrderKindLimit:
		if !limitCrossed(o, v) {
			return model.FillEvent{}, false
		}
		return e.apply(o, o.Remaining(), o.LimitPrice, enum.TriggerLimit, v.at)

	case enum.OrderKindStop:
		primeStop(o, v)
		if !stopBreached(o, v) {
			return model.FillEvent{}, false
		}
		return e.apply(o, o.Remaining(), stopFillPrice(o, v), enum.TriggerStopToMarket, v.at)

	case enum.OrderKindStopLimit:
		primeStop(o, v)
		if !o.Armed && stopBreached(o, v) {
			o.Armed = true
		}
		if !o.Armed || !limitCrossed(o, v) {
			return model.FillEvent{}, false
		}
		return e.apply(o, o.Remaining(), o.LimitPrice, enum.TriggerStopToLimit, v.at)

	case enum.OrderKindTrailingStop:
		ratchet(o, v)
		if !trailBreached(o, v) {
			return model.FillEvent{}, false
		}
		price := v.last
		if v.bar {
			price = o.TrailStop
		}
		return e.apply(o, o.Remaining(), price, enum.TriggerTrailingStop, v.at)

	case enum.OrderKindStealth:
		if !limitCrossed(o, v) {
			return model.FillEvent{}, false
		}
		qty := decimal.Min(o.SliceSize, o.Remaining())
		ev, ok := e.apply(o, qty, o.LimitPrice, enum.TriggerStealthSlice, v.at)
		if ok {
			o.Revealed = o.Revealed.Add(qty)
		}
		return ev, ok
	}
	return model.FillEvent{}, false
}

func (e *Engine) apply(o *model.Order, qty, price decimal.Decimal, trig enum.TriggerKind, at time.Time) (model.FillEvent, bool) {
	fill, err := e.ledger.ApplyFill(o, qty, price, at)
	if err != nil {
		return model.FillEvent{}, false
	}
	return model.FillEvent{
		OrderID:  o.ID,
		PairID:   o.PairID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Kind:     o.Kind,
		Trigger:  trig,
		Quantity: fill.Quantity,
		Price:    fill.Price,
		At:       at,
		Complete: o.Status == enum.OrderStatusFilled,
	}, true
}

// limitCrossed: buy fills once price <= limit, sell once price >= limit.
func limitCrossed(o *model.Order, v view) bool {
	if o.Side == enum.OrderSideBuy {
		return v.low.LessThanOrEqual(o.LimitPrice)
	}
	return v.high.GreaterThanOrEqual(o.LimitPrice)
}

// primeStop marks the stop once price shows on its non-triggering side.
// In bar mode the range primes before the breach test, so a bar spanning
// the stop both arms and fires it in one step.
func primeStop(o *model.Order, v view) {
	if o.Primed {
		return
	}
	if o.Side == enum.OrderSideBuy {
		o.Primed = v.low.LessThan(o.StopPrice)
		return
	}
	o.Primed = v.high.GreaterThan(o.StopPrice)
}

// stopBreached: buy triggers once price >= stop, sell once price <= stop.
// A stop fires only on a crossing: the level must first be primed, either
// by ReferencePrice at creation or by an observed price beyond it. A stop
// submitted inside its own level stays dormant until price crosses out.
func stopBreached(o *model.Order, v view) bool {
	if !o.Primed {
		return false
	}
	if o.Side == enum.OrderSideBuy {
		return v.high.GreaterThanOrEqual(o.StopPrice)
	}
	return v.low.LessThanOrEqual(o.StopPrice)
}

// stopFillPrice: tick price in live mode, the stop itself in bar mode.
func stopFillPrice(o *model.Order, v view) decimal.Decimal {
	if v.bar {
		return o.StopPrice
	}
	return v.last
}

// ratchet moves the trailing stop in the trader's favor only. A sell-side
// stop tracks the running high and never decreases; buy-side is symmetric
// with the running low. In bar mode the ratchet sees the bar extreme before
// the breach test, the conservative reading of an ambiguous bar.
func ratchet(o *model.Order, v view) {
	if o.Side == enum.OrderSideSell {
		ext := v.high
		if o.TrailExtreme.Sign() == 0 || ext.GreaterThan(o.TrailExtreme) {
			o.TrailExtreme = ext
			o.TrailStop = ext.Sub(o.TrailDistance)
		}
		return
	}
	ext := v.low
	if o.TrailExtreme.Sign() == 0 || ext.LessThan(o.TrailExtreme) {
		o.TrailExtreme = ext
		o.TrailStop = ext.Add(o.TrailDistance)
	}
}

func trailBreached(o *model.Order, v view) bool {
	if o.TrailStop.Sign() == 0 {
		return false
	}
	if o.Side == enum.OrderSideSell {
		return v.low.LessThanOrEqual(o.TrailStop)
	}
	return v.high.GreaterThanOrEqual(o.TrailStop)
}
