// Package backtest replays a historical bar series against a strategy and
// produces the hypothetical trade history, equity curve and performance
// report.
//
// Intrabar rule, fixed by design: open positions' stop-loss/take-profit
// exits are tested against each bar's high/low range and fill at the stop or
// target price; entries and signal exits execute at the bar close. This
// choice changes results and must not vary per run.
package backtest

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"tradesim/internal/analytics"
	"tradesim/internal/ledger"
	"tradesim/internal/model"
	"tradesim/internal/model/enum"
	"tradesim/internal/trigger"
)

var (
	ErrAlreadyStarted = errors.New("backtest already started")
	ErrNoSignalFunc   = errors.New("backtest requires a signal function")
)

// Result is the terminal-state output of one replay.
type Result struct {
	Report      model.PerformanceReport `json:"report"`
	Trades      []model.Trade           `json:"trades"`
	Equity      []model.EquityPoint     `json:"equity"`
	Diagnostics model.Diagnostics       `json:"diagnostics"`
}

// position is one open exposure and its attached exit orders.
type position struct {
	side       enum.OrderSide
	qty        decimal.Decimal
	entryPrice decimal.Decimal
	entryAt    time.Time
	entryCost  decimal.Decimal // commission at entry
	entrySlip  decimal.Decimal // slippage at entry

	pair     *model.OCOPair // take-profit + stop-loss, both configured
	exitID   uint64         // standalone exit order, one configured
	exitKind enum.OrderKind
}

// Driver walks the bar sequence in a single forward pass.
// State machine: NotStarted -> Running -> Completed.
type Driver struct {
	cfg    Config
	signal SignalFunc
	state  enum.RunState

	ledger *ledger.Ledger
	engine *trigger.Engine

	cash      decimal.Decimal
	open      []*position
	trades    []model.Trade
	equity    []model.EquityPoint
	diags     model.Diagnostics
	nextTrade uint64
}

func NewDriver(cfg Config, signal SignalFunc) *Driver {
	l := ledger.New()
	return &Driver{
		cfg:    cfg.withDefaults(),
		signal: signal,
		state:  enum.RunStateNotStarted,
		ledger: l,
		engine: trigger.New(l),
		cash:   cfg.StartingCapital,
	}
}

// State returns the driver lifecycle state.
func (d *Driver) State() enum.RunState {
	return d.state
}

// Run replays the bars once. A driver instance runs exactly one backtest;
// the worst per-bar outcome is a skipped bar recorded in diagnostics.
func (d *Driver) Run(ctx context.Context, bars []model.Bar) (Result, error) {
	if d.state != enum.RunStateNotStarted {
		return Result{}, ErrAlreadyStarted
	}
	if d.signal == nil {
		return Result{}, ErrNoSignalFunc
	}
	d.state = enum.RunStateRunning
	logs.Infof("backtest start: symbol=%s bars=%d capital=%s",
		d.cfg.Symbol, len(bars), d.cfg.StartingCapital.StringFixed(2))

	var lastAt time.Time
	var lastBar model.Bar
	var seen bool
	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		if !bar.Valid() {
			d.diags.AddBarGap(model.DataGap{
				Reason: model.GapInvalidBar, Symbol: d.cfg.Symbol, At: bar.At,
			})
			continue
		}
		if seen && bar.At.Before(lastAt) {
			d.diags.AddOutOfOrder(model.DataGap{
				Reason: model.GapOutOfOrder, Symbol: d.cfg.Symbol, At: bar.At,
			})
			continue
		}
		if d.cfg.outOfRange(bar.At) {
			continue
		}
		lastAt, lastBar, seen = bar.At, bar, true

		d.step(i, bar, bars)
		d.equity = append(d.equity, model.EquityPoint{At: bar.At, Equity: d.markEquity(bar.Close)})
	}

	if seen {
		d.forceClose(lastBar)
		if n := len(d.equity); n > 0 {
			d.equity[n-1] = model.EquityPoint{At: lastBar.At, Equity: d.markEquity(lastBar.Close)}
		}
	}

	d.state = enum.RunStateCompleted
	report := analytics.Compute(d.trades, d.cfg.StartingCapital, d.equity)
	logs.Infof("backtest done: trades=%d net=%s skipped=%d",
		report.TotalTrades, report.NetProfit.StringFixed(2), d.diags.SkippedBars)
	return Result{
		Report:      report,
		Trades:      d.trades,
		Equity:      d.equity,
		Diagnostics: d.diags,
	}, nil
}

func (d *Driver) step(i int, bar model.Bar, bars []model.Bar) {
	// exits first: the bar range may take out a stop or target before the
	// close-of-bar signal is even consulted.
	for _, ev := range d.engine.EvaluateBar(d.cfg.Symbol, bar) {
		d.settleExit(ev, bar)
	}

	sig := d.signal(i, bar, bars)
	switch sig.Action {
	case ActionExit:
		for len(d.open) > 0 {
			d.closePosition(d.open[0], bar.Close, bar.At, enum.ExitReasonSignal)
		}
	case ActionEnterLong:
		d.enter(enum.OrderSideBuy, bar)
	case ActionEnterShort:
		d.enter(enum.OrderSideSell, bar)
	}
}

func (d *Driver) enter(side enum.OrderSide, bar model.Bar) {
	if len(d.open) >= d.cfg.MaxPositions {
		return
	}
	price := bar.Close
	notional := d.sizeNotional(price)
	if notional.GreaterThan(d.cash) {
		notional = d.cash
	}
	if notional.Sign() <= 0 {
		return
	}
	qty := notional.Div(price)
	if qty.Sign() <= 0 {
		return
	}

	commission := notional.Mul(d.cfg.CommissionRate)
	slip := notional.Mul(d.cfg.SlippageRate)
	pos := &position{
		side:       side,
		qty:        qty,
		entryPrice: price,
		entryAt:    bar.At,
		entryCost:  commission,
		entrySlip:  slip,
	}

	if side == enum.OrderSideBuy {
		d.cash = d.cash.Sub(notional)
	} else {
		d.cash = d.cash.Add(notional)
	}
	d.cash = d.cash.Sub(commission).Sub(slip)

	d.attachExits(pos, bar.At)
	d.open = append(d.open, pos)
	logs.Debugf("enter %s qty=%s price=%s", side, qty.StringFixed(6), price.StringFixed(4))
}

// attachExits creates the configured stop-loss/take-profit exit orders. Both
// configured yields an OCO pair with the take-profit limit as the primary
// leg; one configured yields a standalone order.
func (d *Driver) attachExits(pos *position, at time.Time) {
	exitSide := enum.OrderSideSell
	if pos.side == enum.OrderSideSell {
		exitSide = enum.OrderSideBuy
	}
	var tp, sl decimal.Decimal
	if d.cfg.TakeProfitPct.Sign() > 0 {
		tp = applyPct(pos.entryPrice, d.cfg.TakeProfitPct, pos.side == enum.OrderSideBuy)
	}
	if d.cfg.StopLossPct.Sign() > 0 {
		sl = applyPct(pos.entryPrice, d.cfg.StopLossPct, pos.side != enum.OrderSideBuy)
	}

	switch {
	case tp.Sign() > 0 && sl.Sign() > 0:
		pair, err := d.ledger.CreatePair(model.OCOSpec{
			Primary: model.OrderSpec{
				Symbol: d.cfg.Symbol, Side: exitSide, Kind: enum.OrderKindLimit,
				Quantity: pos.qty, LimitPrice: tp,
			},
			Secondary: model.OrderSpec{
				Symbol: d.cfg.Symbol, Side: exitSide, Kind: enum.OrderKindStop,
				Quantity: pos.qty, StopPrice: sl, ReferencePrice: pos.entryPrice,
			},
		}, at)
		if err != nil {
			logs.Warnf("attach oco exits: %+v", err)
			return
		}
		pos.pair = pair
	case tp.Sign() > 0:
		o, err := d.ledger.Create(model.OrderSpec{
			Symbol: d.cfg.Symbol, Side: exitSide, Kind: enum.OrderKindLimit,
			Quantity: pos.qty, LimitPrice: tp,
		}, at)
		if err != nil {
			logs.Warnf("attach take-profit: %+v", err)
			return
		}
		pos.exitID, pos.exitKind = o.ID, o.Kind
	case sl.Sign() > 0:
		o, err := d.ledger.Create(model.OrderSpec{
			Symbol: d.cfg.Symbol, Side: exitSide, Kind: enum.OrderKindStop,
			Quantity: pos.qty, StopPrice: sl, ReferencePrice: pos.entryPrice,
		}, at)
		if err != nil {
			logs.Warnf("attach stop-loss: %+v", err)
			return
		}
		pos.exitID, pos.exitKind = o.ID, o.Kind
	}
}

// settleExit maps one engine fill back to its position and closes it.
func (d *Driver) settleExit(ev model.FillEvent, bar model.Bar) {
	for _, pos := range d.open {
		var reason enum.ExitReason
		switch {
		case pos.pair != nil && pos.pair.ID == ev.PairID:
			reason = enum.ExitReasonTakeProfit
			if ev.Trigger == enum.TriggerOCOSecondary {
				reason = enum.ExitReasonStopLoss
			}
		case pos.exitID != 0 && pos.exitID == ev.OrderID:
			reason = enum.ExitReasonTakeProfit
			if pos.exitKind == enum.OrderKindStop {
				reason = enum.ExitReasonStopLoss
			}
		default:
			continue
		}
		d.closePosition(pos, ev.Price, ev.At, reason)
		return
	}
	logs.Warnf("fill without position: order=%d pair=%d", ev.OrderID, ev.PairID)
}

func (d *Driver) closePosition(pos *position, price decimal.Decimal, at time.Time, reason enum.ExitReason) {
	notional := pos.qty.Mul(price)
	commission := notional.Mul(d.cfg.CommissionRate)
	slip := notional.Mul(d.cfg.SlippageRate)

	if pos.side == enum.OrderSideBuy {
		d.cash = d.cash.Add(notional)
	} else {
		d.cash = d.cash.Sub(notional)
	}
	d.cash = d.cash.Sub(commission).Sub(slip)

	d.nextTrade++
	tr := model.Trade{
		ID:         d.nextTrade,
		Symbol:     d.cfg.Symbol,
		Side:       pos.side,
		EntryAt:    pos.entryAt,
		ExitAt:     at,
		EntryPrice: pos.entryPrice,
		ExitPrice:  price,
		Quantity:   pos.qty,
		Commission: pos.entryCost.Add(commission),
		Slippage:   pos.entrySlip.Add(slip),
		Duration:   at.Sub(pos.entryAt),
		ExitReason: reason,
	}
	tr.NetPnL = tr.GrossPnL().Sub(tr.Commission).Sub(tr.Slippage)

	entryNotional := pos.entryPrice.Mul(pos.qty)
	if entryNotional.Sign() > 0 {
		tr.PnLPercent = tr.NetPnL.Div(entryNotional).InexactFloat64() * 100
	}
	d.trades = append(d.trades, tr)
	net := tr.NetPnL

	if pos.pair != nil {
		d.ledger.CancelPair(pos.pair.ID, at)
	}
	if pos.exitID != 0 {
		d.ledger.Cancel(pos.exitID, at)
	}
	d.remove(pos)
	logs.Debugf("exit %s price=%s net=%s reason=%s",
		pos.side, price.StringFixed(4), net.StringFixed(4), reason)
}

// forceClose flattens everything at the last bar's close.
func (d *Driver) forceClose(last model.Bar) {
	for len(d.open) > 0 {
		d.closePosition(d.open[0], last.Close, last.At, enum.ExitReasonEndOfPeriod)
	}
}

// markEquity values open positions at the given price.
func (d *Driver) markEquity(price decimal.Decimal) decimal.Decimal {
	equity := d.cash
	for _, pos := range d.open {
		notional := pos.qty.Mul(price)
		if pos.side == enum.OrderSideBuy {
			equity = equity.Add(notional)
		} else {
			equity = equity.Sub(notional)
		}
	}
	return equity
}

func (d *Driver) remove(pos *position) {
	for i, p := range d.open {
		if p == pos {
			d.open = append(d.open[:i], d.open[i+1:]...)
			return
		}
	}
}

// applyPct shifts price by pct upward or downward.
func applyPct(price, pct decimal.Decimal, up bool) decimal.Decimal {
	delta := price.Mul(pct)
	if up {
		return price.Add(delta)
	}
	return price.Sub(delta)
}
