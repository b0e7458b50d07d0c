// Package live maintains the in-memory order/OCO state across repeated
// external quote pushes.
//
// Processing is synchronous and single-writer: one Manager instance must be
// driven from one goroutine. Per-symbol sharding, when wanted, is one
// Manager per symbol; triggers for a symbol depend only on that symbol's
// orders and ticks, so shards never share state.
package live

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"tradesim/internal/ledger"
	"tradesim/internal/model"
	"tradesim/internal/trigger"
)

// Config controls one manager instance.
type Config struct {
	// Symbols is an optional whitelist. Empty accepts any symbol.
	Symbols []string
	// MaxGapDetails bounds the retained DataGap entries; counters keep
	// counting past the bound. Zero keeps 256.
	MaxGapDetails int
}

// Manager owns the order map and fill history for a streaming session.
// Engines are explicitly constructed and caller-owned; there is no global
// instance.
type Manager struct {
	cfg     Config
	symbols map[string]struct{}
	ledger  *ledger.Ledger
	engine  *trigger.Engine
	metrics *Metrics

	history []model.FillEvent
	diags   model.Diagnostics
	lastAt  map[string]time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxGapDetails <= 0 {
		cfg.MaxGapDetails = 256
	}
	var symbols map[string]struct{}
	if len(cfg.Symbols) > 0 {
		symbols = make(map[string]struct{}, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			symbols[s] = struct{}{}
		}
	}
	l := ledger.New()
	return &Manager{
		cfg:     cfg,
		symbols: symbols,
		ledger:  l,
		engine:  trigger.New(l),
		metrics: NewMetrics(),
		diags:   model.Diagnostics{MaxDetails: cfg.MaxGapDetails},
		lastAt:  make(map[string]time.Time),
	}
}

// Submit validates and registers a new pending order.
func (m *Manager) Submit(spec model.OrderSpec) (*model.Order, error) {
	o, err := m.ledger.Create(spec, time.Now().UTC())
	if err != nil {
		m.metrics.IncRejected()
		return nil, err
	}
	m.metrics.IncSubmitted()
	logs.Debugf("order submitted: id=%d %s %s %s", o.ID, o.Symbol, o.Side, o.Kind)
	return o, nil
}

// SubmitOCO validates and registers both legs of a pair atomically.
func (m *Manager) SubmitOCO(spec model.OCOSpec) (*model.OCOPair, error) {
	pair, err := m.ledger.CreatePair(spec, time.Now().UTC())
	if err != nil {
		m.metrics.IncRejected()
		return nil, err
	}
	m.metrics.IncSubmitted()
	logs.Debugf("oco pair submitted: id=%d %s", pair.ID, pair.Primary.Symbol)
	return pair, nil
}

// Cancel cancels a live order, idempotently. Canceling a terminal order
// reports false and is not an error.
func (m *Manager) Cancel(id uint64) bool {
	ok := m.ledger.Cancel(id, time.Now().UTC())
	if ok {
		m.metrics.IncCanceled()
	}
	return ok
}

// OnTick runs one trigger step for the symbol and returns the fills it
// produced. A rejected tick yields no fills and a diagnostics entry, never
// an error: the session must survive any quote stream unattended.
func (m *Manager) OnTick(symbol string, price float64, at time.Time) []model.FillEvent {
	start := time.Now()
	if at.IsZero() {
		at = start.UTC()
	}

	if m.symbols != nil {
		if _, ok := m.symbols[symbol]; !ok {
			m.addGap(model.DataGap{Reason: model.GapUnknownSymbol, Symbol: symbol, At: at})
			return nil
		}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		m.addGap(model.DataGap{Reason: model.GapNonFinitePrice, Symbol: symbol, At: at})
		return nil
	}
	if price <= 0 {
		m.addGap(model.DataGap{Reason: model.GapNegativePrice, Symbol: symbol, At: at})
		return nil
	}

	// accepted but not reconciled; the regression is only recorded
	if last, ok := m.lastAt[symbol]; ok && at.Before(last) {
		m.diags.AddOutOfOrder(model.DataGap{Reason: model.GapOutOfOrder, Symbol: symbol, At: at})
	} else {
		m.lastAt[symbol] = at
	}

	events := m.engine.EvaluateTick(model.Tick{
		Symbol: symbol,
		Price:  decimal.NewFromFloat(price),
		At:     at,
	})
	m.history = append(m.history, events...)
	m.metrics.ObserveTick(len(events), time.Since(start))
	return events
}

// Order returns the serializable snapshot of one order.
func (m *Manager) Order(id uint64) (model.OrderRecord, bool) {
	o, ok := m.ledger.Order(id)
	if !ok {
		return model.OrderRecord{}, false
	}
	return o.Snapshot(), true
}

// Pair returns the pair with the given id.
func (m *Manager) Pair(id uint64) (*model.OCOPair, bool) {
	return m.ledger.Pair(id)
}

// OpenCount returns the live standalone orders plus active pairs for a
// symbol.
func (m *Manager) OpenCount(symbol string) int {
	return m.ledger.OpenCount(symbol)
}

// FillHistory returns a copy of the process-wide fill history.
func (m *Manager) FillHistory() []model.FillEvent {
	out := make([]model.FillEvent, len(m.history))
	copy(out, m.history)
	return out
}

// Diagnostics returns a copy of the accumulated data-gap state.
func (m *Manager) Diagnostics() model.Diagnostics {
	d := m.diags
	d.Gaps = make([]model.DataGap, len(m.diags.Gaps))
	copy(d.Gaps, m.diags.Gaps)
	return d
}

// Metrics returns the session counters.
func (m *Manager) Metrics() MetricsSnapshot {
	return m.metrics.Snapshot()
}

func (m *Manager) addGap(gap model.DataGap) {
	m.metrics.IncTickRejected()
	m.diags.AddTickGap(gap)
	logs.Warnf("tick rejected: symbol=%s reason=%s", gap.Symbol, gap.Reason)
}
