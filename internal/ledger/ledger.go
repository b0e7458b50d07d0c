package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/model"
	"tradesim/internal/model/enum"
)

var (
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidFill       = errors.New("invalid fill quantity")
)

// Rejection reasons returned by Create/CreatePair. A rejected spec is never
// partially applied.
var (
	ErrInvalidSide          = errors.New("reject: invalid order side")
	ErrInvalidKind          = errors.New("reject: invalid order kind")
	ErrNonPositiveQuantity  = errors.New("reject: non-positive quantity")
	ErrMissingLimitPrice    = errors.New("reject: missing limit price")
	ErrMissingStopPrice     = errors.New("reject: missing stop price")
	ErrStopEqualsEntry      = errors.New("reject: stop price equals entry price")
	ErrInvalidTrailDistance = errors.New("reject: non-positive trailing distance")
	ErrInvalidSliceSize     = errors.New("reject: non-positive stealth slice size")
	ErrInconsistentPair     = errors.New("reject: inconsistent oco legs")
)

// fillEpsilon tolerates floating drift accumulated across many partial
// fills when deciding an order is fully filled.
var fillEpsilon = decimal.New(1, -9)

// Ledger owns every Order, Fill and OCOPair for one session. It is the sole
// mutator of filled state; callers own persistence beyond its lifetime.
type Ledger struct {
	nextID uint64

	orders map[uint64]*model.Order
	pairs  map[uint64]*model.OCOPair

	// standalone / pair ids per symbol, in creation order
	standing map[string][]uint64
	paired   map[string][]uint64
}

func New() *Ledger {
	return &Ledger{
		orders:   make(map[uint64]*model.Order),
		pairs:    make(map[uint64]*model.OCOPair),
		standing: make(map[string][]uint64),
		paired:   make(map[string][]uint64),
	}
}

// Create validates and stores a new pending order.
func (l *Ledger) Create(spec model.OrderSpec, at time.Time) (*model.Order, error) {
	if err := validate(spec); err != nil {
		return nil, err
	}
	o := l.build(spec, at)
	l.orders[o.ID] = o
	l.standing[o.Symbol] = append(l.standing[o.Symbol], o.ID)
	return o, nil
}

// CreatePair validates and stores both legs of an OCO pair atomically.
func (l *Ledger) CreatePair(spec model.OCOSpec, at time.Time) (*model.OCOPair, error) {
	if err := validate(spec.Primary); err != nil {
		return nil, err
	}
	if err := validate(spec.Secondary); err != nil {
		return nil, err
	}
	if err := validatePairLegs(spec); err != nil {
		return nil, err
	}

	pair := &model.OCOPair{
		ID:        l.allocate(),
		Primary:   l.build(spec.Primary, at),
		Secondary: l.build(spec.Secondary, at),
		State:     enum.PairStateActive,
		CreatedAt: at,
		UpdatedAt: at,
	}
	pair.Primary.PairID = pair.ID
	pair.Secondary.PairID = pair.ID

	l.orders[pair.Primary.ID] = pair.Primary
	l.orders[pair.Secondary.ID] = pair.Secondary
	l.pairs[pair.ID] = pair
	l.paired[spec.Primary.Symbol] = append(l.paired[spec.Primary.Symbol], pair.ID)
	return pair, nil
}

// ApplyFill appends a fill and recomputes the volume-weighted average fill
// price. It is the only place filled quantity and fill status change.
func (l *Ledger) ApplyFill(o *model.Order, qty, price decimal.Decimal, at time.Time) (model.Fill, error) {
	if o == nil {
		return model.Fill{}, ErrUnknownOrder
	}
	if o.Status.IsTerminal() {
		return model.Fill{}, ErrInvalidTransition
	}
	if qty.Sign() <= 0 || price.Sign() <= 0 {
		return model.Fill{}, ErrInvalidFill
	}
	if qty.GreaterThan(o.Remaining().Add(fillEpsilon)) {
		return model.Fill{}, ErrInvalidFill
	}

	fill := model.Fill{Quantity: qty, Price: price, At: at}

	oldQty := o.FilledQuantity
	newQty := oldQty.Add(qty)
	if oldQty.Sign() == 0 {
		o.AvgFillPrice = price
	} else {
		weighted := o.AvgFillPrice.Mul(oldQty).Add(price.Mul(qty))
		o.AvgFillPrice = weighted.Div(newQty)
	}
	o.FilledQuantity = newQty
	o.Fills = append(o.Fills, fill)
	o.UpdatedAt = at

	if o.Quantity.Sub(newQty).LessThanOrEqual(fillEpsilon) {
		o.Status = enum.OrderStatusFilled
	} else {
		o.Status = enum.OrderStatusPartialFilled
	}
	return fill, nil
}

// Cancel moves a live order to canceled. Canceling an already-terminal order
// is idempotent, not an error; the return reports whether a transition
// happened. Canceling either leg of an active pair cancels the pair.
func (l *Ledger) Cancel(id uint64, at time.Time) bool {
	o, ok := l.orders[id]
	if !ok || o.Status.IsTerminal() {
		return false
	}
	if o.PairID != 0 {
		return l.CancelPair(o.PairID, at)
	}
	o.Status = enum.OrderStatusCanceled
	o.UpdatedAt = at
	return true
}

// CancelPair cancels both live legs and marks the pair terminal.
func (l *Ledger) CancelPair(id uint64, at time.Time) bool {
	pair, ok := l.pairs[id]
	if !ok || pair.State.IsTerminal() {
		return false
	}
	for _, leg := range []*model.Order{pair.Primary, pair.Secondary} {
		if !leg.Status.IsTerminal() {
			leg.Status = enum.OrderStatusCanceled
			leg.UpdatedAt = at
		}
	}
	pair.State = enum.PairStateCanceled
	pair.UpdatedAt = at
	return true
}

// SettlePair records which leg executed, force-canceling the sibling within
// the same step. The sibling is never observed pending after the trigger.
func (l *Ledger) SettlePair(pair *model.OCOPair, primaryWon bool, at time.Time) {
	loser := pair.Secondary
	state := enum.PairStatePrimaryExecuted
	if !primaryWon {
		loser = pair.Primary
		state = enum.PairStateSecondaryExecuted
	}
	if !loser.Status.IsTerminal() {
		loser.Status = enum.OrderStatusCanceled
		loser.UpdatedAt = at
	}
	pair.State = state
	pair.UpdatedAt = at
}

// Order returns the order with the given id.
func (l *Ledger) Order(id uint64) (*model.Order, bool) {
	o, ok := l.orders[id]
	return o, ok
}

// Pair returns the pair with the given id.
func (l *Ledger) Pair(id uint64) (*model.OCOPair, bool) {
	p, ok := l.pairs[id]
	return p, ok
}

// Pending returns the live standalone orders for a symbol in creation order.
func (l *Ledger) Pending(symbol string) []*model.Order {
	ids := l.standing[symbol]
	out := make([]*model.Order, 0, len(ids))
	for _, id := range ids {
		if o := l.orders[id]; o.Live() {
			out = append(out, o)
		}
	}
	return out
}

// ActivePairs returns the non-terminal pairs for a symbol in creation order.
func (l *Ledger) ActivePairs(symbol string) []*model.OCOPair {
	ids := l.paired[symbol]
	out := make([]*model.OCOPair, 0, len(ids))
	for _, id := range ids {
		if p := l.pairs[id]; !p.State.IsTerminal() {
			out = append(out, p)
		}
	}
	return out
}

// OpenCount returns live standalone orders plus active pairs for a symbol.
func (l *Ledger) OpenCount(symbol string) int {
	return len(l.Pending(symbol)) + len(l.ActivePairs(symbol))
}

func (l *Ledger) allocate() uint64 {
	l.nextID++
	return l.nextID
}

func (l *Ledger) build(spec model.OrderSpec, at time.Time) *model.Order {
	tif := spec.TimeInForce
	if !tif.IsAvailable() {
		tif = enum.OrderTimeInForceGTC
	}
	o := &model.Order{
		ID:            l.allocate(),
		Symbol:        spec.Symbol,
		Side:          spec.Side,
		Kind:          spec.Kind,
		Status:        enum.OrderStatusPending,
		Quantity:      spec.Quantity,
		LimitPrice:    spec.LimitPrice,
		StopPrice:     spec.StopPrice,
		TimeInForce:   tif,
		TrailDistance: spec.TrailDistance,
		SliceSize:     spec.SliceSize,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if spec.Kind == enum.OrderKindTrailingStop && spec.ReferencePrice.Sign() > 0 {
		seedTrail(o, spec.ReferencePrice)
	}
	if stopKind(spec.Kind) && spec.ReferencePrice.Sign() > 0 {
		seedStop(o, spec.ReferencePrice)
	}
	return o
}

// seedStop primes a stop whose reference sits on the non-triggering side,
// so a crossing from the known entry price fires without a prior tick.
func seedStop(o *model.Order, ref decimal.Decimal) {
	if o.Side == enum.OrderSideBuy {
		o.Primed = ref.LessThan(o.StopPrice)
		return
	}
	o.Primed = ref.GreaterThan(o.StopPrice)
}

// seedTrail initializes the ratchet from a reference price.
func seedTrail(o *model.Order, ref decimal.Decimal) {
	o.TrailExtreme = ref
	if o.Side == enum.OrderSideSell {
		o.TrailStop = ref.Sub(o.TrailDistance)
	} else {
		o.TrailStop = ref.Add(o.TrailDistance)
	}
}

func validate(spec model.OrderSpec) error {
	if !spec.Side.IsAvailable() {
		return ErrInvalidSide
	}
	if !spec.Kind.IsAvailable() {
		return ErrInvalidKind
	}
	if spec.Quantity.Sign() <= 0 {
		return ErrNonPositiveQuantity
	}
	switch spec.Kind {
	case enum.OrderKindLimit, enum.OrderKindStealth:
		if spec.LimitPrice.Sign() <= 0 {
			return ErrMissingLimitPrice
		}
	case enum.OrderKindStop:
		if spec.StopPrice.Sign() <= 0 {
			return ErrMissingStopPrice
		}
	case enum.OrderKindStopLimit:
		if spec.StopPrice.Sign() <= 0 {
			return ErrMissingStopPrice
		}
		if spec.LimitPrice.Sign() <= 0 {
			return ErrMissingLimitPrice
		}
	case enum.OrderKindTrailingStop:
		if spec.TrailDistance.Sign() <= 0 {
			return ErrInvalidTrailDistance
		}
	}
	if spec.Kind == enum.OrderKindStealth && spec.SliceSize.Sign() <= 0 {
		return ErrInvalidSliceSize
	}
	if spec.Kind == enum.OrderKindMarket && !spec.SliceSize.IsZero() && spec.SliceSize.Sign() <= 0 {
		return ErrInvalidSliceSize
	}
	if stopKind(spec.Kind) && spec.ReferencePrice.Sign() > 0 && spec.StopPrice.Equal(spec.ReferencePrice) {
		return ErrStopEqualsEntry
	}
	return nil
}

func stopKind(k enum.OrderKind) bool {
	return k == enum.OrderKindStop || k == enum.OrderKindStopLimit
}

func validatePairLegs(spec model.OCOSpec) error {
	p, s := spec.Primary, spec.Secondary
	if p.Symbol == "" || p.Symbol != s.Symbol {
		return ErrInconsistentPair
	}
	if !p.Quantity.Equal(s.Quantity) {
		return ErrInconsistentPair
	}
	if !pairLegKind(p.Kind) || !pairLegKind(s.Kind) {
		return ErrInconsistentPair
	}
	return nil
}

// pairLegKind restricts OCO legs to plain limit/stop trigger rules.
func pairLegKind(k enum.OrderKind) bool {
	return k == enum.OrderKindLimit || k == enum.OrderKindStop
}
