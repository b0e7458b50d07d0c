package enum

// TriggerKind enumerates the legal pending-order -> fill transitions.
//
// A stop order never mutates in place into a market order; once its stop
// condition holds it fires as TriggerStopToMarket, a stop-limit fires as
// TriggerStopToLimit when both conditions hold, and so on. Keeping the
// transition explicit makes the set of legal fills exhaustively matchable.
type TriggerKind uint8

const (
	_trigger_kind_beg TriggerKind = iota
	TriggerMarket
	TriggerLimit
	TriggerStopToMarket
	TriggerStopToLimit
	TriggerTrailingStop
	TriggerStealthSlice
	TriggerOCOPrimary
	TriggerOCOSecondary
	_trigger_kind_end
)

func (k TriggerKind) IsAvailable() bool {
	return k > _trigger_kind_beg && k < _trigger_kind_end
}

func (k TriggerKind) String() string {
	switch k {
	case TriggerMarket:
		return "market"
	case TriggerLimit:
		return "limit"
	case TriggerStopToMarket:
		return "stop_to_market"
	case TriggerStopToLimit:
		return "stop_to_limit"
	case TriggerTrailingStop:
		return "trailing_stop"
	case TriggerStealthSlice:
		return "stealth_slice"
	case TriggerOCOPrimary:
		return "oco_primary"
	case TriggerOCOSecondary:
		return "oco_secondary"
	default:
		return "unknown"
	}
}
