package enum

// ExitReason why a trade was closed
type ExitReason uint8

const (
	_exit_reason_beg ExitReason = iota
	ExitReasonSignal
	ExitReasonStopLoss
	ExitReasonTakeProfit
	ExitReasonEndOfPeriod
	_exit_reason_end
)

func (r ExitReason) IsAvailable() bool {
	return r > _exit_reason_beg && r < _exit_reason_end
}

func (r ExitReason) String() string {
	switch r {
	case ExitReasonSignal:
		return "signal"
	case ExitReasonStopLoss:
		return "stop_loss"
	case ExitReasonTakeProfit:
		return "take_profit"
	case ExitReasonEndOfPeriod:
		return "end_of_period"
	default:
		return "unknown"
	}
}

// PairState lifecycle of an OCO pair
type PairState uint8

const (
	_pair_state_beg PairState = iota
	PairStateActive
	PairStatePrimaryExecuted
	PairStateSecondaryExecuted
	PairStateCanceled
	_pair_state_end
)

func (s PairState) IsAvailable() bool {
	return s > _pair_state_beg && s < _pair_state_end
}

// IsTerminal reports whether the pair can no longer trigger.
func (s PairState) IsTerminal() bool {
	switch s {
	case PairStatePrimaryExecuted, PairStateSecondaryExecuted, PairStateCanceled:
		return true
	default:
		return false
	}
}

func (s PairState) String() string {
	switch s {
	case PairStateActive:
		return "active"
	case PairStatePrimaryExecuted:
		return "primary_executed"
	case PairStateSecondaryExecuted:
		return "secondary_executed"
	case PairStateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
