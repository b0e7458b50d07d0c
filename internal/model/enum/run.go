package enum

// SizingMode fixed notional, percent of equity, fractional kelly
type SizingMode uint8

const (
	_sizing_mode_beg SizingMode = iota
	SizingModeFixed
	SizingModePercent
	SizingModeKelly
	_sizing_mode_end
)

func (m SizingMode) IsAvailable() bool {
	return m > _sizing_mode_beg && m < _sizing_mode_end
}

func (m SizingMode) String() string {
	switch m {
	case SizingModeFixed:
		return "fixed"
	case SizingModePercent:
		return "percent"
	case SizingModeKelly:
		return "kelly"
	default:
		return "unknown"
	}
}

// RunState backtest driver lifecycle
type RunState uint8

const (
	_run_state_beg RunState = iota
	RunStateNotStarted
	RunStateRunning
	RunStateCompleted
	_run_state_end
)

func (s RunState) IsAvailable() bool {
	return s > _run_state_beg && s < _run_state_end
}

func (s RunState) String() string {
	switch s {
	case RunStateNotStarted:
		return "not_started"
	case RunStateRunning:
		return "running"
	case RunStateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
