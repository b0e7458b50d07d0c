package enum

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderKind market, limit, stop, stop limit, trailing stop, stealth
type OrderKind uint8

const (
	_order_kind_beg OrderKind = iota
	OrderKindMarket
	OrderKindLimit
	OrderKindStop
	OrderKindStopLimit
	OrderKindTrailingStop
	OrderKindStealth
	_order_kind_end
)

func (k OrderKind) IsAvailable() bool {
	return k > _order_kind_beg && k < _order_kind_end
}

func (k OrderKind) String() string {
	switch k {
	case OrderKindMarket:
		return "market"
	case OrderKindLimit:
		return "limit"
	case OrderKindStop:
		return "stop"
	case OrderKindStopLimit:
		return "stop_limit"
	case OrderKindTrailingStop:
		return "trailing_stop"
	case OrderKindStealth:
		return "stealth"
	default:
		return "unknown"
	}
}

// OrderStatus pending, partial filled, filled, canceled, rejected
type OrderStatus uint8

const (
	_order_status_beg OrderStatus = iota
	OrderStatusPending
	OrderStatusPartialFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
	_order_status_end
)

func (s OrderStatus) IsAvailable() bool {
	return s > _order_status_beg && s < _order_status_end
}

// IsTerminal reports whether no further transition is legal.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusPartialFilled:
		return "partial_filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCanceled:
		return "canceled"
	case OrderStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// OrderTimeInForce GTC, IOC, FOK
type OrderTimeInForce uint8

const (
	_order_time_in_force_beg OrderTimeInForce = iota
	OrderTimeInForceGTC
	OrderTimeInForceIOC
	OrderTimeInForceFOK
	_order_time_in_force_end
)

func (s OrderTimeInForce) IsAvailable() bool {
	return s > _order_time_in_force_beg && s < _order_time_in_force_end
}

func (s OrderTimeInForce) String() string {
	switch s {
	case OrderTimeInForceGTC:
		return "gtc"
	case OrderTimeInForceIOC:
		return "ioc"
	case OrderTimeInForceFOK:
		return "fok"
	default:
		return "unknown"
	}
}
