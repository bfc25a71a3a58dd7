package types

type Side string

type OrderKind string

type PositionStatus string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	OrderKindMarket    OrderKind = "market"
	OrderKindLimit     OrderKind = "limit"
	OrderKindStop      OrderKind = "stop"
	OrderKindStopLimit OrderKind = "stop_limit"
)

const (
	PositionStatusPending   PositionStatus = "pending"
	PositionStatusOpen      PositionStatus = "open"
	PositionStatusClosed    PositionStatus = "closed"
	PositionStatusCancelled PositionStatus = "cancelled"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

func (k OrderKind) Valid() bool {
	switch k {
	case OrderKindMarket, OrderKindLimit, OrderKindStop, OrderKindStopLimit:
		return true
	}
	return false
}

func (s PositionStatus) Valid() bool {
	switch s {
	case PositionStatusPending, PositionStatusOpen, PositionStatusClosed, PositionStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from the status.
func (s PositionStatus) Terminal() bool {
	return s == PositionStatusClosed || s == PositionStatusCancelled
}
