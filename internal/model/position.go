package model

import "time"

// PositionStatus is the lifecycle state of a position. OPEN -> CLOSED only.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// ExitReason tells why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTarget     ExitReason = "TARGET"
	ExitTrailingSL ExitReason = "TRAILING_SL"
	ExitManual     ExitReason = "MANUAL"
)

// Position is an open option position tracked by the ledger. The ID is an
// internal uuid, not the broker order id (order ids may be reused or absent
// in paper mode).
type Position struct {
	ID             string
	Symbol         string
	OptionType     OptionType
	Strike         int
	EntryPrice     float64
	Quantity       int
	StopLoss       float64
	Target         float64
	TrailingAnchor float64 // highest option price seen; never decreases
	Status         PositionStatus
	EntryReason    SignalKind
	OrderID        string
	OpenedAt       time.Time
}

// TradeRecord is the append-only closed form of a Position.
type TradeRecord struct {
	Position
	ExitPrice  float64
	ExitSpot   float64 // underlying level at exit, drives reentry detection
	ExitReason ExitReason
	PnL        float64
	ClosedAt   time.Time
}
