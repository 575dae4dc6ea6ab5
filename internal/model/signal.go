package model

import "time"

// OptionType identifies the option contract side.
type OptionType string

const (
	OptionCE OptionType = "CE" // call
	OptionPE OptionType = "PE" // put
)

// SignalKind enumerates the entry signals the detector can emit.
type SignalKind string

const (
	SignalGapUp        SignalKind = "GAP_UP"
	SignalGapDown      SignalKind = "GAP_DOWN"
	SignalBreakoutHigh SignalKind = "BREAKOUT_HIGH"
	SignalBreakoutLow  SignalKind = "BREAKOUT_LOW"
	SignalReentryCE    SignalKind = "REENTRY_CE"
	SignalReentryPE    SignalKind = "REENTRY_PE"
)

// OptionType returns the contract side a signal buys into.
func (k SignalKind) OptionType() OptionType {
	switch k {
	case SignalGapUp, SignalBreakoutHigh, SignalReentryCE:
		return OptionCE
	default:
		return OptionPE
	}
}

// IsGap reports whether the signal comes from the opening gap branch.
func (k SignalKind) IsGap() bool {
	return k == SignalGapUp || k == SignalGapDown
}

// IsReentry reports whether the signal re-establishes a prior exit.
func (k SignalKind) IsReentry() bool {
	return k == SignalReentryCE || k == SignalReentryPE
}

// Signal is an ephemeral entry proposal. It is never persisted; an accepted
// signal turns into a Position, a rejected one is dropped.
type Signal struct {
	Kind       SignalKind
	Price      float64 // spot price at detection
	DetectedAt time.Time
}
