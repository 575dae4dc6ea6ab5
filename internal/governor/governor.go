// Package governor admits or rejects proposed signals against the day's
// trading limits.
package governor

import (
	"time"

	"github.com/rs/zerolog"

	"DayHighDayLow/internal/model"
	"DayHighDayLow/internal/session"
)

// RejectReason enumerates why a signal was not admitted.
type RejectReason string

const (
	RejectSessionClosed      RejectReason = "SESSION_CLOSED"
	RejectDailyLimit         RejectReason = "DAILY_LIMIT"
	RejectGapAlreadyTaken    RejectReason = "GAP_ALREADY_TAKEN"
	RejectDuplicateDirection RejectReason = "DUPLICATE_DIRECTION"
)

// PositionBook is the slice of the ledger the governor consults for
// directional exclusivity.
type PositionBook interface {
	HasOpen(ot model.OptionType) bool
}

// Input is the per-tick daily state the governor reads.
type Input struct {
	RegularTrades int // trades today excluding reentries
	GapTaken      bool
}

// Governor applies the admission checks in fixed order: session window,
// daily limit (reentries exempt), gap-already-taken, directional
// exclusivity.
type Governor struct {
	gate            *session.Gate
	book            PositionBook
	maxTradesPerDay int
	capitalPerTrade float64
	log             zerolog.Logger
}

// NewGovernor wires the governor to the session gate and position book.
func NewGovernor(gate *session.Gate, book PositionBook, maxTradesPerDay int, capitalPerTrade float64, log zerolog.Logger) *Governor {
	return &Governor{
		gate:            gate,
		book:            book,
		maxTradesPerDay: maxTradesPerDay,
		capitalPerTrade: capitalPerTrade,
		log:             log,
	}
}

// Admit returns ("", true) when the signal may proceed to execution, or the
// rejection reason and false.
func (g *Governor) Admit(sig model.Signal, now time.Time, in Input) (RejectReason, bool) {
	if !g.gate.IsOpen(now) {
		return RejectSessionClosed, false
	}
	if !sig.Kind.IsReentry() && in.RegularTrades >= g.maxTradesPerDay {
		g.log.Info().
			Int("regular_trades", in.RegularTrades).
			Int("max", g.maxTradesPerDay).
			Msg("daily trade limit reached")
		return RejectDailyLimit, false
	}
	if sig.Kind.IsGap() && in.GapTaken {
		return RejectGapAlreadyTaken, false
	}
	if g.book.HasOpen(sig.Kind.OptionType()) {
		g.log.Info().
			Str("option_type", string(sig.Kind.OptionType())).
			Msg("already holding open position in same direction")
		return RejectDuplicateDirection, false
	}
	return "", true
}

// CapitalAdvisory logs a warning when the order's notional exceeds the
// per-trade allocation by more than 10%. Quantity is fixed by configuration,
// so this never blocks a trade.
func (g *Governor) CapitalAdvisory(quantity int, optionPrice float64) {
	required := float64(quantity) * optionPrice
	if required > g.capitalPerTrade*1.1 {
		g.log.Warn().
			Float64("required", required).
			Float64("allocated", g.capitalPerTrade).
			Msg("capital usage exceeds allocation")
	}
}
