// Package ledger owns open positions and the day's closed trade records.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"DayHighDayLow/internal/model"
)

// ErrDuplicateDirection is returned when an open is attempted while a
// position with the same option type is already OPEN.
var ErrDuplicateDirection = errors.New("open position exists in same direction")

// ExitMemo remembers a closed trade's exit price so the detector can propose
// a reentry near that level.
type ExitMemo struct {
	OptionType model.OptionType
	Strike     int
	ExitSpot   float64 // underlying level at the moment of exit
}

// OpenParams carries everything needed to open a position.
type OpenParams struct {
	Symbol      string
	OptionType  model.OptionType
	Strike      int
	EntryPrice  float64
	Quantity    int
	StopLossPct float64
	TargetPct   float64
	EntryReason model.SignalKind
	OrderID     string
	OpenedAt    time.Time
}

// Ledger tracks at most one OPEN position per option type, evaluates exit
// triggers and computes P&L. Not safe for concurrent use; all mutation
// happens inside a single tick.
type Ledger struct {
	trailingPct float64
	open        map[string]*model.Position // keyed by position ID
	closed      []model.TradeRecord
	memos       map[string]ExitMemo // keyed by "CE_18000"
	log         zerolog.Logger
}

// NewLedger creates an empty ledger. trailingPct is the trailing-stop
// distance from the anchor, e.g. 0.20.
func NewLedger(trailingPct float64, log zerolog.Logger) *Ledger {
	return &Ledger{
		trailingPct: trailingPct,
		open:        make(map[string]*model.Position),
		memos:       make(map[string]ExitMemo),
		log:         log,
	}
}

func memoKey(ot model.OptionType, strike int) string {
	return fmt.Sprintf("%s_%d", ot, strike)
}

// Open creates a new OPEN position. Stop loss and target are fixed at entry:
// stopLoss = entry*(1-slPct), target = entry*(1+tgtPct). Fails with
// ErrDuplicateDirection when a position of the same option type is OPEN.
func (l *Ledger) Open(p OpenParams) (*model.Position, error) {
	if l.HasOpen(p.OptionType) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDirection, p.OptionType)
	}
	if p.EntryPrice <= 0 {
		return nil, fmt.Errorf("invalid entry price %.2f", p.EntryPrice)
	}
	if p.Quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %d", p.Quantity)
	}
	pos := &model.Position{
		ID:             uuid.New().String(),
		Symbol:         p.Symbol,
		OptionType:     p.OptionType,
		Strike:         p.Strike,
		EntryPrice:     p.EntryPrice,
		Quantity:       p.Quantity,
		StopLoss:       p.EntryPrice * (1 - p.StopLossPct),
		Target:         p.EntryPrice * (1 + p.TargetPct),
		TrailingAnchor: p.EntryPrice,
		Status:         model.StatusOpen,
		EntryReason:    p.EntryReason,
		OrderID:        p.OrderID,
		OpenedAt:       p.OpenedAt,
	}
	l.open[pos.ID] = pos
	l.log.Info().
		Str("position", pos.ID).
		Str("symbol", pos.Symbol).
		Float64("entry", pos.EntryPrice).
		Float64("stop_loss", pos.StopLoss).
		Float64("target", pos.Target).
		Msg("position opened")
	return pos, nil
}

// OnTick updates the trailing anchor with the current option price and
// evaluates exit triggers in fixed precedence: stop loss, then target, then
// trailing stop. The trailing stop only engages once the position has moved
// into profit. Returns the triggered reason and true, or "" and false.
func (l *Ledger) OnTick(positionID string, optionPrice float64) (model.ExitReason, bool) {
	pos, ok := l.open[positionID]
	if !ok {
		return "", false
	}
	if optionPrice > pos.TrailingAnchor {
		pos.TrailingAnchor = optionPrice
	}
	trailingStop := pos.TrailingAnchor * (1 - l.trailingPct)

	switch {
	case optionPrice <= pos.StopLoss:
		return model.ExitStopLoss, true
	case optionPrice >= pos.Target:
		return model.ExitTarget, true
	case optionPrice <= trailingStop && optionPrice > pos.EntryPrice:
		return model.ExitTrailingSL, true
	}
	return "", false
}

// Close transitions a position to CLOSED, records its trade, and memoizes
// the underlying level at exit for reentry detection. CLOSED is terminal; a
// later reentry creates a brand-new position.
func (l *Ledger) Close(positionID string, exitPrice, exitSpot float64, reason model.ExitReason, now time.Time) (*model.TradeRecord, error) {
	pos, ok := l.open[positionID]
	if !ok {
		return nil, fmt.Errorf("no open position %s", positionID)
	}
	delete(l.open, positionID)
	pos.Status = model.StatusClosed

	rec := model.TradeRecord{
		Position:   *pos,
		ExitPrice:  exitPrice,
		ExitSpot:   exitSpot,
		ExitReason: reason,
		PnL:        (exitPrice - pos.EntryPrice) * float64(pos.Quantity),
		ClosedAt:   now,
	}
	l.closed = append(l.closed, rec)
	if exitSpot > 0 {
		l.memos[memoKey(pos.OptionType, pos.Strike)] = ExitMemo{
			OptionType: pos.OptionType,
			Strike:     pos.Strike,
			ExitSpot:   exitSpot,
		}
	}
	l.log.Info().
		Str("position", pos.ID).
		Str("reason", string(reason)).
		Float64("exit", exitPrice).
		Float64("pnl", rec.PnL).
		Msg("position closed")
	return &rec, nil
}

// HasOpen reports whether an OPEN position exists for the option type.
func (l *Ledger) HasOpen(ot model.OptionType) bool {
	for _, pos := range l.open {
		if pos.OptionType == ot {
			return true
		}
	}
	return false
}

// OpenPositions returns the OPEN positions.
func (l *Ledger) OpenPositions() []*model.Position {
	out := make([]*model.Position, 0, len(l.open))
	for _, pos := range l.open {
		out = append(out, pos)
	}
	return out
}

// Closed returns the day's closed trade records in close order.
func (l *Ledger) Closed() []model.TradeRecord {
	out := make([]model.TradeRecord, len(l.closed))
	copy(out, l.closed)
	return out
}

// TotalPnL sums the realized P&L of the day's closed trades.
func (l *Ledger) TotalPnL() float64 {
	var sum float64
	for _, rec := range l.closed {
		sum += rec.PnL
	}
	return sum
}

// ExitMemos lists the exit prices still eligible for reentry.
func (l *Ledger) ExitMemos() []ExitMemo {
	out := make([]ExitMemo, 0, len(l.memos))
	for _, m := range l.memos {
		out = append(out, m)
	}
	return out
}

// ConsumeExitMemo removes a memo once it has produced a reentry signal.
func (l *Ledger) ConsumeExitMemo(ot model.OptionType, strike int) {
	delete(l.memos, memoKey(ot, strike))
}

// Restore rebuilds the ledger from persisted trades after a restart. Open
// trades become open positions again; closed trades feed the records and
// exit memos.
func (l *Ledger) Restore(open []model.Position, closed []model.TradeRecord) {
	for i := range open {
		pos := open[i]
		if pos.TrailingAnchor < pos.EntryPrice {
			pos.TrailingAnchor = pos.EntryPrice
		}
		l.open[pos.ID] = &pos
	}
	for _, rec := range closed {
		l.closed = append(l.closed, rec)
		if rec.ExitSpot <= 0 {
			continue
		}
		l.memos[memoKey(rec.OptionType, rec.Strike)] = ExitMemo{
			OptionType: rec.OptionType,
			Strike:     rec.Strike,
			ExitSpot:   rec.ExitSpot,
		}
	}
}

// Reset clears all state at day-init.
func (l *Ledger) Reset() {
	l.open = make(map[string]*model.Position)
	l.closed = nil
	l.memos = make(map[string]ExitMemo)
}
