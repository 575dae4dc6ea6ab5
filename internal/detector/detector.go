// Package detector evaluates the current spot price against the previous
// day's levels and proposes entry signals.
package detector

import (
	"time"

	"github.com/rs/zerolog"

	"DayHighDayLow/internal/cooldown"
	"DayHighDayLow/internal/ledger"
	"DayHighDayLow/internal/model"
)

// MemoStore is the slice of the ledger the reentry branch needs.
type MemoStore interface {
	ExitMemos() []ledger.ExitMemo
	ConsumeExitMemo(ot model.OptionType, strike int)
}

// Input is the per-tick view of the daily state the detector reads.
type Input struct {
	Levels       model.Levels
	MarketOpened bool // false only on the first tick of the day
	GapTaken     bool
	Memos        MemoStore
}

// Detector proposes signals in strict branch precedence: gap (first tick
// only), then reentry, then breakout. The first applicable branch wins;
// within the reentry branch multiple memos can match independently.
type Detector struct {
	cooldowns     *cooldown.Registry
	reentryTolPct float64
	log           zerolog.Logger
}

// NewDetector creates a detector. reentryTolPct is the relative distance
// from a memoized exit price that still counts as "returned", e.g. 0.002.
func NewDetector(cooldowns *cooldown.Registry, reentryTolPct float64, log zerolog.Logger) *Detector {
	return &Detector{cooldowns: cooldowns, reentryTolPct: reentryTolPct, log: log}
}

// Detect runs one evaluation pass. Each firing branch consults then arms its
// cooldown entry before the signal is returned; an armed cooldown stays
// armed even if execution later fails.
func (d *Detector) Detect(price float64, now time.Time, in Input) []model.Signal {
	if !in.Levels.Valid() {
		return nil
	}

	if !in.MarketOpened {
		if sig, ok := d.checkGap(price, now, in.Levels); ok {
			return []model.Signal{sig}
		}
		return nil
	}

	if sigs := d.checkReentry(price, now, in); len(sigs) > 0 {
		return sigs
	}

	if !in.GapTaken {
		if sig, ok := d.checkBreakout(price, now, in.Levels); ok {
			return []model.Signal{sig}
		}
	}
	return nil
}

// checkGap runs only on the first tick of the day: an open already beyond
// yesterday's range is traded immediately.
func (d *Detector) checkGap(open float64, now time.Time, lv model.Levels) (model.Signal, bool) {
	switch {
	case open > lv.High:
		if d.cooldowns.IsActive(cooldown.GapUp, now) {
			return model.Signal{}, false
		}
		d.log.Info().Float64("open", open).Float64("prev_high", lv.High).Msg("gap up detected")
		d.cooldowns.Arm(cooldown.GapUp, open, now)
		return model.Signal{Kind: model.SignalGapUp, Price: open, DetectedAt: now}, true
	case open < lv.Low:
		if d.cooldowns.IsActive(cooldown.GapDown, now) {
			return model.Signal{}, false
		}
		d.log.Info().Float64("open", open).Float64("prev_low", lv.Low).Msg("gap down detected")
		d.cooldowns.Arm(cooldown.GapDown, open, now)
		return model.Signal{Kind: model.SignalGapDown, Price: open, DetectedAt: now}, true
	}
	return model.Signal{}, false
}

// checkReentry matches the price against memoized exit levels. A match must
// also still satisfy the original breakout condition for its side. Each
// emitted signal consumes its memo; a memo suppressed by cooldown is kept
// for later ticks.
func (d *Detector) checkReentry(price float64, now time.Time, in Input) []model.Signal {
	if in.Memos == nil {
		return nil
	}
	var signals []model.Signal
	for _, memo := range in.Memos.ExitMemos() {
		tolerance := memo.ExitSpot * d.reentryTolPct
		diff := price - memo.ExitSpot
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			continue
		}
		kind := model.SignalReentryCE
		holds := price > in.Levels.High
		if memo.OptionType == model.OptionPE {
			kind = model.SignalReentryPE
			holds = price < in.Levels.Low
		}
		if !holds {
			continue
		}
		if d.cooldowns.IsActive(cooldown.Reentry, now) {
			continue
		}
		d.log.Info().
			Str("option_type", string(memo.OptionType)).
			Int("strike", memo.Strike).
			Float64("price", price).
			Float64("exit_spot", memo.ExitSpot).
			Msg("reentry detected")
		d.cooldowns.Arm(cooldown.Reentry, price, now)
		in.Memos.ConsumeExitMemo(memo.OptionType, memo.Strike)
		signals = append(signals, model.Signal{Kind: kind, Price: price, DetectedAt: now})
	}
	return signals
}

func (d *Detector) checkBreakout(price float64, now time.Time, lv model.Levels) (model.Signal, bool) {
	switch {
	case price > lv.High:
		if d.cooldowns.IsActive(cooldown.BreakoutHigh, now) {
			return model.Signal{}, false
		}
		d.log.Info().Float64("price", price).Float64("prev_high", lv.High).Msg("breakout above previous day high")
		d.cooldowns.Arm(cooldown.BreakoutHigh, price, now)
		return model.Signal{Kind: model.SignalBreakoutHigh, Price: price, DetectedAt: now}, true
	case price < lv.Low:
		if d.cooldowns.IsActive(cooldown.BreakoutLow, now) {
			return model.Signal{}, false
		}
		d.log.Info().Float64("price", price).Float64("prev_low", lv.Low).Msg("breakout below previous day low")
		d.cooldowns.Arm(cooldown.BreakoutLow, price, now)
		return model.Signal{Kind: model.SignalBreakoutLow, Price: price, DetectedAt: now}, true
	}
	return model.Signal{}, false
}

// Verify re-checks a signal's originating condition against current levels
// immediately before execution. A stale signal that no longer holds must be
// discarded.
func Verify(sig model.Signal, price float64, lv model.Levels) bool {
	if sig.Kind.OptionType() == model.OptionCE {
		return price > lv.High
	}
	return price < lv.Low
}
