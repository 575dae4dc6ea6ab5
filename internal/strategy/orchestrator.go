// Package strategy wires the session gate, detector, governor and ledger
// into the per-tick pipeline and owns the day lifecycle: init, ticks,
// square-off, summary.
package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"DayHighDayLow/internal/broker"
	"DayHighDayLow/internal/detector"
	"DayHighDayLow/internal/governor"
	"DayHighDayLow/internal/ledger"
	"DayHighDayLow/internal/marketdata"
	"DayHighDayLow/internal/model"
	"DayHighDayLow/internal/recorder"
	"DayHighDayLow/internal/session"
)

// Notifier sends human-readable alerts. Failures are logged and never stop
// the pipeline.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Metrics receives pipeline counters. The health package provides the
// Prometheus implementation; NopMetrics is used in tests.
type Metrics interface {
	TickProcessed()
	TickFailed()
	SignalDetected(kind string)
	SignalRejected(reason string)
	OrderPlaced()
	TradeClosed(reason string)
	ObserveSpot(price float64)
	SetOpenPositions(n int)
	SetDayPnL(pnl float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) TickProcessed()        {}
func (NopMetrics) TickFailed()           {}
func (NopMetrics) SignalDetected(string) {}
func (NopMetrics) SignalRejected(string) {}
func (NopMetrics) OrderPlaced()          {}
func (NopMetrics) TradeClosed(string)    {}
func (NopMetrics) ObserveSpot(float64)   {}
func (NopMetrics) SetOpenPositions(int)  {}
func (NopMetrics) SetDayPnL(float64)     {}

// Params are the sizing and risk settings applied to every entry.
type Params struct {
	Symbol          string // underlying, e.g. NIFTY
	Quantity        int
	CapitalPerTrade float64
	StopLossPct     float64
	TargetPct       float64
	TrailingPct     float64
}

// Orchestrator runs the intraday pipeline. All state mutation happens
// under mu; the scheduler serializes ticks but Status is read from HTTP
// and Telegram goroutines.
type Orchestrator struct {
	mu sync.Mutex

	params    Params
	gate      *session.Gate
	cooldowns cooldownRegistry
	led       *ledger.Ledger
	det       *detector.Detector
	gov       *governor.Governor
	market    marketdata.Source
	brk       broker.Broker
	rec       recorder.Recorder
	notifier  Notifier
	metrics   Metrics
	log       zerolog.Logger

	state       dailyState
	instruments map[string]broker.Instrument // position ID -> contract
}

// cooldownRegistry is the slice of the cooldown registry the orchestrator
// touches directly; the detector owns consult-and-arm.
type cooldownRegistry interface {
	Active(now time.Time) int
	Reset()
}

// spotAware is implemented by the paper broker, which prices simulated
// fills off the underlying move.
type spotAware interface {
	SetSpot(price float64)
}

// NewOrchestrator assembles the pipeline.
func NewOrchestrator(p Params, gate *session.Gate, cooldowns cooldownRegistry, led *ledger.Ledger, det *detector.Detector, gov *governor.Governor, market marketdata.Source, brk broker.Broker, rec recorder.Recorder, notifier Notifier, metrics Metrics, log zerolog.Logger) *Orchestrator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Orchestrator{
		params:      p,
		gate:        gate,
		cooldowns:   cooldowns,
		led:         led,
		det:         det,
		gov:         gov,
		market:      market,
		brk:         brk,
		rec:         rec,
		notifier:    notifier,
		metrics:     metrics,
		log:         log,
		instruments: make(map[string]broker.Instrument),
	}
}

// InitDay fetches yesterday's high/low and resets the per-session state.
// A returned error means levels are unavailable and the session must not
// start. Rows already persisted for today are replayed into the ledger so
// a restart resumes instead of double-trading.
func (o *Orchestrator) InitDay(ctx context.Context, now time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	lv, err := o.market.PreviousDayHighLow(ctx)
	if err != nil {
		return fmt.Errorf("previous day levels: %w", err)
	}
	if !lv.Valid() {
		return fmt.Errorf("previous day levels invalid: high=%.2f low=%.2f", lv.High, lv.Low)
	}

	o.cooldowns.Reset()
	o.led.Reset()
	o.instruments = make(map[string]broker.Instrument)
	o.state = dailyState{
		initialized: true,
		date:        now,
		levels:      lv,
		// A restart inside the session must not re-run the gap branch;
		// the opening print is gone.
		marketOpened: o.gate.IsOpen(now),
	}

	o.resumeFromRecorder()

	if err := o.rec.SaveDayLevels(now, lv); err != nil {
		o.log.Error().Err(err).Msg("persist day levels failed")
	}

	o.log.Info().
		Float64("prev_high", lv.High).
		Float64("prev_low", lv.Low).
		Int("resumed_open", len(o.led.OpenPositions())).
		Msg("day initialized")
	o.notify(formatDayInit(o.params.Symbol, now, lv, len(o.led.OpenPositions())))
	return nil
}

// resumeFromRecorder replays today's persisted rows into the ledger and
// recounts the day's trade tallies. Caller holds mu.
func (o *Orchestrator) resumeFromRecorder() {
	open, closed, err := o.rec.LoadTradesToday()
	if err != nil {
		o.log.Error().Err(err).Msg("load today's trades failed, starting clean")
		return
	}
	if len(open) == 0 && len(closed) == 0 {
		return
	}
	o.led.Restore(open, closed)
	for _, p := range open {
		o.countEntry(p.EntryReason)
	}
	for _, t := range closed {
		o.countEntry(t.EntryReason)
	}
	o.log.Info().Int("open", len(open)).Int("closed", len(closed)).Msg("resumed today's trades")
}

func (o *Orchestrator) countEntry(kind model.SignalKind) {
	if kind.IsReentry() {
		o.state.reentryTrades++
	} else {
		o.state.regularTrades++
	}
	if kind.IsGap() {
		o.state.gapTaken = true
	}
}

// Tick runs one pipeline pass. Outside the session window it performs the
// end-of-day square-off and summary once, then goes quiet until the next
// InitDay.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.initialized {
		return
	}
	if !o.gate.IsOpen(now) {
		if o.state.marketOpened {
			o.finishDay(ctx, now)
		}
		return
	}

	price, err := o.market.CurrentPrice(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("spot price unavailable, skipping tick")
		o.metrics.TickFailed()
		return
	}
	if sa, ok := o.brk.(spotAware); ok {
		sa.SetSpot(price)
	}
	o.state.currentPrice = price
	o.state.lastTickAt = now
	o.metrics.ObserveSpot(price)
	o.metrics.TickProcessed()

	signals := o.det.Detect(price, now, detector.Input{
		Levels:       o.state.levels,
		MarketOpened: o.state.marketOpened,
		GapTaken:     o.state.gapTaken,
		Memos:        o.led,
	})
	o.state.marketOpened = true

	for _, sig := range signals {
		o.handleSignal(ctx, sig, now, price)
	}

	o.evaluateExits(ctx, now)
	o.metrics.SetOpenPositions(len(o.led.OpenPositions()))
	o.metrics.SetDayPnL(o.led.TotalPnL())
}

// handleSignal takes one signal through verification, admission and
// execution. Any failure drops the signal; its cooldown entry stays armed.
func (o *Orchestrator) handleSignal(ctx context.Context, sig model.Signal, now time.Time, spot float64) {
	o.metrics.SignalDetected(string(sig.Kind))
	log := o.log.With().Str("signal", string(sig.Kind)).Float64("spot", spot).Logger()

	if !detector.Verify(sig, spot, o.state.levels) {
		log.Info().Msg("signal failed verification, dropped")
		o.metrics.SignalRejected("VERIFY_FAILED")
		return
	}

	reason, ok := o.gov.Admit(sig, now, governor.Input{
		RegularTrades: o.state.regularTrades,
		GapTaken:      o.state.gapTaken,
	})
	if !ok {
		o.metrics.SignalRejected(string(reason))
		return
	}

	strike := broker.ATMStrike(spot)
	expiry := broker.NextExpiry(now)
	inst, err := o.brk.ResolveInstrument(ctx, sig.Kind.OptionType(), strike, expiry)
	if err != nil {
		log.Error().Err(err).Int("strike", strike).Msg("instrument resolution failed")
		o.metrics.SignalRejected("NO_INSTRUMENT")
		return
	}

	optPrice, err := o.brk.LastPrice(ctx, inst)
	if err != nil || optPrice <= 0 {
		log.Error().Err(err).Str("symbol", inst.TradingSymbol).Msg("option price unavailable")
		o.metrics.SignalRejected("NO_OPTION_PRICE")
		return
	}
	o.gov.CapitalAdvisory(o.params.Quantity, optPrice)

	orderID, err := o.brk.PlaceOrder(ctx, inst, broker.SideBuy, o.params.Quantity)
	if err != nil {
		log.Error().Err(err).Str("symbol", inst.TradingSymbol).Msg("entry order rejected")
		o.metrics.SignalRejected("BROKER_REJECTED")
		return
	}

	pos, err := o.led.Open(ledger.OpenParams{
		Symbol:      inst.TradingSymbol,
		OptionType:  inst.OptionType,
		Strike:      inst.Strike,
		EntryPrice:  optPrice,
		Quantity:    o.params.Quantity,
		StopLossPct: o.params.StopLossPct,
		TargetPct:   o.params.TargetPct,
		EntryReason: sig.Kind,
		OrderID:     orderID,
		OpenedAt:    now,
	})
	if err != nil {
		log.Error().Err(err).Msg("ledger rejected position after order fill")
		return
	}
	o.instruments[pos.ID] = inst
	o.countEntry(sig.Kind)

	if err := o.rec.SaveOpenPosition(pos); err != nil {
		log.Error().Err(err).Msg("persist open position failed")
	}
	o.metrics.OrderPlaced()
	log.Info().
		Str("symbol", inst.TradingSymbol).
		Float64("entry", optPrice).
		Float64("stop_loss", pos.StopLoss).
		Float64("target", pos.Target).
		Str("order_id", orderID).
		Msg("position opened")
	o.notify(formatTradeOpened(pos, sig, spot))
}

// evaluateExits prices every open position and closes the ones whose exit
// trigger fired. One position's failure never blocks the others.
func (o *Orchestrator) evaluateExits(ctx context.Context, now time.Time) {
	for _, pos := range o.led.OpenPositions() {
		inst, ok := o.instruments[pos.ID]
		if !ok {
			// Resumed position from a restart; re-resolve its contract.
			var err error
			inst, err = o.brk.ResolveInstrument(ctx, pos.OptionType, pos.Strike, broker.NextExpiry(now))
			if err != nil {
				o.log.Warn().Err(err).Str("position", pos.ID).Msg("cannot re-resolve resumed position")
				continue
			}
			o.instruments[pos.ID] = inst
		}

		optPrice, err := o.brk.LastPrice(ctx, inst)
		if err != nil || optPrice <= 0 {
			o.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("option price unavailable for exit check")
			continue
		}

		reason, exit := o.led.OnTick(pos.ID, optPrice)
		if !exit {
			continue
		}
		if _, err := o.brk.PlaceOrder(ctx, inst, broker.SideSell, pos.Quantity); err != nil {
			// Position stays open; the exit re-fires next tick.
			o.log.Error().Err(err).Str("symbol", pos.Symbol).Msg("exit order rejected, will retry")
			continue
		}
		o.closePosition(pos.ID, optPrice, reason, now)
	}
}

// closePosition finalizes an exit in the ledger, persists and notifies.
// Caller holds mu.
func (o *Orchestrator) closePosition(positionID string, exitPrice float64, reason model.ExitReason, now time.Time) {
	rec, err := o.led.Close(positionID, exitPrice, o.state.currentPrice, reason, now)
	if err != nil {
		o.log.Error().Err(err).Str("position", positionID).Msg("ledger close failed")
		return
	}
	delete(o.instruments, positionID)
	if err := o.rec.SaveTrade(rec); err != nil {
		o.log.Error().Err(err).Msg("persist trade failed")
	}
	o.metrics.TradeClosed(string(reason))
	o.log.Info().
		Str("symbol", rec.Symbol).
		Str("reason", string(reason)).
		Float64("exit", exitPrice).
		Float64("pnl", rec.PnL).
		Msg("position closed")
	o.notify(formatTradeClosed(rec))
}

// finishDay squares off leftover positions, persists the day summary and
// de-initializes until the next InitDay. Intraday contracts cannot be
// carried overnight. Caller holds mu.
func (o *Orchestrator) finishDay(ctx context.Context, now time.Time) {
	for _, pos := range o.led.OpenPositions() {
		exitPrice := pos.EntryPrice
		if inst, ok := o.instruments[pos.ID]; ok {
			if p, err := o.brk.LastPrice(ctx, inst); err == nil && p > 0 {
				exitPrice = p
			}
			if _, err := o.brk.PlaceOrder(ctx, inst, broker.SideSell, pos.Quantity); err != nil {
				o.log.Error().Err(err).Str("symbol", pos.Symbol).Msg("square-off order rejected")
			}
		}
		o.closePosition(pos.ID, exitPrice, model.ExitManual, now)
	}

	sum := &model.DailySummary{
		Date:          o.state.date,
		Levels:        o.state.levels,
		TotalTrades:   len(o.led.Closed()),
		ReentryTrades: o.state.reentryTrades,
		TotalPnL:      o.led.TotalPnL(),
		Trades:        o.led.Closed(),
	}
	if err := o.rec.SaveDailySummary(sum); err != nil {
		o.log.Error().Err(err).Msg("persist daily summary failed")
	}
	o.log.Info().
		Int("trades", sum.TotalTrades).
		Int("reentries", sum.ReentryTrades).
		Float64("pnl", sum.TotalPnL).
		Msg("session finished")
	o.notify(formatDaySummary(o.params.Symbol, sum))

	o.state.initialized = false
}

// Shutdown runs the end-of-day square-off and summary for a stop request
// that arrives mid-session. Safe to call after the day already finished.
func (o *Orchestrator) Shutdown(ctx context.Context, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.state.initialized || !o.state.marketOpened {
		return
	}
	o.log.Info().Msg("stop requested, squaring off")
	o.finishDay(ctx, now)
}

// Status returns a snapshot for the health endpoint and Telegram commands.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{
		DayInitialized: o.state.initialized,
		MarketOpened:   o.state.marketOpened,
		GapTaken:       o.state.gapTaken,
		PrevHigh:       o.state.levels.High,
		PrevLow:        o.state.levels.Low,
		CurrentPrice:   o.state.currentPrice,
		OpenPositions:  len(o.led.OpenPositions()),
		RegularTrades:  o.state.regularTrades,
		ReentryTrades:  o.state.reentryTrades,
		ExitMemos:      len(o.led.ExitMemos()),
		TotalPnL:       o.led.TotalPnL(),
	}
	s.CooldownsActive = o.cooldowns.Active(time.Now())
	if !o.state.lastTickAt.IsZero() {
		s.LastTickAt = o.state.lastTickAt.Format(time.RFC3339)
	}
	return s
}

// Trades returns today's closed trades, newest last.
func (o *Orchestrator) Trades() []model.TradeRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.led.Closed()
}

// notify fires a Telegram message without blocking the tick. Caller holds
// mu; the send happens on its own goroutine and context so a shutdown
// mid-send does not lose the message.
func (o *Orchestrator) notify(text string) {
	if o.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := o.notifier.SendWithRetry(ctx, text, 3); err != nil {
			o.log.Error().Err(err).Msg("notification failed")
		}
	}()
}
