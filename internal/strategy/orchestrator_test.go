package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"DayHighDayLow/internal/broker"
	"DayHighDayLow/internal/cooldown"
	"DayHighDayLow/internal/detector"
	"DayHighDayLow/internal/governor"
	"DayHighDayLow/internal/ledger"
	"DayHighDayLow/internal/model"
	"DayHighDayLow/internal/recorder"
	"DayHighDayLow/internal/session"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

// fakeMarket is a mutable market data source.
type fakeMarket struct {
	lv    model.Levels
	price float64
	err   error
}

func (f *fakeMarket) Name() string { return "fake" }

func (f *fakeMarket) PreviousDayHighLow(context.Context) (model.Levels, error) {
	if f.err != nil {
		return model.Levels{}, f.err
	}
	return f.lv, nil
}

func (f *fakeMarket) CurrentPrice(context.Context) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.price, nil
}

// fakeRecorder captures persistence calls.
type fakeRecorder struct {
	recorder.NoopRecorder
	opened    []model.Position
	trades    []model.TradeRecord
	summaries []model.DailySummary
	resumed   []model.Position
}

func (f *fakeRecorder) SaveOpenPosition(pos *model.Position) error {
	f.opened = append(f.opened, *pos)
	return nil
}

func (f *fakeRecorder) SaveTrade(rec *model.TradeRecord) error {
	f.trades = append(f.trades, *rec)
	return nil
}

func (f *fakeRecorder) SaveDailySummary(sum *model.DailySummary) error {
	f.summaries = append(f.summaries, *sum)
	return nil
}

func (f *fakeRecorder) LoadTradesToday() ([]model.Position, []model.TradeRecord, error) {
	return f.resumed, nil, nil
}

type harness struct {
	eng    *Orchestrator
	market *fakeMarket
	rec    *fakeRecorder
	led    *ledger.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gate, err := session.NewGate("09:15", "15:30", ist)
	require.NoError(t, err)

	market := &fakeMarket{lv: model.Levels{High: 20000, Low: 19800}, price: 19900}
	rec := &fakeRecorder{}
	cd := cooldown.NewRegistry(cooldown.DefaultWindows(), zerolog.Nop())
	led := ledger.NewLedger(0.20, zerolog.Nop())
	det := detector.NewDetector(cd, 0.002, zerolog.Nop())
	gov := governor.NewGovernor(gate, led, 4, 15000, zerolog.Nop())
	brk := broker.NewPaperBroker(zerolog.Nop())

	eng := NewOrchestrator(Params{
		Symbol:          "NIFTY",
		Quantity:        150,
		CapitalPerTrade: 15000,
		StopLossPct:     0.20,
		TargetPct:       0.60,
		TrailingPct:     0.20,
	}, gate, cd, led, det, gov, market, brk, rec, nil, nil, zerolog.Nop())

	return &harness{eng: eng, market: market, rec: rec, led: led}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 24, hour, min, 0, 0, ist) // a Monday
}

func TestBreakoutTargetAndReentry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.eng.InitDay(ctx, at(9, 5)))

	// First tick inside yesterday's range: no gap, market marked opened.
	h.eng.Tick(ctx, at(9, 15))
	require.Empty(t, h.led.OpenPositions())

	// Breakout above the previous day high opens a CE position at the
	// simulated base premium.
	h.market.price = 20010
	h.eng.Tick(ctx, at(9, 20))
	open := h.led.OpenPositions()
	require.Len(t, open, 1)
	require.Equal(t, model.OptionCE, open[0].OptionType)
	require.Equal(t, 20000, open[0].Strike)
	require.Equal(t, 100.0, open[0].EntryPrice)
	require.Len(t, h.rec.opened, 1)

	// A second breakout tick inside the cooldown neither signals nor
	// duplicates the position.
	h.market.price = 20050
	h.eng.Tick(ctx, at(9, 25))
	require.Len(t, h.led.OpenPositions(), 1)

	// A large rally lifts the simulated premium through the 160 target.
	h.market.price = 24100
	h.eng.Tick(ctx, at(9, 35))
	require.Empty(t, h.led.OpenPositions())
	require.Len(t, h.rec.trades, 1)
	require.Equal(t, model.ExitTarget, h.rec.trades[0].ExitReason)
	require.Greater(t, h.rec.trades[0].PnL, 0.0)
	require.Equal(t, 24100.0, h.rec.trades[0].ExitSpot)

	// The spot hovering at the exit level triggers a reentry, which is
	// exempt from the regular trade count.
	h.market.price = 24110
	h.eng.Tick(ctx, at(9, 41))
	require.Len(t, h.led.OpenPositions(), 1)

	st := h.eng.Status()
	require.Equal(t, 1, st.RegularTrades)
	require.Equal(t, 1, st.ReentryTrades)
	require.False(t, st.GapTaken)
}

func TestGapUpTradeDisablesBreakouts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.eng.InitDay(ctx, at(9, 5)))

	// Opening print above yesterday's high: gap up on the first tick.
	h.market.price = 20150
	h.eng.Tick(ctx, at(9, 15))
	open := h.led.OpenPositions()
	require.Len(t, open, 1)
	require.Equal(t, model.SignalGapUp, open[0].EntryReason)
	require.True(t, h.eng.Status().GapTaken)

	// Later strength would read as a breakout, but the gap trade used up
	// the day's directional bet.
	h.market.price = 20400
	h.eng.Tick(ctx, at(10, 0))
	require.Len(t, h.led.OpenPositions(), 1)
	require.Equal(t, 1, h.eng.Status().RegularTrades)
}

func TestStopLossAlsoOpensOppositeBreakout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.eng.InitDay(ctx, at(9, 5)))
	h.eng.Tick(ctx, at(9, 15))

	h.market.price = 20010
	h.eng.Tick(ctx, at(9, 20))
	require.Len(t, h.led.OpenPositions(), 1)

	// A crash through the previous day low both stops out the CE and
	// fires a breakout-low PE entry on the same tick.
	h.market.price = 18500
	h.eng.Tick(ctx, at(9, 40))
	open := h.led.OpenPositions()
	require.Len(t, open, 1)
	require.Equal(t, model.OptionPE, open[0].OptionType)
	require.Len(t, h.rec.trades, 1)
	require.Equal(t, model.ExitStopLoss, h.rec.trades[0].ExitReason)
}

func TestSessionEndSquaresOffAndSummarizes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.eng.InitDay(ctx, at(9, 5)))
	h.eng.Tick(ctx, at(9, 15))
	h.market.price = 20010
	h.eng.Tick(ctx, at(9, 20))
	require.Len(t, h.led.OpenPositions(), 1)

	// First tick past the close squares off and writes the summary.
	h.eng.Tick(ctx, at(15, 35))
	require.Empty(t, h.led.OpenPositions())
	require.Len(t, h.rec.trades, 1)
	require.Equal(t, model.ExitManual, h.rec.trades[0].ExitReason)
	require.Len(t, h.rec.summaries, 1)
	require.Equal(t, 1, h.rec.summaries[0].TotalTrades)
	require.False(t, h.eng.Status().DayInitialized)

	// Further after-hours ticks are inert.
	h.eng.Tick(ctx, at(16, 0))
	require.Len(t, h.rec.summaries, 1)
}

func TestShutdownMidSessionSquaresOff(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.eng.InitDay(ctx, at(9, 5)))
	h.eng.Tick(ctx, at(9, 15))
	h.market.price = 20010
	h.eng.Tick(ctx, at(9, 20))
	require.Len(t, h.led.OpenPositions(), 1)

	h.eng.Shutdown(ctx, at(11, 0))
	require.Empty(t, h.led.OpenPositions())
	require.Equal(t, model.ExitManual, h.rec.trades[0].ExitReason)
	require.Len(t, h.rec.summaries, 1)
	require.False(t, h.eng.Status().DayInitialized)

	// A second stop request is a no-op.
	h.eng.Shutdown(ctx, at(11, 1))
	require.Len(t, h.rec.summaries, 1)
}

func TestInitDayFailsWithoutLevels(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.market.err = context.DeadlineExceeded

	require.Error(t, h.eng.InitDay(ctx, at(9, 5)))

	// Without levels the engine must not trade.
	h.market.err = nil
	h.market.price = 20500
	h.eng.Tick(ctx, at(9, 20))
	require.Empty(t, h.led.OpenPositions())
	require.False(t, h.eng.Status().DayInitialized)
}

func TestFailedTickLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.eng.InitDay(ctx, at(9, 5)))
	h.market.err = context.DeadlineExceeded
	h.eng.Tick(ctx, at(9, 15))

	st := h.eng.Status()
	require.False(t, st.MarketOpened, "a failed first tick must not consume the gap check")

	// The gap branch still runs on the first successful tick.
	h.market.err = nil
	h.market.price = 20150
	h.eng.Tick(ctx, at(9, 16))
	open := h.led.OpenPositions()
	require.Len(t, open, 1)
	require.Equal(t, model.SignalGapUp, open[0].EntryReason)
}

func TestResumeCountsExistingTrades(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.rec.resumed = []model.Position{{
		ID: "p1", Symbol: "NIFTY26090320000CE", OptionType: model.OptionCE,
		Strike: 20000, EntryPrice: 100, Quantity: 150, StopLoss: 80, Target: 160,
		TrailingAnchor: 100, Status: model.StatusOpen, EntryReason: model.SignalBreakoutHigh,
	}}

	// Restarting inside the session window resumes the open position and
	// skips the gap branch.
	require.NoError(t, h.eng.InitDay(ctx, at(10, 0)))

	st := h.eng.Status()
	require.True(t, st.MarketOpened)
	require.Equal(t, 1, st.OpenPositions)
	require.Equal(t, 1, st.RegularTrades)
	require.True(t, h.led.HasOpen(model.OptionCE))
}

func TestDailyLimitStopsRegularEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.eng.InitDay(ctx, at(9, 5)))
	h.eng.Tick(ctx, at(9, 15))

	// Alternate breakouts above and below until the cap is hit. Each
	// round trips out via stop loss when the price swings to the other
	// side.
	prices := []float64{20010, 18500, 21500, 18400}
	minute := 20
	for _, p := range prices {
		h.market.price = p
		h.eng.Tick(ctx, at(9+minute/60, minute%60))
		minute += 15
	}
	require.Equal(t, 4, h.eng.Status().RegularTrades)

	// The fifth breakout is rejected by the daily limit.
	h.market.price = 21600
	h.eng.Tick(ctx, at(9+minute/60, minute%60))
	require.Equal(t, 4, h.eng.Status().RegularTrades)
}
