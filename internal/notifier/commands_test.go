package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"DayHighDayLow/internal/model"
	"DayHighDayLow/internal/strategy"
)

type fakeEngine struct {
	status strategy.Status
	trades []model.TradeRecord
}

func (f *fakeEngine) Status() strategy.Status     { return f.status }
func (f *fakeEngine) Trades() []model.TradeRecord { return f.trades }

func TestStatusCommand(t *testing.T) {
	eng := &fakeEngine{status: strategy.Status{
		DayInitialized: true,
		MarketOpened:   true,
		PrevHigh:       20000,
		PrevLow:        19800,
		CurrentPrice:   19925.5,
		OpenPositions:  1,
		RegularTrades:  2,
		ReentryTrades:  1,
	}}
	handler := NewCommandRouter(eng)

	reply := handler("/status")
	require.Contains(t, reply, "20000.00 / 19800.00")
	require.Contains(t, reply, "19925.50")
	require.Contains(t, reply, "2 regular, 1 reentry")
}

func TestTradesCommand(t *testing.T) {
	handler := NewCommandRouter(&fakeEngine{})
	require.Equal(t, "No closed trades today.", handler("/trades"))

	eng := &fakeEngine{trades: []model.TradeRecord{{
		Position: model.Position{
			Symbol:     "NIFTY26090320000CE",
			EntryPrice: 100,
			OpenedAt:   time.Date(2026, 8, 24, 9, 45, 0, 0, time.UTC),
		},
		ExitPrice:  160,
		ExitReason: model.ExitTarget,
		PnL:        9000,
	}}}
	reply := NewCommandRouter(eng)("/trades")
	require.Contains(t, reply, "NIFTY26090320000CE")
	require.Contains(t, reply, "TARGET")
	require.Contains(t, reply, "9,000")
}

func TestPnLCommand(t *testing.T) {
	eng := &fakeEngine{
		status: strategy.Status{TotalPnL: 4500, OpenPositions: 1},
		trades: []model.TradeRecord{{PnL: 9000}, {PnL: -4500}},
	}
	reply := NewCommandRouter(eng)("/pnl")
	require.Contains(t, reply, "4,500")
	require.Contains(t, reply, "2 (1 wins)")
}

func TestUnknownAndHelp(t *testing.T) {
	handler := NewCommandRouter(&fakeEngine{})
	require.Empty(t, handler("hello there"))
	require.True(t, strings.HasPrefix(handler("/help"), "Commands:"))
	// Commands addressed to the bot by name still route.
	require.NotEmpty(t, handler("/status@daily_breakout_bot"))
}
