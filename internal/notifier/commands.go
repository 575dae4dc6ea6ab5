package notifier

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"DayHighDayLow/internal/model"
	"DayHighDayLow/internal/strategy"
)

// Engine is the slice of the orchestrator the command router reads.
type Engine interface {
	Status() strategy.Status
	Trades() []model.TradeRecord
}

// NewCommandRouter returns a CommandHandler answering the operator
// commands /status, /trades, /pnl and /help. Unknown commands get the
// help text.
func NewCommandRouter(eng Engine) CommandHandler {
	return func(command string) string {
		switch strings.SplitN(command, "@", 2)[0] {
		case "/status":
			return formatStatus(eng.Status())
		case "/trades":
			return formatTrades(eng.Trades())
		case "/pnl":
			return formatPnL(eng.Status(), eng.Trades())
		case "/help", "/start":
			return helpText
		default:
			return ""
		}
	}
}

const helpText = "Commands:\n/status - engine state\n/trades - today's trades\n/pnl - today's P&L\n/help - this text"

func formatStatus(s strategy.Status) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Engine status</b>\n\n")
	b.WriteString(fmt.Sprintf("Day initialized: %v\n", s.DayInitialized))
	b.WriteString(fmt.Sprintf("Market opened: %v | Gap taken: %v\n", s.MarketOpened, s.GapTaken))
	b.WriteString(fmt.Sprintf("Prev high/low: %.2f / %.2f\n", s.PrevHigh, s.PrevLow))
	b.WriteString(fmt.Sprintf("Spot: %.2f\n", s.CurrentPrice))
	b.WriteString(fmt.Sprintf("Open positions: %d\n", s.OpenPositions))
	b.WriteString(fmt.Sprintf("Trades: %d regular, %d reentry\n", s.RegularTrades, s.ReentryTrades))
	b.WriteString(fmt.Sprintf("Cooldowns active: %d | Exit memos: %d\n", s.CooldownsActive, s.ExitMemos))
	if s.LastTickAt != "" {
		b.WriteString(fmt.Sprintf("Last tick: %s\n", s.LastTickAt))
	}
	return b.String()
}

func formatTrades(trades []model.TradeRecord) string {
	if len(trades) == 0 {
		return "No closed trades today."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Today's trades</b> (%d)\n\n", len(trades)))
	for _, t := range trades {
		b.WriteString(fmt.Sprintf("%s %s %s → %s [%s] ₹%s\n",
			t.OpenedAt.Format("15:04"), t.Symbol,
			humanize.CommafWithDigits(t.EntryPrice, 2),
			humanize.CommafWithDigits(t.ExitPrice, 2),
			t.ExitReason,
			humanize.CommafWithDigits(t.PnL, 2)))
	}
	return b.String()
}

func formatPnL(s strategy.Status, trades []model.TradeRecord) string {
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	var b strings.Builder
	b.WriteString("💰 <b>Today's P&L</b>\n\n")
	b.WriteString(fmt.Sprintf("Total: ₹%s\n", humanize.CommafWithDigits(s.TotalPnL, 2)))
	b.WriteString(fmt.Sprintf("Closed: %d (%d wins)\n", len(trades), wins))
	b.WriteString(fmt.Sprintf("Still open: %d\n", s.OpenPositions))
	return b.String()
}
