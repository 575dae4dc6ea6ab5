package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"DayHighDayLow/internal/model"
)

// Telegram messages use the HTML parse mode.

func rupees(v float64) string {
	return "₹" + humanize.CommafWithDigits(v, 2)
}

func formatDayInit(symbol string, day time.Time, lv model.Levels, resumedOpen int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s session armed</b> | %s\n\n", symbol, day.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Prev day high: %.2f\n", lv.High))
	b.WriteString(fmt.Sprintf("Prev day low: %.2f\n", lv.Low))
	if resumedOpen > 0 {
		b.WriteString(fmt.Sprintf("\nResumed %d open position(s) after restart\n", resumedOpen))
	}
	return b.String()
}

func formatTradeOpened(pos *model.Position, sig model.Signal, spot float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🟢 <b>BUY %s</b>\n\n", pos.Symbol))
	b.WriteString(fmt.Sprintf("Signal: %s @ spot %.2f\n", sig.Kind, spot))
	b.WriteString(fmt.Sprintf("Entry: %s × %d\n", rupees(pos.EntryPrice), pos.Quantity))
	b.WriteString(fmt.Sprintf("Stop loss: %s\n", rupees(pos.StopLoss)))
	b.WriteString(fmt.Sprintf("Target: %s\n", rupees(pos.Target)))
	b.WriteString(fmt.Sprintf("Order: %s\n", pos.OrderID))
	return b.String()
}

func formatTradeClosed(rec *model.TradeRecord) string {
	icon := "✅"
	if rec.PnL < 0 {
		icon = "🔴"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>EXIT %s</b> | %s\n\n", icon, rec.Symbol, rec.ExitReason))
	b.WriteString(fmt.Sprintf("Entry: %s → Exit: %s\n", rupees(rec.EntryPrice), rupees(rec.ExitPrice)))
	b.WriteString(fmt.Sprintf("P&L: %s\n", rupees(rec.PnL)))
	b.WriteString(fmt.Sprintf("Held: %s\n", rec.ClosedAt.Sub(rec.OpenedAt).Round(time.Second)))
	return b.String()
}

func formatDaySummary(symbol string, sum *model.DailySummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s day summary</b> | %s\n\n", symbol, sum.Date.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Trades: %d (reentries %d)\n", sum.TotalTrades, sum.ReentryTrades))
	b.WriteString(fmt.Sprintf("P&L: %s\n", rupees(sum.TotalPnL)))
	if len(sum.Trades) > 0 {
		b.WriteString("\n")
		for _, t := range sum.Trades {
			b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
				t.OpenedAt.Format("15:04"), t.Symbol, t.ExitReason, rupees(t.PnL)))
		}
	}
	return b.String()
}
