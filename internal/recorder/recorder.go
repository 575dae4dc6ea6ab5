// Package recorder persists trades and day records. Persistence failures
// are logged by callers and never stop trading; the audit-trail risk is
// accepted.
package recorder

import (
	"time"

	"DayHighDayLow/internal/model"
)

// Recorder is the persistence collaborator.
type Recorder interface {
	// SaveOpenPosition inserts the entry row for a freshly opened position.
	SaveOpenPosition(pos *model.Position) error
	// SaveTrade marks the position's row CLOSED with exit details.
	SaveTrade(rec *model.TradeRecord) error
	// SaveDayLevels stores the previous-day levels used for a session date.
	SaveDayLevels(date time.Time, lv model.Levels) error
	// SaveDailySummary stores the end-of-session aggregate.
	SaveDailySummary(sum *model.DailySummary) error
	// LoadTradesToday returns today's rows split into still-open positions
	// and closed trades. Used to resume DailyState after a restart.
	LoadTradesToday() (open []model.Position, closed []model.TradeRecord, err error)
	// DailyPnL sums closed-trade P&L for a date.
	DailyPnL(date time.Time) (float64, error)
	// CleanupOldData removes rows older than keepDays.
	CleanupOldData(keepDays int) error
	Close() error
}
