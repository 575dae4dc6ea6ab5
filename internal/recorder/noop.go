package recorder

import (
	"time"

	"DayHighDayLow/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SaveOpenPosition(_ *model.Position) error        { return nil }
func (n *NoopRecorder) SaveTrade(_ *model.TradeRecord) error            { return nil }
func (n *NoopRecorder) SaveDayLevels(_ time.Time, _ model.Levels) error { return nil }
func (n *NoopRecorder) SaveDailySummary(_ *model.DailySummary) error    { return nil }
func (n *NoopRecorder) LoadTradesToday() ([]model.Position, []model.TradeRecord, error) {
	return nil, nil, nil
}
func (n *NoopRecorder) DailyPnL(_ time.Time) (float64, error) { return 0, nil }
func (n *NoopRecorder) CleanupOldData(_ int) error            { return nil }
func (n *NoopRecorder) Close() error                          { return nil }
