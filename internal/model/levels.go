package model

import "time"

// Levels holds the previous session's high and low. Set once at day-init and
// immutable for the rest of the session.
type Levels struct {
	High float64
	Low  float64
}

// Valid reports whether both levels are usable.
func (l Levels) Valid() bool {
	return l.High > 0 && l.Low > 0 && l.High > l.Low
}

// DailySummary aggregates a finished trading day.
type DailySummary struct {
	Date          time.Time
	Levels        Levels
	TotalTrades   int
	ReentryTrades int
	TotalPnL      float64
	Trades        []TradeRecord
}
