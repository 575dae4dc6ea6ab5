package strategy

import (
	"time"

	"DayHighDayLow/internal/model"
)

// dailyState is the orchestrator's private per-session state. It is reset at
// day-init and mutated only inside a tick; ticks never overlap.
type dailyState struct {
	initialized   bool
	date          time.Time
	levels        model.Levels
	marketOpened  bool // set true after the first tick, gap branch never re-runs
	gapTaken      bool
	regularTrades int // non-reentry entries today
	reentryTrades int
	currentPrice  float64
	lastTickAt    time.Time
}

// Status is a read-only snapshot for the health endpoint and Telegram
// commands.
type Status struct {
	DayInitialized  bool    `json:"day_initialized"`
	MarketOpened    bool    `json:"market_opened"`
	GapTaken        bool    `json:"gap_taken"`
	PrevHigh        float64 `json:"prev_high"`
	PrevLow         float64 `json:"prev_low"`
	CurrentPrice    float64 `json:"current_price"`
	OpenPositions   int     `json:"open_positions"`
	RegularTrades   int     `json:"regular_trades_today"`
	ReentryTrades   int     `json:"reentry_trades_today"`
	CooldownsActive int     `json:"cooldowns_active"`
	ExitMemos       int     `json:"exit_memos_tracked"`
	TotalPnL        float64 `json:"total_pnl"`
	LastTickAt      string  `json:"last_tick_at"`
}
