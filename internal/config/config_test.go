package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"DayHighDayLow/internal/cooldown"
)

func loadClean(t *testing.T, path string) *Config {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "ALPHA_VANTAGE_API_KEY",
		"KITE_API_KEY", "KITE_ACCESS_TOKEN", "SQLITE_PATH", "HTTPS_PROXY",
		"PAPER_TRADING",
	} {
		t.Setenv(k, "")
	}
	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}

func TestDefaultsWithoutFile(t *testing.T) {
	cfg := loadClean(t, filepath.Join(t.TempDir(), "missing.yaml"))

	require.Equal(t, 15000.0, cfg.Trading.CapitalPerTrade)
	require.Equal(t, 150, cfg.Trading.FixedQuantity)
	require.Equal(t, 4, cfg.Trading.MaxTradesPerDay)
	require.True(t, cfg.PaperTrading(), "paper trading is the default")
	require.Equal(t, "09:15", cfg.Session.Start)
	require.Equal(t, "15:30", cfg.Session.End)
	require.Equal(t, "Asia/Kolkata", cfg.Session.Timezone)
	require.Equal(t, "^NSEI", cfg.MarketData.YahooSymbol)
	require.Equal(t, 30, cfg.Schedule.TickIntervalSec)
	require.Equal(t, 60, cfg.Schedule.IdleIntervalSec)
	require.Equal(t, ":8080", cfg.Health.Addr)

	require.InDelta(t, 0.20, cfg.StopLossPct(), 1e-9)
	require.InDelta(t, 0.60, cfg.TargetPct(), 1e-9)
	require.InDelta(t, 0.20, cfg.TrailingSLPct(), 1e-9)

	w := cfg.CooldownWindows()
	require.Equal(t, 15*time.Minute, w[cooldown.GapUp])
	require.Equal(t, 10*time.Minute, w[cooldown.BreakoutHigh])
	require.Equal(t, 5*time.Minute, w[cooldown.Reentry])
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trading:
  max_trades_per_day: 2
  stop_loss_percent: 25
  paper_trading: false
session:
  start: "09:30"
cooldowns:
  reentry_min: 3
`), 0o644))

	cfg := loadClean(t, path)
	require.Equal(t, 2, cfg.Trading.MaxTradesPerDay)
	require.InDelta(t, 0.25, cfg.StopLossPct(), 1e-9)
	require.False(t, cfg.PaperTrading())
	require.Equal(t, "09:30", cfg.Session.Start)
	require.Equal(t, "15:30", cfg.Session.End, "unset keys keep their defaults")
	require.Equal(t, 3*time.Minute, cfg.CooldownWindows()[cooldown.Reentry])
}

func TestEnvOverrides(t *testing.T) {
	cfg := loadClean(t, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Empty(t, cfg.Telegram.BotToken)

	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "chat")
	t.Setenv("PAPER_TRADING", "false")
	t.Setenv("SQLITE_PATH", "/tmp/other.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "tok", cfg.Telegram.BotToken)
	require.Equal(t, "chat", cfg.Telegram.ChatID)
	require.False(t, cfg.PaperTrading())
	require.Equal(t, "/tmp/other.db", cfg.Database.SQLitePath)
}

func TestValidate(t *testing.T) {
	cfg := loadClean(t, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, cfg.Validate(), "telegram credentials are required")

	cfg.Telegram.BotToken = "tok"
	cfg.Telegram.ChatID = "chat"
	require.NoError(t, cfg.Validate())

	// Live trading additionally needs broker credentials.
	paper := false
	cfg.Trading.PaperTrading = &paper
	require.Error(t, cfg.Validate())
	cfg.Kite.APIKey = "key"
	cfg.Kite.AccessToken = "token"
	require.NoError(t, cfg.Validate())

	cfg.Trading.StopLossPercent = 120
	require.Error(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := loadClean(t, filepath.Join(t.TempDir(), "missing.yaml"))
	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", loc.String())
}
