package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"DayHighDayLow/internal/cooldown"
)

// Config holds all application configuration.
type Config struct {
	Trading struct {
		CapitalPerTrade     float64 `yaml:"capital_per_trade"`
		FixedQuantity       int     `yaml:"fixed_quantity"`
		MaxTradesPerDay     int     `yaml:"max_trades_per_day"`
		StopLossPercent     float64 `yaml:"stop_loss_percent"`
		TargetPercent       float64 `yaml:"target_percent"`
		TrailingSLPercent   float64 `yaml:"trailing_sl_percent"`
		ReentryTolerancePct float64 `yaml:"reentry_tolerance_pct"`
		PaperTrading        *bool   `yaml:"paper_trading"`
	} `yaml:"trading"`
	Session struct {
		Start    string `yaml:"start"`
		End      string `yaml:"end"`
		Timezone string `yaml:"timezone"`
	} `yaml:"session"`
	Cooldowns struct {
		GapUpMin        int `yaml:"gap_up_min"`
		GapDownMin      int `yaml:"gap_down_min"`
		BreakoutHighMin int `yaml:"breakout_high_min"`
		BreakoutLowMin  int `yaml:"breakout_low_min"`
		ReentryMin      int `yaml:"reentry_min"`
	} `yaml:"cooldowns"`
	MarketData struct {
		YahooSymbol     string `yaml:"yahoo_symbol"`
		AlphaVantageKey string `yaml:"alpha_vantage_api_key"`
	} `yaml:"market_data"`
	Kite struct {
		APIKey      string `yaml:"api_key"`
		AccessToken string `yaml:"access_token"`
	} `yaml:"kite"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath    string `yaml:"sqlite_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"database"`
	Schedule struct {
		DayInitCron     string `yaml:"day_init_cron"`
		CleanupCron     string `yaml:"cleanup_cron"`
		TickIntervalSec int    `yaml:"tick_interval_sec"`
		IdleIntervalSec int    `yaml:"idle_interval_sec"`
	} `yaml:"schedule"`
	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides (secrets are normally injected here)
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.MarketData.AlphaVantageKey = v
	}
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Kite.AccessToken = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("PAPER_TRADING"); v != "" {
		paper := v == "true" || v == "1"
		cfg.Trading.PaperTrading = &paper
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	t := &c.Trading
	if t.CapitalPerTrade == 0 {
		t.CapitalPerTrade = 15000
	}
	if t.FixedQuantity == 0 {
		t.FixedQuantity = 150
	}
	if t.MaxTradesPerDay == 0 {
		t.MaxTradesPerDay = 4
	}
	if t.StopLossPercent == 0 {
		t.StopLossPercent = 20
	}
	if t.TargetPercent == 0 {
		t.TargetPercent = 60
	}
	if t.TrailingSLPercent == 0 {
		t.TrailingSLPercent = 20
	}
	if t.ReentryTolerancePct == 0 {
		t.ReentryTolerancePct = 0.002
	}
	if t.PaperTrading == nil {
		paper := true
		t.PaperTrading = &paper
	}

	if c.Session.Start == "" {
		c.Session.Start = "09:15"
	}
	if c.Session.End == "" {
		c.Session.End = "15:30"
	}
	if c.Session.Timezone == "" {
		c.Session.Timezone = "Asia/Kolkata"
	}

	cd := &c.Cooldowns
	if cd.GapUpMin == 0 {
		cd.GapUpMin = 15
	}
	if cd.GapDownMin == 0 {
		cd.GapDownMin = 15
	}
	if cd.BreakoutHighMin == 0 {
		cd.BreakoutHighMin = 10
	}
	if cd.BreakoutLowMin == 0 {
		cd.BreakoutLowMin = 10
	}
	if cd.ReentryMin == 0 {
		cd.ReentryMin = 5
	}

	if c.MarketData.YahooSymbol == "" {
		c.MarketData.YahooSymbol = "^NSEI"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/dayhighdaylow.db"
	}
	if c.Database.RetentionDays == 0 {
		c.Database.RetentionDays = 30
	}
	if c.Schedule.DayInitCron == "" {
		c.Schedule.DayInitCron = "0 5 9 * * 1-5" // 09:05 IST, weekdays
	}
	if c.Schedule.CleanupCron == "" {
		c.Schedule.CleanupCron = "0 0 6 * * *"
	}
	if c.Schedule.TickIntervalSec == 0 {
		c.Schedule.TickIntervalSec = 30
	}
	if c.Schedule.IdleIntervalSec == 0 {
		c.Schedule.IdleIntervalSec = 60
	}
	if c.Health.Addr == "" {
		c.Health.Addr = ":8080"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if !c.PaperTrading() {
		if c.Kite.APIKey == "" || c.Kite.AccessToken == "" {
			return fmt.Errorf("kite.api_key and kite.access_token are required for live trading")
		}
	}
	if c.Trading.StopLossPercent <= 0 || c.Trading.StopLossPercent >= 100 {
		return fmt.Errorf("trading.stop_loss_percent must be in (0, 100)")
	}
	if c.Trading.TargetPercent <= 0 {
		return fmt.Errorf("trading.target_percent must be positive")
	}
	if c.Trading.TrailingSLPercent <= 0 || c.Trading.TrailingSLPercent >= 100 {
		return fmt.Errorf("trading.trailing_sl_percent must be in (0, 100)")
	}
	if c.Trading.FixedQuantity <= 0 {
		return fmt.Errorf("trading.fixed_quantity must be positive")
	}
	return nil
}

// PaperTrading reports whether orders are simulated.
func (c *Config) PaperTrading() bool {
	return c.Trading.PaperTrading == nil || *c.Trading.PaperTrading
}

// StopLossPct returns the stop loss as a decimal fraction (20 -> 0.20).
func (c *Config) StopLossPct() float64 { return c.Trading.StopLossPercent / 100 }

// TargetPct returns the target as a decimal fraction.
func (c *Config) TargetPct() float64 { return c.Trading.TargetPercent / 100 }

// TrailingSLPct returns the trailing stop distance as a decimal fraction.
func (c *Config) TrailingSLPct() float64 { return c.Trading.TrailingSLPercent / 100 }

// CooldownWindows converts the configured minutes to the registry's windows.
func (c *Config) CooldownWindows() cooldown.Windows {
	return cooldown.Windows{
		cooldown.GapUp:        time.Duration(c.Cooldowns.GapUpMin) * time.Minute,
		cooldown.GapDown:      time.Duration(c.Cooldowns.GapDownMin) * time.Minute,
		cooldown.BreakoutHigh: time.Duration(c.Cooldowns.BreakoutHighMin) * time.Minute,
		cooldown.BreakoutLow:  time.Duration(c.Cooldowns.BreakoutLowMin) * time.Minute,
		cooldown.Reentry:      time.Duration(c.Cooldowns.ReentryMin) * time.Minute,
	}
}

// Location resolves the session timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Session.Timezone)
}
