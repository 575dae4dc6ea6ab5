package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"DayHighDayLow/internal/broker"
	"DayHighDayLow/internal/config"
	"DayHighDayLow/internal/cooldown"
	"DayHighDayLow/internal/detector"
	"DayHighDayLow/internal/governor"
	"DayHighDayLow/internal/health"
	"DayHighDayLow/internal/ledger"
	"DayHighDayLow/internal/marketdata"
	"DayHighDayLow/internal/notifier"
	"DayHighDayLow/internal/recorder"
	"DayHighDayLow/internal/scheduler"
	"DayHighDayLow/internal/session"
	"DayHighDayLow/internal/strategy"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	log.Info().Msg("DayHighDayLow starting")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("load timezone")
	}
	gate, err := session.NewGate(cfg.Session.Start, cfg.Session.End, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("session window")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market data: Yahoo first, Alpha Vantage as fallback.
	sources := []marketdata.Source{
		marketdata.NewYahooSource(cfg.MarketData.YahooSymbol, cfg.Proxy),
	}
	if cfg.MarketData.AlphaVantageKey != "" {
		sources = append(sources, marketdata.NewAlphaVantageSource(cfg.MarketData.AlphaVantageKey, cfg.Proxy))
	}
	market := marketdata.NewClient(log.With().Str("component", "marketdata").Logger(), sources...)

	// Broker: paper by default, Kite with the websocket ticker when live.
	var brk broker.Broker
	if cfg.PaperTrading() {
		brk = broker.NewPaperBroker(log.With().Str("component", "paper").Logger())
	} else {
		ticker := broker.NewTicker(cfg.Kite.APIKey, cfg.Kite.AccessToken, log.With().Str("component", "ticker").Logger())
		go ticker.Run(ctx)
		brk = broker.NewKiteBroker(cfg.Kite.APIKey, cfg.Kite.AccessToken, ticker, log.With().Str("component", "kite").Logger())
	}
	log.Info().Str("broker", brk.Name()).Msg("broker ready")

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.With().Str("component", "recorder").Logger())
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
		log.With().Str("component", "telegram").Logger())

	cooldowns := cooldown.NewRegistry(cfg.CooldownWindows(), log.With().Str("component", "cooldown").Logger())
	led := ledger.NewLedger(cfg.TrailingSLPct(), log.With().Str("component", "ledger").Logger())
	det := detector.NewDetector(cooldowns, cfg.Trading.ReentryTolerancePct, log.With().Str("component", "detector").Logger())
	gov := governor.NewGovernor(gate, led, cfg.Trading.MaxTradesPerDay, cfg.Trading.CapitalPerTrade,
		log.With().Str("component", "governor").Logger())

	metrics := health.NewMetrics()
	eng := strategy.NewOrchestrator(strategy.Params{
		Symbol:          "NIFTY",
		Quantity:        cfg.Trading.FixedQuantity,
		CapitalPerTrade: cfg.Trading.CapitalPerTrade,
		StopLossPct:     cfg.StopLossPct(),
		TargetPct:       cfg.TargetPct(),
		TrailingPct:     cfg.TrailingSLPct(),
	}, gate, cooldowns, led, det, gov, market, brk, rec, tn, metrics,
		log.With().Str("component", "strategy").Logger())

	hs := health.NewServer(cfg.Health.Addr, func() any { return eng.Status() },
		log.With().Str("component", "health").Logger())
	hs.Start()

	sched := scheduler.NewScheduler(eng, gate, rec, tn,
		time.Duration(cfg.Schedule.TickIntervalSec)*time.Second,
		time.Duration(cfg.Schedule.IdleIntervalSec)*time.Second,
		cfg.Database.RetentionDays,
		log.With().Str("component", "scheduler").Logger())
	if err := sched.RegisterAll(ctx, cfg.Schedule.DayInitCron, cfg.Schedule.CleanupCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start(ctx)
	defer sched.Stop()

	go tn.StartPolling(ctx, notifier.NewCommandRouter(eng))

	// Landing inside the session window must not wait for tomorrow's
	// cron fire.
	if gate.IsOpen(time.Now()) || os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("inside session window, initializing day now")
		go sched.RunDayInitNow(ctx)
	}

	log.Info().Bool("paper", cfg.PaperTrading()).Msg("DayHighDayLow is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown")
	}
	log.Info().Msg("DayHighDayLow stopped")
}
