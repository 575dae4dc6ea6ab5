// Package scheduler drives the engine: the intraday tick loop plus the
// cron-scheduled day-init and database cleanup jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"DayHighDayLow/internal/recorder"
	"DayHighDayLow/internal/session"
	"DayHighDayLow/internal/strategy"
)

// Scheduler owns the tick goroutine and the cron jobs.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   *strategy.Orchestrator
	Gate     *session.Gate
	Recorder recorder.Recorder
	Notifier strategy.Notifier
	Log      zerolog.Logger

	tickInterval time.Duration
	idleInterval time.Duration
	retention    int
	loopDone     chan struct{}
}

// NewScheduler creates a scheduler. tickInterval applies inside the
// session window, idleInterval outside it.
func NewScheduler(eng *strategy.Orchestrator, gate *session.Gate, rec recorder.Recorder, nt strategy.Notifier, tickInterval, idleInterval time.Duration, retentionDays int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Engine:       eng,
		Gate:         gate,
		Recorder:     rec,
		Notifier:     nt,
		Log:          log,
		tickInterval: tickInterval,
		idleInterval: idleInterval,
		retention:    retentionDays,
		loopDone:     make(chan struct{}),
	}
}

// RegisterAll registers the day-init and cleanup cron jobs.
func (s *Scheduler) RegisterAll(ctx context.Context, dayInitCron, cleanupCron string) error {
	if _, err := s.Cron.AddFunc(dayInitCron, func() { s.dayInitTask(ctx) }); err != nil {
		return fmt.Errorf("register day-init task: %w", err)
	}
	if _, err := s.Cron.AddFunc(cleanupCron, s.cleanupTask); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	return nil
}

// Start launches the cron scheduler and the tick loop. The loop exits
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.Cron.Start()
	go s.tickLoop(ctx)
	s.Log.Info().
		Dur("tick_interval", s.tickInterval).
		Dur("idle_interval", s.idleInterval).
		Msg("scheduler started")
}

// Stop stops cron, waits for the tick loop to observe cancellation and
// finish its shutdown pass, then returns.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	<-s.loopDone
	s.Log.Info().Msg("scheduler stopped")
}

// RunDayInitNow triggers day initialization immediately. Used at startup
// when the process comes up inside or shortly before the session window.
func (s *Scheduler) RunDayInitNow(ctx context.Context) {
	s.dayInitTask(ctx)
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer close(s.loopDone)
	for {
		now := time.Now()
		interval := s.idleInterval
		if s.Gate.IsOpen(now) {
			interval = s.tickInterval
		}
		s.Engine.Tick(ctx, now)

		select {
		case <-ctx.Done():
			// Stop is observed at the tick boundary; square off any
			// open positions before halting.
			shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.Engine.Shutdown(shutCtx, time.Now())
			cancel()
			s.Log.Info().Msg("tick loop stopped")
			return
		case <-time.After(interval):
		}
	}
}

func (s *Scheduler) dayInitTask(ctx context.Context) {
	now := time.Now()
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return
	}
	if err := s.Engine.InitDay(ctx, now); err != nil {
		s.Log.Error().Err(err).Msg("day init failed, session will not trade")
		s.trySend(ctx, fmt.Sprintf("❌ Day init failed, not trading today: %v", err))
	}
}

func (s *Scheduler) cleanupTask() {
	if err := s.Recorder.CleanupOldData(s.retention); err != nil {
		s.Log.Error().Err(err).Msg("database cleanup failed")
		return
	}
	s.Log.Info().Int("keep_days", s.retention).Msg("database cleanup done")
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.Log.Error().Err(err).Msg("notification failed")
	}
}
