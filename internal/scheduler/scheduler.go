package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// minTick is the shortest re-evaluation period.
const minTick = time.Minute

// Ticker is re-evaluated on every tick. *weather.Service satisfies it.
type Ticker interface {
	OnTimerTick()
}

// Scheduler periodically re-evaluates the refresh gate so forecasts keep
// refreshing while no position updates arrive.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Ticker
	tick      time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler ticking at TickFor(interval).
func New(interval time.Duration, target Ticker, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		tick:      TickFor(interval),
		logger:    logger.With("component", "scheduler"),
	}
}

// TickFor returns the tick period for a refresh interval: a quarter of it, at
// least a minute.
func TickFor(interval time.Duration) time.Duration {
	return max(interval/4, minTick)
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.tick).Do(func() {
		s.logger.Debug("timer tick")
		s.target.OnTimerTick()
	})
	if err != nil {
		return err
	}

	s.logger.Info("scheduler started", "tick", s.tick)
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
