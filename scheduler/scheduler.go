// Package scheduler runs Votify's background jobs: the session list cache
// refresh and the open-session notification sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// JobFunc represents a function that can be scheduled.
type JobFunc func(ctx context.Context) error

// gocronLogger routes gocron's internal log lines through the application
// logger under a jobs prefix.
type gocronLogger struct {
	l *log.Logger
}

var _ gocron.Logger = gocronLogger{}

func (g gocronLogger) Debug(msg string, args ...any) { g.l.Debug(msg, args...) }
func (g gocronLogger) Info(msg string, args ...any)  { g.l.Info(msg, args...) }
func (g gocronLogger) Warn(msg string, args ...any)  { g.l.Warn(msg, args...) }
func (g gocronLogger) Error(msg string, args ...any) { g.l.Error(msg, args...) }

// Scheduler manages the recurring jobs.
type Scheduler struct {
	gocron gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler.
func New() (*Scheduler, error) {
	logger := gocronLogger{l: log.Default().WithPrefix("jobs")}
	gocronScheduler, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		gocron: gocronScheduler,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// AddIntervalJob registers a job that runs every interval. Failures are
// logged, not fatal; the job keeps its schedule.
func (s *Scheduler) AddIntervalJob(name string, interval time.Duration, fn JobFunc) error {
	_, err := s.gocron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := fn(s.ctx); err != nil {
				log.Error("scheduled job failed", "job", name, "error", err)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	log.Debug("scheduled job", "job", name, "interval", interval)
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.gocron.Start()
	log.Info("job scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.gocron.Shutdown()
}
