// Package scheduler runs timed update checks until it is told to stop.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dikkadev/relwatch/pkg/checker"
	"github.com/dikkadev/relwatch/pkg/storage"
)

// DefaultInterval is used when neither an interval nor a cron expression is configured
const DefaultInterval = time.Hour

// errorNotifyTimeout bounds the error notification sent after a failed pass
const errorNotifyTimeout = 30 * time.Second

// Checker runs one update check pass
type Checker interface {
	CheckForUpdates(ctx context.Context, mode checker.Mode, opts checker.Options) ([]*storage.Program, error)
}

// Notifier delivers update and error notifications
type Notifier interface {
	NotifyUpdates(ctx context.Context, programs []*storage.Program) error
	NotifyError(ctx context.Context, message string)
}

// Config controls when passes run
type Config struct {
	// Interval between the end of one pass and the start of the next
	Interval time.Duration
	// Cron is a standard cron expression; it takes precedence over Interval
	Cron string
	// PassTimeout bounds a single pass; zero means no limit
	PassTimeout time.Duration
	// SkipInitial waits for the first tick instead of checking right away
	SkipInitial bool
}

// Scheduler drives update check passes on a schedule
type Scheduler struct {
	store    storage.Storage
	checker  Checker
	notifier Notifier
	schedule cron.Schedule
	cfg      Config
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithSchedule overrides the schedule derived from Config
func WithSchedule(schedule cron.Schedule) Option {
	return func(s *Scheduler) { s.schedule = schedule }
}

// New creates a Scheduler. notifier may be nil, in which case no
// notifications are sent.
func New(store storage.Storage, c Checker, notifier Notifier, cfg Config, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		store:    store,
		checker:  c,
		notifier: notifier,
		cfg:      cfg,
		logger:   log.New(os.Stderr, "[scheduler] ", log.LstdFlags),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.schedule == nil {
		schedule, err := ParseSchedule(cfg)
		if err != nil {
			return nil, err
		}
		s.schedule = schedule
	}
	return s, nil
}

// ParseSchedule turns the configured cron expression or interval into a schedule
func ParseSchedule(cfg Config) (cron.Schedule, error) {
	if cfg.Cron != "" {
		schedule, err := cron.ParseStandard(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", cfg.Cron, err)
		}
		return schedule, nil
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < time.Second {
		return nil, fmt.Errorf("check interval must be at least one second, got %s", interval)
	}
	return cron.Every(interval), nil
}

// Preflight verifies that the store is reachable and returns the watched programs
func (s *Scheduler) Preflight(ctx context.Context) ([]*storage.Program, error) {
	s.logger.Printf("Checking database connection")
	programs, err := s.store.ListPrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to database: %w", err)
	}
	s.logger.Printf("Database connection successful, watching %d programs", len(programs))
	return programs, nil
}

// Run performs passes until ctx is cancelled. Pass failures are logged and
// reported through the notifier; they never stop the loop. Cancellation is
// observed between passes only, a running pass always completes.
func (s *Scheduler) Run(ctx context.Context) {
	if s.cfg.Cron != "" {
		s.logger.Printf("Starting update checker loop, schedule: %q", s.cfg.Cron)
	} else {
		s.logger.Printf("Starting update checker loop, check interval: %s", s.interval())
	}

	if !s.cfg.SkipInitial {
		s.pass(ctx)
	}

	for {
		next := s.schedule.Next(s.now())
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		s.logger.Printf("Starting next update check in %s", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Printf("Update checker loop stopped")
			return
		case <-timer.C:
		}

		s.pass(ctx)
	}
}

// Start runs the loop in a new goroutine. The returned channel is closed once
// the loop has returned.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}

// pass runs one check and notification round and handles its failure
func (s *Scheduler) pass(ctx context.Context) {
	passCtx := context.WithoutCancel(ctx)
	if s.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(passCtx, s.cfg.PassTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	s.logger.Printf("Starting update check %s", id)
	if err := s.RunOnce(passCtx); err != nil {
		s.logger.Printf("Error while checking for updates (%s): %v", id, err)
		if s.notifier != nil {
			// passCtx may already be past its deadline
			notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorNotifyTimeout)
			defer cancel()
			s.notifier.NotifyError(notifyCtx, err.Error())
		}
		return
	}
	s.logger.Printf("Finished update check %s", id)
}

// RunOnce performs a single timed check and notifies about the updates found
func (s *Scheduler) RunOnce(ctx context.Context) error {
	updated, err := s.checker.CheckForUpdates(ctx, checker.Timed, checker.Options{})
	if err != nil {
		return err
	}
	if len(updated) == 0 || s.notifier == nil {
		return nil
	}

	for _, p := range updated {
		s.logger.Printf("Update available: %s %s -> %s", p.Name, p.CurrentVersion, p.LatestVersion)
	}
	return s.notifier.NotifyUpdates(ctx, updated)
}

func (s *Scheduler) interval() time.Duration {
	if s.cfg.Interval <= 0 {
		return DefaultInterval
	}
	return s.cfg.Interval
}
