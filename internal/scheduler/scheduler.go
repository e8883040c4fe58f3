// Package scheduler drains a notification queue on a fixed interval and
// dispatches due notifications through an external channel.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/logger"
)

const jobName = "notification_tick"

// Scheduler is a two-state machine, Stopped and Running. While Running it
// ticks every Interval. Ticks never overlap.
type Scheduler struct {
	queue      Queue
	dispatcher Dispatcher
	cfg        Config
	clock      clockwork.Clock
	logger     *slog.Logger
	onSent     SentHook

	mu      sync.Mutex // guards the fields below
	cron    gocron.Scheduler
	running bool
	cancel  context.CancelFunc

	active atomic.Bool
	tickMu sync.Mutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithSentHook registers a hook called after every tick that acknowledged at
// least one notification.
func WithSentHook(h SentHook) Option {
	return func(s *Scheduler) { s.onSent = h }
}

// New creates a stopped scheduler draining queue into dispatcher.
func New(queue Queue, dispatcher Dispatcher, cfg Config, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxConcurrentDispatch < 0 {
		cfg.MaxConcurrentDispatch = 0
	}
	s := &Scheduler{
		queue:      queue,
		dispatcher: dispatcher,
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "notification_scheduler")
	return s
}

// Start moves the scheduler to Running. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug("Scheduler already running")
		return nil
	}

	opts := []gocron.SchedulerOption{
		gocron.WithClock(s.clock),
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger.NewGocronLogger(s.logger)),
	}
	if s.cfg.StopTimeout > 0 {
		opts = append(opts, gocron.WithStopTimeout(s.cfg.StopTimeout))
	}
	cron, err := gocron.NewScheduler(opts...)
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	_, err = cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() { s.runTick(runCtx) }),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = cron.Shutdown()
		return fmt.Errorf("failed to schedule notification tick: %w", err)
	}

	s.cron = cron
	s.cancel = cancel
	s.active.Store(true)
	s.running = true
	cron.Start()

	s.logger.Info("Notification scheduler started", "interval", s.cfg.Interval)
	return nil
}

// Stop moves the scheduler to Stopped. When Stop returns no tick is running
// and none will start. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.active.Store(false)
	err := s.cron.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
		err = fmt.Errorf("failed to shutdown notification scheduler: %w", err)
	}
	s.cancel()

	// Wait for a tick that was already past its active check.
	s.tickMu.Lock()
	s.tickMu.Unlock() //nolint:staticcheck // empty critical section waits for the tick

	s.cron = nil
	s.cancel = nil
	s.running = false
	s.logger.Info("Notification scheduler stopped")
	return err
}

// Running reports whether the scheduler is in the Running state.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runTick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if !s.active.Load() {
		return
	}
	s.tickLocked(ctx)
}

// Tick performs one due-notification check immediately, whether or not the
// scheduler is running.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	return s.tickLocked(ctx)
}

func (s *Scheduler) tickLocked(ctx context.Context) TickResult {
	now := s.clock.Now()
	due := s.queue.PendingNotifications(now)
	res := TickResult{Due: len(due)}
	if len(due) == 0 {
		return res
	}

	errs := make([]error, len(due))
	var g errgroup.Group
	if s.cfg.MaxConcurrentDispatch > 0 {
		g.SetLimit(s.cfg.MaxConcurrentDispatch)
	}
	for i, n := range due {
		g.Go(func() error {
			errs[i] = s.dispatch(ctx, n)
			return nil
		})
	}
	_ = g.Wait()

	sentIDs := make([]string, 0, len(due))
	sent := make([]domain.Notification, 0, len(due))
	for i, n := range due {
		if errs[i] != nil {
			res.Failed++
			s.logger.Warn("Notification dispatch failed, will retry",
				"notification_id", n.ID,
				"user_id", n.UserID,
				"priority", n.Priority,
				"error", errs[i])
			continue
		}
		sentIDs = append(sentIDs, n.ID)
		sent = append(sent, n)
	}

	if len(sentIDs) > 0 {
		res.Sent = s.queue.MarkSent(sentIDs)
		if s.onSent != nil {
			s.onSent(ctx, sent)
		}
	}

	s.logger.Debug("Tick finished", "due", res.Due, "sent", res.Sent, "failed", res.Failed)
	return res
}

func (s *Scheduler) dispatch(ctx context.Context, n domain.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()
	return s.dispatcher.Dispatch(ctx, n)
}
