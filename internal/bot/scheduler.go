package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/mentorbot/internal/bot/tasks"
	"github.com/edgard/mentorbot/internal/config"
	"github.com/edgard/mentorbot/internal/logger"
)

var (
	// ErrSchedulerRunning is returned by Start on a running scheduler.
	ErrSchedulerRunning = errors.New("scheduler is already running")
	// ErrSchedulerStopped is returned by Start after Stop.
	ErrSchedulerStopped = errors.New("scheduler was stopped")
)

// Scheduler runs the maintenance tasks on their cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.MaintenanceConfig
	taskMap   map[string]tasks.ScheduledTaskFunc

	mu      sync.Mutex
	running bool
	stopped bool
	jobs    int
	cancel  context.CancelFunc
}

// NewScheduler creates a maintenance scheduler. Tasks are registered on
// Start.
func NewScheduler(baseLogger *slog.Logger, cfg *config.MaintenanceConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if baseLogger == nil {
		baseLogger = slog.Default()
	}
	log := baseLogger.With("component", "maintenance_scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithLogger(logger.NewGocronLogger(log)),
		gocron.WithStopTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules every enabled task that has a registered function and
// starts ticking. Misconfigured tasks are logged and skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}
	if s.stopped {
		return ErrSchedulerStopped
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.cfg == nil || len(s.cfg.Tasks) == 0 {
		s.logger.Warn("No maintenance tasks configured")
	} else {
		for _, name := range slices.Sorted(maps.Keys(s.cfg.Tasks)) {
			if s.schedule(ctx, name, s.cfg.Tasks[name]) {
				s.jobs++
			}
		}
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Maintenance scheduler started", "tasks_scheduled", s.jobs)
	return nil
}

func (s *Scheduler) schedule(ctx context.Context, name string, tc config.TaskConfig) bool {
	if !tc.Enabled {
		s.logger.Info("Skipping disabled task", "task_name", name)
		return false
	}
	taskFunc, ok := s.taskMap[name]
	if !ok {
		s.logger.Warn("Task configured but not registered, skipping", "task_name", name)
		return false
	}
	if tc.Schedule == "" {
		s.logger.Warn("Task enabled but has empty schedule, skipping", "task_name", name)
		return false
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(tc.Schedule, true),
		gocron.NewTask(
			func(ctx context.Context, name string) {
				start := time.Now()
				if err := taskFunc(ctx); err != nil {
					s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
				}
				s.logger.Debug("Finished scheduled task", "task_name", name, "duration", time.Since(start))
			},
			ctx,
			name,
		),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.logger.Error("Failed to schedule task", "task_name", name, "schedule", tc.Schedule, "error", err)
		return false
	}
	s.logger.Info("Scheduled task", "task_name", name, "schedule", tc.Schedule)
	return true
}

// Jobs returns how many tasks Start scheduled.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs
}

// Stop shuts the scheduler down, waiting for running tasks. Stopping a
// scheduler that is not running is a no-op. A stopped scheduler cannot be
// started again.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.stopped = true
	s.cancel()

	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
		return fmt.Errorf("failed to stop maintenance scheduler: %w", err)
	}
	s.logger.Info("Maintenance scheduler stopped")
	return nil
}
