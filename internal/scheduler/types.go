package scheduler

import (
	"context"
	"time"

	"github.com/edgard/mentorbot/internal/domain"
)

// DefaultInterval is the time between two due-notification checks.
const DefaultInterval = 60 * time.Second

// Queue is the part of the profile store the scheduler drains.
type Queue interface {
	PendingNotifications(now time.Time) []domain.Notification
	MarkSent(ids []string) int
}

// Dispatcher hands one notification to an external delivery channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, n domain.Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n domain.Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}

// SentHook observes the notifications acknowledged by a tick.
type SentHook func(ctx context.Context, sent []domain.Notification)

// Config holds the scheduler settings.
type Config struct {
	// Interval between ticks. Zero selects DefaultInterval.
	Interval time.Duration
	// StopTimeout bounds how long Stop waits for gocron to shut down.
	// Zero keeps the gocron default.
	StopTimeout time.Duration
	// MaxConcurrentDispatch caps parallel dispatches within one tick.
	// Zero means unlimited.
	MaxConcurrentDispatch int
}

// TickResult summarizes one tick.
type TickResult struct {
	Due    int
	Sent   int
	Failed int
}
