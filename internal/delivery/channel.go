// Package delivery implements the external channels notifications are
// dispatched through.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/mentorbot/internal/domain"
)

// Channel delivers one notification. Implementations own their timeouts.
type Channel interface {
	Dispatch(ctx context.Context, n domain.Notification) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, n domain.Notification) error

func (f ChannelFunc) Dispatch(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}

// Named pairs a channel with the name used in logs and errors.
type Named struct {
	Name    string
	Channel Channel
}

// Fanout dispatches to every channel and succeeds when at least one does.
type Fanout struct {
	channels []Named
	logger   *slog.Logger
}

// NewFanout creates a fan-out over channels.
func NewFanout(logger *slog.Logger, channels ...Named) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{channels: channels, logger: logger.With("component", "delivery")}
}

// Dispatch implements Channel.
func (f *Fanout) Dispatch(ctx context.Context, n domain.Notification) error {
	if len(f.channels) == 0 {
		return errors.New("no delivery channels configured")
	}

	var errs []error
	delivered := 0
	for _, ch := range f.channels {
		if err := ch.Channel.Dispatch(ctx, n); err != nil {
			f.logger.Warn("Channel rejected notification",
				"channel", ch.Name,
				"notification_id", n.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WithTimeout bounds every dispatch through ch by d. A zero d returns ch.
func WithTimeout(ch Channel, d time.Duration) Channel {
	if d <= 0 {
		return ch
	}
	return ChannelFunc(func(ctx context.Context, n domain.Notification) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return ch.Dispatch(ctx, n)
	})
}

// LogChannel writes notifications to the log. It never fails.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger.With("component", "log_channel")}
}

func (c *LogChannel) Dispatch(ctx context.Context, n domain.Notification) error {
	c.logger.InfoContext(ctx, "Notification delivered",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"priority", n.Priority,
		"title", n.Title,
		"message", n.Message)
	return nil
}
