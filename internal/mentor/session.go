// Package mentor composes one profile store, notification scheduler and
// record feed per user, and manages those sessions.
package mentor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/ingest"
	"github.com/edgard/mentorbot/internal/profile"
	"github.com/edgard/mentorbot/internal/scheduler"
)

// Recorder persists what a session sees. All methods must be safe for
// concurrent use.
type Recorder interface {
	SaveConversation(ctx context.Context, userID string, rec domain.ConversationRecord) error
	RecentConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationRecord, error)
	SaveDeliveredNotifications(ctx context.Context, delivered []domain.DeliveredNotification) error
	// GetDeliveredNotifications returns up to limit of the newest delivered
	// notifications of userID, newest first.
	GetDeliveredNotifications(ctx context.Context, userID string, limit int) ([]domain.DeliveredNotification, error)
}

// Deps holds what every session is built from.
type Deps struct {
	Dispatcher scheduler.Dispatcher
	// Recorder is optional.
	Recorder Recorder
	Logger   *slog.Logger
	Clock    clockwork.Clock

	StoreOptions []profile.Option
	Scheduler    scheduler.Config
	FeedCapacity int
	Overflow     ingest.Overflow
	RestoreLimit int
	// DeliveredRestoreLimit is how many archived notifications seed the
	// delivered history of a new session. Zero skips it.
	DeliveredRestoreLimit int
}

// Session is one user's mentor: records enter through OnConversationRecord,
// are processed in order by a single goroutine, and due notifications are
// dispatched by the session's scheduler.
type Session struct {
	userID   string
	store    *profile.Store
	sched    *scheduler.Scheduler
	feed     *ingest.Feed
	recorder Recorder
	clock    clockwork.Clock
	logger   *slog.Logger

	halted    atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewSession builds a session for userID, restores its profile from the
// recorder and starts it.
func NewSession(ctx context.Context, userID string, deps Deps) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", domain.ErrValidation)
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("%w: session needs a dispatcher", domain.ErrValidation)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	log := deps.Logger.With("component", "session", "user_id", userID)
	storeOpts := append([]profile.Option{
		profile.WithClock(deps.Clock),
		profile.WithLogger(deps.Logger),
	}, deps.StoreOptions...)

	s := &Session{
		userID:   userID,
		store:    profile.New(userID, storeOpts...),
		feed:     ingest.NewFeed(deps.FeedCapacity, deps.Overflow, log),
		recorder: deps.Recorder,
		clock:    deps.Clock,
		logger:   log,
		done:     make(chan struct{}),
	}

	if s.recorder != nil && deps.RestoreLimit > 0 {
		records, err := s.recorder.RecentConversations(ctx, userID, deps.RestoreLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to restore session %s: %w", userID, err)
		}
		s.store.Restore(records)
	}
	if s.recorder != nil && deps.DeliveredRestoreLimit > 0 {
		delivered, err := s.recorder.GetDeliveredNotifications(ctx, userID, deps.DeliveredRestoreLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to restore delivered history of %s: %w", userID, err)
		}
		slices.Reverse(delivered)
		s.store.RestoreDelivered(delivered)
	}

	schedOpts := []scheduler.Option{
		scheduler.WithClock(deps.Clock),
		scheduler.WithLogger(log),
	}
	if s.recorder != nil {
		schedOpts = append(schedOpts, scheduler.WithSentHook(s.archive))
	}
	s.sched = scheduler.New(s.store, deps.Dispatcher, deps.Scheduler, schedOpts...)
	if err := s.sched.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler for %s: %w", userID, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		_ = s.feed.Run(runCtx, s.process)
	}()

	log.Info("Session started")
	return s, nil
}

// UserID returns the session owner.
func (s *Session) UserID() string { return s.userID }

// OnConversationRecord is the only way records enter a session. Missing ids
// and timestamps are filled in.
func (s *Session) OnConversationRecord(rec domain.ConversationRecord) error {
	if s.halted.Load() {
		return domain.ErrSessionHalted
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.clock.Now()
	}
	return s.feed.Push(rec)
}

// Reader exposes the profile read-only.
func (s *Session) Reader() profile.Reader { return s.store }

// Halted reports whether an invariant violation stopped this session.
func (s *Session) Halted() bool { return s.halted.Load() }

// Tick runs one scheduler check immediately.
func (s *Session) Tick(ctx context.Context) scheduler.TickResult {
	return s.sched.Tick(ctx)
}

// Close stops the scheduler, lets queued records drain and waits for the
// consumer to exit. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.feed.Close()
		<-s.done
		s.cancel()
		s.closeErr = s.sched.Stop()
		s.logger.Info("Session closed", "feed_dropped", s.feed.Stats().Dropped)
	})
	return s.closeErr
}

func (s *Session) process(ctx context.Context, rec domain.ConversationRecord) {
	if s.halted.Load() {
		return
	}

	if s.recorder != nil {
		if err := s.recorder.SaveConversation(ctx, s.userID, rec); err != nil {
			s.logger.Error("Failed to persist conversation", "record_id", rec.ID, "error", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.halt(fmt.Errorf("processing record %s: %v", rec.ID, r))
		}
	}()

	enqueued := s.store.UpdateProfile(rec)
	s.logger.Debug("Record processed", "record_id", rec.ID, "enqueued", len(enqueued))
}

func (s *Session) halt(cause error) {
	if !s.halted.CompareAndSwap(false, true) {
		return
	}
	s.logger.Error("Invariant violated, halting session", "error", cause)
	if err := s.sched.Stop(); err != nil {
		s.logger.Error("Failed to stop scheduler of halted session", "error", err)
	}
}

func (s *Session) archive(ctx context.Context, sent []domain.Notification) {
	sentAt := s.clock.Now()
	delivered := make([]domain.DeliveredNotification, len(sent))
	for i, n := range sent {
		delivered[i] = domain.DeliveredNotification{Notification: n, SentAt: sentAt}
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.recorder.SaveDeliveredNotifications(ctx, delivered); err != nil {
		s.logger.Error("Failed to archive delivered notifications", "count", len(delivered), "error", err)
	}
}
