package mentor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/profile"
)

// SessionFactory builds a started session for a user.
type SessionFactory func(ctx context.Context, userID string) (*Session, error)

// Manager owns every live session. Sessions are created on first use and
// closed once idle for longer than the idle timeout.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	idle       *cache.Cache
	newSession SessionFactory
	logger     *slog.Logger
}

// NewManager creates a manager. An idleTimeout of zero keeps sessions until
// Close.
func NewManager(newSession SessionFactory, idleTimeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	expiration := cache.NoExpiration
	if idleTimeout > 0 {
		expiration = idleTimeout
	}
	m := &Manager{
		sessions:   make(map[string]*Session),
		idle:       cache.New(expiration, 0),
		newSession: newSession,
		logger:     logger.With("component", "session_manager"),
	}
	m.idle.OnEvicted(func(userID string, _ any) { m.expire(userID) })
	return m
}

// NewSessionFactory returns a factory building sessions from deps.
func NewSessionFactory(deps Deps) SessionFactory {
	return func(ctx context.Context, userID string) (*Session, error) {
		return NewSession(ctx, userID, deps)
	}
}

// Ingest routes rec to the user's session, creating it when needed.
func (m *Manager) Ingest(ctx context.Context, userID string, rec domain.ConversationRecord) error {
	s, err := m.session(ctx, userID)
	if err != nil {
		return err
	}
	return s.OnConversationRecord(rec)
}

// Reader returns the read-only profile of userID, creating the session when
// needed.
func (m *Manager) Reader(ctx context.Context, userID string) (profile.Reader, error) {
	s, err := m.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Reader(), nil
}

// Lookup returns the live session of userID without creating one.
func (m *Manager) Lookup(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", userID, domain.ErrNotFound)
	}
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions whose idle timeout has passed.
func (m *Manager) Sweep() {
	m.idle.DeleteExpired()
}

// Close closes every session. Later calls to Ingest fail with
// domain.ErrSessionClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for userID, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", userID, err))
		}
	}
	m.idle.Flush()
	m.logger.Info("All sessions closed", "count", len(sessions))
	return errors.Join(errs...)
}

func (m *Manager) session(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrSessionClosed
	}
	m.idle.SetDefault(userID, struct{}{})

	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}

	s, err := m.newSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", userID, err)
	}
	m.sessions[userID] = s
	m.logger.Info("Session created", "user_id", userID, "sessions", len(m.sessions))
	return s, nil
}

// expire runs after the idle entry of userID was evicted.
func (m *Manager) expire(userID string) {
	m.mu.Lock()
	if _, touched := m.idle.Get(userID); touched || m.closed {
		m.mu.Unlock()
		return
	}
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := s.Close(); err != nil {
		m.logger.Error("Failed to close idle session", "user_id", userID, "error", err)
		return
	}
	m.logger.Info("Idle session closed", "user_id", userID)
}
