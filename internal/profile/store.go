// Package profile implements the per-user mentor profile store: aggregated
// profile fields, bounded conversation history and the notification queue.
package profile

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/mentorbot/internal/analyzer"
	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/notification"
)

const (
	DefaultHistoryLimit     = 200
	DefaultSentHistoryLimit = 100
	DefaultSentimentAlpha   = 0.3

	// LowSentimentThreshold is the score below which a sentiment insight
	// becomes a check-in notification.
	LowSentimentThreshold = 0.3
)

// Reader is the read-only view of a store. Every accessor returns copies.
type Reader interface {
	Snapshot() domain.MentorProfile
	History() []domain.HistoryEntry
	RecentInsights(n int) []domain.Insight
	Queued() []domain.Notification
	NotificationHistory() []domain.DeliveredNotification
}

// Store owns one user's profile and notification queue. All mutations go
// through its methods and are serialized by a single mutex.
type Store struct {
	mu sync.Mutex

	profile domain.MentorProfile
	history []domain.HistoryEntry
	queue   *queue
	sent    []domain.DeliveredNotification

	historyLimit int
	sentLimit    int
	alpha        float64

	analyzer *analyzer.Analyzer
	factory  *notification.Factory
	policy   notification.DeliveryPolicy
	clock    clockwork.Clock
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithStyle sets the mentor style. Invalid styles fall back to default.
func WithStyle(style domain.MentorStyle) Option {
	return func(s *Store) {
		if style.IsValid() {
			s.profile.Style = style
		}
	}
}

// WithHistoryLimit bounds the conversation history. Zero means unbounded.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// WithSentHistoryLimit bounds the delivered notification history. Zero means
// unbounded.
func WithSentHistoryLimit(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.sentLimit = n
		}
	}
}

// WithSentimentAlpha sets the smoothing factor of the rolling sentiment,
// in (0,1].
func WithSentimentAlpha(alpha float64) Option {
	return func(s *Store) {
		if alpha > 0 && alpha <= 1 {
			s.alpha = alpha
		}
	}
}

func WithPolicy(p notification.DeliveryPolicy) Option {
	return func(s *Store) {
		if p != nil {
			s.policy = p
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(s *Store) { s.analyzer = a }
}

// WithFactory overrides the notification factory. Without it the store
// builds one on its own clock.
func WithFactory(f *notification.Factory) Option {
	return func(s *Store) { s.factory = f }
}

// New creates an empty store for userID.
func New(userID string, opts ...Option) *Store {
	s := &Store{
		profile: domain.MentorProfile{
			UserID:      userID,
			Style:       domain.StyleDefault,
			TopicCounts: make(map[string]int),
		},
		queue:        newQueue(),
		historyLimit: DefaultHistoryLimit,
		sentLimit:    DefaultSentHistoryLimit,
		alpha:        DefaultSentimentAlpha,
		policy:       notification.DefaultDelayPolicy,
		clock:        clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "profile", "user_id", userID)
	if s.analyzer == nil {
		s.analyzer = analyzer.New()
	}
	if s.factory == nil {
		s.factory = notification.NewFactory(notification.WithClock(s.clock))
	}
	return s
}

// UserID returns the owner of the store.
func (s *Store) UserID() string { return s.profile.UserID }

// UpdateProfile analyzes record, folds the result into the profile, appends
// it to history and enqueues notifications for qualifying insights. It
// returns copies of the notifications that were enqueued.
func (s *Store) UpdateProfile(record domain.ConversationRecord) []domain.Notification {
	insights := s.derive(record)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.foldLocked(record, insights)
	return s.generateLocked(insights)
}

// Restore folds previously recorded conversations into the profile without
// generating notifications. Records are applied in the given order.
func (s *Store) Restore(records []domain.ConversationRecord) {
	derived := make([][]domain.Insight, len(records))
	for i, rec := range records {
		derived[i] = s.derive(rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range records {
		s.foldLocked(rec, derived[i])
	}
	s.logger.Debug("Profile restored", "records", len(records))
}

// RestoreDelivered seeds the delivered notification history, oldest first,
// replacing what the store holds. The queue is not touched.
func (s *Store) RestoreDelivered(delivered []domain.DeliveredNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = slices.Clone(delivered)
	if s.sentLimit > 0 && len(s.sent) > s.sentLimit {
		s.sent = s.sent[len(s.sent)-s.sentLimit:]
	}
	s.logger.Debug("Delivered history restored", "count", len(s.sent))
}

// GenerateNotifications builds and enqueues a notification for every
// qualifying insight. An insight that already has a queued notification is
// skipped. It returns copies of the notifications that were enqueued.
func (s *Store) GenerateNotifications(insights []domain.Insight) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generateLocked(insights)
}

// PendingNotifications returns the queued notifications due at now in
// delivery order.
func (s *Store) PendingNotifications(now time.Time) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queue.due(now)
}

// MarkSent removes the given ids from the queue and records them as
// delivered. Unknown ids are ignored. It returns the number removed.
func (s *Store) MarkSent(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.queue.remove(ids)
	if len(removed) == 0 {
		return 0
	}

	sentAt := s.clock.Now()
	for _, n := range removed {
		s.sent = append(s.sent, domain.DeliveredNotification{Notification: n, SentAt: sentAt})
	}
	if s.sentLimit > 0 && len(s.sent) > s.sentLimit {
		s.sent = slices.Clone(s.sent[len(s.sent)-s.sentLimit:])
	}

	s.logger.Debug("Notifications marked sent", "count", len(removed), "queued", s.queue.size())
	return len(removed)
}

// Snapshot returns a copy of the aggregated profile.
func (s *Store) Snapshot() domain.MentorProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profile
	p.TopicCounts = maps.Clone(s.profile.TopicCounts)
	return p
}

// History returns a deep copy of the conversation history, oldest first.
func (s *Store) History() []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.HistoryEntry, len(s.history))
	for i, e := range s.history {
		out[i] = e.Clone()
	}
	return out
}

// RecentInsights returns up to n of the newest insights, oldest first.
func (s *Store) RecentInsights(n int) []domain.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Insight{}
	if n <= 0 {
		return out
	}
	for i := len(s.history) - 1; i >= 0 && len(out) < n; i-- {
		ins := s.history[i].Insights
		for j := len(ins) - 1; j >= 0 && len(out) < n; j-- {
			out = append(out, ins[j].Clone())
		}
	}
	slices.Reverse(out)
	return out
}

// Queued returns every queued notification in delivery order, due or not.
func (s *Store) Queued() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queue.all()
}

// NotificationHistory returns the delivered notifications, oldest first.
func (s *Store) NotificationHistory() []domain.DeliveredNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.sent)
}

func (s *Store) derive(record domain.ConversationRecord) []domain.Insight {
	return analyzer.Insights(record, s.analyzer.Analyze(record.Text))
}

func (s *Store) foldLocked(record domain.ConversationRecord, insights []domain.Insight) {
	p := &s.profile
	for _, in := range insights {
		switch in.Type {
		case domain.InsightSentiment:
			if in.Sentiment == nil {
				continue
			}
			if p.SentimentSamples == 0 {
				p.RollingSentiment = in.Sentiment.Score
			} else {
				p.RollingSentiment = s.alpha*in.Sentiment.Score + (1-s.alpha)*p.RollingSentiment
			}
			p.SentimentSamples++
		case domain.InsightTopic:
			for _, topic := range in.Topics {
				p.TopicCounts[topic]++
			}
		case domain.InsightActionItem:
			p.ActionItemCount++
		case domain.InsightMeetingPrep, domain.InsightFocusTime, domain.InsightWellbeing,
			domain.InsightLearning, domain.InsightSocial:
		}
	}
	p.RecordCount++
	p.UpdatedAt = s.clock.Now()

	stored := make([]domain.Insight, len(insights))
	for i, in := range insights {
		stored[i] = in.Clone()
	}
	ts := record.Timestamp
	if ts.IsZero() {
		ts = p.UpdatedAt
	}
	s.history = append(s.history, domain.HistoryEntry{
		Timestamp: ts,
		Record:    record.Clone(),
		Insights:  stored,
	})
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = slices.Clone(s.history[len(s.history)-s.historyLimit:])
	}
}

func (s *Store) generateLocked(insights []domain.Insight) []domain.Notification {
	var enqueued []domain.Notification
	for i := range insights {
		in := &insights[i]
		if !qualifies(in) {
			continue
		}
		if s.queue.hasSource(in.ID) {
			s.logger.Debug("Insight already queued, skipping", "insight_id", in.ID)
			continue
		}
		n := s.factory.Build(in, s.profile.Style)
		if n == nil {
			continue
		}
		n.UserID = s.profile.UserID
		n.TriggerTime = s.policy.TriggerTime(n.Priority, n.CreatedAt)
		s.queue.push(*n)
		enqueued = append(enqueued, *n)

		s.logger.Debug("Notification enqueued",
			"notification_id", n.ID,
			"insight_type", in.Type,
			"priority", n.Priority,
			"trigger_time", n.TriggerTime)
	}
	return enqueued
}

// qualifies reports whether an insight should produce a notification.
func qualifies(in *domain.Insight) bool {
	switch in.Type {
	case domain.InsightActionItem:
		return true
	case domain.InsightSentiment:
		return in.Sentiment != nil && in.Sentiment.Score < LowSentimentThreshold
	case domain.InsightMeetingPrep, domain.InsightFocusTime, domain.InsightWellbeing,
		domain.InsightLearning, domain.InsightSocial:
		return true
	case domain.InsightTopic:
		return false
	}
	return false
}
