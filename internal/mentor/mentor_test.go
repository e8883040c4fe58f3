package mentor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/mentorbot/internal/database"
	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/ingest"
	"github.com/edgard/mentorbot/internal/profile"
	"github.com/edgard/mentorbot/internal/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type memRecorder struct {
	mu        sync.Mutex
	convs     map[string][]domain.ConversationRecord
	delivered []domain.DeliveredNotification
	failLoad  error
}

func newMemRecorder() *memRecorder {
	return &memRecorder{convs: map[string][]domain.ConversationRecord{}}
}

func (r *memRecorder) SaveConversation(_ context.Context, userID string, rec domain.ConversationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[userID] = append(r.convs[userID], rec)
	return nil
}

func (r *memRecorder) RecentConversations(_ context.Context, userID string, limit int) ([]domain.ConversationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLoad != nil {
		return nil, r.failLoad
	}
	all := r.convs[userID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

func (r *memRecorder) SaveDeliveredNotifications(_ context.Context, delivered []domain.DeliveredNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, delivered...)
	return nil
}

func (r *memRecorder) GetDeliveredNotifications(_ context.Context, userID string, limit int) ([]domain.DeliveredNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DeliveredNotification
	for i := len(r.delivered) - 1; i >= 0 && len(out) < limit; i-- {
		if r.delivered[i].UserID == userID {
			out = append(out, r.delivered[i])
		}
	}
	return out, nil
}

func (r *memRecorder) conversations(userID string) []domain.ConversationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.convs[userID])
}

func (r *memRecorder) deliveredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

type collector struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (c *collector) Dispatch(_ context.Context, n domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *collector) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, n := range c.sent {
		out[i] = n.Title
	}
	return out
}

func testDeps(disp scheduler.Dispatcher, rec Recorder, clock clockwork.Clock) Deps {
	return Deps{
		Dispatcher:   disp,
		Recorder:     rec,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:        clock,
		Scheduler:    scheduler.Config{Interval: time.Hour},
		FeedCapacity: 16,
		Overflow:     ingest.OverflowDropOldest,
		RestoreLimit: 10,

		DeliveredRestoreLimit: 10,
	}
}

func waitForRecords(t *testing.T, r profile.Reader, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Snapshot().RecordCount >= n }, 5*time.Second, 5*time.Millisecond)
}

func TestSession_EndToEnd(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(t0)
	rec := newMemRecorder()
	disp := &collector{}
	s, err := NewSession(context.Background(), "42", testDeps(disp, rec, clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.OnConversationRecord(domain.ConversationRecord{
		ID:   "r1",
		Text: "I need to finish the report by tomorrow. It was a great meeting.",
	}))
	waitForRecords(t, s.Reader(), 1)

	res := s.Tick(context.Background())
	assert.Equal(t, scheduler.TickResult{Due: 1, Sent: 1}, res)
	assert.Equal(t, []string{"Action Item"}, disp.titles())
	assert.Empty(t, s.Reader().Queued())
	assert.Len(t, s.Reader().NotificationHistory(), 1)
	assert.Len(t, rec.conversations("42"), 1)
	assert.Equal(t, 1, rec.deliveredCount())
}

func TestSession_FillsMissingIDAndTimestamp(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(t0)
	s, err := NewSession(context.Background(), "42", testDeps(&collector{}, nil, clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.OnConversationRecord(domain.ConversationRecord{Text: "quiet day"}))
	waitForRecords(t, s.Reader(), 1)

	hist := s.Reader().History()
	require.Len(t, hist, 1)
	assert.NotEmpty(t, hist[0].Record.ID)
	assert.Equal(t, t0, hist[0].Record.Timestamp)
}

func TestSession_RestoresFromRecorder(t *testing.T) {
	t.Parallel()

	rec := newMemRecorder()
	ctx := context.Background()
	require.NoError(t, rec.SaveConversation(ctx, "42", domain.ConversationRecord{ID: "old1", Text: "I need to renew my passport soon."}))
	require.NoError(t, rec.SaveConversation(ctx, "42", domain.ConversationRecord{ID: "old2", Text: "Great run at the gym."}))

	s, err := NewSession(ctx, "42", testDeps(&collector{}, rec, clockwork.NewFakeClockAt(t0)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	snap := s.Reader().Snapshot()
	assert.Equal(t, 2, snap.RecordCount)
	assert.Equal(t, 1, snap.ActionItemCount)
	assert.Empty(t, s.Reader().Queued(), "restored records must not re-notify")
}

func TestSession_RestoresDeliveredHistory(t *testing.T) {
	t.Parallel()

	rec := newMemRecorder()
	ctx := context.Background()
	for i, title := range []string{"First", "Second", "Third"} {
		require.NoError(t, rec.SaveDeliveredNotifications(ctx, []domain.DeliveredNotification{{
			Notification: domain.Notification{ID: title, UserID: "42", Title: title, Priority: domain.PriorityLow},
			SentAt:       t0.Add(time.Duration(i) * time.Minute),
		}}))
	}
	require.NoError(t, rec.SaveDeliveredNotifications(ctx, []domain.DeliveredNotification{{
		Notification: domain.Notification{ID: "other", UserID: "7", Title: "Other"},
	}}))

	deps := testDeps(&collector{}, rec, clockwork.NewFakeClockAt(t0))
	deps.DeliveredRestoreLimit = 2
	s, err := NewSession(ctx, "42", deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	hist := s.Reader().NotificationHistory()
	require.Len(t, hist, 2)
	assert.Equal(t, "Second", hist[0].Title)
	assert.Equal(t, "Third", hist[1].Title)
	assert.Empty(t, s.Reader().Queued())
}

func TestSession_DeliveredHistorySurvivesRestart(t *testing.T) {
	t.Parallel()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "mentor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	clock := clockwork.NewFakeClockAt(t0)
	first, err := NewSession(context.Background(), "42", testDeps(&collector{}, store, clock))
	require.NoError(t, err)
	require.NoError(t, first.OnConversationRecord(domain.ConversationRecord{
		ID:   "r1",
		Text: "I need to finish the report by tomorrow.",
	}))
	waitForRecords(t, first.Reader(), 1)
	require.Equal(t, 1, first.Tick(context.Background()).Sent)
	require.NoError(t, first.Close())

	second, err := NewSession(context.Background(), "42", testDeps(&collector{}, store, clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	hist := second.Reader().NotificationHistory()
	require.Len(t, hist, 1)
	assert.Equal(t, "Action Item", hist[0].Title)
	assert.Equal(t, "42", hist[0].UserID)
	assert.Empty(t, second.Reader().Queued())
	assert.Equal(t, 1, second.Reader().Snapshot().RecordCount)
}

func TestSession_RestoreFailure(t *testing.T) {
	t.Parallel()

	rec := newMemRecorder()
	rec.failLoad = errors.New("disk on fire")
	_, err := NewSession(context.Background(), "42", testDeps(&collector{}, rec, clockwork.NewFakeClockAt(t0)))
	require.Error(t, err)
}

func TestNewSession_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewSession(context.Background(), "", testDeps(&collector{}, nil, nil))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewSession(context.Background(), "42", Deps{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type backwardsPolicy struct{}

func (backwardsPolicy) TriggerTime(_ domain.Priority, now time.Time) time.Time {
	return now.Add(-time.Minute)
}

func TestSession_InvariantViolationHalts(t *testing.T) {
	t.Parallel()

	deps := testDeps(&collector{}, nil, clockwork.NewFakeClockAt(t0))
	deps.StoreOptions = []profile.Option{profile.WithPolicy(backwardsPolicy{})}
	s, err := NewSession(context.Background(), "42", deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.OnConversationRecord(domain.ConversationRecord{ID: "r1", Text: "I need to call the bank today."}))
	require.Eventually(t, s.Halted, 5*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.OnConversationRecord(domain.ConversationRecord{ID: "r2", Text: "hello"}), domain.ErrSessionHalted)

	other, err := NewSession(context.Background(), "43", testDeps(&collector{}, nil, clockwork.NewFakeClockAt(t0)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })
	require.NoError(t, other.OnConversationRecord(domain.ConversationRecord{ID: "r1", Text: "I need to call the bank today."}))
	waitForRecords(t, other.Reader(), 1)
	assert.False(t, other.Halted())
}

func TestSession_CloseDrainsAndRejects(t *testing.T) {
	t.Parallel()

	s, err := NewSession(context.Background(), "42", testDeps(&collector{}, nil, clockwork.NewFakeClockAt(t0)))
	require.NoError(t, err)

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.OnConversationRecord(domain.ConversationRecord{ID: id, Text: "ok"}))
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, 3, s.Reader().Snapshot().RecordCount)
	assert.ErrorIs(t, s.OnConversationRecord(domain.ConversationRecord{ID: "r4"}), domain.ErrSessionClosed)
}

func TestManager_RoutesPerUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager(NewSessionFactory(testDeps(&collector{}, nil, clockwork.NewFakeClockAt(t0))), 0, nil)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Ingest(ctx, "a", domain.ConversationRecord{ID: "a1", Text: "hi"}))
	require.NoError(t, m.Ingest(ctx, "a", domain.ConversationRecord{ID: "a2", Text: "hi"}))
	require.NoError(t, m.Ingest(ctx, "b", domain.ConversationRecord{ID: "b1", Text: "hi"}))
	assert.Equal(t, 2, m.Len())

	ra, err := m.Reader(ctx, "a")
	require.NoError(t, err)
	waitForRecords(t, ra, 2)

	sb, err := m.Lookup("b")
	require.NoError(t, err)
	waitForRecords(t, sb.Reader(), 1)
	assert.Equal(t, 1, sb.Reader().Snapshot().RecordCount)

	_, err = m.Lookup("nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManager_SweepClosesIdleSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager(NewSessionFactory(testDeps(&collector{}, nil, nil)), 20*time.Millisecond, nil)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Ingest(ctx, "a", domain.ConversationRecord{ID: "a1", Text: "hi"}))
	s, err := m.Lookup("a")
	require.NoError(t, err)

	m.Sweep()
	assert.Equal(t, 1, m.Len(), "fresh session must survive a sweep")

	time.Sleep(50 * time.Millisecond)
	m.Sweep()
	assert.Equal(t, 0, m.Len())
	assert.ErrorIs(t, s.OnConversationRecord(domain.ConversationRecord{ID: "a2"}), domain.ErrSessionClosed)

	require.NoError(t, m.Ingest(ctx, "a", domain.ConversationRecord{ID: "a3", Text: "back again"}))
	assert.Equal(t, 1, m.Len())
}

func TestManager_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager(NewSessionFactory(testDeps(&collector{}, nil, nil)), time.Hour, nil)
	require.NoError(t, m.Ingest(ctx, "a", domain.ConversationRecord{ID: "a1", Text: "hi"}))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
	assert.ErrorIs(t, m.Ingest(ctx, "a", domain.ConversationRecord{ID: "a2"}), domain.ErrSessionClosed)
}

func TestManager_FactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	m := NewManager(func(context.Context, string) (*Session, error) { return nil, boom }, 0, nil)
	t.Cleanup(func() { _ = m.Close() })

	err := m.Ingest(context.Background(), "a", domain.ConversationRecord{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len())
}
