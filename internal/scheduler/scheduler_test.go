package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/profile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeQueue struct {
	mu      sync.Mutex
	items   []domain.Notification
	batches [][]string
}

func newFakeQueue(ids ...string) *fakeQueue {
	q := &fakeQueue{}
	for _, id := range ids {
		q.items = append(q.items, domain.Notification{ID: id, UserID: "u", Priority: domain.PriorityHigh, TriggerTime: t0})
	}
	return q
}

func (q *fakeQueue) PendingNotifications(now time.Time) []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []domain.Notification
	for _, n := range q.items {
		if !n.TriggerTime.After(now) {
			out = append(out, n)
		}
	}
	return out
}

func (q *fakeQueue) MarkSent(ids []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.batches = append(q.batches, slices.Clone(ids))
	before := len(q.items)
	q.items = slices.DeleteFunc(q.items, func(n domain.Notification) bool {
		return slices.Contains(ids, n.ID)
	})
	return before - len(q.items)
}

func (q *fakeQueue) markBatches() [][]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.batches)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	panic map[string]bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n domain.Notification) error {
	d.mu.Lock()
	d.calls = append(d.calls, n.ID)
	err := d.fail[n.ID]
	p := d.panic[n.ID]
	d.mu.Unlock()
	if p {
		panic("channel exploded")
	}
	return err
}

func (d *recordingDispatcher) setFail(id string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail == nil {
		d.fail = map[string]error{}
	}
	if err == nil {
		delete(d.fail, id)
		return
	}
	d.fail[id] = err
}

func (d *recordingDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *recordingDispatcher) callList() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

func TestTick_DispatchesInQueueOrder(t *testing.T) {
	t.Parallel()

	q := newFakeQueue("a", "b", "c")
	d := &recordingDispatcher{}
	s := New(q, d, Config{MaxConcurrentDispatch: 1}, WithClock(clockwork.NewFakeClockAt(t0)))

	res := s.Tick(context.Background())

	assert.Equal(t, TickResult{Due: 3, Sent: 3}, res)
	assert.Equal(t, []string{"a", "b", "c"}, d.callList())
	assert.Equal(t, [][]string{{"a", "b", "c"}}, q.markBatches())
}

func TestTick_EmptyQueue(t *testing.T) {
	t.Parallel()

	q := newFakeQueue()
	s := New(q, &recordingDispatcher{}, Config{}, WithClock(clockwork.NewFakeClockAt(t0)))

	assert.Equal(t, TickResult{}, s.Tick(context.Background()))
	assert.Empty(t, q.markBatches())
}

func TestTick_FailureIsRetriedNextTick(t *testing.T) {
	t.Parallel()

	q := newFakeQueue("a", "b", "c")
	d := &recordingDispatcher{}
	d.setFail("b", errors.New("channel unavailable"))
	s := New(q, d, Config{}, WithClock(clockwork.NewFakeClockAt(t0)))

	res := s.Tick(context.Background())
	assert.Equal(t, TickResult{Due: 3, Sent: 2, Failed: 1}, res)
	require.Len(t, q.markBatches(), 1)
	assert.ElementsMatch(t, []string{"a", "c"}, q.markBatches()[0])

	d.setFail("b", nil)
	res = s.Tick(context.Background())
	assert.Equal(t, TickResult{Due: 1, Sent: 1}, res)
	assert.Equal(t, []string{"b"}, q.markBatches()[1])

	assert.Equal(t, TickResult{}, s.Tick(context.Background()))
}

func TestTick_PanickingDispatchCountsAsFailure(t *testing.T) {
	t.Parallel()

	q := newFakeQueue("a", "b")
	d := &recordingDispatcher{panic: map[string]bool{"a": true}}
	s := New(q, d, Config{}, WithClock(clockwork.NewFakeClockAt(t0)))

	res := s.Tick(context.Background())
	assert.Equal(t, TickResult{Due: 2, Sent: 1, Failed: 1}, res)
	assert.Equal(t, [][]string{{"b"}}, q.markBatches())
}

func TestTick_DispatchesConcurrently(t *testing.T) {
	t.Parallel()

	const n = 3
	q := newFakeQueue("a", "b", "c")
	var started sync.WaitGroup
	started.Add(n)
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()

	d := DispatcherFunc(func(ctx context.Context, _ domain.Notification) error {
		started.Done()
		select {
		case <-release:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("dispatches were serialized")
		}
	})
	s := New(q, d, Config{}, WithClock(clockwork.NewFakeClockAt(t0)))

	res := s.Tick(context.Background())
	assert.Equal(t, TickResult{Due: n, Sent: n}, res)
}

func TestTick_SentHook(t *testing.T) {
	t.Parallel()

	q := newFakeQueue("a", "b")
	d := &recordingDispatcher{}
	d.setFail("a", errors.New("nope"))

	var got []domain.Notification
	s := New(q, d, Config{},
		WithClock(clockwork.NewFakeClockAt(t0)),
		WithSentHook(func(_ context.Context, sent []domain.Notification) { got = sent }),
	)
	s.Tick(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestTick_WithProfileStore(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(t0)
	store := profile.New("user-1", profile.WithClock(clock))
	store.GenerateNotifications([]domain.Insight{
		{ID: "r/1", Type: domain.InsightSocial, Text: "call an old friend"},
		{ID: "r/2", Type: domain.InsightActionItem, Text: "file the taxes today", Urgent: true},
		{ID: "r/3", Type: domain.InsightWellbeing, Text: "so tired"},
	})

	var mu sync.Mutex
	var titles []string
	d := DispatcherFunc(func(_ context.Context, n domain.Notification) error {
		mu.Lock()
		defer mu.Unlock()
		titles = append(titles, n.Title)
		return nil
	})
	s := New(store, d, Config{MaxConcurrentDispatch: 1}, WithClock(clock))

	assert.Equal(t, TickResult{Due: 1, Sent: 1}, s.Tick(context.Background()))
	clock.Advance(5 * time.Minute)
	assert.Equal(t, TickResult{Due: 1, Sent: 1}, s.Tick(context.Background()))
	clock.Advance(25 * time.Minute)
	assert.Equal(t, TickResult{Due: 1, Sent: 1}, s.Tick(context.Background()))

	assert.Equal(t, []string{"Action Item", "Wellbeing Check", "Stay Connected"}, titles)
	assert.Empty(t, store.Queued())
	assert.Len(t, store.NotificationHistory(), 3)
}

func TestScheduler_StartStopLifecycle(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	var seq atomic.Int64
	refill := func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		id := fmt.Sprintf("n%d", seq.Add(1))
		q.items = append(q.items, domain.Notification{ID: id, Priority: domain.PriorityHigh, TriggerTime: t0})
	}
	refill()

	d := &recordingDispatcher{}
	s := New(q, DispatcherFunc(func(ctx context.Context, n domain.Notification) error {
		refill()
		return d.Dispatch(ctx, n)
	}), Config{Interval: 10 * time.Millisecond})

	assert.False(t, s.Running())
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return d.callCount() >= 3 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.Running())
	calls := d.callCount()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, d.callCount(), "no tick may fire after Stop returns")
	require.NoError(t, s.Stop(), "second stop is a no-op")

	require.NoError(t, s.Start(), "a stopped scheduler can be restarted")
	require.Eventually(t, func() bool { return d.callCount() > calls }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestScheduler_StopWaitsForInflightTick(t *testing.T) {
	t.Parallel()

	q := newFakeQueue("slow")
	var inflight atomic.Int32
	entered := make(chan struct{}, 1)
	d := DispatcherFunc(func(ctx context.Context, _ domain.Notification) error {
		inflight.Add(1)
		defer inflight.Add(-1)
		select {
		case entered <- struct{}{}:
		default:
		}
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	s := New(q, d, Config{Interval: 10 * time.Millisecond})

	require.NoError(t, s.Start())
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("tick never started")
	}
	require.NoError(t, s.Stop())
	assert.Equal(t, int32(0), inflight.Load())
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(newFakeQueue(), &recordingDispatcher{}, Config{MaxConcurrentDispatch: -4})
	assert.Equal(t, DefaultInterval, s.cfg.Interval)
	assert.Equal(t, 0, s.cfg.MaxConcurrentDispatch)
	assert.False(t, s.Running())
}
