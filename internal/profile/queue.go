package profile

import (
	"fmt"
	"slices"
	"time"

	"github.com/edgard/mentorbot/internal/domain"
)

type queued struct {
	n   domain.Notification
	seq uint64
}

// queue keeps notifications sorted by delivery order: priority rank, then
// trigger time, then insertion sequence.
type queue struct {
	items   []queued
	ids     map[string]struct{}
	nextSeq uint64
}

func newQueue() *queue {
	return &queue{ids: make(map[string]struct{})}
}

// push panics on a duplicate id or an impossible trigger time. Both mean the
// producer is broken.
func (q *queue) push(n domain.Notification) {
	if n.ID == "" {
		panic("profile: notification without id")
	}
	if _, dup := q.ids[n.ID]; dup {
		panic(fmt.Sprintf("profile: duplicate notification id %q", n.ID))
	}
	if n.TriggerTime.IsZero() {
		panic(fmt.Sprintf("profile: notification %q has no trigger time", n.ID))
	}
	if n.TriggerTime.Before(n.CreatedAt) {
		panic(fmt.Sprintf("profile: notification %q triggers at %s before creation at %s",
			n.ID, n.TriggerTime.Format(time.RFC3339Nano), n.CreatedAt.Format(time.RFC3339Nano)))
	}

	q.ids[n.ID] = struct{}{}
	q.items = append(q.items, queued{n: n, seq: q.nextSeq})
	q.nextSeq++
	q.sort()
}

func (q *queue) sort() {
	slices.SortStableFunc(q.items, func(a, b queued) int {
		if d := a.n.Priority.Rank() - b.n.Priority.Rank(); d != 0 {
			return d
		}
		if c := a.n.TriggerTime.Compare(b.n.TriggerTime); c != 0 {
			return c
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
}

func (q *queue) due(now time.Time) []domain.Notification {
	out := []domain.Notification{}
	for _, it := range q.items {
		if !it.n.TriggerTime.After(now) {
			out = append(out, it.n)
		}
	}
	return out
}

// remove drops the given ids and returns the removed notifications in queue
// order. Unknown ids are ignored.
func (q *queue) remove(ids []string) []domain.Notification {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := q.ids[id]; ok {
			want[id] = struct{}{}
		}
	}
	if len(want) == 0 {
		return nil
	}

	removed := make([]domain.Notification, 0, len(want))
	kept := q.items[:0]
	for _, it := range q.items {
		if _, drop := want[it.n.ID]; drop {
			removed = append(removed, it.n)
			delete(q.ids, it.n.ID)
			continue
		}
		kept = append(kept, it)
	}
	clear(q.items[len(kept):])
	q.items = kept
	return removed
}

func (q *queue) hasSource(insightID string) bool {
	if insightID == "" {
		return false
	}
	for _, it := range q.items {
		if it.n.SourceInsightID == insightID {
			return true
		}
	}
	return false
}

func (q *queue) all() []domain.Notification {
	out := make([]domain.Notification, len(q.items))
	for i, it := range q.items {
		out[i] = it.n
	}
	return out
}

func (q *queue) size() int { return len(q.items) }
