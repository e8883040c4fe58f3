// Package ingest moves conversation records from the transport to the
// sessions that process them.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edgard/mentorbot/internal/domain"
)

// Overflow decides what a full feed does with a new record.
type Overflow string

const (
	OverflowDropOldest Overflow = "drop_oldest"
	OverflowDropNewest Overflow = "drop_newest"
)

func (o Overflow) String() string { return string(o) }

func (o Overflow) IsValid() bool {
	switch o {
	case OverflowDropOldest, OverflowDropNewest:
		return true
	}
	return false
}

// ParseOverflow validates an overflow policy name.
func ParseOverflow(s string) (Overflow, error) {
	o := Overflow(s)
	if !o.IsValid() {
		return "", fmt.Errorf("%w: unknown overflow policy %q", domain.ErrValidation, s)
	}
	return o, nil
}

// FeedStats is a point-in-time view of a feed.
type FeedStats struct {
	Queued  int
	Dropped uint64
}

// Feed is a bounded single-consumer buffer of records. Producers never
// block; when the buffer is full the overflow policy drops a record.
type Feed struct {
	mu       sync.Mutex
	buf      []domain.ConversationRecord
	capacity int
	overflow Overflow
	closed   bool
	dropped  uint64

	notify chan struct{}
	logger *slog.Logger
}

// NewFeed creates a feed holding at most capacity records.
func NewFeed(capacity int, overflow Overflow, logger *slog.Logger) *Feed {
	if capacity < 1 {
		capacity = 1
	}
	if !overflow.IsValid() {
		overflow = OverflowDropOldest
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		buf:      make([]domain.ConversationRecord, 0, capacity),
		capacity: capacity,
		overflow: overflow,
		notify:   make(chan struct{}, 1),
		logger:   logger.With("component", "feed"),
	}
}

// Push enqueues rec. It returns domain.ErrSessionClosed after Close.
func (f *Feed) Push(rec domain.ConversationRecord) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrSessionClosed
	}

	if len(f.buf) == f.capacity {
		f.dropped++
		switch f.overflow {
		case OverflowDropNewest:
			f.mu.Unlock()
			f.logger.Warn("Feed full, dropping newest record", "record_id", rec.ID)
			return nil
		default:
			dropped := f.buf[0]
			copy(f.buf, f.buf[1:])
			f.buf = f.buf[:len(f.buf)-1]
			f.logger.Warn("Feed full, dropping oldest record", "record_id", dropped.ID)
		}
	}
	f.buf = append(f.buf, rec.Clone())
	f.mu.Unlock()

	f.wake()
	return nil
}

// Run hands records to handle one at a time until ctx is done or the feed is
// closed and drained.
func (f *Feed) Run(ctx context.Context, handle func(context.Context, domain.ConversationRecord)) error {
	for {
		rec, ok, closed := f.pop()
		if ok {
			handle(ctx, rec)
			continue
		}
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.notify:
		}
	}
}

// Close stops accepting records. Records already queued are still handed to
// Run.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.wake()
}

// Stats returns the queue length and the number of dropped records.
func (f *Feed) Stats() FeedStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedStats{Queued: len(f.buf), Dropped: f.dropped}
}

func (f *Feed) pop() (domain.ConversationRecord, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.buf) == 0 {
		return domain.ConversationRecord{}, false, f.closed
	}
	rec := f.buf[0]
	copy(f.buf, f.buf[1:])
	f.buf[len(f.buf)-1] = domain.ConversationRecord{}
	f.buf = f.buf[:len(f.buf)-1]
	return rec, true, f.closed
}

func (f *Feed) wake() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}
