// Package notification builds notification records from insights and
// decides when they become due.
package notification

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/mentorbot/internal/domain"
)

// IDFunc returns a fresh, unique notification id.
type IDFunc func() string

// Factory turns insights into notifications. It holds no state beyond its
// clock and id source.
type Factory struct {
	clock clockwork.Clock
	newID IDFunc
}

// Option configures a Factory.
type Option func(*Factory)

// WithClock sets the clock used for CreatedAt.
func WithClock(c clockwork.Clock) Option {
	return func(f *Factory) { f.clock = c }
}

// WithIDFunc sets the id source.
func WithIDFunc(fn IDFunc) Option {
	return func(f *Factory) { f.newID = fn }
}

// NewFactory creates a Factory using the real clock and random UUIDs unless
// overridden.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		clock: clockwork.NewRealClock(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type content struct {
	title    string
	message  string
	priority domain.Priority
}

// Build returns the notification for insight decorated in style, or nil
// when the insight is nil or its type is not one the factory knows.
// TriggerTime and UserID are left for the caller to assign.
func (f *Factory) Build(insight *domain.Insight, style domain.MentorStyle) *domain.Notification {
	if insight == nil {
		return nil
	}
	c, ok := contentFor(insight)
	if !ok {
		return nil
	}

	return &domain.Notification{
		ID:              f.newID(),
		Title:           c.title,
		Message:         Decorate(style, c.message),
		Priority:        c.priority,
		CreatedAt:       f.clock.Now(),
		Read:            false,
		SourceInsightID: insight.ID,
	}
}

func contentFor(in *domain.Insight) (content, bool) {
	switch in.Type {
	case domain.InsightActionItem:
		p := domain.PriorityMedium
		if in.Urgent {
			p = domain.PriorityHigh
		}
		return content{"Action Item", fmt.Sprintf("Don't forget: %s.", in.Text), p}, true
	case domain.InsightMeetingPrep:
		return content{"Meeting Prep", fmt.Sprintf("Take a few minutes to prepare: %s.", in.Text), domain.PriorityHigh}, true
	case domain.InsightFocusTime:
		return content{"Focus Time", "Consider blocking out uninterrupted time for deep work.", domain.PriorityMedium}, true
	case domain.InsightWellbeing:
		return content{"Wellbeing Check", "Remember to take a break and look after yourself.", domain.PriorityMedium}, true
	case domain.InsightLearning:
		return content{"Learning Opportunity", fmt.Sprintf("You mentioned something worth learning: %s.", in.Text), domain.PriorityLow}, true
	case domain.InsightSocial:
		return content{"Stay Connected", fmt.Sprintf("A good moment to reach out: %s.", in.Text), domain.PriorityLow}, true
	case domain.InsightSentiment:
		return content{"Checking In", "It sounds like things have been tough lately. Take a moment for yourself.", domain.PriorityMedium}, true
	case domain.InsightTopic:
		msg := "Here is something from your recent conversations worth reflecting on."
		if len(in.Topics) > 0 {
			msg = fmt.Sprintf("You have been talking a lot about %s.", strings.Join(in.Topics, ", "))
		}
		return content{"Mentor Insight", msg, domain.PriorityMedium}, true
	}
	return content{}, false
}
