package notification

import (
	"time"

	"github.com/edgard/mentorbot/internal/domain"
)

// DeliveryPolicy decides when a notification of a given priority becomes due.
type DeliveryPolicy interface {
	TriggerTime(p domain.Priority, now time.Time) time.Time
}

// DelayPolicy delays each priority by a fixed amount.
type DelayPolicy struct {
	High   time.Duration
	Medium time.Duration
	Low    time.Duration
}

// DefaultDelayPolicy delivers high priority immediately, medium after five
// minutes and low after thirty.
var DefaultDelayPolicy = DelayPolicy{
	High:   0,
	Medium: 5 * time.Minute,
	Low:    30 * time.Minute,
}

// TriggerTime implements DeliveryPolicy. Negative delays are treated as zero
// so a trigger time never precedes now.
func (d DelayPolicy) TriggerTime(p domain.Priority, now time.Time) time.Time {
	var delay time.Duration
	switch p {
	case domain.PriorityHigh:
		delay = d.High
	case domain.PriorityLow:
		delay = d.Low
	default:
		delay = d.Medium
	}
	if delay < 0 {
		delay = 0
	}
	return now.Add(delay)
}
