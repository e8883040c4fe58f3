// Package domain holds the value types shared by the analyzer, the profile
// store, the scheduler and the delivery channels.
package domain

import (
	"slices"
	"time"
)

// ConversationRecord is one transcribed conversation snippet as produced by
// the transport. It is never modified after creation.
type ConversationRecord struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	Participants []string  `json:"participants,omitempty"`
}

// Clone returns a copy that shares no slices with r.
func (r ConversationRecord) Clone() ConversationRecord {
	r.Participants = slices.Clone(r.Participants)
	return r
}

// Sentiment is a score in [0,1] with its label.
type Sentiment struct {
	Score float64        `json:"score"`
	Label SentimentLabel `json:"label"`
}

// NeutralSentiment is returned for text with no scorable tokens.
var NeutralSentiment = Sentiment{Score: 0.5, Label: SentimentNeutral}

// Insight is a structured fact derived from one conversation record.
// Which payload field is set depends on Type:
//   - action_item and the cue types (meeting_prep, focus_time, wellbeing,
//     learning, social) carry Text; action items also carry Urgent
//   - sentiment carries Sentiment
//   - topic carries Topics
type Insight struct {
	ID        string      `json:"id"`
	Type      InsightType `json:"type"`
	RecordID  string      `json:"record_id"`
	CreatedAt time.Time   `json:"created_at"`

	Text      string     `json:"text,omitempty"`
	Urgent    bool       `json:"urgent,omitempty"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	Topics    []string   `json:"topics,omitempty"`
}

// Clone returns a deep copy of the insight.
func (i Insight) Clone() Insight {
	if i.Sentiment != nil {
		s := *i.Sentiment
		i.Sentiment = &s
	}
	i.Topics = slices.Clone(i.Topics)
	return i
}

// Notification is a message queued for delivery to a user.
// SourceInsightID only traces the insight that produced it.
type Notification struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Priority        Priority  `json:"priority"`
	TriggerTime     time.Time `json:"trigger_time"`
	CreatedAt       time.Time `json:"created_at"`
	Read            bool      `json:"read"`
	SourceInsightID string    `json:"source_insight_id,omitempty"`
}

// DeliveredNotification is a notification acknowledged by the scheduler.
type DeliveredNotification struct {
	Notification
	SentAt time.Time `json:"sent_at"`
}

// HistoryEntry is one processed record with the insights derived from it.
type HistoryEntry struct {
	Timestamp time.Time          `json:"timestamp"`
	Record    ConversationRecord `json:"record"`
	Insights  []Insight          `json:"insights"`
}

// Clone returns a deep copy of the entry.
func (e HistoryEntry) Clone() HistoryEntry {
	e.Record = e.Record.Clone()
	insights := make([]Insight, len(e.Insights))
	for i, in := range e.Insights {
		insights[i] = in.Clone()
	}
	e.Insights = insights
	return e
}

// MentorProfile is the aggregated state kept for one user.
type MentorProfile struct {
	UserID           string         `json:"user_id"`
	Style            MentorStyle    `json:"style"`
	TopicCounts      map[string]int `json:"topic_counts"`
	RollingSentiment float64        `json:"rolling_sentiment"`
	SentimentSamples int            `json:"sentiment_samples"`
	ActionItemCount  int            `json:"action_item_count"`
	RecordCount      int            `json:"record_count"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
