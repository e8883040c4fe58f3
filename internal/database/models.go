package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/edgard/mentorbot/internal/domain"
)

// Conversation is a persisted conversation record. Participants is stored as
// a JSON array.
type Conversation struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Text         string    `db:"text"`
	Timestamp    time.Time `db:"timestamp"`
	Participants string    `db:"participants"`
	CreatedAt    time.Time `db:"created_at"`
}

func conversationFromRecord(userID string, rec domain.ConversationRecord, now time.Time) (Conversation, error) {
	participants := rec.Participants
	if participants == nil {
		participants = []string{}
	}
	raw, err := json.Marshal(participants)
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to encode participants: %w", err)
	}
	return Conversation{
		ID:           rec.ID,
		UserID:       userID,
		Text:         rec.Text,
		Timestamp:    rec.Timestamp.UTC(),
		Participants: string(raw),
		CreatedAt:    now,
	}, nil
}

// Record converts the row back into a conversation record.
func (c Conversation) Record() (domain.ConversationRecord, error) {
	rec := domain.ConversationRecord{ID: c.ID, Text: c.Text, Timestamp: c.Timestamp.UTC()}
	if err := json.Unmarshal([]byte(c.Participants), &rec.Participants); err != nil {
		return domain.ConversationRecord{}, fmt.Errorf("failed to decode participants of %s: %w", c.ID, err)
	}
	if len(rec.Participants) == 0 {
		rec.Participants = nil
	}
	return rec, nil
}

// DeliveredNotification is a persisted notification that reached a user.
type DeliveredNotification struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Title           string    `db:"title"`
	Message         string    `db:"message"`
	Priority        string    `db:"priority"`
	TriggerTime     time.Time `db:"trigger_time"`
	CreatedAt       time.Time `db:"created_at"`
	SourceInsightID string    `db:"source_insight_id"`
	SentAt          time.Time `db:"sent_at"`
}

func deliveredFromDomain(d domain.DeliveredNotification) DeliveredNotification {
	return DeliveredNotification{
		ID:              d.ID,
		UserID:          d.UserID,
		Title:           d.Title,
		Message:         d.Message,
		Priority:        d.Priority.String(),
		TriggerTime:     d.TriggerTime.UTC(),
		CreatedAt:       d.CreatedAt.UTC(),
		SourceInsightID: d.SourceInsightID,
		SentAt:          d.SentAt.UTC(),
	}
}

// Domain converts the row back into the domain type.
func (d DeliveredNotification) Domain() domain.DeliveredNotification {
	return domain.DeliveredNotification{
		Notification: domain.Notification{
			ID:              d.ID,
			UserID:          d.UserID,
			Title:           d.Title,
			Message:         d.Message,
			Priority:        domain.Priority(d.Priority),
			TriggerTime:     d.TriggerTime.UTC(),
			CreatedAt:       d.CreatedAt.UTC(),
			SourceInsightID: d.SourceInsightID,
		},
		SentAt: d.SentAt.UTC(),
	}
}
