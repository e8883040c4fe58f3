package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/mentorbot/internal/config"
	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/profile"
)

// RecordPublisher hands a conversation record to the ingest bus.
type RecordPublisher interface {
	Publish(userID string, rec domain.ConversationRecord) error
}

// ProfileSource resolves the read-only profile of a user.
type ProfileSource interface {
	Reader(ctx context.Context, userID string) (profile.Reader, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Records  RecordPublisher
	Profiles ProfileSource
}
