package handlers

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mentorbot/internal/analyzer"
	"github.com/edgard/mentorbot/internal/domain"
)

// NewProfileHandler returns a handler for the /profile command.
func NewProfileHandler(deps HandlerDeps) bot.HandlerFunc {
	return profileHandler{deps}.Handle
}

type profileHandler struct {
	deps HandlerDeps
}

func (h profileHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "profile")

	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Profile handler called with nil Message or From", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	userID := strconv.FormatInt(update.Message.From.ID, 10)

	r, err := h.deps.Profiles.Reader(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve profile", "user_id", userID, "error", err)
		reply(ctx, b, log, chatID, h.deps.Config.Telegram.Messages.GeneralError)
		return
	}

	reply(ctx, b, log, chatID, FormatProfile(r.Snapshot()))
	log.InfoContext(ctx, "Sent profile", "user_id", userID, "chat_id", chatID)
}

// FormatProfile renders a profile snapshot as plain text.
func FormatProfile(p domain.MentorProfile) string {
	var sb strings.Builder
	sb.WriteString("Your mentor profile\n")
	fmt.Fprintf(&sb, "Style: %s\n", p.Style)
	fmt.Fprintf(&sb, "Conversations: %d\n", p.RecordCount)
	if p.SentimentSamples == 0 {
		sb.WriteString("Mood: no data yet\n")
	} else {
		fmt.Fprintf(&sb, "Mood: %.2f (%s)\n", p.RollingSentiment, analyzer.LabelFor(p.RollingSentiment))
	}
	fmt.Fprintf(&sb, "Action items: %d\n", p.ActionItemCount)

	type topicCount struct {
		name  string
		count int
	}
	topics := make([]topicCount, 0, len(p.TopicCounts))
	for name, count := range p.TopicCounts {
		topics = append(topics, topicCount{name, count})
	}
	slices.SortFunc(topics, func(a, b topicCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	if len(topics) == 0 {
		sb.WriteString("Top topics: none yet")
		return sb.String()
	}
	parts := make([]string, len(topics))
	for i, tc := range topics {
		parts[i] = fmt.Sprintf("%s (%d)", tc.name, tc.count)
	}
	sb.WriteString("Top topics: " + strings.Join(parts, ", "))
	return sb.String()
}
