package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mentorbot/internal/domain"
)

// NewPendingHandler returns a handler for the /pending command.
func NewPendingHandler(deps HandlerDeps) bot.HandlerFunc {
	return pendingHandler{deps}.Handle
}

type pendingHandler struct {
	deps HandlerDeps
}

func (h pendingHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "pending")

	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Pending handler called with nil Message or From", "update_id", update.ID)
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

	queued := r.Queued()
	if len(queued) == 0 {
		reply(ctx, b, log, chatID, h.deps.Config.Telegram.Messages.NoPending)
		return
	}
	reply(ctx, b, log, chatID, FormatPending(queued))
	log.InfoContext(ctx, "Sent pending notifications", "user_id", userID, "count", len(queued))
}

// FormatPending renders queued notifications in delivery order.
func FormatPending(queued []domain.Notification) string {
	lines := make([]string, 0, len(queued)+1)
	lines = append(lines, fmt.Sprintf("Pending notifications (%d):", len(queued)))
	for _, n := range queued {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s (due %s)",
			n.Priority, n.Title, n.Message, n.TriggerTime.UTC().Format("2006-01-02 15:04 UTC")))
	}
	return strings.Join(lines, "\n")
}
