package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mentorbot/internal/domain"
)

// NewIngressHandler returns the default handler. It turns every plain text
// message of an authorized user into a conversation record on the bus.
func NewIngressHandler(deps HandlerDeps) bot.HandlerFunc {
	return ingressHandler{deps}.Handle
}

type ingressHandler struct {
	deps HandlerDeps
}

func (h ingressHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "ingress")

	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	if strings.TrimSpace(msg.Text) == "" || strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring non-text or command message", "update_id", update.ID)
		return
	}
	if !h.deps.Config.IsUserAuthorized(msg.From.ID) {
		log.WarnContext(ctx, "Unauthorized message", "user_id", msg.From.ID, "chat_id", msg.Chat.ID)
		reply(ctx, b, log, msg.Chat.ID, h.deps.Config.Telegram.Messages.NotAuthorized)
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	rec := RecordFromMessage(msg)
	if err := h.deps.Records.Publish(userID, rec); err != nil {
		log.ErrorContext(ctx, "Failed to publish record", "user_id", userID, "record_id", rec.ID, "error", err)
		reply(ctx, b, log, msg.Chat.ID, h.deps.Config.Telegram.Messages.GeneralError)
		return
	}
	log.DebugContext(ctx, "Record published", "user_id", userID, "record_id", rec.ID)
}

// RecordFromMessage converts a Telegram message into a conversation record.
func RecordFromMessage(msg *models.Message) domain.ConversationRecord {
	rec := domain.ConversationRecord{
		ID:        fmt.Sprintf("tg-%d-%d", msg.Chat.ID, msg.ID),
		Text:      msg.Text,
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
	}
	if msg.From != nil {
		name := msg.From.Username
		if name == "" {
			name = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		}
		if name != "" {
			rec.Participants = []string{name}
		}
	}
	return rec
}
