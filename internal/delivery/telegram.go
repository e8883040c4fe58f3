package delivery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mentorbot/internal/domain"
)

// MessageSender is the part of *bot.Bot the Telegram channel needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramChannel sends notifications as chat messages. The notification's
// UserID is the Telegram chat id.
type TelegramChannel struct {
	sender MessageSender
}

func NewTelegramChannel(sender MessageSender) *TelegramChannel {
	return &TelegramChannel{sender: sender}
}

func (c *TelegramChannel) Dispatch(ctx context.Context, n domain.Notification) error {
	chatID, err := strconv.ParseInt(n.UserID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: user id %q is not a telegram chat id", domain.ErrValidation, n.UserID)
	}

	_, err = c.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   FormatText(n),
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatText renders a notification as plain chat text.
func FormatText(n domain.Notification) string {
	icon := "🔔"
	switch n.Priority {
	case domain.PriorityHigh:
		icon = "❗"
	case domain.PriorityLow:
		icon = "💡"
	}
	return fmt.Sprintf("%s %s\n\n%s", icon, n.Title, n.Message)
}
