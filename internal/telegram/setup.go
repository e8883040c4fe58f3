// Package telegram constructs the Telegram bot client and registers the
// mentor command handlers on it.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/go-telegram/bot"

	"github.com/edgard/mentorbot/internal/bot/handlers"
)

var ErrNoToken = errors.New("telegram bot token cannot be empty")

// NewTelegramBot creates a go-telegram client. The token prefix is logged,
// never the full token.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created", "token_prefix", tokenPrefix(token))
	return b, nil
}

// chain wraps handler so that mw[0] runs first.
func chain(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for _, m := range slices.Backward(mw) {
		handler = m(handler)
	}
	return handler
}

// RegisterHandlers registers every command with its middleware chain and
// returns how many were registered. Entries without a handler are skipped.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) (int, error) {
	if b == nil {
		return 0, errors.New("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	names := slices.Sorted(maps.Keys(registered))

	count := 0
	for _, name := range names {
		h := registered[name]
		if h.Handler == nil {
			log.Warn("Skipping command without handler", "command", name)
			continue
		}
		b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, chain(h.Handler, h.Middleware))
		log.Debug("Registered command", "command", name, "middleware_count", len(h.Middleware))
		count++
	}

	log.Info("Registered Telegram commands", "count", count)
	return count, nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}
