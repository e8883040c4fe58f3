// Package bot wires the mentor runtime together and manages its lifecycle:
// the Telegram listener, the ingest bus subscriber and the maintenance
// scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/ingest"
	"github.com/edgard/mentorbot/internal/mentor"
)

// Bot runs every long-lived component until its context is cancelled.
type Bot struct {
	logger    *slog.Logger
	tgBot     *tgbot.Bot
	bus       *ingest.Bus
	sessions  *mentor.Manager
	scheduler *Scheduler
}

// NewBot creates the orchestrator. tgBot may be nil when the Telegram
// transport is disabled.
func NewBot(
	logger *slog.Logger,
	tgBot *tgbot.Bot,
	bus *ingest.Bus,
	sessions *mentor.Manager,
	scheduler *Scheduler,
) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		tgBot:     tgBot,
		bus:       bus,
		sessions:  sessions,
		scheduler: scheduler,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. On return all sessions are closed and the bus is shut down.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	// Subscribe before the listener starts so no early record is dropped.
	sub, err := b.bus.Subscribe(gCtx)
	if err != nil {
		return errors.Join(err, b.sessions.Close(), b.bus.Close())
	}

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")
			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped")

			if gCtx.Err() == nil {
				return errors.New("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		err := b.bus.Consume(gCtx, sub, func(ctx context.Context, userID string, rec domain.ConversationRecord) error {
			return b.sessions.Ingest(ctx, userID, rec)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("ingest bus stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start maintenance scheduler: %w", err)
		}
		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping maintenance scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping maintenance scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running")
	runErr := g.Wait()

	shutdownErr := errors.Join(b.sessions.Close(), b.bus.Close())
	if shutdownErr != nil {
		b.logger.Error("Error during shutdown", "error", shutdownErr)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", runErr)
		return runErr
	}
	b.logger.Info("Bot orchestrator stopped gracefully")
	return shutdownErr
}
