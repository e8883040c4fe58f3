package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/edgard/mentorbot/internal/analyzer"
	"github.com/edgard/mentorbot/internal/bot"
	"github.com/edgard/mentorbot/internal/bot/handlers"
	"github.com/edgard/mentorbot/internal/bot/tasks"
	"github.com/edgard/mentorbot/internal/config"
	"github.com/edgard/mentorbot/internal/database"
	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/ingest"
	"github.com/edgard/mentorbot/internal/logger"
	"github.com/edgard/mentorbot/internal/mentor"
	"github.com/edgard/mentorbot/internal/notification"
	"github.com/edgard/mentorbot/internal/profile"
	"github.com/edgard/mentorbot/internal/scheduler"
	"github.com/edgard/mentorbot/internal/telegram"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the mentor: ingest conversations and deliver notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

// serve initializes every component, runs until ctx is cancelled and shuts
// down in reverse order.
func serve(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}

	log, closeLog := logger.NewLogger(logger.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer func() { _ = closeLog() }()
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON, "file", cfg.Log.File)

	db, store, err := openStore(ctx, cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)

	bus := ingest.NewBus(cfg.Bus.Topic, cfg.Bus.BufferSize, log)
	hDeps := handlers.HandlerDeps{Logger: log, Config: cfg, Records: bus}

	var tg *tgbot.Bot
	if cfg.Telegram.Enabled {
		tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log,
			tgbot.WithMiddlewares(logger.Middleware(log)),
			tgbot.WithDefaultHandler(handlers.NewIngressHandler(hDeps)),
		)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return err
		}
	}

	dispatcher, closeDelivery, err := buildDispatcher(ctx, cfg, tg, log)
	if err != nil {
		log.Error("Failed to set up delivery channels", "error", err)
		return err
	}
	defer closeDelivery()

	sessions := mentor.NewManager(mentor.NewSessionFactory(sessionDeps(cfg, dispatcher, store, log)), cfg.Mentor.IdleTimeout, log)

	if tg != nil {
		hDeps.Profiles = sessions
		if _, err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
			log.Error("Failed to register Telegram handlers", "error", err)
			return err
		}
	}

	sched, err := bot.NewScheduler(log, &cfg.Maintenance, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Sessions: sessions,
		Config:   cfg,
	}))
	if err != nil {
		log.Error("Failed to create maintenance scheduler", "error", err)
		return err
	}

	log.Info("Starting mentor...")
	runErr := bot.NewBot(log, tg, bus, sessions, sched).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Mentor stopped due to error", "error", runErr)
		return fmt.Errorf("mentor stopped: %w", runErr)
	}
	log.Info("Mentor stopped gracefully")
	return nil
}

// openStore connects to the database, applies migrations and checks the
// connection before anything depends on it.
func openStore(ctx context.Context, path string, log *slog.Logger) (*sqlx.DB, database.Store, error) {
	db, err := database.NewDB(path)
	if err != nil {
		return nil, nil, err
	}
	store := database.NewStore(db, log)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		database.CloseDB(db)
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, store, nil
}

// sessionDeps builds the per-session dependencies from configuration.
func sessionDeps(cfg *config.Config, dispatcher scheduler.Dispatcher, recorder mentor.Recorder, log *slog.Logger) mentor.Deps {
	policy := notification.DelayPolicy{
		High:   cfg.Policy.HighDelay,
		Medium: cfg.Policy.MediumDelay,
		Low:    cfg.Policy.LowDelay,
	}
	return mentor.Deps{
		Dispatcher: dispatcher,
		Recorder:   recorder,
		Logger:     log,
		StoreOptions: []profile.Option{
			profile.WithStyle(domain.MentorStyle(cfg.Mentor.DefaultStyle)),
			profile.WithHistoryLimit(cfg.Mentor.HistoryLimit),
			profile.WithSentHistoryLimit(cfg.Mentor.SentHistoryLimit),
			profile.WithSentimentAlpha(cfg.Mentor.SentimentAlpha),
			profile.WithPolicy(policy),
			profile.WithAnalyzer(analyzer.New(analyzer.WithMaxTopics(cfg.Mentor.MaxTopics))),
		},
		Scheduler: scheduler.Config{
			Interval:              cfg.Scheduler.Interval,
			StopTimeout:           cfg.Scheduler.StopTimeout,
			MaxConcurrentDispatch: cfg.Scheduler.MaxConcurrentDispatch,
		},
		FeedCapacity: cfg.Feed.Capacity,
		Overflow:     ingest.Overflow(cfg.Feed.Overflow),
		RestoreLimit: cfg.Database.RestoreLimit,

		DeliveredRestoreLimit: deliveredRestoreLimit(cfg.Mentor.SentHistoryLimit),
	}
}

// deliveredRestoreLimit maps the in-memory sent history bound to the number
// of archived notifications read back for a new session.
func deliveredRestoreLimit(sentHistoryLimit int) int {
	if sentHistoryLimit <= 0 {
		return database.MaxRecentConversations
	}
	return sentHistoryLimit
}
