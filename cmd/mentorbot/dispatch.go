package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/mentorbot/internal/config"
	"github.com/edgard/mentorbot/internal/delivery"
)

// buildDispatcher connects every configured delivery channel and fans out
// to them. The returned function releases the connections it opened.
func buildDispatcher(ctx context.Context, cfg *config.Config, tg *tgbot.Bot, log *slog.Logger) (*delivery.Fanout, func(), error) {
	platform, err := delivery.ParsePlatform(cfg.Delivery.Platform)
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	named := make([]delivery.Named, 0, len(cfg.Delivery.Channels))
	for _, name := range cfg.Delivery.Channels {
		var ch delivery.Channel
		switch name {
		case "log":
			ch = delivery.NewLogChannel(log)
		case "telegram":
			if tg == nil {
				cleanup()
				return nil, nil, errors.New("telegram delivery requires the telegram transport")
			}
			ch = delivery.NewTelegramChannel(tg)
		case "nats":
			nc, js, err := delivery.ConnectNATS(ctx, cfg.Delivery.NATS.URL, cfg.Delivery.NATS.Stream, cfg.Delivery.NATS.SubjectPrefix)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			closers = append(closers, func() {
				if err := nc.Drain(); err != nil {
					log.Warn("Failed to drain NATS connection", "error", err)
				}
			})
			ch = delivery.NewNATSChannel(js, cfg.Delivery.NATS.SubjectPrefix, platform)
		case "redis":
			rdb, err := delivery.NewRedisClient(ctx, cfg.Delivery.Redis.Addr, cfg.Delivery.Redis.Password, cfg.Delivery.Redis.DB)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			closers = append(closers, func() {
				if err := rdb.Close(); err != nil {
					log.Warn("Failed to close redis client", "error", err)
				}
			})
			ch = delivery.NewRedisChannel(rdb, cfg.Delivery.Redis.ChannelPrefix, platform)
		default:
			cleanup()
			return nil, nil, fmt.Errorf("%w: unknown delivery channel %q", config.ErrConfiguration, name)
		}
		if cfg.Delivery.Timeout > 0 {
			ch = delivery.WithTimeout(ch, cfg.Delivery.Timeout)
		}
		named = append(named, delivery.Named{Name: name, Channel: ch})
		log.Info("Delivery channel enabled", "channel", name)
	}

	return delivery.NewFanout(log, named...), cleanup, nil
}
