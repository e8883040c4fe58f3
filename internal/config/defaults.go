package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel      = "info"
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 30

	DefaultDBPath       = "mentorbot.db"
	DefaultDBRetention  = 30 * 24 * time.Hour
	DefaultRestoreLimit = 50

	DefaultMentorStyle      = "default"
	DefaultHistoryLimit     = 200
	DefaultSentHistoryLimit = 100
	DefaultSentimentAlpha   = 0.3
	DefaultMaxTopics        = 3
	DefaultIdleTimeout      = 24 * time.Hour

	DefaultSchedulerInterval    = 60 * time.Second
	DefaultSchedulerStopTimeout = 10 * time.Second

	DefaultHighDelay   = 0
	DefaultMediumDelay = 5 * time.Minute
	DefaultLowDelay    = 30 * time.Minute

	DefaultFeedCapacity = 64
	DefaultFeedOverflow = "drop_oldest"

	DefaultBusTopic      = "conversation.records"
	DefaultBusBufferSize = 64

	DefaultDeliveryPlatform = "android"
	DefaultDeliveryTimeout  = 10 * time.Second
	DefaultNATSStream       = "MENTOR_NOTIFICATIONS"
	DefaultNATSSubject      = "mentor.notifications"
	DefaultRedisChannel     = "mentor:notifications"
)

// Default bot messages
var DefaultTelegramMessages = TelegramMessages{
	Welcome:       "👋 Hi! Talk to me as you go about your day and I'll nudge you about what matters.",
	NotAuthorized: "🚫 Access denied. Please contact the administrator.",
	GeneralError:  "❌ An error occurred. Please try again later.",
	NoPending:     "✅ Nothing queued right now.",
}

// DefaultMaintenanceTasks are registered under these names by the bot.
var DefaultMaintenanceTasks = map[string]any{
	"sql_maintenance":        map[string]any{"enabled": true, "schedule": "0 0 4 * * 0"},
	"notification_retention": map[string]any{"enabled": true, "schedule": "0 30 3 * * *"},
	"session_expiry":         map[string]any{"enabled": true, "schedule": "0 * * * * *"},
}

// setDefaults sets default values for every key so env overrides resolve.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAgeDays)
	v.SetDefault("log.compress", true)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.retention", DefaultDBRetention)
	v.SetDefault("database.restore_limit", DefaultRestoreLimit)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.allowed_user_ids", []int64{})
	v.SetDefault("telegram.messages.welcome", DefaultTelegramMessages.Welcome)
	v.SetDefault("telegram.messages.not_authorized", DefaultTelegramMessages.NotAuthorized)
	v.SetDefault("telegram.messages.general_error", DefaultTelegramMessages.GeneralError)
	v.SetDefault("telegram.messages.no_pending", DefaultTelegramMessages.NoPending)

	v.SetDefault("mentor.default_style", DefaultMentorStyle)
	v.SetDefault("mentor.history_limit", DefaultHistoryLimit)
	v.SetDefault("mentor.sent_history_limit", DefaultSentHistoryLimit)
	v.SetDefault("mentor.sentiment_alpha", DefaultSentimentAlpha)
	v.SetDefault("mentor.max_topics", DefaultMaxTopics)
	v.SetDefault("mentor.idle_timeout", DefaultIdleTimeout)

	v.SetDefault("scheduler.interval", DefaultSchedulerInterval)
	v.SetDefault("scheduler.stop_timeout", DefaultSchedulerStopTimeout)
	v.SetDefault("scheduler.max_concurrent_dispatch", 0)

	v.SetDefault("policy.high_delay", time.Duration(DefaultHighDelay))
	v.SetDefault("policy.medium_delay", DefaultMediumDelay)
	v.SetDefault("policy.low_delay", DefaultLowDelay)

	v.SetDefault("feed.capacity", DefaultFeedCapacity)
	v.SetDefault("feed.overflow", DefaultFeedOverflow)

	v.SetDefault("bus.topic", DefaultBusTopic)
	v.SetDefault("bus.buffer_size", DefaultBusBufferSize)

	v.SetDefault("delivery.channels", []string{"log"})
	v.SetDefault("delivery.platform", DefaultDeliveryPlatform)
	v.SetDefault("delivery.timeout", DefaultDeliveryTimeout)
	v.SetDefault("delivery.nats.url", "")
	v.SetDefault("delivery.nats.stream", DefaultNATSStream)
	v.SetDefault("delivery.nats.subject_prefix", DefaultNATSSubject)
	v.SetDefault("delivery.redis.addr", "")
	v.SetDefault("delivery.redis.password", "")
	v.SetDefault("delivery.redis.db", 0)
	v.SetDefault("delivery.redis.channel_prefix", DefaultRedisChannel)

	v.SetDefault("maintenance.tasks", DefaultMaintenanceTasks)
}
