// Package config loads MentorBot configuration from a YAML file, MENTOR_*
// environment variables and built-in defaults, and validates it.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config is the full application configuration.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Mentor      MentorConfig      `mapstructure:"mentor"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Policy      PolicyConfig      `mapstructure:"policy"`
	Feed        FeedConfig        `mapstructure:"feed"`
	Bus         BusConfig         `mapstructure:"bus"`
	Delivery    DeliveryConfig    `mapstructure:"delivery"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"        validate:"oneof=debug info warn error"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups"  validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// Retention is how long delivered notifications are kept.
	Retention time.Duration `mapstructure:"retention" validate:"min=0"`
	// RestoreLimit is how many recent conversations rebuild a new session.
	RestoreLimit int `mapstructure:"restore_limit" validate:"min=0"`
}

type TelegramConfig struct {
	Enabled        bool             `mapstructure:"enabled"`
	Token          string           `mapstructure:"token"            validate:"required_if=Enabled true"`
	AdminID        int64            `mapstructure:"admin_id"         validate:"min=0"`
	AllowedUserIDs []int64          `mapstructure:"allowed_user_ids"`
	Messages       TelegramMessages `mapstructure:"messages"`
}

type TelegramMessages struct {
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	NotAuthorized string `mapstructure:"not_authorized" validate:"required"`
	GeneralError  string `mapstructure:"general_error"  validate:"required"`
	NoPending     string `mapstructure:"no_pending"     validate:"required"`
}

type MentorConfig struct {
	DefaultStyle     string        `mapstructure:"default_style"      validate:"oneof=supportive_coach direct_advisor analytical_guide friendly_companion productivity_expert default"`
	HistoryLimit     int           `mapstructure:"history_limit"      validate:"min=0"`
	SentHistoryLimit int           `mapstructure:"sent_history_limit" validate:"min=0"`
	SentimentAlpha   float64       `mapstructure:"sentiment_alpha"    validate:"gt=0,lte=1"`
	MaxTopics        int           `mapstructure:"max_topics"         validate:"min=1"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"       validate:"min=0"`
}

type SchedulerConfig struct {
	Interval              time.Duration `mapstructure:"interval"                validate:"gt=0"`
	StopTimeout           time.Duration `mapstructure:"stop_timeout"            validate:"min=0"`
	MaxConcurrentDispatch int           `mapstructure:"max_concurrent_dispatch" validate:"min=0"`
}

type PolicyConfig struct {
	HighDelay   time.Duration `mapstructure:"high_delay"   validate:"min=0"`
	MediumDelay time.Duration `mapstructure:"medium_delay" validate:"min=0"`
	LowDelay    time.Duration `mapstructure:"low_delay"    validate:"min=0"`
}

type FeedConfig struct {
	Capacity int    `mapstructure:"capacity" validate:"min=1"`
	Overflow string `mapstructure:"overflow" validate:"oneof=drop_oldest drop_newest"`
}

type BusConfig struct {
	Topic      string `mapstructure:"topic"       validate:"required"`
	BufferSize int64  `mapstructure:"buffer_size" validate:"min=0"`
}

type DeliveryConfig struct {
	Channels []string      `mapstructure:"channels" validate:"min=1,dive,oneof=log telegram nats redis"`
	Platform string        `mapstructure:"platform" validate:"oneof=ios android"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"min=0"`
	NATS     NATSConfig    `mapstructure:"nats"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	Stream        string `mapstructure:"stream"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"             validate:"min=0"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

type MaintenanceConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a maintenance task on a cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
