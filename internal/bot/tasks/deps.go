// Package tasks implements the maintenance tasks run on a cron schedule:
// database VACUUM, delivered notification retention and idle session expiry.
package tasks

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/mentorbot/internal/config"
	"github.com/edgard/mentorbot/internal/database"
)

// SessionSweeper closes idle sessions.
type SessionSweeper interface {
	Sweep()
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Sessions SessionSweeper
	Config   *config.Config
	Clock    clockwork.Clock
}
