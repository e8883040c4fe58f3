package tasks

import (
	"context"

	"github.com/jonboulle/clockwork"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context
// provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every task keyed by the name used in the
// maintenance.tasks config section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	tasks := make(map[string]ScheduledTaskFunc)
	if deps.Store != nil {
		tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)
		tasks["notification_retention"] = newNotificationRetentionTask(deps)
	}
	if deps.Sessions != nil {
		tasks["session_expiry"] = newSessionExpiryTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
