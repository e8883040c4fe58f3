package tasks

import "context"

func newSessionExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_expiry")

	return func(ctx context.Context) error {
		deps.Sessions.Sweep()
		log.DebugContext(ctx, "Idle sessions swept")
		return nil
	}
}
