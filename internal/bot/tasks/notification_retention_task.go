package tasks

import (
	"context"
	"fmt"
)

// newNotificationRetentionTask deletes archived notifications older than
// database.retention. A zero retention keeps everything.
func newNotificationRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "notification_retention")

	return func(ctx context.Context) error {
		retention := deps.Config.Database.Retention
		if retention <= 0 {
			log.DebugContext(ctx, "Retention disabled, skipping")
			return nil
		}

		cutoff := deps.Clock.Now().Add(-retention)
		removed, err := deps.Store.PruneDelivered(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("notification retention failed: %w", err)
		}
		log.InfoContext(ctx, "Notification retention completed", "removed", removed, "cutoff", cutoff)
		return nil
	}
}
