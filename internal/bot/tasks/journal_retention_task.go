package tasks

import (
	"context"
	"fmt"
	"time"
)

// newJournalRetentionTask deletes journal rows older than database.retention.
// A zero retention keeps everything.
func newJournalRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "journal_retention")

	return func(ctx context.Context) error {
		retention := deps.Config.Database.Retention
		if retention <= 0 {
			log.DebugContext(ctx, "Journal retention disabled")
			return nil
		}

		cutoff := time.Now().Add(-retention)
		deleted, err := deps.Store.DeleteRequestsBefore(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Journal retention failed", "error", err)
			return fmt.Errorf("journal retention failed: %w", err)
		}

		log.InfoContext(ctx, "Pruned journal", "deleted", deleted, "cutoff", cutoff.UTC())
		return nil
	}
}
