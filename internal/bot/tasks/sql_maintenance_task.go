package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask compacts the request journal (VACUUM and PRAGMA optimize).
// An unreachable journal is reported without attempting maintenance.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		if err := deps.Store.Ping(ctx); err != nil {
			log.ErrorContext(ctx, "Request journal unreachable, skipping compaction", "error", err)
			return fmt.Errorf("journal unreachable: %w", err)
		}

		log.InfoContext(ctx, "Compacting request journal", "path", deps.Config.Database.Path)
		start := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "Request journal compaction failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("journal maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Request journal compacted", "duration", time.Since(start))
		return nil
	}
}
