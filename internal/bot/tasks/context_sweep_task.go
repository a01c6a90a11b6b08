package tasks

import (
	"context"
)

// newContextSweepTask drops conversation contexts idle for longer than the TTL.
func newContextSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "context_sweep")

	return func(ctx context.Context) error {
		if deps.Contexts == nil {
			return nil
		}
		removed := deps.Contexts.Sweep()
		if removed > 0 {
			log.InfoContext(ctx, "Swept expired conversation contexts", "removed", removed, "remaining", deps.Contexts.Len())
		} else {
			log.DebugContext(ctx, "No expired conversation contexts", "remaining", deps.Contexts.Len())
		}
		return nil
	}
}
