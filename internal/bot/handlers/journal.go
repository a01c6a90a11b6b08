package handlers

import (
	"context"
	"time"

	"github.com/edgard/tutorbot/internal/database"
)

const journalTimeout = 5 * time.Second

// record writes request metadata to the journal. Failures are logged and
// never reach the user.
func record(ctx context.Context, deps HandlerDeps, req database.Request) {
	if deps.Journal == nil {
		return
	}
	// The reply is already sent; a cancelled update context must not drop the row.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := deps.Journal.SaveRequest(saveCtx, &req); err != nil {
		deps.Logger.WarnContext(ctx, "Failed to record request", "error", err, "kind", req.Kind, "outcome", req.Outcome)
	}
}
