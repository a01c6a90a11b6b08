// Package tasks implements the bot's scheduled housekeeping tasks.
package tasks

import (
	"log/slog"

	"github.com/edgard/tutorbot/internal/config"
	"github.com/edgard/tutorbot/internal/database"
)

// ContextSweeper drops expired conversation contexts.
type ContextSweeper interface {
	Sweep() int
	Len() int
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Contexts ContextSweeper
	Config   *config.Config
}
