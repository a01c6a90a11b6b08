package handlers

import (
	"log/slog"
	"net/http"

	"github.com/edgard/tutorbot/internal/config"
	"github.com/edgard/tutorbot/internal/conversation"
	"github.com/edgard/tutorbot/internal/database"
	"github.com/edgard/tutorbot/internal/inference"
)

// ContextStore holds the last solved photo of each user.
type ContextStore interface {
	Put(userID int64, image []byte, mimeType, solution string)
	Get(userID int64) (conversation.Context, bool)
	Len() int
}

// HandlerDeps provides dependencies for Telegram command and message handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Contexts ContextStore
	Solver   inference.Solver
	// Journal records request metadata. Optional.
	Journal database.Store
	// HTTPClient downloads photos. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

func (d HandlerDeps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}
