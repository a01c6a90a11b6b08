package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tutorbot/internal/database"
	"github.com/edgard/tutorbot/internal/inference"
)

// NewFollowUpHandler returns the default handler: plain text is treated as a
// question about the user's last solved photo. Unknown commands and updates
// without text are ignored.
func NewFollowUpHandler(deps HandlerDeps) bot.HandlerFunc {
	return followUpHandler{deps}.Handle
}

type followUpHandler struct {
	deps HandlerDeps
}

func (h followUpHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "followup")

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring update without text", "update_id", update.ID)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "update_id", update.ID)
		return
	}

	chatID, userID := msg.Chat.ID, msg.From.ID
	log = log.With("chat_id", chatID, "user_id", userID)
	start := time.Now()
	cfg := h.deps.Config

	r := newReplier(h.deps, b, chatID, log)

	prior, ok := h.deps.Contexts.Get(userID)
	if !ok {
		log.DebugContext(ctx, "Follow-up without prior photo")
		r.sendText(ctx, cfg.Messages.NoContext)
		h.record(ctx, chatID, userID, database.OutcomeNoContext, 0, start)
		return
	}

	r.startProcessing(ctx)

	image := inference.Image{Data: prior.Image, MIMEType: prior.MIMEType}
	res, err := h.deps.Solver.FollowUp(ctx, prior.Solution, msg.Text, image)
	if err != nil {
		log.ErrorContext(ctx, "Follow-up failed", "error", err, "attempts", res.Attempts)
		r.sendText(ctx, cfg.Messages.FollowUpError)
		h.record(ctx, chatID, userID, database.OutcomeFailed, res.Attempts, start)
		return
	}

	r.sendLong(ctx, res.Text)
	log.InfoContext(ctx, "Follow-up answered", "attempts", res.Attempts, "duration", time.Since(start))
	h.record(ctx, chatID, userID, database.OutcomeSuccess, res.Attempts, start)
}

func (h followUpHandler) record(ctx context.Context, chatID, userID int64, outcome string, attempts int, start time.Time) {
	record(ctx, h.deps, database.Request{
		UserID:     userID,
		ChatID:     chatID,
		Kind:       database.KindFollowUp,
		Outcome:    outcome,
		Attempts:   attempts,
		DurationMS: time.Since(start).Milliseconds(),
	})
}
