package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tutorbot/internal/database"
	"github.com/edgard/tutorbot/internal/inference"
)

// NewPhotoHandler returns a handler that solves the exercise on a photo.
func NewPhotoHandler(deps HandlerDeps) bot.HandlerFunc {
	return photoHandler{deps}.Handle
}

type photoHandler struct {
	deps HandlerDeps
}

func (h photoHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "photo")

	msg := update.Message
	if msg == nil || msg.From == nil || len(msg.Photo) == 0 {
		log.DebugContext(ctx, "Ignoring update without photo or sender", "update_id", update.ID)
		return
	}

	chatID, userID := msg.Chat.ID, msg.From.ID
	log = log.With("chat_id", chatID, "user_id", userID)
	start := time.Now()
	cfg := h.deps.Config

	r := newReplier(h.deps, b, chatID, log)
	r.startProcessing(ctx)

	photo := bestPhoto(msg.Photo)
	log.DebugContext(ctx, "Selected best quality photo", "width", photo.Width, "height", photo.Height)

	image, err := DownloadPhoto(ctx, b, h.deps.httpClient(), photo.FileID, cfg.Telegram.MaxPhotoBytes, cfg.Telegram.DownloadTimeout)
	if err != nil {
		log.ErrorContext(ctx, "Photo download failed", "error", err)
		r.sendText(ctx, cfg.Messages.TechnicalError)
		h.record(ctx, chatID, userID, database.OutcomeFailed, 0, start)
		return
	}

	res, err := h.deps.Solver.Solve(ctx, image)
	switch {
	case errors.Is(err, inference.ErrNoExercise):
		log.InfoContext(ctx, "No exercise recognized on photo", "attempts", res.Attempts)
		r.sendText(ctx, cfg.Messages.NoExercise)
		h.record(ctx, chatID, userID, database.OutcomeNoExercise, res.Attempts, start)

	case err != nil:
		log.ErrorContext(ctx, "Solving failed", "error", err, "attempts", res.Attempts)
		r.sendText(ctx, cfg.Messages.TechnicalError)
		h.record(ctx, chatID, userID, database.OutcomeFailed, res.Attempts, start)

	default:
		// Image and solution are stored together only once both exist.
		h.deps.Contexts.Put(userID, image.Data, image.MIMEType, res.Text)
		r.sendLong(ctx, res.Text)
		log.InfoContext(ctx, "Exercise solved", "attempts", res.Attempts, "duration", time.Since(start))
		h.record(ctx, chatID, userID, database.OutcomeSuccess, res.Attempts, start)
	}
}

func (h photoHandler) record(ctx context.Context, chatID, userID int64, outcome string, attempts int, start time.Time) {
	record(ctx, h.deps, database.Request{
		UserID:     userID,
		ChatID:     chatID,
		Kind:       database.KindSolve,
		Outcome:    outcome,
		Attempts:   attempts,
		DurationMS: time.Since(start).Milliseconds(),
	})
}
