package logger

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Middleware creates a logging middleware for the Telegram bot.
// It assigns a request id to every update and logs its metadata.
// Message text and photo contents are never logged.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			ctx = ContextWithRequestID(ctx, uuid.NewString())

			logEntry := log.With("update_id", update.ID)

			updateType := "other"
			if msg := update.Message; msg != nil {
				updateType = "message"
				var userID int64
				if msg.From != nil {
					userID = msg.From.ID
				}
				logEntry = logEntry.With(
					"message_id", msg.ID,
					"chat_id", msg.Chat.ID,
					"user_id", userID,
					"has_photo", len(msg.Photo) > 0,
					"text_length", len([]rune(msg.Text)),
				)
			}
			logEntry = logEntry.With("update_type", updateType)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// Recover stops a panicking handler from taking the polling loop down.
// onPanic, when set, runs after the panic is logged so the user can be told.
func Recover(log *slog.Logger, onPanic bot.HandlerFunc) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				log.ErrorContext(ctx, "Handler panicked",
					"panic", r,
					"update_id", update.ID,
					"stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(ctx, b, update)
				}
			}()
			next(ctx, b, update)
		}
	}
}
