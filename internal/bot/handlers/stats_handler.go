package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const statsWindow = 24 * time.Hour

// NewStatsHandler returns a handler for the admin /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика за %s\n", formatWindow(statsWindow))

	if h.deps.Journal != nil {
		stats, err := h.deps.Journal.GetStats(ctx, time.Now().Add(-statsWindow))
		if err != nil {
			log.ErrorContext(ctx, "Failed to load stats", "error", err)
			sb.WriteString("Журнал недоступен\n")
		} else {
			fmt.Fprintf(&sb, "Запросов: %d (вопросов: %d)\n", stats.Total, stats.FollowUps)
			fmt.Fprintf(&sb, "Успешно: %d\n", stats.Succeeded)
			fmt.Fprintf(&sb, "Без задачи: %d\n", stats.NoExercise)
			fmt.Fprintf(&sb, "Без контекста: %d\n", stats.NoContext)
			fmt.Fprintf(&sb, "Ошибок: %d\n", stats.Failed)
			fmt.Fprintf(&sb, "Пользователей: %d\n", stats.UniqueUsers)
			fmt.Fprintf(&sb, "Среднее время: %s\n", stats.AvgDuration.Round(100*time.Millisecond))
		}
	}
	fmt.Fprintf(&sb, "Контекстов в памяти: %d", h.deps.Contexts.Len())

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: sb.String()}); err != nil {
		log.ErrorContext(ctx, "Failed to send stats", "error", err, "chat_id", chatID)
	}
}

func formatWindow(d time.Duration) string {
	return fmt.Sprintf("%d ч", int(d.Hours()))
}
