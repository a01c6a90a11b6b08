package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const sendMessageTimeout = 10 * time.Second

// SplitMessage cuts text into chunks of at most maxLen characters (runes).
// Joining the chunks gives back text unchanged.
func SplitMessage(text string, maxLen int) []string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for start := 0; start < len(runes); start += maxLen {
		end := min(start+maxLen, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// LabelChunks prefixes every chunk with labelFormat (index and total, 1-based)
// when there is more than one.
func LabelChunks(chunks []string, labelFormat string) []string {
	if len(chunks) < 2 {
		return chunks
	}
	labeled := make([]string, len(chunks))
	for i, chunk := range chunks {
		labeled[i] = fmt.Sprintf(labelFormat, i+1, len(chunks)) + "\n\n" + chunk
	}
	return labeled
}

// replier sends the answer to one update. It owns the optional processing notice.
type replier struct {
	deps   HandlerDeps
	b      *bot.Bot
	chatID int64
	log    *slog.Logger
	notice int
}

func newReplier(deps HandlerDeps, b *bot.Bot, chatID int64, log *slog.Logger) *replier {
	return &replier{deps: deps, b: b, chatID: chatID, log: log}
}

// startProcessing shows the processing notice (if enabled) and the typing indicator.
func (r *replier) startProcessing(ctx context.Context) {
	if r.deps.Config.Telegram.ProcessingNotice {
		sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		msg, err := r.b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: r.chatID, Text: r.deps.Config.Messages.Processing})
		cancel()
		if err != nil {
			r.log.WarnContext(ctx, "Failed to send processing notice", "error", err, "chat_id", r.chatID)
		} else {
			r.notice = msg.ID
		}
	}
	_, _ = r.b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: r.chatID, Action: models.ChatActionTyping})
}

// clearNotice deletes the processing notice, if one was sent.
func (r *replier) clearNotice(ctx context.Context) {
	if r.notice == 0 {
		return
	}
	if _, err := r.b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: r.chatID, MessageID: r.notice}); err != nil {
		r.log.WarnContext(ctx, "Failed to delete processing notice", "error", err, "chat_id", r.chatID, "message_id", r.notice)
	}
	r.notice = 0
}

// sendText clears the notice and sends a short fixed message.
func (r *replier) sendText(ctx context.Context, text string) {
	r.clearNotice(ctx)
	r.send(ctx, text)
}

// sendLong clears the notice and sends text split into labelled chunks.
func (r *replier) sendLong(ctx context.Context, text string) {
	r.clearNotice(ctx)
	cfg := r.deps.Config
	chunks := LabelChunks(SplitMessage(text, cfg.Telegram.MaxChunkLength), cfg.Messages.PartLabel)
	for i, chunk := range chunks {
		if !r.send(ctx, chunk) {
			r.log.ErrorContext(ctx, "Stopped sending reply after failed chunk", "chunk", i+1, "chunks", len(chunks))
			return
		}
	}
	r.log.DebugContext(ctx, "Sent reply", "chat_id", r.chatID, "chunks", len(chunks))
}

func (r *replier) send(ctx context.Context, text string) bool {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	if _, err := r.b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: r.chatID, Text: text}); err != nil {
		r.log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", r.chatID)
		return false
	}
	return true
}
