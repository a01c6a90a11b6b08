package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/edgard/tutorbot/internal/bot/handlers"
	"github.com/edgard/tutorbot/internal/config"
	"github.com/edgard/tutorbot/internal/conversation"
	"github.com/edgard/tutorbot/internal/database"
	"github.com/edgard/tutorbot/internal/inference"
	"github.com/edgard/tutorbot/internal/logger"
	"github.com/edgard/tutorbot/internal/telegram"
)

const (
	testBotToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"
	adminUserID  = int64(1)
	studentID    = int64(42)
)

// jpegPhoto starts with the JPEG magic so content sniffing reports image/jpeg.
var jpegPhoto = append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, []byte(strings.Repeat("x", 64))...)

// apiCall is one request received by the fake Bot API.
type apiCall struct {
	Method string
	Params map[string]string
}

// fakeTelegram is a minimal Bot API: it records calls, answers sendMessage
// with increasing message ids and serves registered photo files.
type fakeTelegram struct {
	srv *httptest.Server

	mu     sync.Mutex
	calls  []apiCall
	nextID int
	photos map[string][]byte
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{photos: make(map[string][]byte), nextID: 100}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) addPhoto(fileID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[fileID] = data
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	if path, ok := strings.CutPrefix(r.URL.Path, "/file/bot"+testBotToken+"/photos/"); ok {
		f.mu.Lock()
		data, found := f.photos[path]
		f.mu.Unlock()
		if !found {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
		return
	}

	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+testBotToken+"/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	params := readParams(r)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Params: params})
	f.mu.Unlock()

	switch method {
	case "sendMessage":
		f.mu.Lock()
		f.nextID++
		id := f.nextID
		f.mu.Unlock()
		chatID, _ := strconv.ParseInt(params["chat_id"], 10, 64)
		writeResult(w, models.Message{
			ID:   id,
			Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
			Text: params["text"],
		})
	case "getFile":
		fileID := params["file_id"]
		f.mu.Lock()
		data, found := f.photos[fileID]
		f.mu.Unlock()
		if !found {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`)
			return
		}
		writeResult(w, models.File{
			FileID:       fileID,
			FileUniqueID: "u-" + fileID,
			FileSize:     int64(len(data)),
			FilePath:     "photos/" + fileID,
		})
	default:
		writeResult(w, true)
	}
}

func readParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		for k, v := range raw {
			params[k] = fmt.Sprint(v)
		}
		return params
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return params
	}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeTelegram) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// sentTexts returns the texts sent to chatID, in order.
func (f *fakeTelegram) sentTexts(chatID int64) []string {
	var texts []string
	for _, c := range f.callsTo("sendMessage") {
		if c.Params["chat_id"] == strconv.FormatInt(chatID, 10) {
			texts = append(texts, c.Params["text"])
		}
	}
	return texts
}

func (f *fakeTelegram) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// fakeSolver answers with fixed functions and counts calls.
type fakeSolver struct {
	mu        sync.Mutex
	solve     func(image inference.Image) (inference.Result, error)
	followUp  func(prior, question string) (inference.Result, error)
	solves    int
	followUps int
	questions []string
}

func (s *fakeSolver) Solve(_ context.Context, image inference.Image) (inference.Result, error) {
	s.mu.Lock()
	s.solves++
	fn := s.solve
	s.mu.Unlock()
	if fn == nil {
		return inference.Result{Text: "Ответ: 42", Attempts: 1}, nil
	}
	return fn(image)
}

func (s *fakeSolver) FollowUp(_ context.Context, prior, question string, _ inference.Image) (inference.Result, error) {
	s.mu.Lock()
	s.followUps++
	s.questions = append(s.questions, question)
	fn := s.followUp
	s.mu.Unlock()
	if fn == nil {
		return inference.Result{Text: "Потому что так.", Attempts: 1}, nil
	}
	return fn(prior, question)
}

func (s *fakeSolver) counts() (solves, followUps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solves, s.followUps
}

// memJournal keeps saved requests in memory.
type memJournal struct {
	mu       sync.Mutex
	requests []database.Request
}

var _ database.Store = (*memJournal)(nil)

func (j *memJournal) Ping(context.Context) error { return nil }

func (j *memJournal) SaveRequest(_ context.Context, req *database.Request) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.requests = append(j.requests, *req)
	return nil
}

func (j *memJournal) GetStats(context.Context, time.Time) (*database.Stats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	stats := &database.Stats{Total: len(j.requests)}
	for _, r := range j.requests {
		if r.Outcome == database.OutcomeSuccess {
			stats.Succeeded++
		}
	}
	return stats, nil
}

func (j *memJournal) DeleteRequestsBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (j *memJournal) RunSQLMaintenance(context.Context) error { return nil }

func (j *memJournal) outcomes() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.requests))
	for i, r := range j.requests {
		out[i] = r.Kind + ":" + r.Outcome
	}
	return out
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	tg       *fakeTelegram
	bot      *bot.Bot
	cfg      *config.Config
	contexts *conversation.Store
	journal  *memJournal
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{
			Token:           testBotToken,
			AdminUserID:     adminUserID,
			MaxChunkLength:  config.DefaultTelegramMaxChunkLength,
			MaxPhotoBytes:   1 << 20,
			DownloadTimeout: 5 * time.Second,
		},
		Messages: config.DefaultMessages,
	}
}

func newTestEnv(t *testing.T, solver inference.Solver, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	tg := newFakeTelegram(t)
	contexts, err := conversation.New(16, time.Hour)
	require.NoError(t, err)
	journal := &memJournal{}
	log := discard()

	deps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Contexts:   contexts,
		Solver:     solver,
		Journal:    journal,
		HTTPClient: tg.srv.Client(),
	}

	b, err := telegram.NewTelegramBot(testBotToken, log,
		bot.WithServerURL(tg.srv.URL),
		bot.WithSkipGetMe(),
		// ProcessUpdate returns only after the handler has finished.
		bot.WithNotAsyncHandlers(),
		bot.WithDefaultHandler(handlers.NewFollowUpHandler(deps)),
		bot.WithMiddlewares(logger.Middleware(log), logger.Recover(log, handlers.NewPanicReply(deps))),
	)
	require.NoError(t, err)
	require.NoError(t, telegram.RegisterHandlers(b, log, handlers.RegisterAllCommands(deps)))

	return &testEnv{tg: tg, bot: b, cfg: cfg, contexts: contexts, journal: journal}
}

func (e *testEnv) process(upd *models.Update) {
	e.bot.ProcessUpdate(context.Background(), upd)
}

var updateSeq atomic.Int64

func nextUpdateID() int64 {
	return updateSeq.Add(1)
}

func message(userID int64) *models.Message {
	return &models.Message{
		ID:   int(nextUpdateID()),
		From: &models.User{ID: userID, FirstName: "Student"},
		Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate},
	}
}

func textUpdate(userID int64, text string) *models.Update {
	msg := message(userID)
	msg.Text = text
	return &models.Update{ID: nextUpdateID(), Message: msg}
}

func commandUpdate(userID int64, command string) *models.Update {
	upd := textUpdate(userID, command)
	upd.Message.Entities = []models.MessageEntity{{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: len(command)}}
	return upd
}

// photoUpdate carries a thumbnail and a full-size photo; only fileID is downloadable.
func photoUpdate(userID int64, fileID string) *models.Update {
	msg := message(userID)
	msg.Photo = []models.PhotoSize{
		{FileID: fileID + "-thumb", FileUniqueID: "t", Width: 90, Height: 68},
		{FileID: fileID, FileUniqueID: "f", Width: 1280, Height: 960},
	}
	return &models.Update{ID: nextUpdateID(), Message: msg}
}
