package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/tutorbot/internal/config"
)

const testToken = "hf_test_token_0123456789"

func testConfig(endpoint string) config.InferenceConfig {
	return config.InferenceConfig{
		Provider:          "http",
		Token:             testToken,
		Endpoint:          endpoint,
		Headers:           map[string]string{"X-Wait-For-Model": "true"},
		MaxAttempts:       3,
		SolveTimeout:      2 * time.Second,
		FollowUpTimeout:   time.Second,
		TimeoutBackoff:    0,
		MaxWarmupWait:     10 * time.Millisecond,
		SolveMaxTokens:    4096,
		FollowUpMaxTokens: 2048,
		Temperature:       0.2,
		SolveInstruction:  "Реши задачу пошагово.",
		FollowUpTemplate:  config.DefaultFollowUpTemplate,
		NoExerciseMarker:  "ОШИБКА",
		MarkerWindow:      50,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, cfg config.InferenceConfig) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	return c
}

// capturedPayload mirrors the JSON body sent by HTTPBackend.
type capturedPayload struct {
	Inputs struct {
		Text  string `json:"text"`
		Image struct {
			MIMEType string `json:"mime_type"`
			Data     string `json:"data"`
		} `json:"image"`
	} `json:"inputs"`
	Parameters struct {
		MaxNewTokens int     `json:"max_new_tokens"`
		Temperature  float32 `json:"temperature"`
	} `json:"parameters"`
	SafetySettings []SafetyOverride `json:"safety_settings"`
}

var testImage = Image{Data: []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'g'}, MIMEType: "image/jpeg"}

func TestClientSolve_Success(t *testing.T) {
	t.Parallel()

	var got capturedPayload
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"generated_text":"Шаг 1: ... Ответ: 42"}]`)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	res, err := c.Solve(context.Background(), testImage)
	require.NoError(t, err)

	assert.Equal(t, "Шаг 1: ... Ответ: 42", res.Text)
	assert.Equal(t, 1, res.Attempts)

	assert.Equal(t, "Bearer "+testToken, gotHeaders.Get("Authorization"))
	assert.Equal(t, "true", gotHeaders.Get("X-Wait-For-Model"))
	assert.Equal(t, "Реши задачу пошагово.", got.Inputs.Text)
	assert.Equal(t, "image/jpeg", got.Inputs.Image.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(testImage.Data), got.Inputs.Image.Data)
	assert.Equal(t, 4096, got.Parameters.MaxNewTokens)
	assert.InDelta(t, 0.2, got.Parameters.Temperature, 1e-6)
	assert.Empty(t, got.SafetySettings)
}

func TestClientSolve_NoExercise(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"generated_text":"ОШИБКА"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	res, err := c.Solve(context.Background(), testImage)
	assert.ErrorIs(t, err, ErrNoExercise)
	assert.Empty(t, res.Text)
}

func TestClientSolve_WarmupRetryBound(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"Model is currently loading","estimated_time":20.5}`)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	res, err := c.Solve(context.Background(), testImage)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, 3, res.Attempts)
}

func TestClientSolve_TimeoutIsRetried(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, `{"generated_text":"Ответ: 5"}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.SolveTimeout = 100 * time.Millisecond
	c := newTestClient(t, cfg)

	res, err := c.Solve(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, "Ответ: 5", res.Text)
	assert.Equal(t, 2, res.Attempts)
}

func TestClientSolve_PermanentStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"unavailable without estimate", http.StatusServiceUnavailable, `{"error":"down for maintenance"}`},
		{"malformed success", http.StatusOK, `<html></html>`},
		{"empty success", http.StatusOK, `{"generated_text":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var requests atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				requests.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, testConfig(srv.URL))
			_, err := c.Solve(context.Background(), testImage)

			require.Error(t, err)
			var permanent *PermanentError
			assert.ErrorAs(t, err, &permanent)
			assert.NotErrorIs(t, err, ErrRetriesExhausted)
			assert.Equal(t, int32(1), requests.Load())
		})
	}
}

func TestClientFollowUp_Payload(t *testing.T) {
	t.Parallel()

	var got capturedPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `[{"generated_text":"Потому что ..."}]`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.SafetyThreshold = "BLOCK_NONE"
	c := newTestClient(t, cfg)

	res, err := c.FollowUp(context.Background(), "Шаг 1: ... Ответ: 42", "почему 42?", testImage)
	require.NoError(t, err)

	assert.Equal(t, "Потому что ...", res.Text)
	assert.Contains(t, got.Inputs.Text, "Шаг 1: ... Ответ: 42")
	assert.Contains(t, got.Inputs.Text, "почему 42?")
	assert.Equal(t, base64.StdEncoding.EncodeToString(testImage.Data), got.Inputs.Image.Data)
	assert.Equal(t, 2048, got.Parameters.MaxNewTokens)
	require.Len(t, got.SafetySettings, 4)
	assert.Equal(t, "BLOCK_NONE", got.SafetySettings[0].Threshold)
}

func TestClientFollowUp_MarkerIsNotChecked(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"generated_text":"Ошибка в шаге 2 была в знаке."}`)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	res, err := c.FollowUp(context.Background(), "Шаг 1", "где ошибка?", testImage)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Text, "Ошибка"))
}

func TestRenderFollowUp(t *testing.T) {
	t.Parallel()

	got := RenderFollowUp("S={solution}; Q={question}", "x {question} y", "почему?")
	assert.Equal(t, "S=x {question} y; Q=почему?", got)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig("http://localhost")
	cfg.Provider = "smoke-signals"
	_, err := NewClient(context.Background(), cfg, discardLogger())
	assert.Error(t, err)
}
