package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

type httpPayload struct {
	Inputs         httpInputs       `json:"inputs"`
	Parameters     httpParameters   `json:"parameters"`
	SafetySettings []SafetyOverride `json:"safety_settings,omitempty"`
}

type httpInputs struct {
	Text  string     `json:"text"`
	Image *httpImage `json:"image,omitempty"`
}

type httpImage struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type httpParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float32 `json:"temperature"`
}

// warmupBody is the error body sent while the model is loading.
type warmupBody struct {
	Error         string   `json:"error"`
	EstimatedTime *float64 `json:"estimated_time"`
}

// HTTPBackend posts requests to a hosted inference endpoint with a bearer token.
type HTTPBackend struct {
	endpoint string
	token    string
	headers  map[string]string
	client   *http.Client
}

// NewHTTPBackend creates a backend for endpoint. Extra headers are sent with
// every request. A nil client means http.DefaultClient; attempt deadlines come
// from the context.
func NewHTTPBackend(endpoint, token string, headers map[string]string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBackend{
		endpoint: endpoint,
		token:    token,
		headers:  headers,
		client:   client,
	}
}

// Generate performs one POST and extracts the generated text.
func (b *HTTPBackend) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(newHTTPPayload(req))
	if err != nil {
		return "", &PermanentError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &PermanentError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range b.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		// Deadline and network timeouts are classified as transient by the policy.
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		if wait, ok := parseWarmup(data); ok {
			return "", &TransientError{Reason: "model warming up", RetryAfter: wait}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &PermanentError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", snippet(data)),
		}
	}

	parsed := ParseResponse(data)
	switch parsed.Kind {
	case ParseText:
		return parsed.Text, nil
	case ParseEmpty:
		return "", &PermanentError{StatusCode: resp.StatusCode, Err: ErrEmptyResponse}
	default:
		return "", &PermanentError{StatusCode: resp.StatusCode, Err: parsed.Err}
	}
}

func newHTTPPayload(req Request) httpPayload {
	payload := httpPayload{
		Inputs: httpInputs{Text: req.Instruction},
		Parameters: httpParameters{
			MaxNewTokens: req.Params.MaxOutputTokens,
			Temperature:  req.Params.Temperature,
		},
		SafetySettings: req.Safety,
	}
	if req.Image != nil {
		payload.Inputs.Image = &httpImage{
			MIMEType: req.Image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
		}
	}
	return payload
}

// parseWarmup reads the estimated_time hint (seconds) of a warm-up response.
func parseWarmup(body []byte) (time.Duration, bool) {
	var w warmupBody
	if err := json.Unmarshal(body, &w); err != nil || w.EstimatedTime == nil || *w.EstimatedTime < 0 {
		return 0, false
	}
	wait := time.Duration(*w.EstimatedTime * float64(time.Second))
	if wait <= 0 {
		// Ready "now": wait a moment rather than falling back to the timeout backoff.
		wait = time.Millisecond
	}
	return wait, true
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}
