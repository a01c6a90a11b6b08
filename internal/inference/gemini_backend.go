package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend calls the Gemini API through the genai SDK.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a backend for model. baseURL overrides the API
// endpoint and is empty in production.
func NewGeminiBackend(ctx context.Context, apiKey, model, baseURL string) (*GeminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

// Generate performs one GenerateContent call.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Instruction)}
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	temperature := req.Params.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.Params.MaxOutputTokens),
	}
	for _, s := range req.Safety {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", &PermanentError{Err: fmt.Errorf("%w: %s", ErrBlocked, fb.BlockReason)}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &PermanentError{Err: ErrEmptyResponse}
	}
	return text, nil
}

// classifyGeminiError maps SDK errors onto the retry taxonomy.
// Overload and internal errors are retried like a warming model.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) {
			return fmt.Errorf("gemini request failed: %w", err)
		}
		apiErr = *apiErrPtr
	}

	switch apiErr.Code {
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return &TransientError{Reason: "gemini unavailable", Err: err}
	default:
		return &PermanentError{StatusCode: apiErr.Code, Err: err}
	}
}
