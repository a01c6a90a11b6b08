// Package inference talks to the remote vision-language model that solves
// homework photos. It owns request building, the retry policy, response
// parsing and the "no exercise" sentinel check.
package inference

import (
	"context"
	"time"
)

// Image is a photo forwarded to the model as-is, without decoding.
type Image struct {
	Data     []byte
	MIMEType string
}

// GenerationParams bound the model output.
type GenerationParams struct {
	MaxOutputTokens int
	Temperature     float32
}

// SafetyOverride relaxes or tightens one harm category.
type SafetyOverride struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Request is a single generation call. It is never persisted.
type Request struct {
	Instruction string
	Image       *Image
	Params      GenerationParams
	Safety      []SafetyOverride
	// Timeout bounds one attempt, not the whole call.
	Timeout time.Duration
}

// Result is the text produced by a successful call.
type Result struct {
	Text     string
	Attempts int
}

// Backend performs exactly one attempt against a provider.
// Implementations return *TransientError or *PermanentError so that the
// retry policy can tell them apart.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// harmCategories are the categories covered when a safety threshold is configured.
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

func safetyOverrides(threshold string) []SafetyOverride {
	if threshold == "" {
		return nil
	}
	overrides := make([]SafetyOverride, 0, len(harmCategories))
	for _, category := range harmCategories {
		overrides = append(overrides, SafetyOverride{Category: category, Threshold: threshold})
	}
	return overrides
}
