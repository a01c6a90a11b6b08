package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edgard/tutorbot/internal/config"
)

// Solver is the inference surface used by the message handlers.
type Solver interface {
	Solve(ctx context.Context, image Image) (Result, error)
	FollowUp(ctx context.Context, priorSolution, question string, image Image) (Result, error)
}

// Client solves exercises and answers follow-up questions through a Backend.
type Client struct {
	backend Backend
	policy  Policy
	cfg     config.InferenceConfig
	safety  []SafetyOverride
	log     *slog.Logger
}

var _ Solver = (*Client)(nil)

// NewClient creates the client for the configured provider.
func NewClient(ctx context.Context, cfg config.InferenceConfig, log *slog.Logger) (*Client, error) {
	var backend Backend
	switch cfg.Provider {
	case "gemini":
		gb, err := NewGeminiBackend(ctx, cfg.Token, cfg.Model, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		backend = gb
	case "http", "":
		if cfg.Endpoint == "" {
			return nil, errors.New("inference endpoint is required for the http provider")
		}
		backend = NewHTTPBackend(cfg.Endpoint, cfg.Token, cfg.Headers, &http.Client{})
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}

	c := New(backend, cfg, log)
	c.log.Info("Inference client initialized", "provider", cfg.Provider, "max_attempts", cfg.MaxAttempts)
	return c, nil
}

// New wraps an existing backend.
func New(backend Backend, cfg config.InferenceConfig, log *slog.Logger) *Client {
	return &Client{
		backend: backend,
		policy: Policy{
			MaxAttempts:    cfg.MaxAttempts,
			TimeoutBackoff: cfg.TimeoutBackoff,
			MaxWarmupWait:  cfg.MaxWarmupWait,
		},
		cfg:    cfg,
		safety: safetyOverrides(cfg.SafetyThreshold),
		log:    log.With("component", "inference_client"),
	}
}

// Solve asks the model for a step-by-step solution of the exercise in image.
// It returns ErrNoExercise when the model reports that there is none.
func (c *Client) Solve(ctx context.Context, image Image) (Result, error) {
	req := Request{
		Instruction: c.cfg.SolveInstruction,
		Image:       &image,
		Params: GenerationParams{
			MaxOutputTokens: c.cfg.SolveMaxTokens,
			Temperature:     c.cfg.Temperature,
		},
		Safety:  c.safety,
		Timeout: c.cfg.SolveTimeout,
	}

	res, err := c.generate(ctx, "solve", req)
	if err != nil {
		return res, err
	}

	if IsNoExercise(res.Text, c.cfg.NoExerciseMarker, c.cfg.MarkerWindow) {
		c.log.InfoContext(ctx, "Model found no exercise in photo", "attempts", res.Attempts)
		return Result{Attempts: res.Attempts}, ErrNoExercise
	}
	return res, nil
}

// FollowUp answers question about priorSolution, sending the original photo again.
func (c *Client) FollowUp(ctx context.Context, priorSolution, question string, image Image) (Result, error) {
	req := Request{
		Instruction: RenderFollowUp(c.cfg.FollowUpTemplate, priorSolution, question),
		Image:       &image,
		Params: GenerationParams{
			MaxOutputTokens: c.cfg.FollowUpMaxTokens,
			Temperature:     c.cfg.Temperature,
		},
		Safety:  c.safety,
		Timeout: c.cfg.FollowUpTimeout,
	}
	return c.generate(ctx, "followup", req)
}

func (c *Client) generate(ctx context.Context, kind string, req Request) (Result, error) {
	start := time.Now()
	log := c.log.With("kind", kind)
	if req.Image != nil {
		log = log.With("image_size", len(req.Image.Data), "mime_type", req.Image.MIMEType)
	}
	log.DebugContext(ctx, "Sending inference request")

	var text string
	attempts, err := c.policy.Do(ctx, req.Timeout, func(ctx context.Context) error {
		out, err := c.backend.Generate(ctx, req)
		if err != nil {
			log.WarnContext(ctx, "Inference attempt failed", "verdict", Classify(err).String(), "error", err)
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		log.ErrorContext(ctx, "Inference request failed", "attempts", attempts, "duration", time.Since(start), "error", err)
		return Result{Attempts: attempts}, fmt.Errorf("%s request failed: %w", kind, err)
	}

	log.DebugContext(ctx, "Inference request succeeded", "attempts", attempts, "duration", time.Since(start), "text_length", len([]rune(text)))
	return Result{Text: text, Attempts: attempts}, nil
}

// RenderFollowUp fills the {solution} and {question} placeholders of template.
// Both values are inserted verbatim in a single pass.
func RenderFollowUp(template, solution, question string) string {
	return strings.NewReplacer("{solution}", solution, "{question}", question).Replace(template)
}
