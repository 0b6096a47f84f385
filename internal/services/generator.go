package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/presentationflow/internal/llm"
	"github.com/Lllllllleong/presentationflow/internal/models"
)

// RetryPolicy retries transient generation failures with doubling backoff.
// MaxAttempts <= 1 disables retries.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// GeneratorConfig holds the narrative request settings.
type GeneratorConfig struct {
	Expertise       string
	Topic           string
	MaxOutputTokens int
	Timeout         time.Duration
	Retry           RetryPolicy
}

// Generator turns an aggregated corpus into narrative text through a backend.
type Generator struct {
	backend llm.Backend
	config  GeneratorConfig
	logger  *slog.Logger
}

// NewGenerator creates a Generator. A nil logger uses slog.Default().
func NewGenerator(backend llm.Backend, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry.InitialBackoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{backend: backend, config: cfg, logger: logger}
}

// Generate requests a narrative for agg. It fails with EmptyInputError before
// contacting the backend when there are no documents.
func (g *Generator) Generate(ctx context.Context, agg models.AggregatedContext) (string, error) {
	if len(agg.DocumentNames) == 0 {
		return "", &EmptyInputError{}
	}

	req := llm.Request{
		System:          SystemInstruction(g.config.Expertise, g.config.Topic),
		Prompt:          UserPrompt(g.config.Topic, agg),
		MaxOutputTokens: g.config.MaxOutputTokens,
	}

	attempts := g.config.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := g.config.Retry.InitialBackoff

	var lastErr error
	for i := 0; i < attempts; i++ {
		text, err := g.sendOnce(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var genErr *GenerationError
		if !errors.As(err, &genErr) || !genErr.Transient || i == attempts-1 {
			return "", err
		}

		g.logger.Warn("Generation failed, will retry.",
			"attempt", i+1,
			"maxAttempts", attempts,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

type sendResult struct {
	text string
	err  error
}

// sendOnce runs one backend call under the configured timeout. The backend
// runs in its own goroutine so the timeout holds even if it ignores ctx.
func (g *Generator) sendOnce(ctx context.Context, req llm.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	done := make(chan sendResult, 1)
	go func() {
		text, err := g.backend.Send(callCtx, req)
		done <- sendResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &GenerationError{Transient: llm.IsTransient(res.err), Err: res.err}
		}
		text := llm.TrimFences(res.text)
		if text == "" {
			return "", &GenerationError{Err: llm.ErrEmptyResponse}
		}
		return text, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &GenerationError{
			Transient: true,
			Err:       fmt.Errorf("no response within %s: %w", g.config.Timeout, context.DeadlineExceeded),
		}
	}
}
