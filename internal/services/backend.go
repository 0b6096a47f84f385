package services

import (
	"context"
	"fmt"
	"io"

	"github.com/Lllllllleong/presentationflow/internal/config"
	"github.com/Lllllllleong/presentationflow/internal/gcp"
	"github.com/Lllllllleong/presentationflow/internal/llm"
)

// Backend is a generation backend that holds client resources.
type Backend interface {
	llm.Backend
	io.Closer
}

// NewBackend creates the backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg config.Backend) (Backend, error) {
	switch cfg.Provider {
	case "vertex", "":
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("vertex backend requires PROJECT_ID")
		}
		return gcp.NewVertexBackend(ctx, cfg.ProjectID, cfg.Region, cfg.Model)
	case "gemini":
		return llm.NewGemini(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return llm.NewOllama(cfg.BaseURL, cfg.Model, nil)
	}
	return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
}
