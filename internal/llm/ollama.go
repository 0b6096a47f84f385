package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const ollamaBackend = "ollama"

// Ollama is a Backend for a local or self-hosted Ollama server.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama backend. An empty baseURL means the default
// local server.
func NewOllama(baseURL, model string, httpClient *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		return nil, fmt.Errorf("NewOllama: model must be provided")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{client: api.NewClient(parsed, httpClient), model: model}, nil
}

// Send runs a single non-streaming chat turn.
func (o *Ollama) Send(ctx context.Context, req Request) (string, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Stream: &stream,
	}
	if req.MaxOutputTokens > 0 {
		chatReq.Options = map[string]any{"num_predict": req.MaxOutputTokens}
	}

	var sb strings.Builder
	var doneReason string
	err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		if resp.Done {
			doneReason = resp.DoneReason
		}
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", ClassifyStatus(ollamaBackend, statusErr.StatusCode, err)
		}
		return "", Classify(ollamaBackend, err)
	}
	if doneReason == "length" {
		return "", Fatal(ollamaBackend, "output limit reached", ErrTruncated)
	}

	text := TrimFences(sb.String())
	if text == "" {
		return "", Fatal(ollamaBackend, "malformed response", ErrEmptyResponse)
	}
	return text, nil
}

func (o *Ollama) Close() error { return nil }
