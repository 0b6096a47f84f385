package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiBackend = "gemini"

// Gemini is a Backend for the Gemini API, authenticated with an API key.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend using the given key and model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGemini: API key must be provided")
	}
	if model == "" {
		model = "gemini-1.5-pro"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Send builds a model handle per call so concurrent requests never share
// generation settings.
func (g *Gemini) Send(ctx context.Context, req Request) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", Fatal(geminiBackend, "prompt blocked", err)
		}
		return "", Classify(geminiBackend, err)
	}
	return geminiText(resp)
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// geminiText pulls the text parts out of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", Fatal(geminiBackend, "malformed response", ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonMaxTokens:
		return "", Fatal(geminiBackend, "output limit reached", ErrTruncated)
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return "", Fatal(geminiBackend, "response blocked", ErrBlocked)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	text := TrimFences(sb.String())
	if text == "" {
		return "", Fatal(geminiBackend, "malformed response", ErrEmptyResponse)
	}
	return text, nil
}
