package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/presentationflow/internal/llm"
)

const vertexBackend = "vertex"

// VertexBackend sends narrative requests to a Gemini model on Vertex AI.
// Credentials come from the ambient service account of the project.
type VertexBackend struct {
	client *genai.Client
	model  string
}

// NewVertexBackend creates a backend bound to one project, region and model.
func NewVertexBackend(ctx context.Context, projectID, region, model string) (*VertexBackend, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexBackend: projectID and region cannot be empty")
	}
	if model == "" {
		model = "gemini-1.5-pro"
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexBackend{client: client, model: model}, nil
}

// Send configures a fresh model handle with the request's system instruction
// and output budget, then generates.
func (b *VertexBackend) Send(ctx context.Context, req llm.Request) (string, error) {
	model := b.client.GenerativeModel(b.model)
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
			return "", llm.Fatal(vertexBackend, "prompt blocked", err)
		}
		return "", llm.Classify(vertexBackend, err)
	}
	return vertexText(resp)
}

func (b *VertexBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// vertexText parses the model's response and extracts the text content.
func vertexText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.Fatal(vertexBackend, "malformed response", llm.ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonMaxTokens:
		return "", llm.Fatal(vertexBackend, "output limit reached", llm.ErrTruncated)
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return "", llm.Fatal(vertexBackend, "response blocked", llm.ErrBlocked)
	}

	var content strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}

	text := llm.TrimFences(content.String())
	if text == "" {
		return "", llm.Fatal(vertexBackend, "malformed response", llm.ErrEmptyResponse)
	}
	return text, nil
}
