package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/presentationflow/internal/config"
	"github.com/Lllllllleong/presentationflow/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Result is everything one pipeline run produced. On failure it still carries
// the per-file errors collected so far.
type Result struct {
	RequestID  string
	Document   *models.RenderedDocument
	Narrative  string
	Extracted  []models.ExtractedText
	FileErrors []*FileError
}

// Skipped lists the files that were dropped from the request and why.
func (r *Result) Skipped() []models.SkippedFile {
	skipped := make([]models.SkippedFile, 0, len(r.FileErrors))
	for _, fe := range r.FileErrors {
		skipped = append(skipped, models.SkippedFile{Name: fe.Name, Reason: fe.Err.Error()})
	}
	return skipped
}

// Pipeline runs extraction, aggregation, generation and rendering for one
// request at a time. It holds no per-request state and may be shared.
type Pipeline struct {
	generator *Generator
	renderer  *Renderer
	workers   int
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline. workers bounds parallel extraction.
func NewPipeline(generator *Generator, renderer *Renderer, workers int, logger *slog.Logger) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{generator: generator, renderer: renderer, workers: workers, logger: logger}
}

// BuildPipeline wires a Pipeline and its backend from cfg. The caller owns
// the returned backend and must close it.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, Backend, error) {
	backend, err := NewBackend(ctx, cfg.Backend)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s backend: %w", cfg.Backend.Provider, err)
	}
	generator := NewGenerator(backend, GeneratorConfig{
		Expertise:       cfg.Generation.Expertise,
		Topic:           cfg.Generation.Topic,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		Timeout:         cfg.Generation.Timeout,
		Retry: RetryPolicy{
			MaxAttempts:    cfg.Generation.MaxAttempts,
			InitialBackoff: cfg.Generation.InitialBackoff,
		},
	}, logger)
	renderer := NewRenderer(RendererConfig{Header: cfg.Render.Header, Filename: cfg.Render.Filename})
	return NewPipeline(generator, renderer, cfg.Extraction.Workers, logger), backend, nil
}

// ExtractAll extracts every document on a bounded worker pool. Successes are
// returned in input order; per-file failures are returned alongside them and
// never abort the batch. Only context cancellation is returned as an error.
func (p *Pipeline) ExtractAll(ctx context.Context, docs []models.SourceDocument) ([]models.ExtractedText, []*FileError, error) {
	type outcome struct {
		text models.ExtractedText
		err  error
	}
	outcomes := make([]outcome, len(docs))

	seen := make(map[string]bool, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, doc := range docs {
		if seen[doc.Name] {
			outcomes[i].err = &DuplicateNameError{Name: doc.Name}
			continue
		}
		seen[doc.Name] = true

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := Extract(doc)
			outcomes[i] = outcome{text: text, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	texts := make([]models.ExtractedText, 0, len(docs))
	var fileErrs []*FileError
	for i, o := range outcomes {
		if o.err != nil {
			fileErrs = append(fileErrs, &FileError{Name: docs[i].Name, Err: o.err})
			continue
		}
		texts = append(texts, o.text)
	}
	return texts, fileErrs, nil
}

// Run executes the whole pipeline for one request.
func (p *Pipeline) Run(ctx context.Context, docs []models.SourceDocument) (*Result, error) {
	res := &Result{RequestID: uuid.NewString()}
	logCtx := p.logger.With("requestId", res.RequestID)
	logCtx.Info("Starting presentation build.", "fileCount", len(docs))

	texts, fileErrs, err := p.ExtractAll(ctx, docs)
	if err != nil {
		return res, err
	}
	res.Extracted = texts
	res.FileErrors = fileErrs
	for _, fe := range fileErrs {
		logCtx.Warn("Skipping file.", "file", fe.Name, "error", fe.Err)
	}
	logCtx.Info("Extraction complete.", "extracted", len(texts), "skipped", len(fileErrs))

	agg := Aggregate(texts)
	narrative, err := p.generator.Generate(ctx, agg)
	if err != nil {
		logCtx.Error("Narrative generation failed.", "error", err)
		return res, err
	}
	res.Narrative = narrative
	logCtx.Info("Narrative generated.", "length", len(narrative))

	if err := ctx.Err(); err != nil {
		return res, err
	}

	section := models.NarrativeSection{
		Title: "Summary: " + strings.Join(agg.DocumentNames, ", "),
		Body:  narrative,
	}
	doc, err := p.renderer.Render([]models.NarrativeSection{section})
	if err != nil {
		logCtx.Error("Rendering failed.", "error", err)
		return res, err
	}
	res.Document = doc
	logCtx.Info("Presentation rendered.", "pageCount", doc.PageCount, "bytes", len(doc.Bytes))
	return res, nil
}
