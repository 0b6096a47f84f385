package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/presentationflow/internal/config"
	"github.com/Lllllllleong/presentationflow/internal/models"
	"github.com/Lllllllleong/presentationflow/internal/services"
)

const (
	formField       = "files"
	maxMemory       = 32 << 20
	retryAfterValue = "30"
)

var (
	builderInstance *builder
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleBuildPresentation", handleBuildPresentation)
}

func main() {}

// builder turns a multipart upload into a presentation PDF.
type builder struct {
	pipeline    *services.Pipeline
	maxFileSize int64
}

func newBuilder(ctx context.Context) (*builder, error) {
	cfg, err := config.Load(os.Getenv("PRESENTATION_CONFIG"))
	if err != nil {
		return nil, err
	}
	// The backend lives as long as the function instance.
	pipeline, _, err := services.BuildPipeline(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	slog.Info("Presentation builder initialized.", "backend", cfg.Backend.Provider, "model", cfg.Backend.Model)
	return &builder{pipeline: pipeline, maxFileSize: cfg.Extraction.MaxFileSize}, nil
}

// handleBuildPresentation is the HTTP entry point.
func handleBuildPresentation(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		builderInstance, initErr = newBuilder(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Presentation builder initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	builderInstance.ServeHTTP(w, r)
}

func (b *builder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		slog.Warn("Could not parse multipart form", "error", err)
		http.Error(w, "Bad Request: expected multipart/form-data", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	docs, skipped, err := b.readUploads(r)
	if err != nil {
		slog.Error("Failed to read uploaded files", "error", err)
		http.Error(w, "Internal Server Error: failed to read upload", http.StatusInternalServerError)
		return
	}

	res, err := b.pipeline.Run(r.Context(), docs)
	if res != nil {
		skipped = append(skipped, res.Skipped()...)
	}
	if err != nil {
		writeError(w, err, skipped)
		return
	}

	doc := res.Document
	skippedJSON, _ := json.Marshal(skipped)
	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.Header().Set("X-Request-Id", res.RequestID)
	w.Header().Set("X-Skipped-Files", string(skippedJSON))
	w.Header().Set("X-Page-Count", strconv.Itoa(doc.PageCount))
	if _, err := w.Write(doc.Bytes); err != nil {
		slog.Error("Failed to write response", "error", err, "requestId", res.RequestID)
	}
}

// readUploads reads every file under the form field. Oversized files are
// reported as skipped rather than failing the request.
func (b *builder) readUploads(r *http.Request) ([]models.SourceDocument, []models.SkippedFile, error) {
	var docs []models.SourceDocument
	var skipped []models.SkippedFile
	for _, fh := range r.MultipartForm.File[formField] {
		if b.maxFileSize > 0 && fh.Size > b.maxFileSize {
			skipped = append(skipped, models.SkippedFile{
				Name:   fh.Filename,
				Reason: fmt.Sprintf("file is %d bytes, limit is %d", fh.Size, b.maxFileSize),
			})
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		raw, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		docs = append(docs, models.SourceDocument{Name: fh.Filename, Raw: raw})
	}
	return docs, skipped, nil
}

func writeError(w http.ResponseWriter, err error, skipped []models.SkippedFile) {
	var (
		empty  *services.EmptyInputError
		genErr *services.GenerationError
		render *services.RenderError
	)
	status := http.StatusInternalServerError
	resp := models.ErrorResponse{Error: err.Error(), SkippedFiles: skipped}
	switch {
	case errors.As(err, &empty):
		status = http.StatusBadRequest
	case errors.As(err, &genErr) && genErr.Transient:
		status = http.StatusServiceUnavailable
		resp.Retryable = true
		w.Header().Set("Retry-After", retryAfterValue)
	case errors.As(err, &genErr):
		status = http.StatusBadGateway
	case errors.As(err, &render):
		status = http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		resp.Retryable = true
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
