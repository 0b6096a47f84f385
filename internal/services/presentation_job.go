package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/presentationflow/internal/config"
	"github.com/Lllllllleong/presentationflow/internal/gcp"
	"github.com/Lllllllleong/presentationflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// ManifestObjectName is the object name that triggers a presentation build.
const ManifestObjectName = "manifest.json"

type objectStore interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Save(ctx context.Context, bucket, object string, content []byte, contentType string) error
}

type jobTracker interface {
	FindByManifest(ctx context.Context, manifestHash string) (id, status string, found bool, err error)
	Create(ctx context.Context, job models.Job) (string, error)
	Update(ctx context.Context, jobID string, updates map[string]any) error
	MarkFailed(ctx context.Context, jobID string, details string, retryable bool) error
}

type workflowTrigger interface {
	Trigger(ctx context.Context, payload any) (string, error)
}

type PresentationJobConfig struct {
	OutputBucket string
	Workers      int
}

// PresentationJobFunction builds a presentation from the sources listed in a
// manifest object and stores the result next to a Firestore job record.
type PresentationJobFunction struct {
	store    objectStore
	jobs     jobTracker
	workflow workflowTrigger
	pipeline *Pipeline
	config   PresentationJobConfig
	closers  []io.Closer
}

// NewPresentationJob creates the function and its cloud clients from cfg.
// The workflow hand-off is skipped when no workflow ID is configured.
func NewPresentationJob(ctx context.Context, cfg *config.Config) (*PresentationJobFunction, error) {
	if cfg.Backend.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if cfg.Storage.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}

	f := &PresentationJobFunction{
		config: PresentationJobConfig{
			OutputBucket: cfg.Storage.OutputBucket,
			Workers:      cfg.Extraction.Workers,
		},
	}

	pipeline, backend, err := BuildPipeline(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	f.pipeline = pipeline
	f.closers = append(f.closers, backend)

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	objects := gcp.NewObjectStore(storageClient, cfg.Extraction.MaxFileSize)
	f.store = objects
	f.closers = append(f.closers, objects)

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.Backend.ProjectID)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	f.jobs = gcp.NewJobStore(firestoreClient, cfg.Storage.Collection)
	f.closers = append(f.closers, firestoreClient)

	if cfg.Storage.WorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, cfg.Backend.ProjectID, cfg.Storage.WorkflowLocation, cfg.Storage.WorkflowID)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.workflow = trigger
		f.closers = append(f.closers, trigger)
	}

	slog.Info("Presentation job logic initialized.",
		"backend", cfg.Backend.Provider,
		"outputBucket", cfg.Storage.OutputBucket,
		"workflowId", cfg.Storage.WorkflowID,
	)
	return f, nil
}

// Close releases the cloud clients.
func (f *PresentationJobFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Process handles one object-finalize event. Returning an error asks the
// platform to redeliver the event, so only failures worth retrying are
// returned; permanent failures are recorded on the job and swallowed.
func (f *PresentationJobFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if path.Base(e.Name) != ManifestObjectName {
		logCtx.Info("Object is not a manifest. Skipping.")
		return nil
	}
	logCtx.Info("Processing manifest.")

	raw, err := f.store.Read(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download manifest", "error", err)
		return err
	}

	manifestHash := hashManifest(e.Bucket, raw)
	logCtx = logCtx.With("manifestHash", manifestHash)

	jobID, status, found, err := f.jobs.FindByManifest(ctx, manifestHash)
	if err != nil {
		logCtx.Error("Failed to look up job for manifest", "error", err)
		return err
	}
	switch {
	case found && status == models.JobStatusCompleted:
		logCtx.Info("Manifest already built. Skipping.", "existingJobId", jobID)
		return nil
	case found:
		if err := f.jobs.Update(ctx, jobID, map[string]any{
			"status":       models.JobStatusDownloading,
			"errorDetails": "",
			"retryable":    false,
		}); err != nil {
			logCtx.Error("Failed to reset job record", "error", err, "jobId", jobID)
			return err
		}
		logCtx.Info("Resuming existing job record.", "previousStatus", status)
	default:
		jobID, err = f.jobs.Create(ctx, models.Job{
			ManifestHash:   manifestHash,
			ManifestObject: fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name),
			Status:         models.JobStatusDownloading,
			CreatedAt:      time.Now(),
		})
		if err != nil {
			logCtx.Error("Failed to create job record", "error", err)
			return err
		}
		logCtx.Info("Created job record in Firestore.")
	}
	logCtx = logCtx.With("jobId", jobID)

	var manifest models.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return f.handleError(ctx, logCtx, jobID, "manifest is not valid JSON", err, false)
	}

	docs, skipped, err := f.downloadSources(ctx, logCtx, path.Dir(e.Name), e.Bucket, manifest)
	if err != nil {
		return f.handleError(ctx, logCtx, jobID, "failed to download sources", err, true)
	}

	if err := f.jobs.Update(ctx, jobID, map[string]any{"status": models.JobStatusProcessing}); err != nil {
		return f.handleError(ctx, logCtx, jobID, "failed to update status to PROCESSING", err, true)
	}

	res, err := f.pipeline.Run(ctx, docs)
	if res != nil {
		skipped = append(skipped, res.FileErrors...)
	}
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		var genErr *GenerationError
		retryable := errors.As(err, &genErr) && genErr.Transient
		return f.handleError(ctx, logCtx, jobID, "presentation build failed", err, retryable)
	}

	doc := res.Document
	outputObject := fmt.Sprintf("%s/%s", jobID, doc.Filename)
	if err := f.store.Save(ctx, f.config.OutputBucket, outputObject, doc.Bytes, doc.MIMEType); err != nil {
		return f.handleError(ctx, logCtx, jobID, "failed to save presentation", err, true)
	}
	outputURI := fmt.Sprintf("gs://%s/%s", f.config.OutputBucket, outputObject)
	logCtx.Info("Presentation saved.", "outputGcsUri", outputURI, "pageCount", doc.PageCount)

	names := make([]string, 0, len(res.Extracted))
	for _, t := range res.Extracted {
		names = append(names, t.SourceName)
	}
	skippedNames := make([]string, 0, len(skipped))
	for _, s := range skipped {
		skippedNames = append(skippedNames, s.Error())
	}
	updates := map[string]any{
		"status":        models.JobStatusCompleted,
		"documentNames": names,
		"skippedFiles":  skippedNames,
		"pageCount":     doc.PageCount,
		"outputGcsUri":  outputURI,
	}

	if f.workflow != nil {
		execName, err := f.workflow.Trigger(ctx, models.WorkflowPayload{
			JobID:        jobID,
			OutputGCSUri: outputURI,
			PageCount:    doc.PageCount,
		})
		if err != nil {
			return f.handleError(ctx, logCtx, jobID, "failed to trigger workflow execution", err, true)
		}
		updates["workflowExecutionId"] = execName
		logCtx.Info("Workflow execution started.", "execution", execName)
	}

	if err := f.jobs.Update(ctx, jobID, updates); err != nil {
		logCtx.Error("Failed to mark job COMPLETED", "error", err)
		return err
	}
	logCtx.Info("Presentation job complete.")
	return nil
}

// downloadSources fetches every manifest entry, resolving object names
// against the manifest's folder. Missing and oversized objects
// are skipped per file; any other storage failure aborts the download.
func (f *PresentationJobFunction) downloadSources(ctx context.Context, logCtx *slog.Logger, dir, bucket string, m models.Manifest) ([]models.SourceDocument, []*FileError, error) {
	docs := make([]models.SourceDocument, len(m.Sources))
	fileErrs := make([]*FileError, len(m.Sources))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(f.config.Workers, 1))
	for i, src := range m.Sources {
		object := path.Join(dir, src.Object)
		name := src.Name
		if name == "" {
			name = path.Base(src.Object)
		}

		eg.Go(func() error {
			raw, err := f.store.Read(gctx, bucket, object)
			switch {
			case err == nil:
				docs[i] = models.SourceDocument{Name: name, Format: src.Format, Raw: raw}
				return nil
			case errors.Is(err, storage.ErrObjectNotExist), errors.Is(err, gcp.ErrObjectTooLarge):
				logCtx.Warn("Skipping manifest source.", "object", object, "error", err)
				fileErrs[i] = &FileError{Name: name, Err: err}
				return nil
			}
			return fmt.Errorf("%s: %w", object, err)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var kept []models.SourceDocument
	var skipped []*FileError
	for i := range m.Sources {
		if fileErrs[i] != nil {
			skipped = append(skipped, fileErrs[i])
			continue
		}
		kept = append(kept, docs[i])
	}
	logCtx.Info("Downloaded manifest sources.", "downloaded", len(kept), "skipped", len(skipped))
	return kept, skipped, nil
}

// handleError records the failure on the job. Retryable failures are returned
// so the event is redelivered; the rest end the invocation cleanly.
func (f *PresentationJobFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error, retryable bool) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr, "retryable", retryable)
	if err := f.jobs.MarkFailed(ctx, jobID, fullError, retryable); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	if retryable {
		return fmt.Errorf("%s: %w", message, originalErr)
	}
	return nil
}

func hashManifest(bucket string, raw []byte) string {
	h := sha256.New()
	h.Write([]byte(bucket))
	h.Write([]byte{0})
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
