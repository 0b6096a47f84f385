package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/presentationflow/internal/config"
	"github.com/Lllllllleong/presentationflow/internal/models"
	"github.com/Lllllllleong/presentationflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	jobInstance *services.PresentationJobFunction
	once        sync.Once
	initErr     error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("BuildFromManifest", buildFromManifest)
}

// main is required by the Go Functions Framework.
func main() {}

// buildFromManifest is the Cloud Function entry point for storage
// object-finalize events.
func buildFromManifest(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load(os.Getenv("PRESENTATION_CONFIG"))
		if initErr != nil {
			return
		}
		jobInstance, initErr = services.NewPresentationJob(context.Background(), cfg)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside Process; returning one asks for
	// redelivery.
	return jobInstance.Process(ctx, gcsEvent)
}
