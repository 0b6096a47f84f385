package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/presentationflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// JobStore tracks presentation build jobs in one Firestore collection.
type JobStore struct {
	client     *firestore.Client
	collection string
}

func NewJobStore(client *firestore.Client, collection string) *JobStore {
	return &JobStore{client: client, collection: collection}
}

// FindByManifest returns the job recorded for a manifest hash and its status.
// A completed job is preferred when several records share the hash.
func (s *JobStore) FindByManifest(ctx context.Context, manifestHash string) (string, string, bool, error) {
	docs, err := s.client.Collection(s.collection).
		Where("manifestHash", "==", manifestHash).
		Documents(ctx).GetAll()
	if err != nil {
		return "", "", false, fmt.Errorf("failed to query jobs for manifest: %w", err)
	}
	if len(docs) == 0 {
		return "", "", false, nil
	}
	pick := docs[0]
	for _, d := range docs {
		if status, _ := d.Data()["status"].(string); status == models.JobStatusCompleted {
			pick = d
			break
		}
	}
	status, _ := pick.Data()["status"].(string)
	return pick.Ref.ID, status, true, nil
}

// Create adds a new job record and returns its ID.
func (s *JobStore) Create(ctx context.Context, job models.Job) (string, error) {
	docRef, _, err := s.client.Collection(s.collection).Add(ctx, job)
	if err != nil {
		return "", fmt.Errorf("failed to create job record: %w", err)
	}
	return docRef.ID, nil
}

// Update applies field updates to an existing job record.
func (s *JobStore) Update(ctx context.Context, jobID string, updates map[string]any) error {
	fields := make([]firestore.Update, 0, len(updates))
	for path, value := range updates {
		fields = append(fields, firestore.Update{Path: path, Value: value})
	}
	if _, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, fields); err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}

// MarkFailed records a failed job with the error text.
func (s *JobStore) MarkFailed(ctx context.Context, jobID string, details string, retryable bool) error {
	return s.Update(ctx, jobID, map[string]any{
		"status":       models.JobStatusFailed,
		"errorDetails": details,
		"retryable":    retryable,
	})
}
