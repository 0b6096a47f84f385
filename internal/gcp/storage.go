package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ErrObjectTooLarge is returned by ReadObject when an object exceeds the limit.
var ErrObjectTooLarge = errors.New("object exceeds size limit")

// ReadObject downloads an object fully into memory, refusing objects larger
// than limit bytes.
func ReadObject(ctx context.Context, bucket *storage.BucketHandle, objectName string, limit int64) ([]byte, error) {
	reader, err := bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", objectName, err)
	}
	defer reader.Close()

	var src io.Reader = reader
	if limit > 0 {
		if reader.Attrs.Size > limit {
			return nil, fmt.Errorf("%s is %d bytes: %w", objectName, reader.Attrs.Size, ErrObjectTooLarge)
		}
		src = io.LimitReader(reader, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", objectName, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w", objectName, ErrObjectTooLarge)
	}
	return data, nil
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not a failure: rebuilding the same job is idempotent.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "object", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer", "object", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ObjectStore reads and writes whole objects through one storage client.
type ObjectStore struct {
	client *storage.Client
	limit  int64
}

// NewObjectStore wraps client. Reads larger than limit bytes fail with
// ErrObjectTooLarge; limit <= 0 disables the check.
func NewObjectStore(client *storage.Client, limit int64) *ObjectStore {
	return &ObjectStore{client: client, limit: limit}
}

func (s *ObjectStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	return ReadObject(ctx, s.client.Bucket(bucket), object, s.limit)
}

func (s *ObjectStore) Save(ctx context.Context, bucket, object string, content []byte, contentType string) error {
	return SaveToGCSAtomically(ctx, s.client.Bucket(bucket), object, content, contentType)
}

func (s *ObjectStore) Close() error {
	return s.client.Close()
}
