package models

// These structs define the JSON payloads exchanged with the HTTP and event
// entry points.

// GCSEvent is the payload of a storage object-finalize event.
type GCSEvent struct {
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	Generation string `json:"generation,omitempty"`
}

// Manifest lists the objects, relative to the manifest's folder in the same
// bucket, that make up one presentation request.
type Manifest struct {
	Sources []ManifestSource `json:"sources"`
}

// ManifestSource is one entry in a Manifest. Format is optional.
type ManifestSource struct {
	Object string `json:"object"`
	Name   string `json:"name,omitempty"`
	Format Format `json:"format,omitempty"`
}

// SkippedFile reports a per-file failure that did not abort the request.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ErrorResponse is written by the HTTP function when a request fails.
type ErrorResponse struct {
	Error        string        `json:"error"`
	Retryable    bool          `json:"retryable"`
	SkippedFiles []SkippedFile `json:"skippedFiles,omitempty"`
}

// WorkflowPayload is the argument passed to the downstream workflow once a
// presentation has been stored.
type WorkflowPayload struct {
	JobID        string `json:"jobId"`
	OutputGCSUri string `json:"outputGcsUri"`
	PageCount    int    `json:"pageCount"`
}
