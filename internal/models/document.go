package models

import (
	"strconv"
	"strings"
	"time"
)

// Format identifies how a source document's bytes are encoded.
// It is resolved once at ingestion and never re-derived from the filename.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// Valid reports whether f is one of the formats the extractor understands.
func (f Format) Valid() bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatTXT:
		return true
	}
	return false
}

// SourceDocument is one uploaded file. Format may be left empty by the caller,
// in which case it is inferred during ingestion.
type SourceDocument struct {
	Name   string
	Format Format
	Raw    []byte
}

// ExtractedText is the normalized plain text of one SourceDocument.
type ExtractedText struct {
	SourceName string `json:"sourceName"`
	Content    string `json:"content"`
}

// AggregatedContext is the provenance-tagged corpus handed to the generator.
type AggregatedContext struct {
	DocumentNames []string `json:"documentNames"`
	TaggedBody    string   `json:"taggedBody"`
}

// QuotedNames renders the document names one per line, each Go-quoted.
func (c AggregatedContext) QuotedNames() string {
	var sb strings.Builder
	for _, name := range c.DocumentNames {
		sb.WriteString(strconv.Quote(name))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// NarrativeSection is one titled block of generated text.
type NarrativeSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// RenderedDocument is the final paginated artifact returned to the caller.
type RenderedDocument struct {
	PageCount int
	Bytes     []byte
	Filename  string
	MIMEType  string
}

// Job is the Firestore record for one manifest-triggered presentation build.
type Job struct {
	ManifestHash        string    `firestore:"manifestHash,omitempty"`
	ManifestObject      string    `firestore:"manifestObject,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	Retryable           bool      `firestore:"retryable,omitempty"`
	DocumentNames       []string  `firestore:"documentNames,omitempty"`
	SkippedFiles        []string  `firestore:"skippedFiles,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	OutputGCSUri        string    `firestore:"outputGcsUri,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"`
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}

// Job statuses, in the order a successful build moves through them.
const (
	JobStatusDownloading = "DOWNLOADING"
	JobStatusProcessing  = "PROCESSING"
	JobStatusCompleted   = "COMPLETED"
	JobStatusFailed      = "FAILED"
)
