package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/presentationflow/internal/models"
	"github.com/Lllllllleong/presentationflow/internal/services"
)

// readSources loads each path as a source document named by its base name.
// Files over maxSize bytes are refused.
func readSources(paths []string, maxSize int64) ([]models.SourceDocument, error) {
	docs := make([]models.SourceDocument, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		if maxSize > 0 && info.Size() > maxSize {
			return nil, fmt.Errorf("%s is %d bytes, limit is %d", p, info.Size(), maxSize)
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, models.SourceDocument{Name: filepath.Base(p), Raw: raw})
	}
	return docs, nil
}

func reportSkipped(w io.Writer, fileErrs []*services.FileError) {
	for _, fe := range fileErrs {
		fmt.Fprintf(w, "skipped %s: %v\n", fe.Name, fe.Err)
	}
}
