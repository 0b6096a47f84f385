package services

import (
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/presentationflow/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ResolveFormat decides a document's format once, at ingestion. A declared
// format wins, compared case-insensitively; otherwise the filename suffix is used, and content sniffing is
// the fallback when the suffix is missing or unknown.
func ResolveFormat(name string, declared models.Format, raw []byte) (models.Format, error) {
	if declared != "" {
		declared = models.Format(strings.ToLower(strings.TrimSpace(string(declared))))
		if declared.Valid() {
			return declared, nil
		}
		return "", &UnsupportedFormatError{Name: name, Detail: "declared " + string(declared)}
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return models.FormatPDF, nil
	case ".docx":
		return models.FormatDOCX, nil
	case ".txt", ".text":
		return models.FormatTXT, nil
	}

	if len(raw) == 0 {
		return "", &UnsupportedFormatError{Name: name, Detail: "no recognizable suffix"}
	}
	mt := mimetype.Detect(raw)
	switch {
	case mt.Is("application/pdf"):
		return models.FormatPDF, nil
	case mt.Is(docxMIME):
		return models.FormatDOCX, nil
	case mt.Is("text/plain"):
		return models.FormatTXT, nil
	}
	return "", &UnsupportedFormatError{Name: name, Detail: mt.String()}
}
