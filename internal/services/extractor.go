package services

import (
	"errors"
	"unicode/utf8"

	"github.com/Lllllllleong/presentationflow/internal/models"
)

var errInvalidUTF8 = errors.New("text is not valid UTF-8")

// ExtractText converts raw bytes of the given format into UTF-8 plain text.
// The raw buffer is only read. A zero-length input yields "" for every
// supported format.
func ExtractText(format models.Format, raw []byte) (string, error) {
	if !format.Valid() {
		return "", &UnsupportedFormatError{Detail: string(format)}
	}
	if len(raw) == 0 {
		return "", nil
	}

	var (
		text string
		err  error
	)
	switch format {
	case models.FormatPDF:
		text, err = extractPDF(raw)
	case models.FormatDOCX:
		text, err = extractDOCX(raw)
	case models.FormatTXT:
		if !utf8.Valid(raw) {
			err = errInvalidUTF8
		} else {
			text = string(raw)
		}
	}
	if err != nil {
		return "", &DecodeError{Format: format, Err: err}
	}
	return text, nil
}

// Extract resolves the document's format if needed and extracts its text,
// stamping the document name on any error.
func Extract(doc models.SourceDocument) (models.ExtractedText, error) {
	format, err := ResolveFormat(doc.Name, doc.Format, doc.Raw)
	if err != nil {
		return models.ExtractedText{}, err
	}
	text, err := ExtractText(format, doc.Raw)
	if err != nil {
		var unsupported *UnsupportedFormatError
		var decode *DecodeError
		switch {
		case errors.As(err, &unsupported):
			unsupported.Name = doc.Name
		case errors.As(err, &decode):
			decode.Name = doc.Name
		}
		return models.ExtractedText{}, err
	}
	return models.ExtractedText{SourceName: doc.Name, Content: text}, nil
}
