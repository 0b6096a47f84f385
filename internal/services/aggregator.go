package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Lllllllleong/presentationflow/internal/models"
)

// Aggregate concatenates extracted texts in input order, wrapping each in a
// pair of markers that carry the document name so the generator can cite it.
// Output depends only on the input.
func Aggregate(texts []models.ExtractedText) models.AggregatedContext {
	agg := models.AggregatedContext{DocumentNames: make([]string, 0, len(texts))}
	var body strings.Builder
	for _, t := range texts {
		agg.DocumentNames = append(agg.DocumentNames, t.SourceName)
		body.WriteString(beginMarker(t.SourceName))
		body.WriteByte('\n')
		body.WriteString(t.Content)
		body.WriteByte('\n')
		body.WriteString(endMarker(t.SourceName))
		body.WriteByte('\n')
	}
	agg.TaggedBody = body.String()
	return agg
}

func beginMarker(name string) string {
	return fmt.Sprintf("[BEGIN DOCUMENT %s]", strconv.Quote(name))
}

func endMarker(name string) string {
	return fmt.Sprintf("[END DOCUMENT %s]", strconv.Quote(name))
}
