package services

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/presentationflow/internal/models"
)

const (
	DefaultExpertise = "cybersecurity and artificial intelligence"
	DefaultTopic     = "the use of Generative AI in cybersecurity"
)

const systemInstructionTemplate = `You have expertise in %s.
When given a set of documents, you pull out the key information across all of them to create a presentation.
Your writing style is precise, clear and straight to the point.
The presentation focuses on %s.

Rules:
- Synthesize across every supplied document rather than summarizing each one separately.
- Cite the source of each claim inline with the document name in square brackets, for example [report.pdf].
- Structure the output as a presentation in Markdown: "#" for the deck title, "##" for each slide, "-" for bullet points.
- Only use information found in the documents.`

const userPromptTemplate = `Please use your specialties to generate a point-of-view presentation on %s for the following document(s).

=== DOCUMENT NAMES ===
%s
=== DOCUMENT CONTENTS ===
%s
=== END OF DOCUMENTS ===`

// SystemInstruction returns the fixed persona and output rules for the backend.
func SystemInstruction(expertise, topic string) string {
	return fmt.Sprintf(systemInstructionTemplate, orDefault(expertise, DefaultExpertise), orDefault(topic, DefaultTopic))
}

// UserPrompt lays out the aggregated context between fixed separators.
func UserPrompt(topic string, agg models.AggregatedContext) string {
	return fmt.Sprintf(userPromptTemplate,
		orDefault(topic, DefaultTopic),
		strings.TrimRight(agg.QuotedNames(), "\n"),
		strings.TrimRight(agg.TaggedBody, "\n"),
	)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
