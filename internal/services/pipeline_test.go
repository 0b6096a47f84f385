package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/Lllllllleong/presentationflow/internal/llm"
	"github.com/Lllllllleong/presentationflow/internal/models"
)

func newTestPipeline(backend llm.Backend, workers int) *Pipeline {
	return NewPipeline(
		NewGenerator(backend, GeneratorConfig{}, nil),
		NewRenderer(RendererConfig{}),
		workers,
		nil,
	)
}

func threeFiles(t *testing.T) []models.SourceDocument {
	return []models.SourceDocument{
		{Name: "a.txt", Raw: []byte("Hello world")},
		{Name: "b.docx", Raw: buildDOCX(t, "Intro", "Body")},
		{Name: "c.pdf", Raw: []byte("%PDF-1.7\ncorrupted beyond repair")},
	}
}

func TestExtractAllThreeFiles(t *testing.T) {
	p := newTestPipeline(&fakeBackend{}, 3)
	texts, fileErrs, err := p.ExtractAll(context.Background(), threeFiles(t))
	if err != nil {
		t.Fatal(err)
	}

	want := []models.ExtractedText{
		{SourceName: "a.txt", Content: "Hello world"},
		{SourceName: "b.docx", Content: "Intro\nBody"},
	}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("texts = %+v, want %+v", texts, want)
	}
	if len(fileErrs) != 1 || fileErrs[0].Name != "c.pdf" {
		t.Fatalf("file errors = %v, want one for c.pdf", fileErrs)
	}
	var decodeErr *DecodeError
	if !errors.As(fileErrs[0], &decodeErr) {
		t.Errorf("c.pdf error = %v, want DecodeError", fileErrs[0].Err)
	}

	agg := Aggregate(texts)
	if !reflect.DeepEqual(agg.DocumentNames, []string{"a.txt", "b.docx"}) {
		t.Errorf("names = %v", agg.DocumentNames)
	}
}

func TestExtractAllKeepsInputOrder(t *testing.T) {
	var docs []models.SourceDocument
	for i := 0; i < 40; i++ {
		docs = append(docs, models.SourceDocument{
			Name: fmt.Sprintf("doc-%02d.txt", i),
			Raw:  []byte(strings.Repeat("x", (40-i)*1000)),
		})
	}
	p := newTestPipeline(&fakeBackend{}, 8)
	texts, fileErrs, err := p.ExtractAll(context.Background(), docs)
	if err != nil || len(fileErrs) != 0 {
		t.Fatalf("err = %v, fileErrs = %v", err, fileErrs)
	}
	for i, text := range texts {
		if text.SourceName != docs[i].Name {
			t.Fatalf("position %d holds %s, want %s", i, text.SourceName, docs[i].Name)
		}
	}
}

func TestExtractAllDuplicateNames(t *testing.T) {
	docs := []models.SourceDocument{
		{Name: "notes.txt", Raw: []byte("first")},
		{Name: "notes.txt", Raw: []byte("second")},
	}
	p := newTestPipeline(&fakeBackend{}, 2)
	texts, fileErrs, err := p.ExtractAll(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(texts) != 1 || texts[0].Content != "first" {
		t.Errorf("texts = %+v", texts)
	}
	var dup *DuplicateNameError
	if len(fileErrs) != 1 || !errors.As(fileErrs[0], &dup) {
		t.Errorf("file errors = %v, want one DuplicateNameError", fileErrs)
	}
}

func TestExtractAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(&fakeBackend{}, 2)
	if _, _, err := p.ExtractAll(ctx, threeFiles(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun(t *testing.T) {
	backend := &fakeBackend{replies: []fakeReply{{text: "# Deck\n\n## Findings\n- Greeting observed [a.txt]\n- Structure noted [b.docx]"}}}
	p := newTestPipeline(backend, 2)

	res, err := p.Run(context.Background(), threeFiles(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.RequestID == "" {
		t.Error("missing request id")
	}
	if res.Document == nil || res.Document.PageCount != 1 {
		t.Fatalf("document = %+v", res.Document)
	}
	if !strings.Contains(res.Narrative, "[b.docx]") {
		t.Errorf("narrative = %q", res.Narrative)
	}
	if len(res.Extracted) != 2 {
		t.Errorf("extracted = %d", len(res.Extracted))
	}
	skipped := res.Skipped()
	if len(skipped) != 1 || skipped[0].Name != "c.pdf" {
		t.Errorf("skipped = %+v", skipped)
	}
	if backend.calls() != 1 {
		t.Errorf("backend called %d times", backend.calls())
	}
	if !strings.Contains(backend.requests[0].Prompt, "[BEGIN DOCUMENT \"a.txt\"]\nHello world\n[END DOCUMENT \"a.txt\"]") {
		t.Errorf("prompt missing tagged a.txt:\n%s", backend.requests[0].Prompt)
	}
}

func TestRunNothingUsable(t *testing.T) {
	backend := &fakeBackend{replies: []fakeReply{{text: "unused"}}}
	p := newTestPipeline(backend, 2)

	res, err := p.Run(context.Background(), []models.SourceDocument{
		{Name: "c.pdf", Raw: []byte("%PDF-1.7\ncorrupted")},
		{Name: "deck.key", Raw: []byte{0x00, 0x01, 0x02}},
	})
	var empty *EmptyInputError
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want EmptyInputError", err)
	}
	if backend.calls() != 0 {
		t.Errorf("backend called %d times", backend.calls())
	}
	if res == nil || len(res.FileErrors) != 2 {
		t.Fatalf("result should still report both skipped files: %+v", res)
	}
	if res.Document != nil {
		t.Error("no document expected")
	}
}

func TestRunGenerationFailure(t *testing.T) {
	backend := &fakeBackend{replies: []fakeReply{{err: llm.Transient("test", "rate limited", errors.New("429"))}}}
	p := newTestPipeline(backend, 1)

	_, err := p.Run(context.Background(), []models.SourceDocument{{Name: "a.txt", Raw: []byte("Hello world")}})
	var genErr *GenerationError
	if !errors.As(err, &genErr) || !genErr.Transient {
		t.Fatalf("err = %v, want transient GenerationError", err)
	}
}
