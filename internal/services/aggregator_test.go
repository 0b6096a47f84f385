package services

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Lllllllleong/presentationflow/internal/models"
)

func TestAggregate(t *testing.T) {
	texts := []models.ExtractedText{
		{SourceName: "a.txt", Content: "Hello world"},
		{SourceName: "b.docx", Content: "Intro\nBody"},
	}
	agg := Aggregate(texts)

	if want := []string{"a.txt", "b.docx"}; !reflect.DeepEqual(agg.DocumentNames, want) {
		t.Errorf("names = %v, want %v", agg.DocumentNames, want)
	}
	wantBody := "[BEGIN DOCUMENT \"a.txt\"]\nHello world\n[END DOCUMENT \"a.txt\"]\n" +
		"[BEGIN DOCUMENT \"b.docx\"]\nIntro\nBody\n[END DOCUMENT \"b.docx\"]\n"
	if agg.TaggedBody != wantBody {
		t.Errorf("body = %q\nwant %q", agg.TaggedBody, wantBody)
	}
	if got, want := agg.QuotedNames(), "\"a.txt\"\n\"b.docx\"\n"; got != want {
		t.Errorf("quoted names = %q, want %q", got, want)
	}
}

func TestAggregatePreservesOrderAndIsDeterministic(t *testing.T) {
	texts := []models.ExtractedText{
		{SourceName: "z.txt", Content: "last alphabetically"},
		{SourceName: "m.pdf", Content: ""},
		{SourceName: "a.docx", Content: "first alphabetically"},
	}
	first := Aggregate(texts)
	second := Aggregate(texts)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("aggregate is not deterministic")
	}
	if !reflect.DeepEqual(first.DocumentNames, []string{"z.txt", "m.pdf", "a.docx"}) {
		t.Errorf("order not preserved: %v", first.DocumentNames)
	}
	z := strings.Index(first.TaggedBody, `"z.txt"`)
	m := strings.Index(first.TaggedBody, `"m.pdf"`)
	a := strings.Index(first.TaggedBody, `"a.docx"`)
	if !(z < m && m < a) {
		t.Errorf("body order wrong: %q", first.TaggedBody)
	}
	if !strings.Contains(first.TaggedBody, "[BEGIN DOCUMENT \"m.pdf\"]\n\n[END DOCUMENT \"m.pdf\"]\n") {
		t.Errorf("empty document not tagged: %q", first.TaggedBody)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	if len(agg.DocumentNames) != 0 || agg.TaggedBody != "" {
		t.Errorf("got %+v, want empty context", agg)
	}
}

func TestAggregateQuotesAwkwardNames(t *testing.T) {
	agg := Aggregate([]models.ExtractedText{{SourceName: "say \"hi\".txt", Content: "x"}})
	if !strings.HasPrefix(agg.TaggedBody, `[BEGIN DOCUMENT "say \"hi\".txt"]`) {
		t.Errorf("name not escaped: %q", agg.TaggedBody)
	}
}
