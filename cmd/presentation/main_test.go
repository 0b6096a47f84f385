package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "Hello world")
	c := writeFile(t, dir, "c.pdf", "%PDF-1.7\ncorrupt")

	stdout, stderr, err := runCLI(t, "extract", "--config", "", a, c)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "[BEGIN DOCUMENT \"a.txt\"]\nHello world\n[END DOCUMENT \"a.txt\"]\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "skipped c.pdf") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestBuildCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"# Deck\n- Hello [a.txt]"},"done":true,"done_reason":"stop"}` + "\n"))
	}))
	defer srv.Close()
	t.Setenv("PRESENTATION_BACKEND_URL", srv.URL)

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "Hello world")
	out := filepath.Join(dir, "deck.pdf")

	stdout, _, err := runCLI(t, "build", "--config", "", "--provider", "ollama", "--model", "llama3", "-o", out, a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "(1 page)") {
		t.Errorf("stdout = %q", stdout)
	}
	pdf, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

func TestBuildCommandProviderFlagUsesItsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"# Deck\n- Hello [a.txt]"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()
	t.Setenv("PRESENTATION_BACKEND", "")
	t.Setenv("PRESENTATION_BACKEND_URL", srv.URL)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "Hello world")
	out := filepath.Join(dir, "deck.pdf")

	if _, _, err := runCLI(t, "build", "--config", "", "--provider", "openai", "--model", "gpt-4o", "-o", out, a); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}

func TestBuildCommandMissingFile(t *testing.T) {
	if _, _, err := runCLI(t, "build", "--config", "", filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error")
	}
}
