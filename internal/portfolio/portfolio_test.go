package portfolio

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadCombinesDocuments(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "cv.md", "# Jane Doe\n\nPhD Economics,   2024\n")
	write(t, dir, "research_statement.txt", "Public economics and\ttax policy.")
	write(t, dir, "teaching_statement.pdf", "ignored")

	p, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := "# Jane Doe PhD Economics, 2024 Public economics and tax policy."
	if p.CombinedText != want {
		t.Fatalf("unexpected combined text:\n%q\nwant\n%q", p.CombinedText, want)
	}
	if p.Hash != Hash(want) || len(p.Hash) != 64 {
		t.Fatalf("unexpected hash %q", p.Hash)
	}
	if len(p.Sources) != 2 {
		t.Fatalf("expected two sources, got %v", p.Sources)
	}
	if p.Empty() {
		t.Fatalf("expected non-empty portfolio")
	}
}

func TestLoadPrefersMarkdown(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "cv.md", "markdown cv")
	write(t, dir, "cv.txt", "text cv")

	p, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.CombinedText != "markdown cv" {
		t.Fatalf("expected markdown cv, got %q", p.CombinedText)
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	p, err := Load(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.Empty() {
		t.Fatalf("expected empty portfolio")
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing"), zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestHashChangesWithContent(t *testing.T) {
	if Hash("a") == Hash("b") {
		t.Fatalf("expected different hashes")
	}
}
