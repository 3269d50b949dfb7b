package text

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/oho/clusterlab/internal/mathutil"
)

func TestCountTokens(t *testing.T) {
	n := CountTokens("Hello world, this is a test.")
	if n <= 0 {
		t.Errorf("expected positive token count, got %d", n)
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  Hello   World  ")
	if got != "hello world" {
		t.Errorf("expected 'hello world', got %q", got)
	}
}

func TestComputeDocumentIDDeterministic(t *testing.T) {
	id1 := ComputeDocumentID("a.txt", "Hello World")
	id2 := ComputeDocumentID("a.txt", "hello   world")
	if id1 != id2 {
		t.Errorf("document IDs should ignore case and spacing: %s != %s", id1, id2)
	}
	if len(id1) != 32 {
		t.Errorf("document ID should be 32 chars, got %d", len(id1))
	}
	if ComputeDocumentID("b.txt", "Hello World") == id1 {
		t.Error("different names should give different IDs")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The Fed's rate-hike, in 2024: markets DIDN'T react!")
	want := []string{"the", "fed's", "rate", "hike", "in", "2024", "markets", "didn't", "react"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRemoveStopwords(t *testing.T) {
	got := RemoveStopwords([]string{"the", "markets", "didn't", "react"}, DefaultStopwords)
	if len(got) != 2 || got[0] != "markets" || got[1] != "react" {
		t.Errorf("unexpected tokens %v", got)
	}
	custom := DefaultStopwords.With("Markets")
	if got := RemoveStopwords([]string{"markets", "rally"}, custom); len(got) != 1 {
		t.Errorf("extra stop word not applied: %v", got)
	}
	if DefaultStopwords.Contains("markets") {
		t.Error("With must not modify the receiver")
	}
}

func TestHashVectorize(t *testing.T) {
	docs := [][]string{
		{"stocks", "bonds", "stocks"},
		{"stocks", "bonds"},
		{"football", "goal"},
	}
	rows, err := HashVectorize(docs, 64, false)
	if err != nil {
		t.Fatalf("HashVectorize: %v", err)
	}
	if len(rows) != 3 || len(rows[0]) != 64 {
		t.Fatalf("expected 3x64 rows, got %dx%d", len(rows), len(rows[0]))
	}
	for i, r := range rows {
		if norm := floats.Norm(r, 2); math.Abs(norm-1) > 1e-9 {
			t.Errorf("row %d norm %f, expected 1", i, norm)
		}
	}
	finance := mathutil.CosineSimilarity(rows[0], rows[1])
	cross := mathutil.CosineSimilarity(rows[0], rows[2])
	if finance <= cross {
		t.Errorf("shared vocabulary should be more similar: %f <= %f", finance, cross)
	}
}

func TestHashVectorizeIDF(t *testing.T) {
	docs := [][]string{{"alpha", "beta"}, {"alpha", "gamma"}}
	rows, err := HashVectorize(docs, 128, true)
	if err != nil {
		t.Fatalf("HashVectorize: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestHashVectorizeKeepsUpstreamTokens(t *testing.T) {
	docs := [][]string{
		{"budget", "2024"},
		{"budget", "2025"},
		{"budget", "don't"},
		{"budget", "don", "t"},
	}
	rows, err := HashVectorize(docs, 1024, false)
	if err != nil {
		t.Fatalf("HashVectorize: %v", err)
	}
	if sim := mathutil.CosineSimilarity(rows[0], rows[1]); sim > 0.99 {
		t.Errorf("documents differing only in a number should differ, similarity %f", sim)
	}
	if sim := mathutil.CosineSimilarity(rows[2], rows[3]); sim > 0.99 {
		t.Errorf("a contraction should hash as one token, similarity %f", sim)
	}
}

func TestHashVectorizeEmpty(t *testing.T) {
	if _, err := HashVectorize(nil, 8, false); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestTopTerms(t *testing.T) {
	got := TopTerms([][]string{{"b", "a", "c"}, {"a", "b"}, {"a"}}, 2)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected top terms %v", got)
	}
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Stocks rallied today."), 0o644)
	os.MkdirAll(filepath.Join(dir, "sports"), 0o755)
	os.WriteFile(filepath.Join(dir, "sports", "b.md"), []byte("The team scored a goal."), 0o644)
	os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644)
	os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("secret"), 0o644)
	os.WriteFile(filepath.Join(dir, "big.txt"), make([]byte, 2048), 0o644)

	docs, stats, err := LoadCorpus(dir, 1024)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if len(docs) != 2 || stats.Documents != 2 {
		t.Fatalf("expected 2 documents, got %d (%+v)", len(docs), stats)
	}
	if docs[0].Name != "a.txt" || docs[1].Name != filepath.Join("sports", "b.md") {
		t.Errorf("unexpected document order: %s, %s", docs[0].Name, docs[1].Name)
	}
	if stats.Skipped != 3 {
		t.Errorf("expected 3 skipped, got %d", stats.Skipped)
	}
	if stats.Tokens <= 0 {
		t.Error("expected token count")
	}
}

func TestLoadCorpusNotDir(t *testing.T) {
	if _, _, err := LoadCorpus("/nonexistent/corpus", 0); err == nil {
		t.Error("expected error for missing corpus")
	}
}
