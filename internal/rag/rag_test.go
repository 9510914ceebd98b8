package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIndexDirectoryFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.md", "The Rosetta Stone unlocked Egyptian hieroglyphs.")
	writeFile(t, dir, "script.py", "def decode(): return 'hieroglyphs'")
	writeFile(t, dir, "image.png", "binary junk")

	idx, err := NewIndex(t.TempDir())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	n, err := idx.IndexDirectory(dir)
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	if n != 2 {
		t.Fatalf("indexed %d files, want 2", n)
	}
	if len(idx.Sources()) != 2 {
		t.Fatalf("sources = %v", idx.Sources())
	}
}

func TestSearchReturnsScoredHits(t *testing.T) {
	dir := t.TempDir()
	stone := writeFile(t, dir, "stone.txt", "The Rosetta Stone is a granodiorite stele inscribed in three scripts.")
	writeFile(t, dir, "cooking.txt", "Add two eggs and whisk until fluffy.")

	idx, err := NewIndex("")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()
	if _, err := idx.IndexDirectory(dir); err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}

	hits, err := idx.Search("rosetta stele", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].Path != stone {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Score <= 0 {
		t.Fatalf("expected positive score, got %f", hits[0].Score)
	}
}

func TestRemoveDropsSource(t *testing.T) {
	idx, err := NewIndex("")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	if err := idx.IndexContent("upload.txt", "Champollion deciphered the hieroglyphic script in 1822."); err != nil {
		t.Fatalf("IndexContent: %v", err)
	}
	if err := idx.Remove("upload.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(idx.Sources()) != 0 {
		t.Fatalf("sources not cleared: %v", idx.Sources())
	}
	hits, err := idx.Search("champollion", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("stale hits after remove: %+v", hits)
	}
	if err := idx.Remove("upload.txt"); err == nil {
		t.Fatal("expected error removing unknown source")
	}
}

func TestSourcesPersistAcrossReload(t *testing.T) {
	dataDir := t.TempDir()
	docs := t.TempDir()
	writeFile(t, docs, "notes.md", "Ptolemaic decree issued at Memphis in 196 BC.")

	idx, err := NewIndex(dataDir)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if _, err := idx.IndexDirectory(docs); err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	_ = idx.Close()

	idx2, err := NewIndex(dataDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer idx2.Close()
	if len(idx2.Sources()) != 1 {
		t.Fatalf("sources not reloaded: %v", idx2.Sources())
	}
	hits, err := idx2.Search("memphis decree", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("reloaded index returned no hits")
	}
}

func TestContextJoinsHits(t *testing.T) {
	idx, err := NewIndex("")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()
	if err := idx.IndexContent("a.txt", "Hieroglyphs are logographic."); err != nil {
		t.Fatalf("IndexContent: %v", err)
	}

	ctx, err := idx.Context("hieroglyphs", 2)
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if !strings.Contains(ctx, "File: a.txt") || !strings.Contains(ctx, "logographic") {
		t.Fatalf("unexpected context: %q", ctx)
	}
}

func TestSplitChunksPrefersLineBreaks(t *testing.T) {
	content := strings.Repeat("line of text here\n", 200)
	chunks := splitChunks(content, 1500)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 1500 {
			t.Fatalf("chunk exceeds limit: %d", len(c))
		}
	}
}
