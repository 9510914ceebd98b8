package rag

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
)

// Extensions accepted by directory indexing.
var allowedExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true,
	".js": true, ".ts": true, ".json": true,
}

const chunkSize = 1500

// Document is one indexed chunk with its origin.
type Document struct {
	Path    string `json:"path"`
	Chunk   int    `json:"chunk"`
	Content string `json:"content"`
}

// Hit is a scored search result.
type Hit struct {
	Path    string  `json:"path"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index holds a BM25 index over uploaded files and indexed directories. The
// bleve index itself is memory-only; the file list is persisted so a restart
// can re-read and re-index the same sources.
type Index struct {
	mu      sync.Mutex
	bleve   bleve.Index
	docs    map[string]Document
	sources map[string]bool
	path    string
	logger  *log.Logger
}

// NewIndex creates the in-memory index and reloads any previously indexed
// sources recorded under dataDir.
func NewIndex(dataDir string) (*Index, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	idx := &Index{
		bleve:   index,
		docs:    map[string]Document{},
		sources: map[string]bool{},
		path:    filepath.Join(dataDir, "rag_sources.json"),
		logger:  log.New(log.Writer(), "[RAG] ", log.LstdFlags),
	}
	if dataDir != "" {
		idx.reload()
	}
	return idx, nil
}

func (x *Index) reload() {
	var sources []string
	if err := readJSONFile(x.path, &sources); err != nil {
		return
	}
	for _, src := range sources {
		if err := x.indexFileLocked(src); err != nil {
			x.logger.Printf("reindex %s: %v", src, err)
			continue
		}
		x.sources[src] = true
	}
}

func (x *Index) persist() {
	if x.path == "" {
		return
	}
	sources := make([]string, 0, len(x.sources))
	for src := range x.sources {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	if err := writeJSONFile(x.path, sources); err != nil {
		x.logger.Printf("persist sources: %v", err)
	}
}

// IndexDirectory walks dir and indexes every file with an allowed extension.
// It returns the number of files indexed.
func (x *Index) IndexDirectory(dir string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	count := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !allowedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if err := x.indexFileLocked(path); err != nil {
			x.logger.Printf("index %s: %v", path, err)
			return nil
		}
		x.sources[path] = true
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("walk %s: %w", dir, err)
	}
	x.persist()
	return count, nil
}

// IndexFile indexes a single file regardless of extension. Used for uploads.
func (x *Index) IndexFile(path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.indexFileLocked(path); err != nil {
		return err
	}
	x.sources[path] = true
	x.persist()
	return nil
}

// IndexContent indexes raw text under a virtual path, without touching disk.
func (x *Index) IndexContent(name, content string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.indexChunks(name, content)
	x.sources[name] = true
	x.persist()
	return nil
}

func (x *Index) indexFileLocked(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	x.indexChunks(path, string(b))
	return nil
}

func (x *Index) indexChunks(path, content string) {
	for i, chunk := range splitChunks(content, chunkSize) {
		id := fmt.Sprintf("%s#%d", path, i)
		doc := Document{Path: path, Chunk: i, Content: chunk}
		x.docs[id] = doc
		if err := x.bleve.Index(id, doc); err != nil {
			x.logger.Printf("index chunk %s: %v", id, err)
		}
	}
}

// Sources lists the indexed file paths.
func (x *Index) Sources() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]string, 0, len(x.sources))
	for src := range x.sources {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// Remove drops a source and its chunks from the index. With a directory
// prefix it drops everything underneath.
func (x *Index) Remove(source string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	removed := false
	for id, doc := range x.docs {
		if doc.Path == source || strings.HasPrefix(doc.Path, source+string(filepath.Separator)) {
			if err := x.bleve.Delete(id); err != nil {
				x.logger.Printf("delete chunk %s: %v", id, err)
			}
			delete(x.docs, id)
			removed = true
		}
	}
	for src := range x.sources {
		if src == source || strings.HasPrefix(src, source+string(filepath.Separator)) {
			delete(x.sources, src)
		}
	}
	if !removed {
		return fmt.Errorf("source %s not indexed", source)
	}
	x.persist()
	return nil
}

// Search runs a BM25 query and returns the top k hits with snippets.
func (x *Index) Search(q string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := x.bleve.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []Hit
	for _, hit := range res.Hits {
		doc, ok := x.docs[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Hit{Path: doc.Path, Snippet: snippet(doc.Content), Score: hit.Score})
	}
	return out, nil
}

// Context joins the top hits into a block suitable for prompt injection.
func (x *Index) Context(q string, k int) (string, error) {
	hits, err := x.Search(q, k)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "File: %s\n%s\n\n", h.Path, h.Snippet)
	}
	return strings.TrimSpace(b.String()), nil
}

// Close releases the bleve index.
func (x *Index) Close() error { return x.bleve.Close() }

func splitChunks(content string, size int) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	var chunks []string
	for len(content) > size {
		cut := size
		if idx := strings.LastIndex(content[:size], "\n"); idx > size/2 {
			cut = idx
		}
		chunks = append(chunks, content[:cut])
		content = content[cut:]
	}
	chunks = append(chunks, content)
	return chunks
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 400 {
		return text[:400] + "..."
	}
	return text
}
