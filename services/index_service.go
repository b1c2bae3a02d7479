package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github/supplychain/rag/models"
)

// VectorStore is the index boundary of the pipeline: build replaces the whole
// index from a batch of chunks, search ranks indexed chunks against a query.
type VectorStore interface {
	Build(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

const (
	metricCosine = "cosine"
	metaFile     = "meta.json"
	entriesFile  = "entries.json"
)

// indexMeta is validated on every load. A dimension or metric mismatch makes
// the index unusable until rebuilt.
type indexMeta struct {
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Model     string    `json:"model"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// indexEntry pairs a chunk with its embedding inside the persisted store.
type indexEntry struct {
	Chunk  models.Chunk `json:"chunk"`
	Vector []float32    `json:"vector"`
}

// LocalVectorStore persists the index as a directory holding meta.json and
// entries.json. Build writes a sibling directory first and swaps it in only
// after the new index is complete, so a failed build leaves the previous
// index untouched. Reads are safe for concurrent use; the swap takes the
// write lock.
type LocalVectorStore struct {
	path     string
	embedder Embedder
	model    string

	mu      sync.RWMutex
	entries []indexEntry // nil until a successful build or load
}

// NewLocalVectorStore creates a store rooted at path. Call Open to load a
// previously persisted index.
func NewLocalVectorStore(path string, embedder Embedder, model string) *LocalVectorStore {
	return &LocalVectorStore{path: path, embedder: embedder, model: model}
}

// Open loads the persisted index if one exists. A missing directory is not an
// error: the store simply starts not ready. Validation failures surface as
// models.ErrIndexCorrupt and never return partial results.
func (s *LocalVectorStore) Open() error {
	entries, meta, err := s.load(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("INDEX: No persisted index at %s, starting empty.", s.path)
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	log.Printf("INDEX: Loaded %d entries (dim=%d, metric=%s) from %s", len(entries), meta.Dimension, meta.Metric, s.path)
	return nil
}

func (s *LocalVectorStore) load(dir string) ([]indexEntry, *indexMeta, error) {
	metaBytes, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, nil, err
	}
	var meta indexMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable metadata: %v", models.ErrIndexCorrupt, err)
	}
	if meta.Metric != metricCosine {
		return nil, nil, fmt.Errorf("%w: unsupported metric %q", models.ErrIndexCorrupt, meta.Metric)
	}
	if meta.Dimension != s.embedder.Dimension() {
		return nil, nil, fmt.Errorf("%w: stored dimension %d does not match configured %d",
			models.ErrIndexCorrupt, meta.Dimension, s.embedder.Dimension())
	}

	entryBytes, err := os.ReadFile(filepath.Join(dir, entriesFile))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing entries: %v", models.ErrIndexCorrupt, err)
	}
	var entries []indexEntry
	if err := json.Unmarshal(entryBytes, &entries); err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable entries: %v", models.ErrIndexCorrupt, err)
	}
	if len(entries) != meta.Count {
		return nil, nil, fmt.Errorf("%w: entry count %d does not match metadata count %d",
			models.ErrIndexCorrupt, len(entries), meta.Count)
	}
	for i, entry := range entries {
		if len(entry.Vector) != meta.Dimension {
			return nil, nil, fmt.Errorf("%w: entry %d has dimension %d, want %d",
				models.ErrIndexCorrupt, i, len(entry.Vector), meta.Dimension)
		}
	}
	return entries, &meta, nil
}

// Build embeds every chunk and replaces the persisted index. The replacement
// is all-or-nothing at the directory level: the old directory is removed only
// after the new one is fully written.
func (s *LocalVectorStore) Build(ctx context.Context, chunks []models.Chunk) error {
	log.Printf("INDEX: Building index with %d chunks...", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return &models.EmbeddingServiceError{
			Err: fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)),
		}
	}

	entries := make([]indexEntry, len(chunks))
	for i := range chunks {
		entries[i] = indexEntry{Chunk: chunks[i], Vector: vectors[i]}
	}

	buildDir := s.path + ".build"
	if err := s.persist(buildDir, entries); err != nil {
		os.RemoveAll(buildDir)
		return fmt.Errorf("failed to persist new index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.path); err != nil {
		os.RemoveAll(buildDir)
		return fmt.Errorf("failed to remove previous index: %w", err)
	}
	if err := os.Rename(buildDir, s.path); err != nil {
		return fmt.Errorf("failed to activate new index: %w", err)
	}
	s.entries = entries
	log.Printf("INDEX: Build complete, %d entries persisted at %s", len(entries), s.path)
	return nil
}

func (s *LocalVectorStore) persist(dir string, entries []indexEntry) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	meta := indexMeta{
		Dimension: s.embedder.Dimension(),
		Metric:    metricCosine,
		Model:     s.model,
		Count:     len(entries),
		CreatedAt: time.Now().UTC(),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), metaBytes, 0o644); err != nil {
		return err
	}

	entryBytes, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, entriesFile), entryBytes, 0o644)
}

// Search embeds the query with the build-time embedder, ranks every indexed
// vector by cosine similarity, and returns the top k. Ties keep insertion
// order. Searching before any successful build returns models.ErrIndexNotReady.
func (s *LocalVectorStore) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entries == nil {
		return nil, models.ErrIndexNotReady
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVector := vectors[0]

	results := make([]models.ScoredChunk, 0, len(s.entries))
	for _, entry := range s.entries {
		results = append(results, models.ScoredChunk{
			Chunk: entry.Chunk,
			Score: cosineSimilarity(queryVector, entry.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count reports the number of indexed chunks.
func (s *LocalVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entries == nil {
		return 0, models.ErrIndexNotReady
	}
	return len(s.entries), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
