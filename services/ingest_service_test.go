package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/supplychain/rag/models"
)

func newTestPipeline(t *testing.T) (*IngestionService, *LocalVectorStore) {
	t.Helper()
	chunker, err := NewChunker(120, 30)
	require.NoError(t, err)
	store := NewLocalVectorStore(filepath.Join(t.TempDir(), "index"), newFakeEmbedder(), "fake")
	require.NoError(t, store.Open())
	return NewIngestionService(NewExtractor(), chunker, store), store
}

func TestIngestEmptyCorpusFallsBack(t *testing.T) {
	ingestion, store := newTestPipeline(t)

	count, err := ingestion.Ingest(context.Background(), Sources{})
	require.NoError(t, err, "zero ingestible sources must still succeed via the fallback corpus")
	assert.GreaterOrEqual(t, count, 1)

	indexed, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, count, indexed)

	// Fallback answers must be traceable to the demo corpus.
	results, err := store.Search(context.Background(), "Just-In-Time", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.DocTypeDemo, results[0].Chunk.Metadata.Type)
}

func TestIngestFromRecords(t *testing.T) {
	ingestion, store := newTestPipeline(t)

	records := []DatasetRecord{
		{Term: "SCM", Definition: "Planning and control of the whole supply chain."},
		{Term: "", Definition: ""}, // all blank, yields no document
		{FileName: "notes.txt", Content: "Procurement sources goods and services from suppliers."},
	}
	count, err := ingestion.Ingest(context.Background(), Sources{Records: records})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	indexed, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
}

func TestIngestScansDocsDir(t *testing.T) {
	ingestion, store := newTestPipeline(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"),
		[]byte("Distribution delivers finished products to customers."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"),
		[]byte{0xff, 0xfe}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.csv"),
		[]byte("not,a,supported,type"), 0o644))

	count, err := ingestion.Ingest(context.Background(), Sources{DocsDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	skipped := ingestion.SkippedSources()
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "bad.txt")

	indexed, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, indexed)
}

func TestIngestIsIdempotent(t *testing.T) {
	ingestion, store := newTestPipeline(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"),
		[]byte("The bullwhip effect amplifies demand variability upstream through the supply chain."), 0o644))

	sources := Sources{DocsDir: dir}
	first, err := ingestion.Ingest(context.Background(), sources)
	require.NoError(t, err)
	second, err := ingestion.Ingest(context.Background(), sources)
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-running ingestion must fully replace, not accumulate")

	indexed, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, indexed)

	// Same query, same top result across rebuilds.
	results, err := store.Search(context.Background(), "bullwhip", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc.txt", results[0].Chunk.Metadata.Filename)
}

func TestIngestFailedBuildPropagates(t *testing.T) {
	chunker, err := NewChunker(120, 30)
	require.NoError(t, err)
	embedder := newFakeEmbedder()
	embedder.fail = true
	store := NewLocalVectorStore(filepath.Join(t.TempDir(), "index"), embedder, "fake")
	ingestion := NewIngestionService(NewExtractor(), chunker, store)

	_, err = ingestion.Ingest(context.Background(), Sources{})
	var embErr *models.EmbeddingServiceError
	require.ErrorAs(t, err, &embErr)
}

func TestIngestMissingDatasetIsSkippedNotFatal(t *testing.T) {
	ingestion, _ := newTestPipeline(t)

	count, err := ingestion.Ingest(context.Background(), Sources{
		DatasetPath: filepath.Join(t.TempDir(), "nope.jsonl"),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1, "fallback corpus covers the missing dataset")
	assert.NotEmpty(t, ingestion.SkippedSources())
}
