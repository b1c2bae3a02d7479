package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/supplychain/rag/models"
)

func indexChunks(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			Text: text,
			Metadata: models.DocumentMetadata{
				Source:   "txt_0",
				Filename: "corpus.txt",
				Type:     models.DocTypeText,
			},
		}
	}
	return chunks
}

func TestSearchBeforeBuild(t *testing.T) {
	store := NewLocalVectorStore(filepath.Join(t.TempDir(), "index"), newFakeEmbedder(), "fake")
	require.NoError(t, store.Open())

	_, err := store.Search(context.Background(), "anything", 4)
	require.ErrorIs(t, err, models.ErrIndexNotReady)

	_, err = store.Count(context.Background())
	require.ErrorIs(t, err, models.ErrIndexNotReady)
}

func TestBuildAndSearchOrdering(t *testing.T) {
	store := NewLocalVectorStore(filepath.Join(t.TempDir(), "index"), newFakeEmbedder(), "fake")
	require.NoError(t, store.Open())

	// "aaaa" and "eeee" embed identically under the fake embedder, as do the
	// three consonant chunks, which exercises stable tie-breaking.
	chunks := indexChunks("aaaa", "bbbb", "cccc", "dddd", "eeee")
	require.NoError(t, store.Build(context.Background(), chunks))

	results, err := store.Search(context.Background(), "aaaa", 4)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "aaaa", results[0].Chunk.Text)
	assert.Equal(t, "eeee", results[1].Chunk.Text, "equal scores keep insertion order")
	assert.Equal(t, "bbbb", results[2].Chunk.Text)
	assert.Equal(t, "cccc", results[3].Chunk.Text)

	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchKLargerThanIndex(t *testing.T) {
	store := NewLocalVectorStore(filepath.Join(t.TempDir(), "index"), newFakeEmbedder(), "fake")
	require.NoError(t, store.Build(context.Background(), indexChunks("aaaa", "bbbb")))

	results, err := store.Search(context.Background(), "aaaa", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	embedder := newFakeEmbedder()

	first := NewLocalVectorStore(path, embedder, "fake")
	require.NoError(t, first.Build(context.Background(), indexChunks("aaaa", "bbbb", "cccc")))

	second := NewLocalVectorStore(path, embedder, "fake")
	require.NoError(t, second.Open())

	count, err := second.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := second.Search(context.Background(), "bbbb", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bbbb", results[0].Chunk.Text)
	assert.Equal(t, "corpus.txt", results[0].Chunk.Metadata.Filename)
}

func TestDimensionMismatchOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")

	builder := NewLocalVectorStore(path, newFakeEmbedder(), "fake")
	require.NoError(t, builder.Build(context.Background(), indexChunks("aaaa")))

	mismatched := &fakeEmbedder{dim: 8}
	reopened := NewLocalVectorStore(path, mismatched, "fake")
	err := reopened.Open()
	require.ErrorIs(t, err, models.ErrIndexCorrupt)

	// A corrupt index must never serve partial results.
	_, err = reopened.Search(context.Background(), "aaaa", 1)
	require.ErrorIs(t, err, models.ErrIndexNotReady)
}

func TestFailedBuildKeepsPreviousIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	embedder := newFakeEmbedder()
	store := NewLocalVectorStore(path, embedder, "fake")

	require.NoError(t, store.Build(context.Background(), indexChunks("aaaa", "bbbb")))

	embedder.fail = true
	err := store.Build(context.Background(), indexChunks("cccc"))
	require.Error(t, err)
	var embErr *models.EmbeddingServiceError
	require.ErrorAs(t, err, &embErr)

	// In-memory view still serves the previous build.
	embedder.fail = false
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// And so does the persisted directory.
	reopened := NewLocalVectorStore(path, embedder, "fake")
	require.NoError(t, reopened.Open())
	count, err = reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRebuildReplacesIndex(t *testing.T) {
	store := NewLocalVectorStore(filepath.Join(t.TempDir(), "index"), newFakeEmbedder(), "fake")

	require.NoError(t, store.Build(context.Background(), indexChunks("aaaa", "bbbb", "cccc")))
	require.NoError(t, store.Build(context.Background(), indexChunks("dddd")))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
