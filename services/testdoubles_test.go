package services

import (
	"context"
	"errors"
	"strings"

	"github/supplychain/rag/models"
)

// fakeEmbedder is a deterministic embedder for tests: the vector counts
// runes, vowels, spaces and other characters, padded to the configured
// dimension. Identical texts always embed identically.
type fakeEmbedder struct {
	dim  int
	fail bool
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: 4} }

func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, &models.EmbeddingServiceError{Err: errors.New("embedding backend down")}
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, f.dim)
		for _, r := range text {
			v[0]++
			switch {
			case strings.ContainsRune("aeiouAEIOU", r):
				v[1]++
			case r == ' ':
				v[2]++
			default:
				v[3]++
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

// fakeGenerator returns a canned reply and records the prompt it was given.
type fakeGenerator struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeVectorStore serves canned retrieval results to the composer tests.
type fakeVectorStore struct {
	results []models.ScoredChunk
	err     error
	lastK   int
}

func (f *fakeVectorStore) Build(context.Context, []models.Chunk) error { return nil }

func (f *fakeVectorStore) Search(_ context.Context, _ string, k int) ([]models.ScoredChunk, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}

func (f *fakeVectorStore) Count(context.Context) (int, error) { return len(f.results), nil }
