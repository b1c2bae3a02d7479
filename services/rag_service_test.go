package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/supplychain/rag/models"
)

func retrievedChunks() []models.ScoredChunk {
	return []models.ScoredChunk{
		{
			Chunk: models.Chunk{
				Text: "Just-In-Time is a production model minimising inventory holding costs.",
				Metadata: models.DocumentMetadata{
					Source: "pdf_0", Filename: "jit.pdf", Type: models.DocTypePDF,
				},
			},
			Score: 0.91,
		},
		{
			Chunk: models.Chunk{
				Text: "Inventory turnover is cost of goods sold divided by average inventory.",
				Metadata: models.DocumentMetadata{
					Source: "zip_1/kpi.txt", Filename: "bundle.zip/kpi.txt", Type: models.DocTypeZipContent,
				},
			},
			Score: 0.74,
		},
	}
}

func TestAnswerWithCitations(t *testing.T) {
	store := &fakeVectorStore{results: retrievedChunks()}
	generator := &fakeGenerator{reply: "JIT means materials arrive exactly when needed."}
	service := NewRAGService(store, generator, 4, 40)

	answer, err := service.Answer(context.Background(), "What is Just-In-Time?")
	require.NoError(t, err)

	assert.Equal(t, "JIT means materials arrive exactly when needed.", answer.Text)
	assert.Equal(t, 4, store.lastK)

	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "jit.pdf", answer.Citations[0].Filename)
	assert.Equal(t, models.DocTypePDF, answer.Citations[0].Type)
	assert.Equal(t, "Just-In-Time is a production model minim...", answer.Citations[0].Excerpt)
	assert.Equal(t, "bundle.zip/kpi.txt", answer.Citations[1].Filename)
}

func TestAnswerPromptContainsContextAndRules(t *testing.T) {
	store := &fakeVectorStore{results: retrievedChunks()}
	generator := &fakeGenerator{reply: "fine"}
	service := NewRAGService(store, generator, 4, 160)

	_, err := service.Answer(context.Background(), "What is Just-In-Time?")
	require.NoError(t, err)

	assert.Contains(t, generator.lastPrompt, "ONLY the information in the context")
	assert.Contains(t, generator.lastPrompt, FallbackPhrase)
	assert.Contains(t, generator.lastPrompt, "Just-In-Time is a production model")
	assert.Contains(t, generator.lastPrompt, "Question: What is Just-In-Time?")
}

func TestAnswerSuppressesCitationsOnFallback(t *testing.T) {
	store := &fakeVectorStore{results: retrievedChunks()}
	generator := &fakeGenerator{reply: "Unfortunately, " + FallbackPhrase}
	service := NewRAGService(store, generator, 4, 160)

	answer, err := service.Answer(context.Background(), "What colour is the warehouse?")
	require.NoError(t, err)
	assert.Empty(t, answer.Citations, "a non-answer must not look evidence-backed")
	assert.Contains(t, answer.Text, FallbackPhrase)
}

func TestAnswerSurvivesGenerationFailure(t *testing.T) {
	store := &fakeVectorStore{results: retrievedChunks()}
	generator := &fakeGenerator{err: &models.GenerationError{Err: errors.New("model unavailable")}}
	service := NewRAGService(store, generator, 4, 160)

	answer, err := service.Answer(context.Background(), "What is SCM?")
	require.NoError(t, err, "generation failure is recoverable per question")
	assert.Contains(t, answer.Text, "could not generate an answer")
	assert.Empty(t, answer.Citations)

	// The composer stays serviceable for subsequent questions.
	generator.err = nil
	generator.reply = "SCM coordinates the whole chain."
	answer, err = service.Answer(context.Background(), "What is SCM?")
	require.NoError(t, err)
	assert.Equal(t, "SCM coordinates the whole chain.", answer.Text)
}

func TestAnswerPropagatesIndexNotReady(t *testing.T) {
	store := &fakeVectorStore{err: models.ErrIndexNotReady}
	service := NewRAGService(store, &fakeGenerator{reply: "unused"}, 4, 160)

	_, err := service.Answer(context.Background(), "What is SCM?")
	require.ErrorIs(t, err, models.ErrIndexNotReady)
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	service := NewRAGService(&fakeVectorStore{}, &fakeGenerator{}, 4, 160)

	_, err := service.Answer(context.Background(), "   ")
	require.Error(t, err)
}

func TestExcerptShorterThanLimit(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 160))
	long := strings.Repeat("x", 200)
	assert.Equal(t, strings.Repeat("x", 160)+"...", excerpt(long, 160))
}
