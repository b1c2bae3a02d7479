package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github/supplychain/rag/models"
)

// RAGService interface defines the query-time operations of the pipeline.
type RAGService interface {
	Answer(ctx context.Context, question string) (models.Answer, error)
	Stats(ctx context.Context) (int, error)
}

// ragServiceImpl holds the dependencies it needs to do its job.
type ragServiceImpl struct {
	store      VectorStore
	generator  Generator
	topK       int
	excerptLen int
	prompt     prompts.PromptTemplate
}

// NewRAGService creates a new retrieval-answer composer.
func NewRAGService(store VectorStore, generator Generator, topK, excerptLen int) RAGService {
	return &ragServiceImpl{
		store:      store,
		generator:  generator,
		topK:       topK,
		excerptLen: excerptLen,
		prompt:     prompts.NewPromptTemplate(answerPromptTemplate, []string{"context", "question"}),
	}
}

// Stats reports the size of the active index.
func (r *ragServiceImpl) Stats(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// Answer retrieves the top chunks for the question, sends one grounded prompt
// to the generative model, and attaches citations built from the retrieved
// chunks' metadata. When the model signals insufficient context via the
// fallback phrase, citations are omitted entirely. A failed generation call
// produces a user-facing error answer instead of an error so the composer
// stays serviceable for subsequent questions.
func (r *ragServiceImpl) Answer(ctx context.Context, question string) (models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.Answer{}, fmt.Errorf("question is empty")
	}
	log.Printf("SERVICE: Answering question: '%s'", question)

	results, err := r.store.Search(ctx, question, r.topK)
	if err != nil {
		// Index preconditions (not ready, corrupt) propagate to the caller.
		return models.Answer{}, err
	}
	log.Printf("SERVICE: Retrieved %d chunks for question.", len(results))

	contextTexts := make([]string, 0, len(results))
	for _, result := range results {
		contextTexts = append(contextTexts, result.Chunk.Text)
	}
	prompt, err := r.prompt.Format(map[string]any{
		"context":  strings.Join(contextTexts, "\n\n"),
		"question": question,
	})
	if err != nil {
		return models.Answer{}, fmt.Errorf("failed to format prompt: %w", err)
	}

	raw, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		var genErr *models.GenerationError
		if errors.As(err, &genErr) {
			log.Printf("SERVICE WARN: generation failed: %v", err)
			return models.Answer{
				Text: fmt.Sprintf("Sorry, I could not generate an answer right now (%v). Please try again.", genErr.Err),
			}, nil
		}
		return models.Answer{}, err
	}

	if strings.Contains(raw, FallbackPhrase) {
		// A non-answer must not appear to be evidence-backed.
		return models.Answer{Text: raw}, nil
	}
	return models.Answer{Text: raw, Citations: r.buildCitations(results)}, nil
}

// buildCitations converts retrieved chunks into provenance records, in
// retrieval order, each with a fixed-length excerpt of the chunk text.
func (r *ragServiceImpl) buildCitations(results []models.ScoredChunk) []models.Citation {
	citations := make([]models.Citation, 0, len(results))
	for _, result := range results {
		citations = append(citations, models.Citation{
			Filename: result.Chunk.Metadata.Filename,
			Type:     result.Chunk.Metadata.Type,
			Excerpt:  excerpt(result.Chunk.Text, r.excerptLen),
		})
	}
	return citations
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
