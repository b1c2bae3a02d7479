package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github/supplychain/rag/models"
)

// Embedder turns text into fixed-dimension vectors. The same embedder must be
// used at build and query time so the index metric stays meaningful.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Generator produces a completion for a single prompt, one call per question.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient backs both interfaces with the Google Gemini API.
type GeminiClient struct {
	client          *genai.Client
	embeddingModel  string
	generativeModel string
	dimension       int
	batchSize       int
}

// NewGeminiClient wraps an already-constructed genai client.
func NewGeminiClient(client *genai.Client, embeddingModel, generativeModel string, dimension, batchSize int) *GeminiClient {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &GeminiClient{
		client:          client,
		embeddingModel:  embeddingModel,
		generativeModel: generativeModel,
		dimension:       dimension,
		batchSize:       batchSize,
	}
}

// Dimension returns the configured output dimension of the embedding model.
func (g *GeminiClient) Dimension() int { return g.dimension }

// EmbedTexts embeds a batch of texts, splitting into API-sized sub-batches.
// Any transport failure or malformed response surfaces as
// *models.EmbeddingServiceError.
func (g *GeminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		contents := make([]*genai.Content, 0, len(batch))
		for _, text := range batch {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, nil)
		if err != nil {
			return nil, &models.EmbeddingServiceError{Err: fmt.Errorf("embed call failed: %w", err)}
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, &models.EmbeddingServiceError{
				Err: fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings)),
			}
		}
		for _, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, &models.EmbeddingServiceError{Err: fmt.Errorf("empty embedding in response")}
			}
			if len(emb.Values) != g.dimension {
				return nil, &models.EmbeddingServiceError{
					Err: fmt.Errorf("embedding dimension %d does not match configured %d", len(emb.Values), g.dimension),
				}
			}
			vectors = append(vectors, emb.Values)
		}
	}
	return vectors, nil
}

// Generate sends one prompt to the generative model and concatenates the text
// parts of the first candidate, the same way the chat path reads responses.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.generativeModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		MaxOutputTokens: 1000,
	})
	if err != nil {
		return "", &models.GenerationError{Err: fmt.Errorf("gemini api call failed: %w", err)}
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &models.GenerationError{Err: fmt.Errorf("gemini returned no candidates")}
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	if responseText.Len() == 0 {
		return "", &models.GenerationError{Err: fmt.Errorf("gemini returned an empty answer")}
	}
	return responseText.String(), nil
}
