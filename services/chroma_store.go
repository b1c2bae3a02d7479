package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"

	"github/supplychain/rag/models"
)

// ChromaVectorStore is the remote alternative to the local persisted store,
// backed by a ChromaDB collection. Rebuild drops and recreates the collection
// so ingestion stays idempotent.
type ChromaVectorStore struct {
	client         chromago.Client
	collection     chromago.Collection
	collectionName string
	embedder       Embedder
}

// NewChromaVectorStore gets or creates the named collection.
func NewChromaVectorStore(client chromago.Client, collectionName string, embedder Embedder) (*ChromaVectorStore, error) {
	collection, err := getOrCreateCollection(client, collectionName)
	if err != nil {
		return nil, err
	}
	return &ChromaVectorStore{
		client:         client,
		collection:     collection,
		collectionName: collectionName,
		embedder:       embedder,
	}, nil
}

func getOrCreateCollection(client chromago.Client, collectionName string) (chromago.Collection, error) {
	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "supply-chain RAG collection"),
				chromago.NewStringAttribute("created_by", "ingestion_service"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}
	return collection, nil
}

// Build replaces the collection contents with the given chunks.
func (s *ChromaVectorStore) Build(ctx context.Context, chunks []models.Chunk) error {
	log.Printf("CHROMA: Building collection %s with %d chunks...", s.collectionName, len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}

	// Drop and recreate so the old contents never mix with the new build.
	if err := s.client.DeleteCollection(ctx, s.collectionName); err != nil {
		log.Printf("CHROMA WARN: could not delete collection %s: %v", s.collectionName, err)
	}
	collection, err := getOrCreateCollection(s.client, s.collectionName)
	if err != nil {
		return err
	}
	s.collection = collection

	for i, chunk := range chunks {
		embedding := embeddings.NewEmbeddingFromFloat32(vectors[i])
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("source", chunk.Metadata.Source),
			chromago.NewStringAttribute("filename", chunk.Metadata.Filename),
			chromago.NewStringAttribute("type", chunk.Metadata.Type),
			chromago.NewIntAttribute("start_offset", int64(chunk.StartOffset)),
		)
		docID := chromago.DocumentID(fmt.Sprintf("%s-chunk%d", uuid.New().String(), i))
		err = s.collection.Add(ctx,
			chromago.WithIDs(docID),
			chromago.WithTexts(chunk.Text),
			chromago.WithEmbeddings(embedding),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("failed to add chunk %d to chromadb: %w", i, err)
		}
	}
	log.Printf("CHROMA: Build complete, %d chunks added.", len(chunks))
	return nil
}

// Search embeds the query and runs a nearest-neighbour query against the
// collection.
func (s *ChromaVectorStore) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	count, err := s.collection.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count items in collection: %w", err)
	}
	if count == 0 {
		return nil, models.ErrIndexNotReady
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	embedding := embeddings.NewEmbeddingFromFloat32(vectors[0])

	results, err := s.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embedding),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	var scored []models.ScoredChunk
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return scored, nil
	}
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		chunk := models.Chunk{Text: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			chunk.Metadata, chunk.StartOffset = decodeChunkMetadata(metadataGroups[0][i])
		}
		score := 0.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// Chroma reports cosine distance; similarity = 1 - distance.
			score = 1 - float64(distanceGroups[0][i])
		}
		scored = append(scored, models.ScoredChunk{Chunk: chunk, Score: score})
	}
	return scored, nil
}

// Count reports the number of chunks in the collection.
func (s *ChromaVectorStore) Count(ctx context.Context) (int, error) {
	count, err := s.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}

// decodeChunkMetadata converts chroma document metadata back into the fixed
// metadata record. The DocumentMetadata type has no public accessor for its
// values, so it goes through a JSON round trip.
func decodeChunkMetadata(metadata chromago.DocumentMetadata) (models.DocumentMetadata, int) {
	var meta models.DocumentMetadata
	offset := 0
	if metadata == nil {
		return meta, offset
	}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		log.Printf("CHROMA WARN: could not marshal metadata: %v", err)
		return meta, offset
	}
	var metadataMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &metadataMap); err != nil {
		log.Printf("CHROMA WARN: could not unmarshal metadata: %v", err)
		return meta, offset
	}
	if v, ok := metadataMap["source"].(string); ok {
		meta.Source = v
	}
	if v, ok := metadataMap["filename"].(string); ok {
		meta.Filename = v
	}
	if v, ok := metadataMap["type"].(string); ok {
		meta.Type = v
	}
	switch v := metadataMap["start_offset"].(type) {
	case float64:
		offset = int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	return meta, offset
}
