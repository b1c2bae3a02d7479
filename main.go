package main

import (
	"context"
	"log"
	"net/http"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github/supplychain/rag/config"
	"github/supplychain/rag/controller"
	"github/supplychain/rag/services"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// Create HTTP client properly
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Create Gemini client
	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	gemini := services.NewGeminiClient(geminiClient, cfg.EmbeddingModel, cfg.GenerativeModel,
		cfg.EmbeddingDimension, cfg.EmbedBatchSize)

	// Select the vector store backend.
	var store services.VectorStore
	switch cfg.StoreType {
	case "chroma":
		chromaClient, err := chromago.NewHTTPClient()
		if err != nil {
			log.Fatalf("FATAL: Failed to create chroma client: %v", err)
		}
		defer func() {
			if err := chromaClient.Close(); err != nil {
				log.Printf("Warning: Failed to close chroma client: %v", err)
			}
		}()
		store, err = services.NewChromaVectorStore(chromaClient, cfg.ChromaCollection, gemini)
		if err != nil {
			log.Fatalf("FATAL: Failed to set up chroma collection: %v", err)
		}
	default:
		localStore := services.NewLocalVectorStore(cfg.IndexPath, gemini, cfg.EmbeddingModel)
		if err := localStore.Open(); err != nil {
			log.Fatalf("FATAL: Failed to open vector index at %s: %v", cfg.IndexPath, err)
		}
		store = localStore
	}

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("FATAL: Invalid chunking configuration: %v", err)
	}

	extractor := services.NewExtractor()
	ingestion := services.NewIngestionService(extractor, chunker, store)
	ragService := services.NewRAGService(store, gemini, cfg.TopK, cfg.ExcerptLength)
	ragController := controller.NewRAGController(ragService, ingestion)

	sources := services.Sources{DatasetPath: cfg.DatasetPath, DocsDir: cfg.DocsDir}
	if cfg.IngestOnStart {
		count, err := ingestion.Ingest(context.Background(), sources)
		if err != nil {
			log.Fatalf("FATAL: Initial ingestion failed: %v", err)
		}
		log.Printf("Initial ingestion complete: %d chunks indexed.", count)
	}
	if cfg.WatchDocsDir && cfg.DocsDir != "" {
		go ingestion.WatchDirectory(context.Background(), cfg.DocsDir, sources)
	}

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware for testing
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Add health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Supply Chain RAG API",
			"version": "1.0.0",
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/ingest", ragController.Ingest) // Rebuild the index from the declared sources
		apiV1.POST("/query", ragController.Query)   // Ask a question
		apiV1.GET("/stats", ragController.Stats)    // Active index size
	}

	// Start the Server
	log.Printf("Supply chain RAG server starting on http://localhost:%s", cfg.Port)
	log.Printf("Health check available at: http://localhost:%s/health", cfg.Port)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
