package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/supplychain/rag/models"
	"github/supplychain/rag/services"
)

// RAGController handles the HTTP requests for the RAG API. It depends on the
// ingestion and query services to perform the actual work.
type RAGController struct {
	ragService services.RAGService
	ingestion  *services.IngestionService
}

// NewRAGController is a constructor function that creates a new RAGController.
// This is called from main.go to inject the service dependencies.
func NewRAGController(ragService services.RAGService, ingestion *services.IngestionService) *RAGController {
	return &RAGController{
		ragService: ragService,
		ingestion:  ingestion,
	}
}

// Ingest is the Gin handler for the POST /api/v1/ingest endpoint. It runs a
// full ingestion over the declared sources and reports the chunk count plus
// any skipped sources.
func (c *RAGController) Ingest(ctx *gin.Context) {
	var req models.IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	count, err := c.ingestion.Ingest(ctx.Request.Context(), services.Sources{
		DatasetPath: req.DatasetPath,
		DocsDir:     req.DocsDir,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.IngestResponse{
			SkippedSources: c.ingestion.SkippedSources(),
			Error:          err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, models.IngestResponse{
		ChunkCount:     count,
		SkippedSources: c.ingestion.SkippedSources(),
	})
}

// Query is the Gin handler for the POST /api/v1/query endpoint.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	answer, err := c.ragService.Answer(ctx.Request.Context(), req.Question)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrIndexNotReady) {
			status = http.StatusConflict
		}
		ctx.JSON(status, models.QueryResponse{Error: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, models.QueryResponse{
		Answer:    answer.Text,
		Citations: answer.Citations,
	})
}

// Stats is the Gin handler for the GET /api/v1/stats endpoint.
func (c *RAGController) Stats(ctx *gin.Context) {
	count, err := c.ragService.Stats(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, models.ErrIndexNotReady) {
			ctx.JSON(http.StatusOK, models.StatsResponse{ChunkCount: 0})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read index stats"})
		return
	}
	ctx.JSON(http.StatusOK, models.StatsResponse{ChunkCount: count})
}
