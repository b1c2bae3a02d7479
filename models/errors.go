package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for index preconditions. Callers check these with errors.Is.
var (
	// ErrIndexNotReady is returned when search is attempted before any
	// successful build.
	ErrIndexNotReady = errors.New("vector index not ready: run ingestion first")

	// ErrIndexCorrupt is returned when a persisted index fails validation on
	// load (dimension or metric mismatch). The index is unusable until rebuilt.
	ErrIndexCorrupt = errors.New("vector index corrupt")
)

// ExtractionError reports a single source item that could not be converted
// into a document. It is recoverable: the caller skips the item and continues.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingServiceError reports an unreachable or misbehaving embedding
// service. It aborts the in-progress build; the previous index stays intact.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service failure: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationError reports a failed generative model call for one question.
// The composer turns it into a user-facing error answer and stays serviceable.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IngestionError is fatal to one ingestion run. It is raised only when no
// documents could be obtained from any source and the fallback corpus path is
// exhausted as well.
type IngestionError struct {
	Skipped []string
	Err     error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed (%d sources skipped): %v", len(e.Skipped), e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
