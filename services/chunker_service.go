package services

import (
	"fmt"
	"log"

	"github/supplychain/rag/models"
)

// separators, coarsest first. A chunk boundary is searched at the coarsest
// level first and only falls back to a finer one when the coarser separator
// does not occur inside the window. The final fallback is a plain character
// split. The list mirrors what works well for PDF-extracted prose.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Chunker splits documents into overlapping windows measured in runes.
// Splitting is deterministic: identical input and parameters always produce
// identical boundaries.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker validates 0 < overlap < chunkSize.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap <= 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in (0, %d), got %d", chunkSize, overlap)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// SplitDocuments chunks a batch of documents, inheriting each parent's
// metadata unmodified so every chunk resolves back to its source.
func (c *Chunker) SplitDocuments(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		docChunks := c.SplitDocument(doc)
		log.Printf("CHUNKER: Split %s into %d chunks.", doc.Metadata.Filename, len(docChunks))
		chunks = append(chunks, docChunks...)
	}
	return chunks
}

// SplitDocument cuts one document into windows of at most chunkSize runes.
// Each window after the first starts exactly `overlap` runes before the
// previous window's end, so the union of windows covers the content with no
// character loss. An empty document yields no chunks; a document shorter than
// chunkSize yields exactly one chunk with the full content.
func (c *Chunker) SplitDocument(doc models.Document) []models.Chunk {
	runes := []rune(doc.Content)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.chunkSize {
		return []models.Chunk{{Text: doc.Content, StartOffset: 0, Metadata: doc.Metadata}}
	}

	var chunks []models.Chunk
	start := 0
	for {
		end := start + c.chunkSize
		if end >= n {
			chunks = append(chunks, models.Chunk{
				Text:        string(runes[start:n]),
				StartOffset: start,
				Metadata:    doc.Metadata,
			})
			break
		}
		cut := c.findCut(runes, start, end)
		chunks = append(chunks, models.Chunk{
			Text:        string(runes[start:cut]),
			StartOffset: start,
			Metadata:    doc.Metadata,
		})
		start = cut - c.overlap
	}
	return chunks
}

// findCut returns the cut position for the window [start, end). It prefers the
// last occurrence of the coarsest separator inside the window; the cut sits
// just after the separator so sentence endings stay with their sentence. The
// cut never moves below max(chunkSize/2, overlap+1) runes past start, which
// bounds how far a boundary search may shorten a chunk and guarantees the next
// window makes progress.
func (c *Chunker) findCut(runes []rune, start, end int) int {
	minCut := start + c.chunkSize/2
	if m := start + c.overlap + 1; m > minCut {
		minCut = m
	}
	if minCut >= end {
		return end
	}
	for _, sep := range separators {
		if p := lastBoundary(runes, sep, minCut, end); p >= 0 {
			return p
		}
	}
	return end
}

// lastBoundary finds the rightmost position p in (minCut, end] such that the
// separator ends exactly at p. Returns -1 when the separator does not occur.
func lastBoundary(runes []rune, sep string, minCut, end int) int {
	sepRunes := []rune(sep)
	for p := end; p > minCut; p-- {
		i := p - len(sepRunes)
		if i < 0 {
			break
		}
		if runesEqual(runes[i:p], sepRunes) {
			return p
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
