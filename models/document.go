package models

import "fmt"

// Document types produced by the normalizer. Every ingested document carries
// exactly one of these so a citation can always be traced to its origin.
const (
	DocTypePDF          = "pdf"
	DocTypeZipContent   = "zip_content"
	DocTypeText         = "text"
	DocTypeDatasetEntry = "dataset_entry"
	DocTypeDemo         = "demo"
)

// DocumentMetadata identifies where a document came from. Source is a stable
// origin identifier (e.g. "pdf_3", "zip_7/report.pdf"), Filename is the
// human-readable origin name, and Type is one of the DocType constants.
// Extra holds format-specific attributes that do not warrant their own field.
type DocumentMetadata struct {
	Source   string            `json:"source"`
	Filename string            `json:"filename"`
	Type     string            `json:"type"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Document is one unit of ingested content. It is created by the source
// normalizer and never mutated afterwards.
type Document struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// NewDocument validates the required fields at construction time so that
// downstream code never has to check metadata defensively.
func NewDocument(content string, meta DocumentMetadata) (Document, error) {
	if content == "" {
		return Document{}, fmt.Errorf("document content is empty")
	}
	if meta.Source == "" || meta.Filename == "" {
		return Document{}, fmt.Errorf("document metadata is missing source or filename")
	}
	switch meta.Type {
	case DocTypePDF, DocTypeZipContent, DocTypeText, DocTypeDatasetEntry, DocTypeDemo:
	default:
		return Document{}, fmt.Errorf("unknown document type %q", meta.Type)
	}
	return Document{Content: content, Metadata: meta}, nil
}

// Chunk is a bounded text window cut from one document. StartOffset is the
// rune position of the window inside the parent document's content. Metadata
// is inherited from the parent document unmodified.
type Chunk struct {
	Text        string           `json:"text"`
	StartOffset int              `json:"start_offset"`
	Metadata    DocumentMetadata `json:"metadata"`
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Citation traces part of an answer back to an indexed chunk.
type Citation struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Excerpt  string `json:"excerpt"`
}

// Answer is the composer's final product for one question. Citations are
// ordered by retrieval rank and omitted entirely when the model could not
// answer from the retrieved context.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}
