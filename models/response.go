package models

// IngestResponse reports the outcome of one ingestion run, including the
// sources that were skipped because they could not be extracted.
type IngestResponse struct {
	ChunkCount     int      `json:"chunk_count"`
	SkippedSources []string `json:"skipped_sources,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// QueryResponse wraps an answer for the HTTP surface.
type QueryResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// StatsResponse reports the size of the active index.
type StatsResponse struct {
	ChunkCount int `json:"chunk_count"`
}
