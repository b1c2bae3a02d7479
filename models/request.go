package models

// IngestRequest declares the sources for one ingestion run. Both fields are
// optional; with neither set the hard-coded fallback corpus is indexed.
type IngestRequest struct {
	DatasetPath string `json:"dataset_path,omitempty"`
	DocsDir     string `json:"docs_dir,omitempty"`
}

// QueryRequest carries one natural-language question.
type QueryRequest struct {
	Question string `json:"question"`
}
