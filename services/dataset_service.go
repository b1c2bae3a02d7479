package services

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// DatasetRecord is one row of the supply-chain dataset export. File-shaped
// rows carry a file name plus raw content (base64-encoded when binary);
// glossary-shaped rows carry labeled term/definition fields instead.
type DatasetRecord struct {
	FileName   string `json:"file_name,omitempty"`
	Content    string `json:"content,omitempty"`
	ContentB64 string `json:"content_b64,omitempty"`
	Term       string `json:"term,omitempty"`
	Definition string `json:"definition,omitempty"`
}

// Bytes returns the raw payload of a file-shaped record.
func (r DatasetRecord) Bytes() ([]byte, error) {
	if r.ContentB64 != "" {
		data, err := base64.StdEncoding.DecodeString(r.ContentB64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 content: %w", err)
		}
		return data, nil
	}
	return []byte(r.Content), nil
}

// LoadDatasetRecords reads a JSONL dataset export, one record per line.
// Malformed lines are skipped with a warning; the download of the dataset
// itself is outside this service.
func LoadDatasetRecords(path string) ([]DatasetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open dataset file: %w", err)
	}
	defer f.Close()

	var records []DatasetRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec DatasetRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Printf("DATASET WARN: skipping malformed record on line %d: %v", line, err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dataset file: %w", err)
	}
	log.Printf("DATASET: Loaded %d records from %s", len(records), path)
	return records, nil
}
