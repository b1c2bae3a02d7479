package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github/supplychain/rag/models"
)

// Sources declares the inputs of one ingestion run. Records may be provided
// directly or loaded from DatasetPath; DocsDir is scanned recursively for
// supported files.
type Sources struct {
	Records     []DatasetRecord
	DatasetPath string
	DocsDir     string
}

// IngestionService sequences normalize → chunk → build. Per-source failures
// are logged and skipped; the run only fails outright when even the fallback
// corpus yields nothing. Re-running ingestion fully replaces the index.
type IngestionService struct {
	extractor *Extractor
	chunker   *Chunker
	store     VectorStore

	mu      sync.Mutex
	skipped []string
}

// NewIngestionService creates a new ingestion orchestrator.
func NewIngestionService(extractor *Extractor, chunker *Chunker, store VectorStore) *IngestionService {
	return &IngestionService{extractor: extractor, chunker: chunker, store: store}
}

// Ingest collects documents from every declared source, substitutes the
// fallback corpus when no source produced anything, then chunks and builds
// the index. Returns the number of chunks indexed.
func (s *IngestionService) Ingest(ctx context.Context, sources Sources) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []models.Document
	var skipped []string

	records := sources.Records
	if sources.DatasetPath != "" {
		loaded, err := LoadDatasetRecords(sources.DatasetPath)
		if err != nil {
			log.Printf("INGEST WARN: dataset unavailable: %v", err)
			skipped = append(skipped, sources.DatasetPath)
		} else {
			records = append(records, loaded...)
		}
	}
	for i, rec := range records {
		recDocs, err := s.extractor.NormalizeRecord(rec, i)
		if err != nil {
			name := rec.FileName
			if name == "" {
				name = fmt.Sprintf("record_%d", i)
			}
			log.Printf("INGEST WARN: skipping %s: %v", name, err)
			skipped = append(skipped, name)
			continue
		}
		docs = append(docs, recDocs...)
	}

	if sources.DocsDir != "" {
		dirDocs, dirSkipped := s.scanDirectory(sources.DocsDir)
		docs = append(docs, dirDocs...)
		skipped = append(skipped, dirSkipped...)
	}

	if len(docs) == 0 {
		log.Println("INGEST: No documents from any source, falling back to the built-in corpus.")
		docs = fallbackCorpus()
	}

	chunks := s.chunker.SplitDocuments(docs)
	if len(chunks) == 0 {
		return 0, &models.IngestionError{
			Skipped: skipped,
			Err:     errors.New("no chunks produced from any source"),
		}
	}

	if err := s.store.Build(ctx, chunks); err != nil {
		return 0, err
	}

	s.skipped = skipped
	log.Printf("INGEST: Done. %d documents, %d chunks, %d sources skipped.", len(docs), len(chunks), len(skipped))
	return len(chunks), nil
}

// SkippedSources lists the sources skipped during the last ingestion run.
func (s *IngestionService) SkippedSources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.skipped...)
}

// scanDirectory walks dirPath and normalizes every supported file. Failures
// are collected per file, never aborting the scan.
func (s *IngestionService) scanDirectory(dirPath string) ([]models.Document, []string) {
	log.Printf("INGEST: Scanning directory: %s", dirPath)

	var docs []models.Document
	var skipped []string
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		fileDocs, err := s.extractor.ExtractFile(path, path)
		if err != nil {
			log.Printf("INGEST WARN: skipping %s: %v", path, err)
			skipped = append(skipped, path)
			return nil
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	if err != nil {
		log.Printf("INGEST WARN: error walking %s: %v", dirPath, err)
		skipped = append(skipped, dirPath)
	}
	return docs, skipped
}

// WatchDirectory re-runs ingestion whenever a supported file in dirPath is
// created, modified, or removed. Rebuilding the whole index keeps the watch
// loop simple because ingestion is idempotent. Blocks until ctx is cancelled.
func (s *IngestionService) WatchDirectory(ctx context.Context, dirPath string, sources Sources) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedFile(event.Name) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					log.Printf("WATCHER: %s changed, re-ingesting...", event.Name)
					if _, err := s.Ingest(ctx, sources); err != nil {
						log.Printf("WATCHER ERROR: re-ingestion failed: %v", err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".zip", ".md":
		return true
	default:
		return false
	}
}

// fallbackCorpus is the hand-authored minimal corpus used when no source
// yields a single document, so the index always has something to build from.
func fallbackCorpus() []models.Document {
	definitions := []struct {
		name string
		text string
	}{
		{
			name: "supply_chain_management.txt",
			text: "Supply Chain Management (SCM) is the discipline of planning, executing and " +
				"controlling every process from raw materials to the finished product. Its main " +
				"components are procurement, manufacturing, distribution, logistics and inventory management.",
		},
		{
			name: "just_in_time.txt",
			text: "Just-In-Time (JIT) is a production model in which materials arrive exactly when " +
				"they are needed, minimising inventory holding costs. It requires reliable suppliers " +
				"and stable demand forecasts to work well.",
		},
		{
			name: "inventory_turnover.txt",
			text: "Inventory turnover measures how many times a company sells and replaces its stock " +
				"over a period. It is computed as cost of goods sold divided by average inventory, and " +
				"a higher ratio usually indicates healthier demand planning.",
		},
		{
			name: "logistics_vs_distribution.txt",
			text: "Logistics covers the planning and movement of goods, information and resources " +
				"across the whole chain, while distribution is the subset concerned with delivering " +
				"finished products to customers.",
		},
		{
			name: "bullwhip_effect.txt",
			text: "The bullwhip effect describes how small fluctuations in consumer demand amplify " +
				"upstream through the supply chain, causing excess inventory and poor service levels. " +
				"Information sharing between partners dampens it.",
		},
	}

	docs := make([]models.Document, 0, len(definitions))
	for i, def := range definitions {
		doc, err := models.NewDocument(def.text, models.DocumentMetadata{
			Source:   fmt.Sprintf("demo_%d", i),
			Filename: def.name,
			Type:     models.DocTypeDemo,
		})
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
