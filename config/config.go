package config

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the pipeline consumes. Values are immutable for
// the duration of one ingestion + serving session.
type Config struct {
	// Chunking. Overlap must be strictly between 0 and ChunkSize.
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Retrieval.
	TopK           int `yaml:"top_k"`
	ExcerptLength  int `yaml:"excerpt_length"`
	EmbedBatchSize int `yaml:"embed_batch_size"`

	// Models. The embedding model must be the same at build and query time;
	// EmbeddingDimension is validated against the persisted index on load.
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	GenerativeModel    string `yaml:"generative_model"`

	// Index storage. StoreType selects "local" (persisted directory) or
	// "chroma" (remote ChromaDB collection).
	IndexPath        string `yaml:"index_path"`
	StoreType        string `yaml:"store_type"`
	ChromaCollection string `yaml:"chroma_collection"`

	// Ingestion sources.
	DatasetPath string `yaml:"dataset_path"`
	DocsDir     string `yaml:"docs_dir"`

	// Server behaviour.
	Port          string `yaml:"port"`
	IngestOnStart bool   `yaml:"ingest_on_start"`
	WatchDocsDir  bool   `yaml:"watch_docs_dir"`
	GeminiAPIKey  string `yaml:"-"`
	UnidocLicense string `yaml:"-"`
}

// Load reads the yaml config at path, falling back to defaults when the file
// does not exist. Secrets always come from the environment; a .env file is
// honoured when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.UnidocLicense = os.Getenv("UNIDOC_LICENSE_KEY")
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ChunkSize:          800,
		ChunkOverlap:       150,
		TopK:               4,
		ExcerptLength:      160,
		EmbedBatchSize:     32,
		EmbeddingModel:     "embedding-001",
		EmbeddingDimension: 768,
		GenerativeModel:    "gemini-2.5-flash",
		IndexPath:          "vector_store",
		StoreType:          "local",
		ChromaCollection:   "supply-chain-rag",
		Port:               "8080",
		IngestOnStart:      true,
	}
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap <= 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = def.ChunkOverlap
		if cfg.ChunkOverlap >= cfg.ChunkSize {
			cfg.ChunkOverlap = cfg.ChunkSize / 4
		}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = def.ExcerptLength
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = def.EmbedBatchSize
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = def.EmbeddingModel
	}
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = def.EmbeddingDimension
	}
	if cfg.GenerativeModel == "" {
		cfg.GenerativeModel = def.GenerativeModel
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = def.IndexPath
	}
	if cfg.StoreType == "" {
		cfg.StoreType = def.StoreType
	}
	if cfg.ChromaCollection == "" {
		cfg.ChromaCollection = def.ChromaCollection
	}
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
}
