// Package config assembles the process configuration from environment
// variables into a top-level Config covering every external adapter: the
// database, the LLM and embedding providers, the parser and discovery
// services, and pipeline tuning knobs.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DatabaseConfiguration holds the connection parameters for the Postgres
// instance backing the graph store.
type DatabaseConfiguration struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// DSN renders a lib/pq connection string.
func (c DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// LLMConfiguration selects and authenticates the LLM adapter.
type LLMConfiguration struct {
	Provider string // "anthropic" or "openai"
	Model    string
	APIKey   string
	BaseURL  string
}

// EmbeddingConfiguration selects and authenticates the embedding adapter.
type EmbeddingConfiguration struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int // must match the embedding column's VECTOR(n) width; defaults to 768
}

// ParserConfiguration points at the external PDF-to-text service.
type ParserConfiguration struct {
	BaseURL string
	APIKey  string
}

// DiscoveryConfiguration points at the paper discovery APIs.
type DiscoveryConfiguration struct {
	OpenAlexBaseURL string
	ArxivBaseURL    string
}

// PipelineConfiguration tunes the EDC/Integration workflows.
type PipelineConfiguration struct {
	ChunkingEnabled     bool
	DefinerBatchSize    int
	DebugDir            string
	ResolverConcurrency int
	SimilarityK         int
}

// Config is the fully assembled process configuration.
type Config struct {
	Database  DatabaseConfiguration
	LLM       LLMConfiguration
	Embedding EmbeddingConfiguration
	Parser    ParserConfiguration
	Discovery DiscoveryConfiguration
	Pipeline  PipelineConfiguration
}

// Load reads an optional .env file (ignored if absent) then assembles
// Config from the process environment, applying sensible defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := intEnv("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	embedDim, err := intEnv("EMBEDDING_DIMENSION", 768)
	if err != nil {
		return nil, err
	}

	batchSize, err := intEnv("DEFINER_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	resolverConcurrency, err := intEnv("INTEGRATION_RESOLVER_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}

	similarityK, err := intEnv("INTEGRATION_SIMILARITY_K", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfiguration{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     dbPort,
			Database: envOr("DB_NAME", "paperkg"),
			Username: envOr("DB_USER", "paperkg"),
			Password: os.Getenv("DB_PASSWORD"),
			Schema:   envOr("DB_SCHEMA", "public"),
			SSLMode:  envOr("DB_SSLMODE", "disable"),
		},
		LLM: LLMConfiguration{
			Provider: envOr("LLM_PROVIDER", "anthropic"),
			Model:    envOr("LLM_MODEL", "claude-sonnet-4-5"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		Embedding: EmbeddingConfiguration{
			Provider:  envOr("EMBEDDING_PROVIDER", "openai"),
			Model:     envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
			APIKey:    os.Getenv("EMBEDDING_API_KEY"),
			BaseURL:   os.Getenv("EMBEDDING_BASE_URL"),
			Dimension: embedDim,
		},
		Parser: ParserConfiguration{
			BaseURL: os.Getenv("PARSER_BASE_URL"),
			APIKey:  os.Getenv("PARSER_API_KEY"),
		},
		Discovery: DiscoveryConfiguration{
			OpenAlexBaseURL: envOr("OPENALEX_BASE_URL", "https://api.openalex.org"),
			ArxivBaseURL:    envOr("ARXIV_BASE_URL", "https://export.arxiv.org/api/query"),
		},
		Pipeline: PipelineConfiguration{
			ChunkingEnabled:     boolEnv("PIPELINE_CHUNKING_ENABLED", false),
			DefinerBatchSize:    batchSize,
			DebugDir:            envOr("PIPELINE_DEBUG_DIR", "debug"),
			ResolverConcurrency: resolverConcurrency,
			SimilarityK:         similarityK,
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid int for %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
