package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"manual-rag/internal/models"
)

const (
	defaultChunkSize     = 800
	defaultChunkOverlap  = 200
	defaultTopK          = 5
	defaultMinSimilarity = 0.2
	defaultOllamaURL     = "http://localhost:11434"
	defaultEmbedModel    = "nomic-embed-text"
	defaultInferModel    = "llama3"
	defaultEmbedTimeout  = 60 * time.Second
	defaultInferTimeout  = 120 * time.Second
	defaultStorePath     = "./chromemdb"
	defaultCollection    = "manual"
	defaultServerAddr    = ":8080"
	defaultManualName    = "vehicle"

	ScoreInverseDistance = "inverse_distance"
	ScoreCosineDistance  = "cosine_distance"

	StoreChromem  = "chromem"
	StorePgvector = "pgvector"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
)

const envPrefix = "MANUAL_RAG_"

type Config struct {
	Document     DocumentConfig    `yaml:"document"`
	RAG          RAGConfig         `yaml:"rag"`
	EmbedLLM     LLMConfig         `yaml:"embed_llm"`
	InferenceLLM LLMConfig         `yaml:"inference_llm"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	Database     DatabaseConfig    `yaml:"database"`
	Server       ServerConfig      `yaml:"server"`
	Log          LogConfig         `yaml:"log"`
}

// DocumentConfig describes the manual being indexed.
type DocumentConfig struct {
	Path           string   `yaml:"path"`
	Name           string   `yaml:"name"`
	HeadingPhrases []string `yaml:"heading_phrases"`
}

type RAGConfig struct {
	ChunkSize             int     `yaml:"chunk_size"`
	ChunkOverlap          int     `yaml:"chunk_overlap"`
	TopK                  int     `yaml:"top_k"`
	MinSimilarity         float64 `yaml:"min_similarity_threshold"`
	ScoreStrategy         string  `yaml:"score_strategy"`
	FallbackWithoutFilter bool    `yaml:"fallback_without_filter"`
}

// LLMConfig points at an embedding or generation backend.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Key         string        `yaml:"key"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
}

type VectorStoreConfig struct {
	Type          string `yaml:"type"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	InMemory      bool   `yaml:"in_memory"`
	ExportFile    string `yaml:"export_file"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the YAML file at path, applies .env and environment
// overrides, fills defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if c.RAG.MinSimilarity <= 0 || c.RAG.MinSimilarity > 1 {
		return fmt.Errorf("rag.min_similarity_threshold must be in (0, 1], got %g", c.RAG.MinSimilarity)
	}
	switch c.RAG.ScoreStrategy {
	case ScoreInverseDistance, ScoreCosineDistance:
	default:
		return fmt.Errorf("unknown rag.score_strategy %q", c.RAG.ScoreStrategy)
	}
	switch c.VectorStore.Type {
	case StoreChromem:
		if c.VectorStore.InMemory && c.VectorStore.ExportFile == "" {
			return errors.New("vector_store.export_file is required when in_memory is set")
		}
	case StorePgvector:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for %s: %w", StorePgvector, models.ErrStoreNotConfigured)
		}
	default:
		return fmt.Errorf("unknown vector_store.type %q", c.VectorStore.Type)
	}
	for _, llm := range []LLMConfig{c.EmbedLLM, c.InferenceLLM} {
		if llm.Provider != ProviderOllama && llm.Provider != ProviderOpenAI {
			return fmt.Errorf("unknown llm provider %q", llm.Provider)
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Document.Name == "" {
		cfg.Document.Name = defaultManualName
	}
	if len(cfg.Document.HeadingPhrases) == 0 {
		cfg.Document.HeadingPhrases = models.DefaultHeadingPhrases
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
		if cfg.RAG.ChunkOverlap == 0 {
			cfg.RAG.ChunkOverlap = defaultChunkOverlap
		}
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.MinSimilarity == 0 {
		cfg.RAG.MinSimilarity = defaultMinSimilarity
	}

	applyLLMDefaults(&cfg.EmbedLLM, defaultEmbedModel, defaultEmbedTimeout)
	applyLLMDefaults(&cfg.InferenceLLM, defaultInferModel, defaultInferTimeout)

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = StoreChromem
	}
	// chromem reports 1 - cosine similarity, which 1/(1+d) would squeeze into [1/3, 1]
	if cfg.RAG.ScoreStrategy == "" {
		cfg.RAG.ScoreStrategy = ScoreInverseDistance
		if cfg.VectorStore.Type == StoreChromem {
			cfg.RAG.ScoreStrategy = ScoreCosineDistance
		}
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = defaultStorePath
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = defaultCollection
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPgdriver
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyLLMDefaults(llm *LLMConfig, model string, timeout time.Duration) {
	if llm.Provider == "" {
		llm.Provider = ProviderOllama
	}
	if llm.BaseURL == "" && llm.Provider == ProviderOllama {
		llm.BaseURL = defaultOllamaURL
	}
	if llm.Model == "" {
		llm.Model = model
	}
	if llm.Timeout == 0 {
		llm.Timeout = timeout
	}
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"DOCUMENT_PATH":     &cfg.Document.Path,
		"EMBED_URL":         &cfg.EmbedLLM.BaseURL,
		"EMBED_KEY":         &cfg.EmbedLLM.Key,
		"INFERENCE_URL":     &cfg.InferenceLLM.BaseURL,
		"INFERENCE_KEY":     &cfg.InferenceLLM.Key,
		"DATABASE_DSN":      &cfg.Database.DSN,
		"DATABASE_PASSWORD": &cfg.Database.Password,
		"ENCRYPTION_KEY":    &cfg.VectorStore.EncryptionKey,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*field = v
		}
	}
}
