package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm" validate:"required"`
	Vector   VectorConfig   `yaml:"vector"`
	RAG      RAGConfig      `yaml:"rag"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// LLMConfig describes the embedding backend. Retry and rate limits are
// per backend so one budget covers all concurrent jobs.
type LLMConfig struct {
	Provider      string   `yaml:"provider" validate:"oneof=ollama openai"`
	BaseURL       string   `yaml:"base_url" validate:"required"`
	Key           string   `yaml:"key"`
	Model         string   `yaml:"model" validate:"required"`
	Dimension     int      `yaml:"dimension" validate:"gt=0"`
	MaxBatchSize  int      `yaml:"max_batch_size" validate:"gt=0"`
	MaxInputChars int      `yaml:"max_input_chars" validate:"gt=0"`
	MaxAttempts   int      `yaml:"max_attempts" validate:"gt=0"`
	InitialDelay  Duration `yaml:"initial_delay"`
	Timeout       Duration `yaml:"timeout"`
	RatePerSecond float64  `yaml:"rate_per_second"`
}

// Duration lets yaml.v3 read Go duration strings like "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type VectorConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

type RAGConfig struct {
	ChunkSize       int     `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap    float64 `yaml:"chunk_overlap" validate:"gte=0,lt=0.5"`
	TopK            int     `yaml:"top_k" validate:"gt=0"`
	Rerank          bool    `yaml:"rerank"`
	MaxContextChars int     `yaml:"max_context_chars" validate:"gt=0"`
	MaxConcurrency  int     `yaml:"max_concurrency" validate:"gt=0"`
}

// LoadConfig reads the YAML config at path, with ${VAR} references
// expanded from the environment (a .env file is loaded first when
// present) and defaults applied before validation.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued tunables with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.MaxBatchSize == 0 {
		c.EmbedLLM.MaxBatchSize = 16
	}
	if c.EmbedLLM.MaxInputChars == 0 {
		c.EmbedLLM.MaxInputChars = 8000
	}
	if c.EmbedLLM.MaxAttempts == 0 {
		c.EmbedLLM.MaxAttempts = 4
	}
	if c.EmbedLLM.InitialDelay == 0 {
		c.EmbedLLM.InitialDelay = Duration(250 * time.Millisecond)
	}
	if c.EmbedLLM.Timeout == 0 {
		c.EmbedLLM.Timeout = Duration(30 * time.Second)
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "study_chunks"
	}
	if c.Vector.Path == "" {
		c.Vector.Path = "./chromemdb"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 0.15
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.MaxContextChars == 0 {
		c.RAG.MaxContextChars = 6000
	}
	if c.RAG.MaxConcurrency == 0 {
		c.RAG.MaxConcurrency = 4
	}
}
