// Package config loads meetextract configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/logging"
	"github.com/fyrsmithlabs/meetextract/internal/telemetry"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    logging.Config   `koanf:"logging"`
	Telemetry  telemetry.Config `koanf:"telemetry"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Entities   EntitiesConfig   `koanf:"entities"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Generative GenerativeConfig `koanf:"generative"`
	Provenance ProvenanceConfig `koanf:"provenance"`
	Redaction  RedactionConfig  `koanf:"redaction"`
	Events     EventsConfig     `koanf:"events"`
	Cache      CacheConfig      `koanf:"cache"`
	Temporal   TemporalConfig   `koanf:"temporal"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	BodyLimit       string   `koanf:"body_limit"`
}

// EmbeddingsConfig selects the embedding service.
type EmbeddingsConfig struct {
	// Provider is fastembed, tei, openai or none.
	Provider string   `koanf:"provider"`
	Model    string   `koanf:"model"`
	BaseURL  string   `koanf:"base_url"`
	APIKey   Secret   `koanf:"api_key"`
	CacheDir string   `koanf:"cache_dir"`
	Timeout  Duration `koanf:"timeout"`
}

// EntitiesConfig selects the entity service.
type EntitiesConfig struct {
	// Provider is rules or none.
	Provider string `koanf:"provider"`
}

// ExtractionConfig carries the pipeline mode and every tunable threshold.
type ExtractionConfig struct {
	Mode       string                `koanf:"mode"`
	Thresholds extraction.Thresholds `koanf:",squash"`
}

// GenerativeConfig configures the prompt-driven extraction backend.
type GenerativeConfig struct {
	// Provider is anthropic, openai or ollama.
	Provider         string   `koanf:"provider"`
	Model            string   `koanf:"model"`
	BaseURL          string   `koanf:"base_url"`
	APIKey           Secret   `koanf:"api_key"`
	MaxTokens        int      `koanf:"max_tokens"`
	MaxContextTokens int      `koanf:"max_context_tokens"`
	Timeout          Duration `koanf:"timeout"`
}

// ProvenanceConfig configures source-segment lookup for extracted items.
type ProvenanceConfig struct {
	Enabled bool `koanf:"enabled"`
	// Backend is chromem or qdrant.
	Backend         string  `koanf:"backend"`
	Path            string  `koanf:"path"`
	Collection      string  `koanf:"collection"`
	QdrantHost      string  `koanf:"qdrant_host"`
	QdrantPort      int     `koanf:"qdrant_port"`
	QdrantTLS       bool    `koanf:"qdrant_tls"`
	TopK            int     `koanf:"top_k"`
	MinSimilarity   float64 `koanf:"min_similarity"`
	SupportedAbove  float64 `koanf:"supported_above"`
	SuspiciousBelow float64 `koanf:"suspicious_below"`
}

// RedactionConfig configures secret scrubbing of transcripts.
type RedactionConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"`
}

// EventsConfig configures NATS result events.
type EventsConfig struct {
	Enabled       bool     `koanf:"enabled"`
	URL           string   `koanf:"url"`
	SubjectPrefix string   `koanf:"subject_prefix"`
	PublishWait   Duration `koanf:"publish_wait"`
}

// CacheConfig configures the extraction result cache.
type CacheConfig struct {
	// Backend is none, memory or redis.
	Backend  string   `koanf:"backend"`
	Addr     string   `koanf:"addr"`
	Password Secret   `koanf:"password"`
	DB       int      `koanf:"db"`
	TTL      Duration `koanf:"ttl"`
}

// TemporalConfig configures the batch extraction worker.
type TemporalConfig struct {
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
			BodyLimit:       "4M",
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    "BAAI/bge-small-en-v1.5",
			BaseURL:  "http://localhost:8080",
			Timeout:  Duration(30 * time.Second),
		},
		Entities: EntitiesConfig{Provider: "rules"},
		Extraction: ExtractionConfig{
			Mode:       string(extraction.ModeHeuristic),
			Thresholds: extraction.DefaultThresholds(),
		},
		Generative: GenerativeConfig{
			Provider:         "ollama",
			Model:            "llama3.1",
			BaseURL:          "http://localhost:11434",
			MaxTokens:        2048,
			MaxContextTokens: 2500,
			Timeout:          Duration(2 * time.Minute),
		},
		Provenance: ProvenanceConfig{
			Enabled:         true,
			Backend:         "chromem",
			Collection:      "meetextract_segments",
			QdrantHost:      "localhost",
			QdrantPort:      6334,
			TopK:            3,
			MinSimilarity:   0.3,
			SupportedAbove:  0.5,
			SuspiciousBelow: 0.3,
		},
		Redaction: RedactionConfig{Enabled: true},
		Events: EventsConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "meetextract.results",
			PublishWait:   Duration(5 * time.Second),
		},
		Cache: CacheConfig{
			Backend: "memory",
			Addr:    "localhost:6379",
			TTL:     Duration(15 * time.Minute),
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "meetextract",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalidConfig, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %v", ErrInvalidConfig, err)
	}
	if !oneOf(c.Embeddings.Provider, "fastembed", "tei", "openai", "none") {
		return fmt.Errorf("%w: unknown embeddings.provider %q", ErrInvalidConfig, c.Embeddings.Provider)
	}
	if !oneOf(c.Entities.Provider, "rules", "none") {
		return fmt.Errorf("%w: unknown entities.provider %q", ErrInvalidConfig, c.Entities.Provider)
	}
	if _, err := extraction.ParseMode(c.Extraction.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Extraction.Thresholds.Validate(); err != nil {
		return fmt.Errorf("%w: extraction: %v", ErrInvalidConfig, err)
	}
	if !oneOf(c.Generative.Provider, "anthropic", "openai", "ollama") {
		return fmt.Errorf("%w: unknown generative.provider %q", ErrInvalidConfig, c.Generative.Provider)
	}
	if c.Provenance.Enabled && !oneOf(c.Provenance.Backend, "chromem", "qdrant") {
		return fmt.Errorf("%w: unknown provenance.backend %q", ErrInvalidConfig, c.Provenance.Backend)
	}
	if !oneOf(c.Cache.Backend, "none", "memory", "redis") {
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("%w: events.url is required when events are enabled", ErrInvalidConfig)
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("%w: temporal.task_queue is required", ErrInvalidConfig)
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
