package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is "chromem" (default) or "qdrant".
	Backend string
	Chromem ChromemConfig
	Qdrant  QdrantConfig
}

// New builds the configured Store.
func New(cfg Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "chromem":
		return NewChromemStore(cfg.Chromem, embedder, logger)
	case "qdrant":
		return NewQdrantStore(cfg.Qdrant, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
