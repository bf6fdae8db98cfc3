// Package cache memoizes extraction results by transcript content.
//
// Keys are the SHA-256 of the extraction mode plus the JSON of the input
// segments, so identical transcripts submitted twice reuse the first run.
// Backends: in-process memory with TTL, Redis, or none.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// ErrInvalidConfig indicates an unknown backend or bad settings.
var ErrInvalidConfig = errors.New("invalid cache config")

// Cache stores extraction results.
type Cache interface {
	// Get returns the cached result, or ok=false on a miss.
	Get(ctx context.Context, key string) (res *extraction.Result, ok bool, err error)
	Set(ctx context.Context, key string, res *extraction.Result) error
	Close() error
}

// Key derives the cache key for segments extracted in mode.
func Key(mode string, segments []transcript.Segment) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	// Segment has only string fields, so Marshal cannot fail.
	data, _ := json.Marshal(segments)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Config selects a backend.
type Config struct {
	// Backend is none, memory or redis.
	Backend    string
	Addr       string
	Password   string
	DB         int
	TTL        time.Duration
	MaxEntries int
}

// New builds the configured cache.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", "none":
		return Nop{}, nil
	case "memory":
		return NewMemory(cfg.TTL, cfg.MaxEntries), nil
	case "redis":
		return NewRedis(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*extraction.Result, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, *extraction.Result) error        { return nil }
func (Nop) Close() error                                                 { return nil }
