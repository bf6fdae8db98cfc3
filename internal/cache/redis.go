package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
)

const redisKeyPrefix = "meetextract:result:"

// Redis stores results as JSON strings with a TTL.
type Redis struct {
	client *redis.Client
	cfg    Config
	logger *zap.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg Config, logger *zap.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis addr is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	logger.Info("redis cache connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Redis{client: client, cfg: cfg, logger: logger}, nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (*extraction.Result, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var res extraction.Result
	if err := json.Unmarshal(data, &res); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		r.logger.Warn("dropping unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return &res, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, res *extraction.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}
