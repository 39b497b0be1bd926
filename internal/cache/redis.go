package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quizgenai/internal/config"
	"quizgenai/internal/models"
)

const keyPrefix = "quizgen:generation:"

// kv is the part of *redis.Client the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// GenerationCache remembers generation results per (content, config) pair.
// A nil *GenerationCache is valid and caches nothing.
type GenerationCache struct {
	client kv
	closer func() error
	ttl    time.Duration
	log    *zap.Logger
}

// NewGenerationCache connects to Redis. It returns (nil, nil) when no address
// is configured.
func NewGenerationCache(cfg config.RedisConfig, log *zap.Logger) (*GenerationCache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Addr == "" {
		log.Warn("REDIS_ADDR not set, generation cache disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Redis generation cache enabled", zap.String("addr", cfg.Addr))
	return &GenerationCache{client: client, closer: client.Close, ttl: cfg.TTL, log: log}, nil
}

func (c *GenerationCache) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// Key derives the cache key for a request.
func Key(cfg models.QuizConfig, content string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d/%d/%d/%d\x00", cfg.TotalQuestions, cfg.SingleCorrect, cfg.MultipleCorrect, cfg.OptionsPerQuestion)
	h.Write([]byte(content))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached result. Misses and Redis errors both report false.
func (c *GenerationCache) Get(ctx context.Context, cfg models.QuizConfig, content string) (models.GenerationResult, bool) {
	var res models.GenerationResult
	if c == nil {
		return res, false
	}

	data, err := c.client.Get(ctx, Key(cfg, content)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("generation cache read failed", zap.Error(err))
		}
		return res, false
	}
	if err := json.Unmarshal(data, &res); err != nil {
		c.log.Warn("discarding unreadable cache entry", zap.Error(err))
		return res, false
	}
	return res, true
}

// Put stores res. Degraded results are not cached so a later request can get
// real model output.
func (c *GenerationCache) Put(ctx context.Context, cfg models.QuizConfig, content string, res models.GenerationResult) {
	if c == nil || res.Degraded {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.log.Warn("failed to encode generation result for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, Key(cfg, content), data, c.ttl).Err(); err != nil {
		c.log.Warn("generation cache write failed", zap.Error(err))
	}
}
