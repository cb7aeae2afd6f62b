package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"liftcart/internal/config"
	"liftcart/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a go-redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisSummaryCache stores summaries as JSON with a jittered TTL.
type RedisSummaryCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

// NewRedisSummaryCache creates a Redis-backed summary cache.
func NewRedisSummaryCache(client redis.UniversalClient, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisSummaryCache) Get(ctx context.Context, cartID uuid.UUID) (*model.CartSummary, error) {
	data, err := r.client.Get(ctx, summaryKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var summary model.CartSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary failed: %w", err)
	}

	return &summary, nil
}

func (r *RedisSummaryCache) Set(ctx context.Context, cartID uuid.UUID, summary *model.CartSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary failed: %w", err)
	}

	// Up to 10% jitter so summaries written together do not expire together
	ttl := r.baseTTL
	if spread := int64(r.baseTTL / 10); spread > 0 {
		ttl += time.Duration(rand.Int64N(spread))
	}

	if err := r.client.Set(ctx, summaryKey(cartID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisSummaryCache) Invalidate(ctx context.Context, cartIDs ...uuid.UUID) error {
	if len(cartIDs) == 0 {
		return nil
	}

	keys := make([]string, len(cartIDs))
	for i, id := range cartIDs {
		keys[i] = summaryKey(id)
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func summaryKey(cartID uuid.UUID) string {
	return fmt.Sprintf("cart:summary:%s", cartID)
}
