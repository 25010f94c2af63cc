package cinemeta

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"torrentstream/streamresolver/internal/domain"
	"torrentstream/streamresolver/internal/metrics"
)

const redisCachePrefix = "streams:meta:"

// RedisCache stores metadata in Redis with JSON serialization.
type RedisCache struct {
	client *redis.Client
}

type cachedMetadata struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (domain.Metadata, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.MetadataCacheMissesTotal.Inc()
			return domain.Metadata{}, false, nil
		}
		return domain.Metadata{}, false, err
	}
	var cached cachedMetadata
	if err := json.Unmarshal(data, &cached); err != nil {
		return domain.Metadata{}, false, err
	}
	metrics.MetadataCacheHitsTotal.Inc()
	return domain.Metadata{Title: cached.Title, Year: cached.Year}, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, meta domain.Metadata, ttl time.Duration) error {
	data, err := json.Marshal(cachedMetadata{Title: meta.Title, Year: meta.Year})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
