package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore tracks which candidate URLs were already processed recently,
// so back-to-back runs do not refetch and reclassify the same pages.
// Optional: the pipeline works without one.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MarkProcessed sets a key with a TTL to suppress reprocessing.
func (s *RedisStore) MarkProcessed(ctx context.Context, url string, ttl time.Duration) error {
	key := fmt.Sprintf("processed:%s", url)
	return s.client.Set(ctx, key, "1", ttl).Err()
}

// IsRecentlyProcessed checks whether a URL was handled within the TTL.
func (s *RedisStore) IsRecentlyProcessed(ctx context.Context, url string) (bool, error) {
	key := fmt.Sprintf("processed:%s", url)
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}
