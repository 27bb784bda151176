package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

// TTLStore is an expiring key-value store backed by Redis. Entries vanish on
// their own once the TTL elapses; there is no manual expiry sweep.
type TTLStore struct {
	client *redis.Client
	prefix string
}

// NewTTLStore constructs a store namespaced under the given prefix.
func NewTTLStore(client *redis.Client, prefix string) *TTLStore {
	return &TTLStore{client: client, prefix: prefix}
}

func (s *TTLStore) key(k string) string {
	return s.prefix + ":" + k
}

// Put stores a value under the key for the given TTL.
func (s *TTLStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.client == nil {
		return fmt.Errorf("ttl store not configured")
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("ttl store set %s: %w", key, err)
	}
	return nil
}

// Get returns the stored value, or ErrCacheMiss when absent or expired.
func (s *TTLStore) Get(ctx context.Context, key string) (string, error) {
	if s.client == nil {
		return "", appErrors.ErrCacheMiss
	}
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("ttl store get %s: %w", key, err)
	}
	return value, nil
}

// Delete removes the key immediately, typically after a successful redemption.
func (s *TTLStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("ttl store delete %s: %w", key, err)
	}
	return nil
}
