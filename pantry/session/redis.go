// pantry/session/redis.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "authform:session:"

// RedisStore implements Redis-backed session storage. Values round-trip
// through JSON, so only strings, numbers, bools and lists of those survive.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// ConnectRedis dials Redis and pings it before returning a store.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("session: redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client, ""), nil
}

// Client returns the underlying client so other stores can share the pool.
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}

// Load retrieves session data by ID.
func (s *RedisStore) Load(ctx context.Context, id string) (*SessionData, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}
	if time.Now().After(data.ExpiresAt) {
		return nil, ErrExpired
	}
	return &data, nil
}

// Save stores session data with a TTL matching its expiry.
func (s *RedisStore) Save(ctx context.Context, data *SessionData) error {
	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(data.ID), raw, ttl).Err()
}

// Delete removes a session by ID.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
