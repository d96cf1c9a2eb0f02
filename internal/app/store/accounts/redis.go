package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces account keys.
const DefaultRedisPrefix = "authform:account:"

// RedisStore keeps one JSON document per account under prefix+Key(email).
// SETNX makes registration of a taken email fail atomically.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	hasher hasher
}

// NewRedisStore wraps an existing client. The client is not closed by
// Close; the caller owns it.
func NewRedisStore(client redis.UniversalClient, prefix string, cost int) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, hasher: newHasher(cost)}
}

func (s *RedisStore) key(email string) string {
	return s.prefix + Key(email)
}

// Register stores a new account or returns ErrExists.
func (s *RedisStore) Register(ctx context.Context, in NewAccount) (Account, error) {
	acct, err := s.hasher.build(in)
	if err != nil {
		return Account{}, err
	}
	b, err := json.Marshal(acct)
	if err != nil {
		return Account{}, fmt.Errorf("encode account: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(in.Email), b, 0).Result()
	if err != nil {
		return Account{}, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return Account{}, ErrExists
	}
	return acct, nil
}

// Authenticate loads the account for email and checks password.
func (s *RedisStore) Authenticate(ctx context.Context, email, password string) (Account, error) {
	var p *Account
	b, err := s.client.Get(ctx, s.key(email)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return Account{}, fmt.Errorf("redis get: %w", err)
	default:
		var acct Account
		if err := json.Unmarshal(b, &acct); err != nil {
			return Account{}, fmt.Errorf("decode account: %w", err)
		}
		p = &acct
	}
	if err := s.hasher.check(p, password); err != nil {
		return Account{}, err
	}
	return *p, nil
}

// Close is a no-op; the shared client is closed by its owner.
func (s *RedisStore) Close() error { return nil }
