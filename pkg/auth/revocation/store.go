// Package revocation remembers logged-out access tokens until they expire.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type keyer interface {
	RevokedTokenKey(jti string) string
}

// Checker is the read-only surface used by the auth middleware.
type Checker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Store persists revoked token ids in redis.
type Store struct {
	kv    kvStore
	keyer keyer
}

// Backend is satisfied by *redis.Client.
type Backend interface {
	kvStore
	keyer
}

func NewStore(backend Backend) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{kv: backend, keyer: backend}, nil
}

// Revoke marks the token id as revoked for ttl. Expired tokens need no entry.
func (s *Store) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return fmt.Errorf("token id is required")
	}
	if ttl <= 0 {
		return nil
	}
	return s.kv.Set(ctx, s.keyer.RevokedTokenKey(jti), "1", ttl)
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	_, err := s.kv.Get(ctx, s.keyer.RevokedTokenKey(jti))
	if errors.Is(err, redislib.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
