package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saralpe/internal/domain/token"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// TokenStore keeps the current token as one JSON document under a single key.
// SET replaces the whole value, so readers never see a partial write.
type TokenStore struct {
	rdb *redis.Client
	key string
}

func NewTokenStore(rdb *redis.Client, key string) *TokenStore {
	return &TokenStore{rdb: rdb, key: key}
}

func (s *TokenStore) Get(ctx context.Context) (*token.AuthToken, error) {
	b, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var t token.AuthToken
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	return &t, nil
}

// Put stores the token with a TTL equal to its lifetime so Redis drops it on its own.
func (s *TokenStore) Put(ctx context.Context, t *token.AuthToken) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	if err := s.rdb.Set(ctx, s.key, b, ttlFor(t)).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// ttlFor is ExpiresAt-IssuedAt, taken from the token and not the wall clock.
// Validity is still judged by the reader's clock against ExpiresAt; the TTL only
// evicts, and for a token stored at issue time it never fires before expiry.
func ttlFor(t *token.AuthToken) time.Duration {
	ttl := t.ExpiresAt.Sub(t.IssuedAt)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

// MustConnect pings with exponential backoff before giving up.
func MustConnect(ctx context.Context, opts *redis.Options) *redis.Client {
	rdb := redis.NewClient(opts)

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.RetryNotify(func() error {
		return rdb.Ping(ctx).Err()
	}, bo, func(err error, d time.Duration) {
		log.Warn().Err(err).Str("addr", opts.Addr).Dur("retry_in", d).Msg("redis ping failed")
	})
	if err != nil {
		log.Fatal().Err(err).Str("addr", opts.Addr).Msg("redis connect fail")
	}
	return rdb
}
