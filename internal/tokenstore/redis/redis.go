// redis - хранилище токенов в Redis Hash (общий стенд, несколько реплик процесса).
package redis

import (
	"context"
	"fmt"

	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/tokenstore"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb redis.UniversalClient
	key string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой - используется "roster-share:".
func New(ctx context.Context, redisURL, prefix string) (*Store, error) {
	const op = "tokenstore.redis.New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(rdb, prefix), nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "roster-share:"
	}

	return &Store{rdb: rdb, key: prefix + "tokens"}
}

// Save пишет оба поля одной транзакцией (MULTI/EXEC).
func (s *Store) Save(ctx context.Context, pair models.TokenPair) error {
	const op = "tokenstore.redis.Save"

	if err := tokenstore.Validate(pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key, map[string]string{
		tokenstore.KeyAccessToken:  pair.AccessToken,
		tokenstore.KeyRefreshToken: pair.RefreshToken,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Load(ctx context.Context) (*models.TokenPair, error) {
	const op = "tokenstore.redis.Load"

	vals, err := s.rdb.HMGet(ctx, s.key, tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tokenstore.FromValues(asString(vals, 0), asString(vals, 1))
}

func (s *Store) Clear(ctx context.Context) error {
	const op = "tokenstore.redis.Clear"

	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Close() error { return s.rdb.Close() }

// HMGet возвращает nil для отсутствующих полей.
func asString(vals []any, i int) string {
	if i >= len(vals) {
		return ""
	}

	v, _ := vals[i].(string)
	return v
}

var _ tokenstore.Store = (*Store)(nil)
