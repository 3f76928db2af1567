package credentials

import (
	"context"

	"github.com/redis/go-redis/v9"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// RedisStore keeps credential variables as plain string keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+name).Result()
	if err == redis.Nil {
		return "", ierr.NewErrorf("credential %s not set", name).Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return "", ierr.WithError(err).
			WithMessagef("redis get %s", name).
			Mark(ierr.ErrDatabase)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, name, value string) error {
	if err := s.client.Set(ctx, s.prefix+name, value, 0).Err(); err != nil {
		return ierr.WithError(err).
			WithMessagef("redis set %s", name).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
