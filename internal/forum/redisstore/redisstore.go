// Package redisstore implements the forum Store contract against a Redis
// backend, the storage layout the target forum uses natively.
package redisstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/forum-importer/internal/forum"
)

type Store struct {
	redis *redis.Client
}

var _ forum.Store = (*Store)(nil)

func New(client *redis.Client) *Store {
	return &Store{redis: client}
}

func (s *Store) GetObject(ctx context.Context, key string) (map[string]string, error) {
	result, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redisstore: get object %q", key)
	}
	return result, nil
}

func (s *Store) SetObject(ctx context.Context, key string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.redis.HSet(ctx, key, args...).Err(); err != nil {
		return errors.Wrapf(err, "redisstore: set object %q", key)
	}
	return nil
}

func (s *Store) GetObjectField(ctx context.Context, key, field string) (string, error) {
	result, err := s.redis.HGet(ctx, key, field).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", errors.Wrapf(err, "redisstore: get field %q of %q", field, key)
	}
	return result, nil
}

func (s *Store) SetObjectField(ctx context.Context, key, field string, value any) error {
	if err := s.redis.HSet(ctx, key, field, value).Err(); err != nil {
		return errors.Wrapf(err, "redisstore: set field %q of %q", field, key)
	}
	return nil
}

func (s *Store) IncrObjectField(ctx context.Context, key, field string) (int64, error) {
	n, err := s.redis.HIncrBy(ctx, key, field, 1).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redisstore: incr field %q of %q", field, key)
	}
	return n, nil
}

func (s *Store) DeleteKey(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "redisstore: delete %q", key)
	}
	return nil
}

func (s *Store) SortedSetAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.redis.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return errors.Wrapf(err, "redisstore: zadd %q", key)
	}
	return nil
}

func (s *Store) SortedSetRemove(ctx context.Context, key string, member string) error {
	if err := s.redis.ZRem(ctx, key, member).Err(); err != nil {
		return errors.Wrapf(err, "redisstore: zrem %q", key)
	}
	return nil
}

func (s *Store) SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	result, err := s.redis.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redisstore: zrange %q", key)
	}
	return result, nil
}

func (s *Store) SortedSetRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	result, err := s.redis.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redisstore: zrevrange %q", key)
	}
	return result, nil
}

func (s *Store) SortedSetCard(ctx context.Context, key string) (int64, error) {
	n, err := s.redis.ZCard(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redisstore: zcard %q", key)
	}
	return n, nil
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "redisstore: scan %q", pattern)
	}
	return keys, nil
}
