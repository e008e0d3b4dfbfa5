package repository

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// RedisProgressStore 每个学习者一个 key，值为整份进度的 JSON
type RedisProgressStore struct {
	Redis  *redis.Client
	prefix string
}

func NewRedisProgressStore(rdb *redis.Client, prefix string) *RedisProgressStore {
	if prefix == "" {
		prefix = "progress:learner:"
	}
	return &RedisProgressStore{Redis: rdb, prefix: prefix}
}

func (r *RedisProgressStore) key(learnerID string) string {
	return r.prefix + learnerID
}

func (r *RedisProgressStore) Load(ctx context.Context, learnerID string) ([]byte, error) {
	data, err := r.Redis.Get(ctx, r.key(learnerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisProgressStore) Save(ctx context.Context, learnerID string, data []byte) error {
	return r.Redis.Set(ctx, r.key(learnerID), data, 0).Err()
}

func (r *RedisProgressStore) Delete(ctx context.Context, learnerID string) error {
	return r.Redis.Del(ctx, r.key(learnerID)).Err()
}

func (r *RedisProgressStore) Ping(ctx context.Context) error {
	return r.Redis.Ping(ctx).Err()
}
