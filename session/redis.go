package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "formbot:session:"

// RedisStore переживает перезапуск процесса; истечение — через TTL ключа
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, key Key) (*Session, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", key, err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &s, nil
}

func (r *RedisStore) Set(ctx context.Context, key Key, s *Session) error {
	cp := *s
	cp.UpdatedAt = time.Now()
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, keyPrefix+key.String(), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, key Key) error {
	if err := r.rdb.Del(ctx, keyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", key, err)
	}
	return nil
}
