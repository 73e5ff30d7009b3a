package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps OAuth state values between the authorize redirect and the callback.
type StateStore interface {
	Put(ctx context.Context, state string, ttl time.Duration) error
	Take(ctx context.Context, state string) (bool, error)
}

type redisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) StateStore {
	return &redisStateStore{rdb: rdb}
}

func (r *redisStateStore) Put(ctx context.Context, state string, ttl time.Duration) error {
	return r.rdb.Set(ctx, buildStateKey(state), 1, ttl).Err()
}

func (r *redisStateStore) Take(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := r.rdb.Del(ctx, buildStateKey(state)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func buildStateKey(state string) string {
	return fmt.Sprintf("auth:line:state:%s", state)
}
