package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"savdo/backend/internal/cart"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr string, password string, db int, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Load(ctx context.Context, key Key) (cart.State, error) {
	val, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return cart.State{}, err
	}

	var state cart.State
	if err := json.Unmarshal(val, &state); err != nil {
		return cart.State{}, err
	}
	return state, nil
}

// Save refreshes the TTL on every write, so an active till never expires mid-sale.
func (r *RedisStore) Save(ctx context.Context, key Key, state cart.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key.String(), payload, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key Key) error {
	return r.client.Del(ctx, key.String()).Err()
}
