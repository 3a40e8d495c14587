package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const DefaultRedisNamespace = "campusdash:session"

// RedisStore keeps device storage in Redis, namespaced per device so several
// clients can share one instance.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, redisURL, deviceID string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(client, deviceID), nil
}

func NewRedisStore(client *redis.Client, deviceID string) *RedisStore {
	ns := DefaultRedisNamespace
	if deviceID != "" {
		ns = ns + ":" + deviceID
	}
	return &RedisStore{client: client, namespace: ns}
}

func (r *RedisStore) key(k string) string {
	return r.namespace + ":" + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	return v, true, nil
}

func (r *RedisStore) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	vals, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// MultiSet relies on MSET, which Redis applies atomically.
func (r *RedisStore) MultiSet(ctx context.Context, pairs map[string]string) error {
	if err := validateKeys(pairKeys(pairs)); err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(pairs)*2)
	for k, v := range pairs {
		values = append(values, r.key(k), v)
	}
	if err := r.client.MSet(ctx, values...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return nil
}

func (r *RedisStore) MultiRemove(ctx context.Context, keys ...string) error {
	if err := validateKeys(keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreRemove, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
