package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "igfeed:session:"

// KV is the subset of a key-value server the redis store needs
type KV interface {
	// Get returns the value at key and whether it exists
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Scan returns every key starting with prefix
	Scan(ctx context.Context, prefix string) ([]string, error)
}

// redisKV adapts a go-redis client to KV
type redisKV struct {
	client *redis.Client
}

func (r redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r redisKV) Scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// RedisStore keeps records in a key-value server. Keys expire after ttl so
// the server drops sessions the client would treat as stale anyway.
type RedisStore struct {
	kv  KV
	ttl time.Duration
}

// NewRedisStore creates a store over kv. A zero ttl keeps keys forever.
func NewRedisStore(kv KV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

// DialRedis connects to a redis server and checks it answers
func DialRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis not available at %s: %w", addr, err)
	}
	return NewRedisStore(redisKV{client: client}, ttl), nil
}

// Get returns the record for username
func (r *RedisStore) Get(ctx context.Context, username string) (*Record, error) {
	data, ok, err := r.kv.Get(ctx, redisPrefix+username)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &record, nil
}

// Put saves record with the store's expiry
func (r *RedisStore) Put(ctx context.Context, record *Record) error {
	if err := validate(record); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.kv.Set(ctx, redisPrefix+record.Username, string(data), r.ttl); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes the record for username
func (r *RedisStore) Delete(ctx context.Context, username string) error {
	if err := r.kv.Del(ctx, redisPrefix+username); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns the stored usernames in sorted order
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	keys, err := r.kv.Scan(ctx, redisPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, redisPrefix))
	}
	sort.Strings(names)
	return names, nil
}
