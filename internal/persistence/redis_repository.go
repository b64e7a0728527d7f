package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions holds the redis backend connection settings.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // prepended to every record key
}

type redisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository connects to redis and verifies the connection with a PING.
func NewRedisRepository(opts RedisOptions) (RecordStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{client: rdb, prefix: opts.KeyPrefix}, nil
}

func (r *redisRepository) key(k string) string {
	return r.prefix + k
}

// Put stores the JSON encoding of value without expiration.
func (r *redisRepository) Put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, 0).Err()
}

// Get fetches and decodes the value under key; redis.Nil means absent.
func (r *redisRepository) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, ErrEmptyValue
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisRepository) Close() error {
	return r.client.Close()
}
