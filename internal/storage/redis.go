package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps blobs as redis strings under a key prefix, optionally
// expiring them.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage connects to cfg.RedisAddr and checks the connection.
func NewRedisStorage(ctx context.Context, cfg Config) (*RedisStorage, error) {
	cfg = cfg.WithDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStorageFromClient(client, cfg.RedisPrefix, time.Duration(cfg.TTLSeconds)*time.Second), nil
}

// NewRedisStorageFromClient wraps an existing client. A zero ttl keeps
// blobs forever.
func NewRedisStorageFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) key(h Handle) (string, error) {
	if err := h.Validate(); err != nil {
		return "", err
	}
	return s.prefix + string(h), nil
}

func (s *RedisStorage) Store(ctx context.Context, kind string, data []byte) (Handle, error) {
	h := ComputeHandle(kind, data)
	key, err := s.key(h)
	if err != nil {
		return "", err
	}
	if err := s.client.SetNX(ctx, key, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	return h, nil
}

func (s *RedisStorage) Load(ctx context.Context, h Handle) ([]byte, error) {
	key, err := s.key(h)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Delete(ctx context.Context, h Handle) error {
	key, err := s.key(h)
	if err != nil {
		return err
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStorage) Exists(ctx context.Context, h Handle) (bool, error) {
	key, err := s.key(h)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check blob: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStorage) Close() error { return s.client.Close() }
