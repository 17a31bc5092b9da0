// Package storage keeps serialized encrypted matrices and key blobs under
// content-derived handles, so the parties of a linkage run can exchange
// handles instead of multi-megabyte payloads.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("blob not found")
	ErrStorageFull   = errors.New("storage capacity exceeded")
	ErrInvalidHandle = errors.New("invalid blob handle")
)

// Handle identifies a stored blob: a kind prefix and the hex SHA-256 of the
// content, e.g. "emat-3fa2...".
type Handle string

// ComputeHandle derives the handle of data stored as kind.
func ComputeHandle(kind string, data []byte) Handle {
	sum := sha256.Sum256(data)
	return Handle(kind + "-" + hex.EncodeToString(sum[:]))
}

// Validate checks the shape of h. Handles end up in file paths and redis
// keys, so only [a-z] kinds and 64 hex digits are accepted.
func (h Handle) Validate() error {
	kind, digest, ok := strings.Cut(string(h), "-")
	if !ok || kind == "" || len(digest) != 2*sha256.Size {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}
	for _, r := range kind {
		if r < 'a' || r > 'z' {
			return fmt.Errorf("%w: %q", ErrInvalidHandle, h)
		}
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}
	return nil
}

// Kind returns the prefix of h.
func (h Handle) Kind() string {
	kind, _, _ := strings.Cut(string(h), "-")
	return kind
}

// Storage is a content-addressed blob store. Storing the same content twice
// returns the same handle.
type Storage interface {
	Store(ctx context.Context, kind string, data []byte) (Handle, error)
	Load(ctx context.Context, h Handle) ([]byte, error)
	Delete(ctx context.Context, h Handle) error
	Exists(ctx context.Context, h Handle) (bool, error)
	Close() error
}

// Config selects and configures a Storage backend.
type Config struct {
	Backend    string `json:"backend"` // memory, file or redis
	CapacityMB int64  `json:"capacity_mb,omitempty"`
	Dir        string `json:"dir,omitempty"`

	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	RedisPrefix   string `json:"redis_prefix,omitempty"`
	TTLSeconds    int    `json:"ttl_seconds,omitempty"`
}

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.Backend == "" {
		c.Backend = "file"
	}
	if c.CapacityMB == 0 {
		c.CapacityMB = 1024
	}
	if c.Dir == "" {
		c.Dir = ".seclink"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = "seclink:blob:"
	}
	return c
}

// Open returns the backend named by cfg.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	cfg = cfg.WithDefaults()
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(cfg.CapacityMB), nil
	case "file":
		return NewFileStorage(cfg.Dir)
	case "redis":
		return NewRedisStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (use memory, file or redis)", cfg.Backend)
	}
}
