package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()
	data := []byte("encrypted matrix bytes")

	h, err := s.Store(ctx, "emat", data)
	require.NoError(t, err)
	assert.Equal(t, "emat", h.Kind())
	assert.NoError(t, h.Validate())

	again, err := s.Store(ctx, "emat", data)
	require.NoError(t, err)
	assert.Equal(t, h, again)

	other, err := s.Store(ctx, "pk", data)
	require.NoError(t, err)
	assert.NotEqual(t, h, other)

	ok, err := s.Exists(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Load(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	got[0] = 'X'
	got, err = s.Load(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, s.Delete(ctx, h))
	ok, err = s.Exists(ctx, h)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Load(ctx, h)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, h), ErrNotFound)
	assert.NoError(t, s.Close())
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage(1))
}

func TestMemoryStorageCapacity(t *testing.T) {
	s := NewMemoryStorage(1)
	ctx := context.Background()
	_, err := s.Store(ctx, "emat", make([]byte, 1<<20))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), s.Size())

	_, err = s.Store(ctx, "emat", []byte{1})
	assert.ErrorIs(t, err, ErrStorageFull)
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestFileStorageLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	h, err := s.Store(context.Background(), "sk", []byte("secret"))
	require.NoError(t, err)
	digest := strings.TrimPrefix(string(h), "sk-")
	_, err = os.Stat(filepath.Join(dir, "sk", digest[:2], string(h)))
	assert.NoError(t, err)

	_, err = s.Load(context.Background(), Handle("../../etc/passwd"))
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestHandleValidate(t *testing.T) {
	h := ComputeHandle("emat", []byte("x"))
	assert.NoError(t, h.Validate())

	for _, bad := range []Handle{"", "emat", "emat-xyz", "EMAT-" + Handle(strings.Repeat("a", 64)), "-" + Handle(strings.Repeat("a", 64))} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidHandle, "%q", bad)
	}
	assert.ErrorIs(t, ComputeHandle("e/x", nil).Validate(), ErrInvalidHandle)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = Open(ctx, Config{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	_, err = Open(ctx, Config{Backend: "tape"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Backend: "redis", RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}

// TestRedisStorage runs against a live server named by SECLINK_TEST_REDIS.
func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("SECLINK_TEST_REDIS")
	if addr == "" {
		t.Skip("SECLINK_TEST_REDIS not set")
	}
	ctx := context.Background()
	s, err := NewRedisStorage(ctx, Config{RedisAddr: addr, RedisPrefix: "seclink:test:" + t.Name() + ":"})
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}
