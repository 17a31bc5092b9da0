package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps blobs in process memory up to a byte capacity.
type MemoryStorage struct {
	mu       sync.RWMutex
	blobs    map[Handle][]byte
	capacity int64
	size     int64
}

func NewMemoryStorage(capacityMB int64) *MemoryStorage {
	return &MemoryStorage{
		blobs:    make(map[Handle][]byte),
		capacity: capacityMB << 20,
	}
}

func (s *MemoryStorage) Store(_ context.Context, kind string, data []byte) (Handle, error) {
	h := ComputeHandle(kind, data)
	if err := h.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[h]; ok {
		return h, nil
	}
	if s.size+int64(len(data)) > s.capacity {
		return "", ErrStorageFull
	}
	s.blobs[h] = append([]byte(nil), data...)
	s.size += int64(len(data))
	return h, nil
}

func (s *MemoryStorage) Load(_ context.Context, h Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[h]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(_ context.Context, h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[h]
	if !ok {
		return ErrNotFound
	}
	s.size -= int64(len(data))
	delete(s.blobs, h)
	return nil
}

func (s *MemoryStorage) Exists(_ context.Context, h Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[h]
	return ok, nil
}

// Size is the number of stored bytes.
func (s *MemoryStorage) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs = map[Handle][]byte{}
	s.size = 0
	return nil
}
