package main

import (
	"context"
	"fmt"

	"github.com/isglobal-brge/seclink/emat"
	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/internal/storage"
)

// BlobRef carries a binary value inline (base64 in JSON) or as a storage
// handle.
type BlobRef struct {
	Data   []byte         `json:"data,omitempty"`
	Handle storage.Handle `json:"handle,omitempty"`
}

func (r BlobRef) empty() bool { return len(r.Data) == 0 && r.Handle == "" }

// Common holds the fields every crypto command accepts.
type Common struct {
	fhe.Params
	Storage *storage.Config `json:"storage,omitempty"`
}

// session is the per-command state: the encryption context and, when
// configured, the blob store.
type session struct {
	ctx   *fhe.Context
	store storage.Storage
}

func (c Common) open(ctx context.Context) (*session, error) {
	fctx, err := fhe.NewContext(c.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	s, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	s.ctx = fctx
	return s, nil
}

// openStore opens only the blob store, for commands that need no context.
func (c Common) openStore(ctx context.Context) (*session, error) {
	s := &session{}
	if c.Storage != nil {
		var err error
		if s.store, err = storage.Open(ctx, *c.Storage); err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}
	return s, nil
}

func (s *session) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// load resolves r to bytes. Handles need a configured store.
func (s *session) load(ctx context.Context, what string, r BlobRef) ([]byte, error) {
	if len(r.Data) > 0 {
		return r.Data, nil
	}
	if r.Handle == "" {
		return nil, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%s: handle %s given but no storage configured", what, r.Handle)
	}
	b, err := s.store.Load(ctx, r.Handle)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	return b, nil
}

// save stores b when a store is configured and returns it inline otherwise.
func (s *session) save(ctx context.Context, kind string, b []byte) (BlobRef, error) {
	if s.store == nil {
		return BlobRef{Data: b}, nil
	}
	h, err := s.store.Store(ctx, kind, b)
	if err != nil {
		return BlobRef{}, fmt.Errorf("failed to store %s: %w", kind, err)
	}
	return BlobRef{Handle: h}, nil
}

func (s *session) loadMatrix(ctx context.Context, what string, r BlobRef) (*emat.EncryptedMatrix, error) {
	b, err := s.load(ctx, what, r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%s: no encrypted matrix given", what)
	}
	m, err := emat.Unmarshal(s.ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", what, err)
	}
	return m, nil
}

func (s *session) saveMatrix(ctx context.Context, m *emat.EncryptedMatrix) (BlobRef, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return BlobRef{}, fmt.Errorf("failed to serialize encrypted matrix: %w", err)
	}
	return s.save(ctx, "emat", b)
}
