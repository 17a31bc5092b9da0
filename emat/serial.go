package emat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/packing"
)

var magic = [4]byte{'S', 'L', 'E', 'M'}

const formatVersion = 1

// ErrFormat is returned for malformed serialized matrices.
var ErrFormat = errors.New("malformed encrypted matrix")

type header struct {
	Magic   [4]byte
	Version uint8
	Kind    Kind
	Rows    uint32
	Cols    uint32
	Count   uint32
}

// MarshalBinary encodes the shape, kind and ciphertexts of m.
func (m *EncryptedMatrix) MarshalBinary() ([]byte, error) {
	if m.Released() {
		return nil, ErrReleased
	}
	var buf bytes.Buffer
	h := header{
		Magic:   magic,
		Version: formatVersion,
		Kind:    m.kind,
		Rows:    uint32(m.rows),
		Cols:    uint32(m.cols),
		Count:   uint32(len(m.cts)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	for i, ct := range m.cts {
		b, err := ct.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize ciphertext %d: %w", i, err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(b))); err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a matrix written by MarshalBinary under ctx.
func Unmarshal(ctx *fhe.Context, data []byte) (*EncryptedMatrix, error) {
	r := bytes.NewReader(data)
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, h.Magic[:])
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}
	if h.Kind < Left || h.Kind > Product {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrFormat, h.Kind)
	}

	m := &EncryptedMatrix{rows: int(h.Rows), cols: int(h.Cols), kind: h.Kind}
	if err := CheckShape(m.kind, m.rows, m.cols, ctx.Slots()); err != nil {
		return nil, err
	}
	if want := expectedCount(m.kind, m.cols); int(h.Count) != want {
		return nil, fmt.Errorf("%w: %d ciphertexts for a %s matrix with %d columns", packing.ErrShape, h.Count, m.kind, m.cols)
	}
	// every ciphertext carries at least its length prefix
	if uint64(h.Count)*4 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d ciphertexts declared in %d bytes", ErrFormat, h.Count, r.Len())
	}

	m.cts = make([]*rlwe.Ciphertext, h.Count)
	for i := range m.cts {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: ciphertext %d length: %v", ErrFormat, i, err)
		}
		if int64(n) > int64(r.Len()) {
			return nil, fmt.Errorf("%w: ciphertext %d truncated", ErrFormat, i)
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("%w: ciphertext %d: %v", ErrFormat, i, err)
		}
		ct, err := ctx.UnmarshalCiphertext(b)
		if err != nil {
			return nil, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		m.cts[i] = ct
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, r.Len())
	}
	return m, nil
}
