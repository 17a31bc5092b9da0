// Package fhe wraps the lattigo BGV scheme behind the small set of
// operations the matrix layer needs: slot encoding, encryption, rotation of
// each slot half, element-wise products and sums.
//
// A Context fixes the ring degree and plaintext modulus. Every ciphertext,
// key and encrypted matrix derived from a Context is only meaningful under
// it, so the Context must outlive them.
package fhe

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// Backend is the slot-vector interface the packing and multiplication
// layers are written against.
type Backend interface {
	Slots() int
	PlaintextModulus() uint64
	Encode(values []int64) (*rlwe.Plaintext, error)
	Decode(pt *rlwe.Plaintext) ([]int64, error)
	EncryptVectors(vecs [][]int64, pk *rlwe.PublicKey) ([]*rlwe.Ciphertext, error)
	DecryptVectors(cts []*rlwe.Ciphertext, sk *rlwe.SecretKey) ([][]int64, error)
}

var _ Backend = (*Context)(nil)

// Context holds the BGV parameters and a shared encoder.
type Context struct {
	p      Params
	params bgv.Parameters

	mu      sync.Mutex
	encoder *bgv.Encoder
}

// NewContext builds a Context for p after applying defaults.
func NewContext(p Params) (*Context, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	lit, err := p.literal()
	if err != nil {
		return nil, err
	}
	params, err := bgv.NewParametersFromLiteral(lit)
	if err != nil {
		return nil, fmt.Errorf("failed to create parameters: %w", err)
	}
	return &Context{p: p, params: params, encoder: bgv.NewEncoder(params)}, nil
}

func (c *Context) Params() Params             { return c.p }
func (c *Context) Parameters() bgv.Parameters { return c.params }
func (c *Context) PlaintextModulus() uint64   { return c.params.PlaintextModulus() }

// Slots is the length of a slot vector, N for BGV.
func (c *Context) Slots() int { return c.params.MaxSlots() }

// Encode encodes a slot vector of exactly Slots() values. Values are reduced
// modulo t first, so negative inputs are accepted.
func (c *Context) Encode(values []int64) (*rlwe.Plaintext, error) {
	if len(values) != c.Slots() {
		return nil, fmt.Errorf("%w: slot vector has %d values, expected %d", ErrParams, len(values), c.Slots())
	}
	t := int64(c.PlaintextModulus())
	coeffs := make([]uint64, len(values))
	for i, v := range values {
		r := v % t
		if r < 0 {
			r += t
		}
		coeffs[i] = uint64(r)
	}

	pt := bgv.NewPlaintext(c.params, c.params.MaxLevel())
	c.mu.Lock()
	err := c.encoder.Encode(coeffs, pt)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to encode slot vector: %w", err)
	}
	return pt, nil
}

// Decode returns the slot vector of pt with values in [0, t).
func (c *Context) Decode(pt *rlwe.Plaintext) ([]int64, error) {
	coeffs := make([]uint64, c.Slots())
	c.mu.Lock()
	err := c.encoder.Decode(pt, coeffs)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to decode slot vector: %w", err)
	}
	out := make([]int64, len(coeffs))
	for i, v := range coeffs {
		out[i] = int64(v)
	}
	return out, nil
}

// Encrypt encrypts pt under pk.
func (c *Context) Encrypt(pt *rlwe.Plaintext, pk *rlwe.PublicKey) (*rlwe.Ciphertext, error) {
	if pk == nil {
		return nil, fmt.Errorf("%w: public key", ErrMissingKey)
	}
	ct, err := rlwe.NewEncryptor(c.params, pk).EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return ct, nil
}

// EncryptVectors encodes and encrypts each slot vector under pk.
func (c *Context) EncryptVectors(vecs [][]int64, pk *rlwe.PublicKey) ([]*rlwe.Ciphertext, error) {
	if pk == nil {
		return nil, fmt.Errorf("%w: public key", ErrMissingKey)
	}
	enc := rlwe.NewEncryptor(c.params, pk)
	cts := make([]*rlwe.Ciphertext, len(vecs))
	for i, v := range vecs {
		pt, err := c.Encode(v)
		if err != nil {
			return nil, err
		}
		if cts[i], err = enc.EncryptNew(pt); err != nil {
			return nil, fmt.Errorf("failed to encrypt slot vector %d: %w", i, err)
		}
	}
	return cts, nil
}

// Decrypt decrypts ct under sk. Ciphertexts of degree two are accepted.
func (c *Context) Decrypt(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) (*rlwe.Plaintext, error) {
	if sk == nil {
		return nil, fmt.Errorf("%w: secret key", ErrMissingKey)
	}
	return rlwe.NewDecryptor(c.params, sk).DecryptNew(ct), nil
}

// DecryptVectors decrypts and decodes each ciphertext under sk.
func (c *Context) DecryptVectors(cts []*rlwe.Ciphertext, sk *rlwe.SecretKey) ([][]int64, error) {
	if sk == nil {
		return nil, fmt.Errorf("%w: secret key", ErrMissingKey)
	}
	dec := rlwe.NewDecryptor(c.params, sk)
	out := make([][]int64, len(cts))
	for i, ct := range cts {
		v, err := c.Decode(dec.DecryptNew(ct))
		if err != nil {
			return nil, fmt.Errorf("slot vector %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// MarshalCiphertext serializes ct.
func (c *Context) MarshalCiphertext(ct *rlwe.Ciphertext) ([]byte, error) {
	b, err := ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ciphertext: %w", err)
	}
	return b, nil
}

// UnmarshalCiphertext deserializes a ciphertext produced under this Context.
func (c *Context) UnmarshalCiphertext(b []byte) (*rlwe.Ciphertext, error) {
	ct := rlwe.NewCiphertext(c.params, 1, c.params.MaxLevel())
	if err := ct.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("failed to deserialize ciphertext: %w", err)
	}
	return ct, nil
}
