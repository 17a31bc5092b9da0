package fhe

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// Blob is serialized key material. It is owned by its holder; Bytes returns
// a copy.
type Blob []byte

func (b Blob) Bytes() []byte { return bytes.Clone(b) }
func (b Blob) Empty() bool   { return len(b) == 0 }

// KeySet is the serialized output of key generation. GaloisKeys holds the
// rotation keys and RelinKey the relinearization key, which is empty unless
// requested.
type KeySet struct {
	PublicKey  Blob `json:"public_key"`
	SecretKey  Blob `json:"secret_key"`
	GaloisKeys Blob `json:"galois_keys"`
	RelinKey   Blob `json:"relin_key,omitempty"`
}

// KeyOptions controls which evaluation keys GenerateKeys produces.
type KeyOptions struct {
	// Rotations lists extra rotation offsets that get their own key on top
	// of the power-of-two offsets.
	Rotations []int `json:"rotations,omitempty"`

	Relinearize bool `json:"relinearize"`
}

// RotationOffsets returns the sorted, deduplicated rotation offsets keys are
// generated for: every power of two below N/2 plus extra, reduced modulo N/2.
func (c *Context) RotationOffsets(extra []int) []int {
	half := c.Slots() / 2
	seen := map[int]bool{}
	var out []int
	add := func(k int) {
		k %= half
		if k < 0 {
			k += half
		}
		if k != 0 && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for i := 1; i < half; i *= 2 {
		add(i)
	}
	for _, k := range extra {
		add(k)
	}
	sort.Ints(out)
	return out
}

// GenerateKeys creates a fresh key pair and the rotation keys needed to
// multiply encrypted matrices.
func (c *Context) GenerateKeys(opts KeyOptions) (*KeySet, error) {
	kgen := rlwe.NewKeyGenerator(c.params)
	sk, pk := kgen.GenKeyPairNew()

	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize secret key: %w", err)
	}
	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize public key: %w", err)
	}

	offsets := c.RotationOffsets(opts.Rotations)
	galEls := make([]uint64, len(offsets))
	for i, k := range offsets {
		galEls[i] = c.params.GaloisElement(k)
	}
	gks := kgen.GenGaloisKeysNew(galEls, sk)
	gkBytes, err := rlwe.NewMemEvaluationKeySet(nil, gks...).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize galois keys: %w", err)
	}

	ks := &KeySet{PublicKey: pkBytes, SecretKey: skBytes, GaloisKeys: gkBytes}
	if opts.Relinearize {
		rlk := kgen.GenRelinearizationKeyNew(sk)
		if ks.RelinKey, err = rlk.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("failed to serialize relinearization key: %w", err)
		}
	}
	return ks, nil
}

// LoadPublicKey deserializes a public key.
func (c *Context) LoadPublicKey(b Blob) (*rlwe.PublicKey, error) {
	if b.Empty() {
		return nil, fmt.Errorf("%w: public key", ErrMissingKey)
	}
	pk := rlwe.NewPublicKey(c.params)
	if err := pk.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("failed to deserialize public key: %w", err)
	}
	return pk, nil
}

// LoadSecretKey deserializes a secret key.
func (c *Context) LoadSecretKey(b Blob) (*rlwe.SecretKey, error) {
	if b.Empty() {
		return nil, fmt.Errorf("%w: secret key", ErrMissingKey)
	}
	sk := rlwe.NewSecretKey(c.params)
	if err := sk.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("failed to deserialize secret key: %w", err)
	}
	return sk, nil
}

// LoadEvaluationKeys deserializes the rotation keys and, when relin is not
// empty, attaches the relinearization key.
func (c *Context) LoadEvaluationKeys(galois, relin Blob) (*rlwe.MemEvaluationKeySet, error) {
	if galois.Empty() {
		return nil, fmt.Errorf("%w: galois keys", ErrMissingKey)
	}
	evk := rlwe.NewMemEvaluationKeySet(nil)
	if err := evk.UnmarshalBinary(galois); err != nil {
		return nil, fmt.Errorf("failed to deserialize galois keys: %w", err)
	}
	if !relin.Empty() {
		rlk := rlwe.NewRelinearizationKey(c.params)
		if err := rlk.UnmarshalBinary(relin); err != nil {
			return nil, fmt.Errorf("failed to deserialize relinearization key: %w", err)
		}
		evk.RelinearizationKey = rlk
	}
	return evk, nil
}

// LoadKeySet loads every non-empty key in ks.
func (c *Context) LoadKeySet(ks *KeySet) (*Keys, error) {
	var (
		k   Keys
		err error
	)
	if !ks.PublicKey.Empty() {
		if k.Public, err = c.LoadPublicKey(ks.PublicKey); err != nil {
			return nil, err
		}
	}
	if !ks.SecretKey.Empty() {
		if k.Secret, err = c.LoadSecretKey(ks.SecretKey); err != nil {
			return nil, err
		}
	}
	if !ks.GaloisKeys.Empty() {
		if k.Evaluation, err = c.LoadEvaluationKeys(ks.GaloisKeys, ks.RelinKey); err != nil {
			return nil, err
		}
	}
	return &k, nil
}

// Keys is a deserialized KeySet. Any field may be nil.
type Keys struct {
	Public     *rlwe.PublicKey
	Secret     *rlwe.SecretKey
	Evaluation *rlwe.MemEvaluationKeySet
}
