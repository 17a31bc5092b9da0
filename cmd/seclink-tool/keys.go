package main

import (
	"context"
	"fmt"

	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/internal/transport"
)

// ============================================================================
// keygen
// ============================================================================

type KeyGenInput struct {
	Common
	Rotations   []int `json:"rotations,omitempty"`
	Relinearize bool  `json:"relinearize"`
}

type KeyGenOutput struct {
	PublicKey        BlobRef `json:"public_key"`
	SecretKey        BlobRef `json:"secret_key"`
	GaloisKeys       BlobRef `json:"galois_keys"`
	RelinKey         BlobRef `json:"relin_key,omitempty"`
	LogN             int     `json:"log_n"`
	PlaintextModulus uint64  `json:"plaintext_modulus"`
	Slots            int     `json:"slots"`
}

func runKeyGen(ctx context.Context, in *KeyGenInput) (any, error) {
	s, err := in.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	ks, err := s.ctx.GenerateKeys(fhe.KeyOptions{Rotations: in.Rotations, Relinearize: in.Relinearize})
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %v", err)
	}

	p := s.ctx.Params()
	out := &KeyGenOutput{LogN: p.LogN, PlaintextModulus: p.PlaintextModulus, Slots: s.ctx.Slots()}
	for _, k := range []struct {
		kind string
		blob fhe.Blob
		dst  *BlobRef
	}{
		{"pk", ks.PublicKey, &out.PublicKey},
		{"sk", ks.SecretKey, &out.SecretKey},
		{"gk", ks.GaloisKeys, &out.GaloisKeys},
		{"rlk", ks.RelinKey, &out.RelinKey},
	} {
		if k.blob.Empty() {
			continue
		}
		if *k.dst, err = s.save(ctx, k.kind, k.blob); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ============================================================================
// transport-keygen / seal / open
// ============================================================================

type TransportKeygenOutput = transport.KeyPair

func runTransportKeygen() (any, error) {
	return transport.GenerateKeyPair()
}

type SealInput struct {
	Common
	Blob        BlobRef `json:"blob"`
	RecipientPK []byte  `json:"recipient_pk"`
	Label       string  `json:"label"`
}

type SealOutput struct {
	Sealed []byte `json:"sealed"`
}

func runSeal(ctx context.Context, in *SealInput) (any, error) {
	s, err := in.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	data, err := s.load(ctx, "blob", in.Blob)
	if err != nil {
		return nil, err
	}
	sealed, err := transport.Seal(data, in.RecipientPK, in.Label)
	if err != nil {
		return nil, fmt.Errorf("transport encrypt failed: %w", err)
	}
	return &SealOutput{Sealed: sealed}, nil
}

type OpenInput struct {
	Common
	Sealed      []byte `json:"sealed"`
	RecipientSK []byte `json:"recipient_sk"`
	Label       string `json:"label"`
	// Kind is the storage kind used when a store is configured.
	Kind string `json:"kind,omitempty"`
}

type OpenOutput struct {
	Blob BlobRef `json:"blob"`
}

func runOpen(ctx context.Context, in *OpenInput) (any, error) {
	s, err := in.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	data, err := transport.Open(in.Sealed, in.RecipientSK, in.Label)
	if err != nil {
		return nil, fmt.Errorf("transport decrypt failed: %w", err)
	}
	kind := in.Kind
	if kind == "" {
		kind = "blob"
	}
	ref, err := s.save(ctx, kind, data)
	if err != nil {
		return nil, err
	}
	return &OpenOutput{Blob: ref}, nil
}
