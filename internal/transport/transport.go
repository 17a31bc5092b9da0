// Package transport seals serialized matrices and keys to a peer's X25519
// public key before they leave the process.
//
// Sealing is ECIES: an ephemeral X25519 key agrees a secret with the
// recipient, HKDF-SHA256 turns it into an AES-256 key and AES-GCM encrypts
// the payload. The output is
//
//	ephemeral_pk (32) || nonce (12) || ciphertext || tag (16)
//
// The label passed to Seal and Open is authenticated but not sent; both sides
// must agree on it (for example "emat:right").
package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const info = "seclink-transport-v1"

const (
	keySize   = 32
	nonceSize = 12
	tagSize   = 16

	// Overhead is the number of bytes Seal adds to a payload.
	Overhead = keySize + nonceSize + tagSize
)

var (
	ErrSealed = errors.New("sealed payload failed authentication")
	ErrKey    = errors.New("invalid transport key")
)

// KeyPair is an X25519 key pair in raw encoding.
type KeyPair struct {
	PublicKey []byte `json:"public_key"`
	SecretKey []byte `json:"secret_key"`
}

// GenerateKeyPair creates a fresh X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	sk, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("X25519 keygen failed: %w", err)
	}
	return &KeyPair{PublicKey: sk.PublicKey().Bytes(), SecretKey: sk.Bytes()}, nil
}

// Seal encrypts data for the holder of recipientPK.
func Seal(data, recipientPK []byte, label string) ([]byte, error) {
	curve := ecdh.X25519()
	pk, err := curve.NewPublicKey(recipientPK)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient public key: %v", ErrKey, err)
	}
	eph, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ephemeral keygen failed: %w", err)
	}
	shared, err := eph.ECDH(pk)
	if err != nil {
		return nil, fmt.Errorf("ECDH failed: %w", err)
	}
	gcm, err := newGCM(shared, eph.PublicKey().Bytes())
	if err != nil {
		return nil, err
	}

	out := make([]byte, keySize+nonceSize, Overhead+len(data))
	copy(out, eph.PublicKey().Bytes())
	nonce := out[keySize:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation failed: %w", err)
	}
	return gcm.Seal(out, nonce, data, []byte(label)), nil
}

// Open decrypts a payload produced by Seal.
func Open(sealed, recipientSK []byte, label string) ([]byte, error) {
	if len(sealed) < Overhead {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the envelope", ErrSealed, len(sealed))
	}
	curve := ecdh.X25519()
	sk, err := curve.NewPrivateKey(recipientSK)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient secret key: %v", ErrKey, err)
	}
	ephBytes, nonce, ct := sealed[:keySize], sealed[keySize:keySize+nonceSize], sealed[keySize+nonceSize:]
	eph, err := curve.NewPublicKey(ephBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrSealed, err)
	}
	shared, err := sk.ECDH(eph)
	if err != nil {
		return nil, fmt.Errorf("%w: ECDH: %v", ErrSealed, err)
	}
	gcm, err := newGCM(shared, ephBytes)
	if err != nil {
		return nil, err
	}
	data, err := gcm.Open(nil, nonce, ct, []byte(label))
	if err != nil {
		return nil, ErrSealed
	}
	return data, nil
}

// newGCM derives the AES-256-GCM cipher for a shared secret. The ephemeral
// public key salts the derivation.
func newGCM(shared, salt []byte) (cipher.AEAD, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("AES cipher failed: %w", err)
	}
	return cipher.NewGCM(block)
}
