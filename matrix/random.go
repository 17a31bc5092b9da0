package matrix

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// RandomBinary returns a rows x cols matrix of 0/1 entries drawn from a
// ChaCha20 keystream keyed by sha256(seed). The same seed always yields the
// same matrix, independent of layout.
func RandomBinary(rows, cols int, layout Layout, seed []byte) (*Matrix, error) {
	key := sha256.Sum256(seed)
	nonce := make([]byte, chacha20.NonceSize)
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20 cipher: %v", err)
	}

	// one keystream bit per element, in row-major order
	bits := make([]byte, (rows*cols+7)/8)
	stream.XORKeyStream(bits, bits)

	m := New(rows, cols, layout)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			k := i*cols + j
			m.Set(i, j, int64(bits[k/8]>>(uint(k)%8)&1))
		}
	}
	return m, nil
}
