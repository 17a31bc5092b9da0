// Package seclink computes the product of two parties' record matrices under
// homomorphic encryption, so that record linkage scores can be computed
// without either side seeing the other's records.
//
// One party holds the key pair. It encrypts its n x k record matrix as a left
// matrix and the other party's k x m records arrive encrypted as a right
// matrix. Multiply returns the encrypted n x m product and only the secret
// key holder can Decrypt it.
//
//	ctx, _ := fhe.NewContext(fhe.Params{})
//	ks, _ := ctx.GenerateKeys(fhe.KeyOptions{})
//	keys, _ := ctx.LoadKeySet(ks)
//	left, _ := seclink.EncryptLeft(ctx, a, keys.Public)
//	right, _ := seclink.EncryptRight(ctx, b, keys.Public)
//	prod, _ := seclink.Multiply(ctx, left, right, keys.Evaluation)
//	scores, _ := seclink.Decrypt(ctx, prod, keys.Secret)
package seclink

import (
	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/isglobal-brge/seclink/emat"
	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/matmul"
	"github.com/isglobal-brge/seclink/matrix"
	"github.com/isglobal-brge/seclink/packing"
)

type (
	EncryptedMatrix = emat.EncryptedMatrix
	ShapeError      = packing.ShapeError
	ConfigError     = matmul.ConfigError
)

var (
	ErrShape     = packing.ErrShape
	ErrConfig    = matmul.ErrConfig
	ErrTruncated = matrix.ErrTruncated
)

// Option adjusts the engine configuration used by Multiply.
type Option func(*matmul.Config)

// WithWorkers shards each product over n goroutines.
func WithWorkers(n int) Option {
	return func(c *matmul.Config) { c.Workers = n }
}

// WithRelinearization relinearizes products when evk carries a
// relinearization key.
func WithRelinearization() Option {
	return func(c *matmul.Config) { c.Relinearize = true }
}

// WithConfig replaces the whole engine configuration.
func WithConfig(cfg matmul.Config) Option {
	return func(c *matmul.Config) { *c = cfg }
}

// EncryptLeft encrypts the row-major matrix m as the left operand.
func EncryptLeft(ctx *fhe.Context, m *matrix.Matrix, pk *rlwe.PublicKey) (*EncryptedMatrix, error) {
	return emat.EncryptLeft(ctx, m.As(matrix.RowMajor), pk)
}

// EncryptRight encrypts m as the right operand.
func EncryptRight(ctx *fhe.Context, m *matrix.Matrix, pk *rlwe.PublicKey) (*EncryptedMatrix, error) {
	return emat.EncryptRight(ctx, m.As(matrix.ColMajor), pk)
}

// Multiply returns the encrypted product left * right.
func Multiply(ctx *fhe.Context, left, right *EncryptedMatrix, evk *rlwe.MemEvaluationKeySet, opts ...Option) (*EncryptedMatrix, error) {
	var cfg matmul.Config
	for _, o := range opts {
		o(&cfg)
	}
	e, err := matmul.New(ctx, evk, cfg)
	if err != nil {
		return nil, err
	}
	return e.Multiply(left, right)
}

// Decrypt returns the plain row-major matrix held by a right or product
// matrix, with values in [0, t).
func Decrypt(ctx *fhe.Context, m *EncryptedMatrix, sk *rlwe.SecretKey) (*matrix.Matrix, error) {
	return emat.Decrypt(ctx, m, sk)
}

// ShapeOf returns the logical shape of m.
func ShapeOf(m *EncryptedMatrix) (rows, cols int) {
	return m.Shape()
}
