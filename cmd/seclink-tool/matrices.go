package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/isglobal-brge/seclink/emat"
	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/matmul"
	"github.com/isglobal-brge/seclink/matrix"
)

// PlainMatrix is a plain matrix given as rows, or packed as fixed-width
// little-endian elements with an explicit shape.
type PlainMatrix struct {
	Data     [][]int64 `json:"data,omitempty"`
	Packed   []byte    `json:"packed,omitempty"`
	Rows     int       `json:"rows,omitempty"`
	Cols     int       `json:"cols,omitempty"`
	EltBytes int       `json:"elt_bytes,omitempty"`
}

// toMatrix returns the matrix; packed input is read in layout.
func (p PlainMatrix) toMatrix(layout matrix.Layout) (*matrix.Matrix, error) {
	if len(p.Packed) > 0 {
		w := p.EltBytes
		if w == 0 {
			w = 1
		}
		return matrix.Unpack(p.Packed, p.Rows, p.Cols, w, layout)
	}
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("no matrix data given")
	}
	return matrix.FromRows(p.Data)
}

// ============================================================================
// encrypt-left / encrypt-right
// ============================================================================

type EncryptInput struct {
	Common
	PlainMatrix
	PublicKey BlobRef `json:"public_key"`
}

type MatrixOutput struct {
	Matrix      BlobRef `json:"matrix"`
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	Kind        string  `json:"kind"`
	Ciphertexts int     `json:"ciphertexts"`
}

func matrixOutput(ref BlobRef, m *emat.EncryptedMatrix) *MatrixOutput {
	rows, cols := m.Shape()
	return &MatrixOutput{Matrix: ref, Rows: rows, Cols: cols, Kind: m.Kind().String(), Ciphertexts: m.Len()}
}

func runEncryptLeft(ctx context.Context, in *EncryptInput) (any, error) {
	return encrypt(ctx, in, matrix.RowMajor, emat.EncryptLeft)
}

// runEncryptRight takes the right matrix as k x m; packed input is
// column-major.
func runEncryptRight(ctx context.Context, in *EncryptInput) (any, error) {
	return encrypt(ctx, in, matrix.ColMajor, emat.EncryptRight)
}

func encrypt(ctx context.Context, in *EncryptInput, layout matrix.Layout,
	fn func(fhe.Backend, *matrix.Matrix, *rlwe.PublicKey) (*emat.EncryptedMatrix, error)) (any, error) {
	s, err := in.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	m, err := in.toMatrix(layout)
	if err != nil {
		return nil, err
	}
	pkBytes, err := s.load(ctx, "public key", in.PublicKey)
	if err != nil {
		return nil, err
	}
	pk, err := s.ctx.LoadPublicKey(pkBytes)
	if err != nil {
		return nil, err
	}

	em, err := fn(s.ctx, m.As(layout), pk)
	if err != nil {
		return nil, err
	}
	ref, err := s.saveMatrix(ctx, em)
	if err != nil {
		return nil, err
	}
	slog.Info("encrypted matrix", "kind", em.Kind(), "rows", m.Rows(), "cols", m.Cols(), "ciphertexts", em.Len())
	return matrixOutput(ref, em), nil
}

// ============================================================================
// multiply / multiply-plain
// ============================================================================

type MultiplyInput struct {
	Common
	Left        BlobRef     `json:"left"`
	Right       BlobRef     `json:"right"`
	RightPlain  PlainMatrix `json:"right_plain"`
	GaloisKeys  BlobRef     `json:"galois_keys"`
	RelinKey    BlobRef     `json:"relin_key"`
	Workers     int         `json:"workers"`
	Relinearize bool        `json:"relinearize"`
}

func (in *MultiplyInput) engine(ctx context.Context, s *session) (*matmul.Engine, error) {
	galois, err := s.load(ctx, "galois keys", in.GaloisKeys)
	if err != nil {
		return nil, err
	}
	relin, err := s.load(ctx, "relinearization key", in.RelinKey)
	if err != nil {
		return nil, err
	}
	evk, err := s.ctx.LoadEvaluationKeys(galois, relin)
	if err != nil {
		return nil, err
	}
	return matmul.New(s.ctx, evk, matmul.Config{
		Workers:     in.Workers,
		Relinearize: in.Relinearize || len(relin) > 0,
		Logger:      slog.Default(),
	})
}

func runMultiply(ctx context.Context, in *MultiplyInput) (any, error) {
	s, err := in.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	left, err := s.loadMatrix(ctx, "left matrix", in.Left)
	if err != nil {
		return nil, err
	}
	right, err := s.loadMatrix(ctx, "right matrix", in.Right)
	if err != nil {
		return nil, err
	}
	e, err := in.engine(ctx, s)
	if err != nil {
		return nil, err
	}
	prod, err := e.Multiply(left, right)
	if err != nil {
		return nil, err
	}
	ref, err := s.saveMatrix(ctx, prod)
	if err != nil {
		return nil, err
	}
	return matrixOutput(ref, prod), nil
}

func runMultiplyPlain(ctx context.Context, in *MultiplyInput) (any, error) {
	s, err := in.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	left, err := s.loadMatrix(ctx, "left matrix", in.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.RightPlain.toMatrix(matrix.ColMajor)
	if err != nil {
		return nil, err
	}

	// plain right operands are rotated in the clear and need no rotation keys
	e, err := matmul.New(s.ctx, nil, matmul.Config{Workers: in.Workers, Logger: slog.Default()})
	if err != nil {
		return nil, err
	}
	prod, err := e.MultiplyPlain(left, right.As(matrix.ColMajor))
	if err != nil {
		return nil, err
	}
	ref, err := s.saveMatrix(ctx, prod)
	if err != nil {
		return nil, err
	}
	return matrixOutput(ref, prod), nil
}

// ============================================================================
// decrypt / shape
// ============================================================================

type DecryptInput struct {
	Common
	Matrix    BlobRef `json:"matrix"`
	SecretKey BlobRef `json:"secret_key"`
	// EltBytes > 0 returns the result packed instead of as rows.
	EltBytes int  `json:"elt_bytes,omitempty"`
	Centered bool `json:"centered"`
}

type DecryptOutput struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Data   [][]int64 `json:"data,omitempty"`
	Packed []byte    `json:"packed,omitempty"`
}

func runDecrypt(ctx context.Context, in *DecryptInput) (any, error) {
	s, err := in.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	em, err := s.loadMatrix(ctx, "matrix", in.Matrix)
	if err != nil {
		return nil, err
	}
	skBytes, err := s.load(ctx, "secret key", in.SecretKey)
	if err != nil {
		return nil, err
	}
	sk, err := s.ctx.LoadSecretKey(skBytes)
	if err != nil {
		return nil, err
	}

	rows, cols := em.Shape()
	dst := matrix.New(rows, cols, matrix.RowMajor)
	if err := emat.DecryptInto(s.ctx, em, sk, dst, emat.DecryptOptions{Centered: in.Centered}); err != nil {
		return nil, err
	}

	out := &DecryptOutput{Rows: rows, Cols: cols}
	if in.EltBytes > 0 {
		if out.Packed, err = matrix.Pack(dst, in.EltBytes); err != nil {
			return nil, err
		}
		return out, nil
	}
	out.Data = make([][]int64, rows)
	for i := range out.Data {
		out.Data[i] = dst.Row(i)
	}
	return out, nil
}

type ShapeInput struct {
	Common
	Matrix BlobRef `json:"matrix"`
}

func runShape(ctx context.Context, in *ShapeInput) (any, error) {
	s, err := in.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	em, err := s.loadMatrix(ctx, "matrix", in.Matrix)
	if err != nil {
		return nil, err
	}
	return matrixOutput(BlobRef{Handle: in.Matrix.Handle}, em), nil
}

// ============================================================================
// gen-clks
// ============================================================================

type GenCLKsInput struct {
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	Seed     string `json:"seed"`
	EltBytes int    `json:"elt_bytes,omitempty"`
}

func runGenCLKs(_ context.Context, in *GenCLKsInput) (any, error) {
	if in.Rows < 1 || in.Cols < 1 {
		return nil, fmt.Errorf("rows and cols must be positive, got %dx%d", in.Rows, in.Cols)
	}
	m, err := matrix.RandomBinary(in.Rows, in.Cols, matrix.RowMajor, []byte(in.Seed))
	if err != nil {
		return nil, err
	}
	out := PlainMatrix{Rows: in.Rows, Cols: in.Cols}
	if in.EltBytes > 0 {
		out.EltBytes = in.EltBytes
		out.Packed, err = matrix.Pack(m, in.EltBytes)
		return out, err
	}
	out.Data = make([][]int64, in.Rows)
	for i := range out.Data {
		out.Data[i] = m.Row(i)
	}
	return out, nil
}
