// Package emat holds encrypted matrices: the ciphertexts produced by packing
// and encrypting a plain matrix, together with its logical shape.
package emat

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/matrix"
	"github.com/isglobal-brge/seclink/packing"
)

// Kind records which layout the ciphertexts of an EncryptedMatrix use.
type Kind uint8

const (
	// Left matrices hold one diagonal per column.
	Left Kind = iota + 1
	// Right matrices hold one column pair per ciphertext.
	Right
	// Product matrices hold one output column pair per ciphertext.
	Product
)

func (k Kind) String() string {
	switch k {
	case Left:
		return "left"
	case Right:
		return "right"
	case Product:
		return "product"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// EncryptedMatrix is a sequence of ciphertexts with the shape of the plain
// matrix they encode. It owns its ciphertexts; Release drops them.
type EncryptedMatrix struct {
	rows, cols int
	kind       Kind
	cts        []*rlwe.Ciphertext
}

// Shape returns the logical (rows, cols) of the matrix.
func (m *EncryptedMatrix) Shape() (rows, cols int) { return m.rows, m.cols }

func (m *EncryptedMatrix) Kind() Kind { return m.kind }

// Len is the number of ciphertexts.
func (m *EncryptedMatrix) Len() int { return len(m.cts) }

// Ciphertexts returns the ciphertexts in order. Callers must not modify them.
func (m *EncryptedMatrix) Ciphertexts() []*rlwe.Ciphertext { return m.cts }

// Released reports whether Release has been called.
func (m *EncryptedMatrix) Released() bool { return m.cts == nil }

// Release drops the ciphertexts. The shape stays readable.
func (m *EncryptedMatrix) Release() { m.cts = nil }

// CheckShape validates a rows x cols matrix of kind k against a backend with
// n slots. Right and product matrices need rows dividing N/2; left matrices
// need the full diagonal-layout preconditions.
func CheckShape(k Kind, rows, cols, n int) error {
	switch k {
	case Left:
		return packing.CheckLeft(rows, cols, n)
	case Right, Product:
		return packing.CheckRight(rows, cols, n)
	}
	return &packing.ShapeError{Op: "check", Rows: rows, Cols: cols, Slots: n, Reason: fmt.Sprintf("unknown kind %s", k)}
}

// Check validates the shape and ciphertext count of m against a backend
// with n slots.
func (m *EncryptedMatrix) Check(n int) error {
	if err := CheckShape(m.kind, m.rows, m.cols, n); err != nil {
		return err
	}
	if m.Released() {
		return nil
	}
	if want := expectedCount(m.kind, m.cols); len(m.cts) != want {
		return &packing.ShapeError{Op: "check", Rows: m.rows, Cols: m.cols, Slots: n,
			Reason: fmt.Sprintf("%d ciphertexts, expected %d", len(m.cts), want)}
	}
	return nil
}

func expectedCount(k Kind, cols int) int {
	if k == Left {
		return cols
	}
	return packing.RightVectors(cols)
}

// NewProduct wraps the column-pair ciphertexts of a rows x cols product.
func NewProduct(rows, cols int, cts []*rlwe.Ciphertext) (*EncryptedMatrix, error) {
	if want := packing.RightVectors(cols); len(cts) != want {
		return nil, fmt.Errorf("%w: %d ciphertexts for %d product columns, expected %d", packing.ErrShape, len(cts), cols, want)
	}
	return &EncryptedMatrix{rows: rows, cols: cols, kind: Product, cts: cts}, nil
}

// EncryptLeft packs the row-major m in the diagonal layout and encrypts it
// under pk.
func EncryptLeft(ctx fhe.Backend, m *matrix.Matrix, pk *rlwe.PublicKey) (*EncryptedMatrix, error) {
	vecs, err := packing.EncodeLeft(m, ctx.Slots())
	if err != nil {
		return nil, err
	}
	cts, err := ctx.EncryptVectors(vecs, pk)
	if err != nil {
		return nil, err
	}
	return &EncryptedMatrix{rows: m.Rows(), cols: m.Cols(), kind: Left, cts: cts}, nil
}

// EncryptRight packs the column-major m in column pairs and encrypts it
// under pk.
func EncryptRight(ctx fhe.Backend, m *matrix.Matrix, pk *rlwe.PublicKey) (*EncryptedMatrix, error) {
	vecs, err := packing.EncodeRight(m, ctx.Slots())
	if err != nil {
		return nil, err
	}
	cts, err := ctx.EncryptVectors(vecs, pk)
	if err != nil {
		return nil, err
	}
	return &EncryptedMatrix{rows: m.Rows(), cols: m.Cols(), kind: Right, cts: cts}, nil
}
