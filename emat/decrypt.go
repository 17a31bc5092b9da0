package emat

import (
	"errors"
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/matrix"
	"github.com/isglobal-brge/seclink/packing"
)

// ErrReleased is returned when a released matrix is used.
var ErrReleased = errors.New("encrypted matrix has been released")

// DecryptOptions tunes DecryptInto.
type DecryptOptions struct {
	// ZeroFill clears dst before writing the result.
	ZeroFill bool
	// Centered maps results into (-t/2, t/2] instead of [0, t).
	Centered bool
}

// Decrypt decrypts a right or product matrix into a new row-major matrix.
func Decrypt(ctx fhe.Backend, m *EncryptedMatrix, sk *rlwe.SecretKey) (*matrix.Matrix, error) {
	if err := m.Check(ctx.Slots()); err != nil {
		return nil, err
	}
	dst := matrix.New(m.rows, m.cols, matrix.RowMajor)
	if err := DecryptInto(ctx, m, sk, dst, DecryptOptions{}); err != nil {
		return nil, err
	}
	return dst, nil
}

// DecryptInto decrypts a right or product matrix into dst, which may be
// larger than the matrix. dst is checked before any decryption and is not
// written when the check fails. Cells outside the matrix are left as they
// are unless ZeroFill is set.
func DecryptInto(ctx fhe.Backend, m *EncryptedMatrix, sk *rlwe.SecretKey, dst *matrix.Matrix, opts DecryptOptions) error {
	if m.Released() {
		return ErrReleased
	}
	if m.kind == Left {
		return &packing.ShapeError{Op: "decrypt", Rows: m.rows, Cols: m.cols, Slots: ctx.Slots(),
			Reason: "left matrices use the diagonal layout and cannot be unpacked"}
	}
	if err := m.Check(ctx.Slots()); err != nil {
		return err
	}
	if dst.Rows() < m.rows || dst.Cols() < m.cols {
		return &packing.ShapeError{Op: "decrypt", Rows: m.rows, Cols: m.cols, Slots: ctx.Slots(),
			Reason: fmt.Sprintf("output is only %dx%d", dst.Rows(), dst.Cols())}
	}

	vecs, err := ctx.DecryptVectors(m.cts, sk)
	if err != nil {
		return err
	}
	if opts.Centered {
		t := int64(ctx.PlaintextModulus())
		for _, v := range vecs {
			for i, x := range v {
				if x > t/2 {
					v[i] = x - t
				}
			}
		}
	}

	// unpack into a scratch matrix so a failure leaves dst untouched
	out := matrix.New(m.rows, m.cols, matrix.RowMajor)
	if err := packing.UnpackColumns(out, vecs, m.rows, m.cols); err != nil {
		return err
	}
	if opts.ZeroFill {
		clear(dst.Data())
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			dst.Set(i, j, out.At(i, j))
		}
	}
	return nil
}
