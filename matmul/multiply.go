package matmul

import (
	"fmt"
	"time"

	"github.com/isglobal-brge/seclink/emat"
	"github.com/isglobal-brge/seclink/matrix"
	"github.com/isglobal-brge/seclink/packing"
)

// checkOperand validates the kind, shape and ciphertext count of an
// encrypted operand against the engine's slot count.
func (e *Engine) checkOperand(op string, m *emat.EncryptedMatrix, want emat.Kind) error {
	if m.Released() {
		return fmt.Errorf("%s: %w", op, emat.ErrReleased)
	}
	if m.Kind() != want {
		rows, cols := m.Shape()
		return &packing.ShapeError{Op: op, Rows: rows, Cols: cols,
			Reason: fmt.Sprintf("expected a %s matrix, got %s", want, m.Kind())}
	}
	return m.Check(e.ctx.Slots())
}

// Multiply returns the encrypted product of an encrypted left and an
// encrypted right matrix. The result has the left row count and the right
// column count.
func (e *Engine) Multiply(left, right *emat.EncryptedMatrix) (*emat.EncryptedMatrix, error) {
	if err := e.checkOperand("multiply", left, emat.Left); err != nil {
		return nil, err
	}
	if err := e.checkOperand("multiply", right, emat.Right); err != nil {
		return nil, err
	}
	lr, lc := left.Shape()
	rr, rc := right.Shape()
	if err := packing.CheckProduct(lr, lc, rr, rc); err != nil {
		return nil, err
	}

	start := time.Now()
	cts, err := e.EMatEMat(left.Ciphertexts(), right.Ciphertexts())
	if err != nil {
		return nil, err
	}
	e.log.Info("multiplied encrypted matrices",
		"rows", lr, "inner", lc, "cols", rc, "workers", e.cfg.Workers, "duration", time.Since(start))
	return emat.NewProduct(lr, rc, cts)
}

// MultiplyPlain returns the encrypted product of an encrypted left matrix and
// a plain column-major right matrix.
func (e *Engine) MultiplyPlain(left *emat.EncryptedMatrix, right *matrix.Matrix) (*emat.EncryptedMatrix, error) {
	if err := e.checkOperand("multiply", left, emat.Left); err != nil {
		return nil, err
	}
	lr, lc := left.Shape()
	if err := packing.CheckProduct(lr, lc, right.Rows(), right.Cols()); err != nil {
		return nil, err
	}
	vecs, err := packing.EncodeRight(right, e.ctx.Slots())
	if err != nil {
		return nil, err
	}
	cts, err := e.EMatMat(left.Ciphertexts(), vecs)
	if err != nil {
		return nil, err
	}
	return emat.NewProduct(lr, right.Cols(), cts)
}

// MultiplyPlainLeft returns the encrypted product of a plain row-major left
// matrix and an encrypted right matrix.
func (e *Engine) MultiplyPlainLeft(left *matrix.Matrix, right *emat.EncryptedMatrix) (*emat.EncryptedMatrix, error) {
	if err := e.checkOperand("multiply", right, emat.Right); err != nil {
		return nil, err
	}
	rr, rc := right.Shape()
	if err := packing.CheckProduct(left.Rows(), left.Cols(), rr, rc); err != nil {
		return nil, err
	}
	vecs, err := packing.EncodeLeft(left, e.ctx.Slots())
	if err != nil {
		return nil, err
	}
	cts, err := e.MatEMat(vecs, right.Ciphertexts())
	if err != nil {
		return nil, err
	}
	return emat.NewProduct(left.Rows(), rc, cts)
}
