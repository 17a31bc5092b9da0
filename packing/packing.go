// Package packing lays plain matrices out in backend slot vectors so that the
// product of an encrypted left and right matrix can be computed with rotations,
// element-wise products and additions only.
//
// A slot vector of length N is treated as two halves of N/2 slots. The backend
// rotates each half independently, so every layout here is half-aligned.
//
// Left matrices (n x k, row-major) use the diagonal layout: vector j holds
// m[i][(i+j) mod k] at slot i of both halves. Right matrices (k x m,
// column-major) are packed two columns per vector, column 2p repeated over the
// first half and column 2p+1 over the second. The product of the two then
// carries output column 2p in the first n slots of the first half and column
// 2p+1 in the first n slots of the second half.
package packing

import (
	"github.com/isglobal-brge/seclink/matrix"
	"github.com/isglobal-brge/seclink/slots"
)

// CheckLeft validates the shape of an n x k left matrix for a backend with the
// given slot count.
func CheckLeft(rows, cols, n int) error {
	const op = "encode left"
	half := slots.Half(n)
	switch {
	case n < 2 || n%2 != 0:
		return shapeErr(op, rows, cols, n, "slot count must be even and positive")
	case rows < 1 || cols < 1:
		return shapeErr(op, rows, cols, n, "matrix is empty")
	case rows > half:
		return shapeErr(op, rows, cols, n, "%d rows exceed the half-slot count %d", rows, half)
	case half%rows != 0:
		return shapeErr(op, rows, cols, n, "%d rows do not divide the half-slot count %d", rows, half)
	case half%cols != 0:
		return shapeErr(op, rows, cols, n, "%d columns do not divide the half-slot count %d", cols, half)
	}
	return nil
}

// CheckRight validates the shape of a k x m right matrix.
func CheckRight(rows, cols, n int) error {
	const op = "encode right"
	half := slots.Half(n)
	switch {
	case n < 2 || n%2 != 0:
		return shapeErr(op, rows, cols, n, "slot count must be even and positive")
	case rows < 1 || cols < 1:
		return shapeErr(op, rows, cols, n, "matrix is empty")
	case half%rows != 0:
		return shapeErr(op, rows, cols, n, "%d rows do not divide the half-slot count %d", rows, half)
	}
	return nil
}

// CheckProduct validates that left (n x k) and right (k x m) can be multiplied.
func CheckProduct(leftRows, leftCols, rightRows, rightCols int) error {
	if leftCols != rightRows {
		return shapeErr("multiply", leftRows, rightCols, 0,
			"inner dimensions differ: left has %d columns, right has %d rows", leftCols, rightRows)
	}
	return nil
}

// EncodeLeft returns the k diagonal slot vectors of the row-major n x k
// matrix m.
func EncodeLeft(m *matrix.Matrix, n int) ([][]int64, error) {
	rows, cols := m.Rows(), m.Cols()
	if m.Layout() != matrix.RowMajor {
		return nil, shapeErr("encode left", rows, cols, n, "matrix must be row-major")
	}
	if err := CheckLeft(rows, cols, n); err != nil {
		return nil, err
	}

	out := make([][]int64, cols)
	diag := make([]int64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			diag[i] = m.At(i, (i+j)%cols)
		}
		v, err := slots.Duplicate(diag, n)
		if err != nil {
			return nil, shapeErr("encode left", rows, cols, n, "%v", err)
		}
		out[j] = v
	}
	return out, nil
}

// EncodeRight returns the ceil(m/2) column-pair slot vectors of the
// column-major k x m matrix. With an odd column count the last vector carries
// a zero second half.
func EncodeRight(m *matrix.Matrix, n int) ([][]int64, error) {
	rows, cols := m.Rows(), m.Cols()
	if m.Layout() != matrix.ColMajor {
		return nil, shapeErr("encode right", rows, cols, n, "matrix must be column-major")
	}
	if err := CheckRight(rows, cols, n); err != nil {
		return nil, err
	}

	data := m.Data()
	out := make([][]int64, RightVectors(cols))
	for p := range out {
		c := 2 * p
		var second []int64
		if c+1 < cols {
			second = data[(c+1)*rows : (c+2)*rows]
		}
		out[p] = slots.Interleave(data[c*rows:(c+1)*rows], second, n)
	}
	return out, nil
}

// RightVectors is the number of slot vectors a right matrix with cols
// columns packs into.
func RightVectors(cols int) int { return (cols + 1) / 2 }

// UnpackColumns writes the rows x cols result carried by vecs into dst. Vector
// p supplies column 2p from its first half and column 2p+1 from its second
// half. Only the first rows slots of each half are read.
func UnpackColumns(dst *matrix.Matrix, vecs [][]int64, rows, cols int) error {
	if len(vecs) == 0 {
		return shapeErr("unpack", rows, cols, 0, "no slot vectors")
	}
	n := len(vecs[0])
	half := slots.Half(n)
	switch {
	case len(vecs) != RightVectors(cols):
		return shapeErr("unpack", rows, cols, n, "%d slot vectors, expected %d", len(vecs), RightVectors(cols))
	case rows > half:
		return shapeErr("unpack", rows, cols, n, "%d rows exceed the half-slot count %d", rows, half)
	case dst.Rows() < rows || dst.Cols() < cols:
		return shapeErr("unpack", rows, cols, n, "output is only %dx%d", dst.Rows(), dst.Cols())
	}
	for p, v := range vecs {
		if len(v) != n {
			return shapeErr("unpack", rows, cols, n, "slot vector %d has length %d", p, len(v))
		}
	}

	for p, v := range vecs {
		first, second := slots.Halves(v)
		for i := 0; i < rows; i++ {
			dst.Set(i, 2*p, first[i])
			if 2*p+1 < cols {
				dst.Set(i, 2*p+1, second[i])
			}
		}
	}
	return nil
}
