// Package matrix implements the plain integer matrices that are packed into
// slot vectors on the way in and unpacked on the way out.
//
// Whether a matrix is stored row-major or column-major is a caller contract:
// the encoders in package packing require a specific layout and reject the
// other one.
package matrix

import (
	"errors"
	"fmt"
)

// Layout is the storage order of a Matrix.
type Layout uint8

const (
	RowMajor Layout = iota
	ColMajor
)

func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "column-major"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// Record is one party's encoded record (a CLK): an ordered sequence of
// fixed-width integers.
type Record []int64

var (
	ErrDimension = errors.New("matrix dimension mismatch")
	ErrTruncated = errors.New("value does not fit in element width")
)

// Matrix is a dense integer matrix.
type Matrix struct {
	rows, cols int
	layout     Layout
	data       []int64
}

// New allocates a zero rows x cols matrix.
func New(rows, cols int, layout Layout) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimension %dx%d", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, layout: layout, data: make([]int64, rows*cols)}
}

// FromData wraps data, stored in the given layout, without copying.
func FromData(rows, cols int, layout Layout, data []int64) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative dimension %dx%d", ErrDimension, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for a %dx%d matrix", ErrDimension, len(data), rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, layout: layout, data: data}, nil
}

// FromRecords builds a row-major matrix with one row per record.
func FromRecords(records []Record) (*Matrix, error) {
	return fromVectors(records, RowMajor)
}

// FromColumns builds a column-major matrix with one column per record.
func FromColumns(columns []Record) (*Matrix, error) {
	return fromVectors(columns, ColMajor)
}

// FromRows builds a row-major matrix from literal rows.
func FromRows(rows [][]int64) (*Matrix, error) {
	records := make([]Record, len(rows))
	for i := range rows {
		records[i] = rows[i]
	}
	return FromRecords(records)
}

func fromVectors(vs []Record, layout Layout) (*Matrix, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrDimension)
	}
	width := len(vs[0])
	data := make([]int64, 0, len(vs)*width)
	for i, v := range vs {
		if len(v) != width {
			return nil, fmt.Errorf("%w: record %d has length %d, expected %d", ErrDimension, i, len(v), width)
		}
		data = append(data, v...)
	}
	if layout == RowMajor {
		return FromData(len(vs), width, layout, data)
	}
	return FromData(width, len(vs), layout, data)
}

func (m *Matrix) Rows() int      { return m.rows }
func (m *Matrix) Cols() int      { return m.cols }
func (m *Matrix) Layout() Layout { return m.layout }

// Data returns the backing slice in storage order.
func (m *Matrix) Data() []int64 { return m.data }

func (m *Matrix) index(i, j int) int {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d, %d) out of bounds for %dx%d", i, j, m.rows, m.cols))
	}
	if m.layout == ColMajor {
		return j*m.rows + i
	}
	return i*m.cols + j
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) int64 { return m.data[m.index(i, j)] }

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v int64) { m.data[m.index(i, j)] = v }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []int64 {
	out := make([]int64, m.cols)
	for j := range out {
		out[j] = m.At(i, j)
	}
	return out
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []int64 {
	out := make([]int64, m.rows)
	for i := range out {
		out[i] = m.At(i, j)
	}
	return out
}

// As returns the same logical matrix stored in layout l. The receiver is
// returned unchanged when it already uses l.
func (m *Matrix) As(l Layout) *Matrix {
	if m.layout == l {
		return m
	}
	out := New(m.rows, m.cols, l)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

// Transpose returns the transpose of m in m's layout.
func (m *Matrix) Transpose() *Matrix {
	out := New(m.cols, m.rows, m.layout)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}

// Equal reports whether a and b have the same shape and elements,
// regardless of layout.
func Equal(a, b *Matrix) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	for i := 0; i < a.rows; i++ {
		for j := 0; j < a.cols; j++ {
			if a.At(i, j) != b.At(i, j) {
				return false
			}
		}
	}
	return true
}

// Reduce returns m with every element reduced into [0, t).
func (m *Matrix) Reduce(t uint64) *Matrix {
	out := New(m.rows, m.cols, m.layout)
	for k, v := range m.data {
		out.data[k] = ModT(v, t)
	}
	return out
}

// ModT reduces v into [0, t).
func ModT(v int64, t uint64) int64 {
	r := v % int64(t)
	if r < 0 {
		r += int64(t)
	}
	return r
}

// Mul returns the row-major product a*b with every element reduced into
// [0, t). A zero t skips the reduction.
func Mul(a, b *Matrix, t uint64) (*Matrix, error) {
	if a.cols != b.rows {
		return nil, fmt.Errorf("%w: cannot multiply %dx%d by %dx%d", ErrDimension, a.rows, a.cols, b.rows, b.cols)
	}
	out := New(a.rows, b.cols, RowMajor)
	for i := 0; i < a.rows; i++ {
		for j := 0; j < b.cols; j++ {
			var acc int64
			for k := 0; k < a.cols; k++ {
				acc += a.At(i, k) * b.At(k, j)
				if t != 0 {
					acc = ModT(acc, t)
				}
			}
			out.Set(i, j, acc)
		}
	}
	return out, nil
}

// MulVec returns a*v reduced into [0, t).
func MulVec(a *Matrix, v []int64, t uint64) ([]int64, error) {
	col, err := FromData(len(v), 1, ColMajor, v)
	if err != nil {
		return nil, err
	}
	prod, err := Mul(a, col, t)
	if err != nil {
		return nil, err
	}
	return prod.Col(0), nil
}
