package packing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isglobal-brge/seclink/matrix"
	"github.com/isglobal-brge/seclink/slots"
)

// multiplyClear mirrors the encrypted product on cleartext slot vectors.
func multiplyClear(left, right [][]int64, t uint64) [][]int64 {
	out := make([][]int64, len(right))
	for p, r := range right {
		acc := make([]int64, len(r))
		for i, l := range left {
			rot := slots.RotateHalves(r, i)
			for s := range acc {
				acc[s] = matrix.ModT(acc[s]+rot[s]*l[s], t)
			}
		}
		out[p] = acc
	}
	return out
}

func TestEncodeLeftDiagonal(t *testing.T) {
	m, _ := matrix.FromRows([][]int64{{1, 2}, {3, 4}})
	vecs, err := EncodeLeft(m, 8)
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	assert.Equal(t, []int64{1, 4, 0, 0, 1, 4, 0, 0}, vecs[0])
	assert.Equal(t, []int64{2, 3, 0, 0, 2, 3, 0, 0}, vecs[1])
}

func TestEncodeRightColumnPairs(t *testing.T) {
	m, _ := matrix.FromColumns([]matrix.Record{{1, 2}, {3, 4}, {5, 6}})
	vecs, err := EncodeRight(m, 8)
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	assert.Equal(t, []int64{1, 2, 1, 2, 3, 4, 3, 4}, vecs[0])
	assert.Equal(t, []int64{5, 6, 5, 6, 0, 0, 0, 0}, vecs[1])
}

func TestClearProductMatchesMul(t *testing.T) {
	const n = 32
	const tmod = 40961
	cases := []struct{ rows, inner, cols int }{
		{16, 16, 2},
		{8, 4, 3},
		{4, 16, 1},
		{16, 2, 5},
		{1, 1, 1},
	}
	for _, c := range cases {
		a, err := matrix.RandomBinary(c.rows, c.inner, matrix.RowMajor, []byte("a"))
		require.NoError(t, err)
		b, err := matrix.RandomBinary(c.inner, c.cols, matrix.ColMajor, []byte("b"))
		require.NoError(t, err)

		left, err := EncodeLeft(a, n)
		require.NoError(t, err)
		right, err := EncodeRight(b, n)
		require.NoError(t, err)

		got := matrix.New(c.rows, c.cols, matrix.RowMajor)
		require.NoError(t, UnpackColumns(got, multiplyClear(left, right, tmod), c.rows, c.cols))

		want, err := matrix.Mul(a, b, tmod)
		require.NoError(t, err)
		assert.True(t, matrix.Equal(want, got), "%dx%d by %dx%d", c.rows, c.inner, c.inner, c.cols)
	}
}

func TestEncodeLeftShapeErrors(t *testing.T) {
	cases := []struct {
		name       string
		rows, cols int
	}{
		{"too many rows", 8, 2},
		{"rows do not divide half", 3, 2},
		{"cols do not divide half", 2, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := EncodeLeft(matrix.New(c.rows, c.cols, matrix.RowMajor), 8)
			var se *ShapeError
			require.True(t, errors.As(err, &se))
			assert.ErrorIs(t, err, ErrShape)
			assert.Equal(t, c.rows, se.Rows)
			assert.Equal(t, 8, se.Slots)
		})
	}

	_, err := EncodeLeft(matrix.New(2, 2, matrix.ColMajor), 8)
	assert.ErrorIs(t, err, ErrShape)
}

func TestEncodeRightShapeErrors(t *testing.T) {
	_, err := EncodeRight(matrix.New(3, 2, matrix.ColMajor), 8)
	assert.ErrorIs(t, err, ErrShape)

	_, err = EncodeRight(matrix.New(2, 2, matrix.RowMajor), 8)
	assert.ErrorIs(t, err, ErrShape)

	vecs, err := EncodeRight(matrix.New(4, 1, matrix.ColMajor), 8)
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
}

func TestUnpackOddColumnsSkipsPadding(t *testing.T) {
	dst := matrix.New(2, 4, matrix.RowMajor)
	for i := 0; i < 2; i++ {
		dst.Set(i, 3, -7)
	}
	vecs := [][]int64{
		{1, 2, 0, 0, 3, 4, 0, 0},
		{5, 6, 0, 0, 9, 9, 0, 0},
	}
	require.NoError(t, UnpackColumns(dst, vecs, 2, 3))

	assert.Equal(t, []int64{1, 3, 5, -7}, dst.Row(0))
	assert.Equal(t, []int64{2, 4, 6, -7}, dst.Row(1))
}

func TestUnpackRejectsSmallOutput(t *testing.T) {
	vecs := [][]int64{{1, 2, 0, 0, 3, 4, 0, 0}}
	err := UnpackColumns(matrix.New(1, 2, matrix.RowMajor), vecs, 2, 2)
	assert.ErrorIs(t, err, ErrShape)

	err = UnpackColumns(matrix.New(2, 2, matrix.RowMajor), vecs, 2, 3)
	assert.ErrorIs(t, err, ErrShape)
}

func TestCheckProduct(t *testing.T) {
	assert.NoError(t, CheckProduct(4, 8, 8, 2))
	assert.ErrorIs(t, CheckProduct(4, 8, 4, 2), ErrShape)
}
