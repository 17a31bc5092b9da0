package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotate(t *testing.T) {
	v := []int64{0, 1, 2, 3, 4}
	assert.Equal(t, []int64{2, 3, 4, 0, 1}, Rotate(v, 2))
	assert.Equal(t, []int64{4, 0, 1, 2, 3}, Rotate(v, -1))
	assert.Equal(t, v, Rotate(v, 5))
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, v, "input must not be modified")
	assert.Empty(t, Rotate(nil, 3))
}

func TestRotateHalves(t *testing.T) {
	v := []int64{0, 1, 2, 3, 10, 11, 12, 13}
	assert.Equal(t, []int64{1, 2, 3, 0, 11, 12, 13, 10}, RotateHalves(v, 1))
	assert.Equal(t, []int64{3, 0, 1, 2, 13, 10, 11, 12}, RotateHalves(v, -1))

	w := append([]int64(nil), v...)
	RotateHalvesInPlace(w, 3)
	assert.Equal(t, RotateHalves(v, 3), w)
}

func TestRepeat(t *testing.T) {
	dst := make([]int64, 7)
	Repeat(dst, []int64{1, 2, 3})
	assert.Equal(t, []int64{1, 2, 3, 1, 2, 3, 1}, dst)

	Repeat(dst, nil)
	assert.Equal(t, []int64{1, 2, 3, 1, 2, 3, 1}, dst)
}

func TestDuplicate(t *testing.T) {
	out, err := Duplicate([]int64{5, 6}, 8)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 0, 0, 5, 6, 0, 0}, out)

	_, err = Duplicate([]int64{1, 2, 3}, 4)
	require.Error(t, err)
}

func TestInterleaveAndHalves(t *testing.T) {
	out := Interleave([]int64{1, 2}, []int64{7}, 8)
	assert.Equal(t, []int64{1, 2, 1, 2, 7, 7, 7, 7}, out)

	first, second := Halves(out)
	assert.Equal(t, []int64{1, 2, 1, 2}, first)
	assert.Equal(t, []int64{7, 7, 7, 7}, second)

	out = Interleave([]int64{3}, nil, 4)
	assert.Equal(t, []int64{3, 3, 0, 0}, out)
}
