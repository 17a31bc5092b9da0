// Package slots holds the data-layout helpers used to build plaintext slot
// vectors. A slot vector is the fixed-length unit the backend encodes and
// encrypts; it is split into two equal halves which the backend rotates
// independently. Nothing in this package touches cryptography.
package slots

import "fmt"

// Half returns the half-slot count for a slot vector of length n.
func Half(n int) int {
	return n / 2
}

// mod returns k reduced into [0, n).
func mod(k, n int) int {
	k %= n
	if k < 0 {
		k += n
	}
	return k
}

// Rotate returns a copy of v rotated k positions to the left. Negative k
// rotates to the right.
func Rotate(v []int64, k int) []int64 {
	out := make([]int64, len(v))
	if len(v) == 0 {
		return out
	}
	k = mod(k, len(v))
	copy(out, v[k:])
	copy(out[len(v)-k:], v[:k])
	return out
}

// RotateHalves returns a copy of v in which each half has been rotated k
// positions to the left on its own. This is the cleartext counterpart of the
// backend's column rotation. len(v) must be even.
func RotateHalves(v []int64, k int) []int64 {
	h := Half(len(v))
	out := make([]int64, len(v))
	if h == 0 {
		return out
	}
	copy(out[:h], Rotate(v[:h], k))
	copy(out[h:], Rotate(v[h:], k))
	return out
}

// RotateHalvesInPlace is RotateHalves without the allocation.
func RotateHalvesInPlace(v []int64, k int) {
	h := Half(len(v))
	if h == 0 {
		return
	}
	rotateInPlace(v[:h], k)
	rotateInPlace(v[h:], k)
}

func rotateInPlace(v []int64, k int) {
	k = mod(k, len(v))
	if k == 0 {
		return
	}
	reverse(v[:k])
	reverse(v[k:])
	reverse(v)
}

func reverse(v []int64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

// Repeat fills dst with src repeated cyclically, dst[i] = src[i mod len(src)].
// An empty src leaves dst untouched.
func Repeat(dst, src []int64) {
	if len(src) == 0 {
		return
	}
	for i := range dst {
		dst[i] = src[i%len(src)]
	}
}

// Duplicate returns a slot vector of length n holding v at the start of both
// halves. The remaining slots are zero.
func Duplicate(v []int64, n int) ([]int64, error) {
	h := Half(n)
	if len(v) > h {
		return nil, fmt.Errorf("vector of length %d does not fit in half-slot count %d", len(v), h)
	}
	out := make([]int64, n)
	copy(out, v)
	copy(out[h:], v)
	return out, nil
}

// Interleave returns a slot vector of length n whose first half is filled
// cyclically from first and whose second half is filled cyclically from
// second. A nil second leaves the second half zero.
func Interleave(first, second []int64, n int) []int64 {
	h := Half(n)
	out := make([]int64, n)
	Repeat(out[:h], first)
	Repeat(out[h:], second)
	return out
}

// Halves splits v into its two halves. The returned slices alias v.
func Halves(v []int64) (first, second []int64) {
	h := Half(len(v))
	return v[:h], v[h:]
}
