package fhe

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// Evaluator performs homomorphic operations with a fixed evaluation key set.
// An Evaluator is not safe for concurrent use; give each goroutine its own
// ShallowCopy. The key set is only read and may be shared.
type Evaluator struct {
	ctx    *Context
	eval   *bgv.Evaluator
	evk    *rlwe.MemEvaluationKeySet
	galEls map[uint64]bool
}

// NewEvaluator returns an Evaluator using evk. A nil evk allows only
// products and sums.
func (c *Context) NewEvaluator(evk *rlwe.MemEvaluationKeySet) *Evaluator {
	galEls := map[uint64]bool{}
	var set rlwe.EvaluationKeySet
	if evk != nil {
		for _, g := range evk.GetGaloisKeysList() {
			galEls[g] = true
		}
		set = evk
	}
	return &Evaluator{ctx: c, eval: bgv.NewEvaluator(c.params, set), evk: evk, galEls: galEls}
}

// ShallowCopy returns an Evaluator sharing keys but not buffers.
func (e *Evaluator) ShallowCopy() *Evaluator {
	return &Evaluator{ctx: e.ctx, eval: e.eval.ShallowCopy(), evk: e.evk, galEls: e.galEls}
}

func (e *Evaluator) Context() *Context { return e.ctx }

// CanRelinearize reports whether a relinearization key is available.
func (e *Evaluator) CanRelinearize() bool {
	return e.evk != nil && e.evk.RelinearizationKey != nil
}

func (e *Evaluator) hasKey(k int) bool {
	return e.galEls[e.ctx.params.GaloisElement(k)]
}

// Rotate returns ct with each slot half rotated left by k. An exact key is
// used when one exists; otherwise the rotation is composed from power-of-two
// keys. Rotating by a multiple of N/2 copies ct.
func (e *Evaluator) Rotate(ct *rlwe.Ciphertext, k int) (*rlwe.Ciphertext, error) {
	half := e.ctx.Slots() / 2
	k %= half
	if k < 0 {
		k += half
	}
	if k == 0 {
		return ct.CopyNew(), nil
	}
	if e.hasKey(k) {
		return e.rotate(ct, k)
	}

	out := ct
	for step := 1; step < half; step <<= 1 {
		if k&step == 0 {
			continue
		}
		if !e.hasKey(step) {
			return nil, fmt.Errorf("%w: no rotation key for offset %d or %d", ErrMissingKey, k, step)
		}
		next, err := e.rotate(out, step)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func (e *Evaluator) rotate(ct *rlwe.Ciphertext, k int) (*rlwe.Ciphertext, error) {
	out, err := e.eval.RotateColumnsNew(ct, k)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate by %d: %w", k, err)
	}
	return out, nil
}

// Mul returns the slot-wise product of ct with a ciphertext or plaintext.
// A ciphertext product has degree two until relinearized.
func (e *Evaluator) Mul(ct *rlwe.Ciphertext, op rlwe.Operand) (*rlwe.Ciphertext, error) {
	out, err := e.eval.MulNew(ct, op)
	if err != nil {
		return nil, fmt.Errorf("failed to multiply: %w", err)
	}
	return out, nil
}

// Add sets acc to acc + ct.
func (e *Evaluator) Add(acc, ct *rlwe.Ciphertext) error {
	if err := e.eval.Add(acc, ct, acc); err != nil {
		return fmt.Errorf("failed to add: %w", err)
	}
	return nil
}

// Relinearize reduces ct to degree one.
func (e *Evaluator) Relinearize(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if !e.CanRelinearize() {
		return nil, fmt.Errorf("%w: relinearization key", ErrMissingKey)
	}
	out, err := e.eval.RelinearizeNew(ct)
	if err != nil {
		return nil, fmt.Errorf("failed to relinearize: %w", err)
	}
	return out, nil
}
