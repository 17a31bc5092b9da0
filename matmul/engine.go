// Package matmul multiplies encrypted matrices packed by package packing.
//
// Every product reduces to the matrix-vector step
//
//	out = sum_i rotate(right, i) * left[i]
//
// where left holds the diagonals of the left matrix and right one column
// pair of the right matrix. Either operand may be encrypted or plain. With
// more than one worker the terms are split into equal contiguous shards,
// each computed by its own goroutine and evaluator, and summed in index
// order afterwards.
package matmul

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/slots"
)

// Engine runs homomorphic matrix products. It is safe for concurrent use.
type Engine struct {
	cfg  Config
	ctx  *fhe.Context
	eval *fhe.Evaluator
	log  *slog.Logger
}

// New returns an Engine evaluating with evk, which must hold rotation keys
// for every product with an encrypted right operand.
func New(ctx *fhe.Context, evk *rlwe.MemEvaluationKeySet, cfg Config) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, ctx: ctx, eval: ctx.NewEvaluator(evk), log: cfg.Logger}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// shardFunc fills terms[lo:hi] using ev.
type shardFunc func(ev *fhe.Evaluator, lo, hi int, terms []*rlwe.Ciphertext) error

// sum computes n terms with fill and returns their sum.
func (e *Engine) sum(op string, n int, fill shardFunc) (*rlwe.Ciphertext, error) {
	if err := e.cfg.checkCount(n); err != nil {
		return nil, err
	}
	terms := make([]*rlwe.Ciphertext, n)
	workers := e.cfg.Workers
	ev := e.eval.ShallowCopy()

	if workers == 1 {
		if err := fill(ev, 0, n, terms); err != nil {
			return nil, err
		}
	} else {
		size := n / workers
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				start := time.Now()
				lo, hi := w*size, (w+1)*size
				errs[w] = fill(e.eval.ShallowCopy(), lo, hi, terms)
				e.log.Debug("shard done", "op", op, "shard", w, "lo", lo, "hi", hi, "duration", time.Since(start))
			}(w)
		}
		wg.Wait()
		for w, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("shard %d: %w", w, err)
			}
		}
	}

	acc := terms[0]
	for i := 1; i < n; i++ {
		if err := ev.Add(acc, terms[i]); err != nil {
			return nil, err
		}
	}
	if e.cfg.Relinearize && acc.Degree() > 1 && ev.CanRelinearize() {
		return ev.Relinearize(acc)
	}
	return acc, nil
}

// rotatedTerms fills terms[i] = rotate(vec, i) * left(i) for i in [lo, hi).
// The rotation is carried from one term to the next.
func rotatedTerms(vec *rlwe.Ciphertext, left func(i int) rlwe.Operand) shardFunc {
	return func(ev *fhe.Evaluator, lo, hi int, terms []*rlwe.Ciphertext) error {
		cur, err := ev.Rotate(vec, lo)
		if err != nil {
			return err
		}
		for i := lo; i < hi; i++ {
			if terms[i], err = ev.Mul(cur, left(i)); err != nil {
				return err
			}
			if i+1 < hi {
				if cur, err = ev.Rotate(cur, 1); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// EMatEVec multiplies the encrypted left diagonals mat by one encrypted right
// column pair vec.
func (e *Engine) EMatEVec(mat []*rlwe.Ciphertext, vec *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	return e.sum("emat_evec", len(mat), rotatedTerms(vec, func(i int) rlwe.Operand { return mat[i] }))
}

// EMatEMat runs EMatEVec once per right ciphertext.
func (e *Engine) EMatEMat(mat, right []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	out := make([]*rlwe.Ciphertext, len(right))
	for p, vec := range right {
		start := time.Now()
		ct, err := e.EMatEVec(mat, vec)
		if err != nil {
			return nil, fmt.Errorf("column pair %d: %w", p, err)
		}
		out[p] = ct
		e.log.Debug("column pair done", "op", "emat_emat", "pair", p, "duration", time.Since(start))
	}
	return out, nil
}

// EMatVec multiplies the encrypted left diagonals mat by a plain right slot
// vector. The vector is rotated in the clear.
func (e *Engine) EMatVec(mat []*rlwe.Ciphertext, vec []int64) (*rlwe.Ciphertext, error) {
	if len(vec) != e.ctx.Slots() {
		return nil, fmt.Errorf("%w: slot vector has %d values, expected %d", fhe.ErrParams, len(vec), e.ctx.Slots())
	}
	return e.sum("emat_vec", len(mat), func(ev *fhe.Evaluator, lo, hi int, terms []*rlwe.Ciphertext) error {
		for i := lo; i < hi; i++ {
			pt, err := e.ctx.Encode(slots.RotateHalves(vec, i))
			if err != nil {
				return err
			}
			if terms[i], err = ev.Mul(mat[i], pt); err != nil {
				return err
			}
		}
		return nil
	})
}

// EMatMat runs EMatVec once per plain right slot vector.
func (e *Engine) EMatMat(mat []*rlwe.Ciphertext, right [][]int64) ([]*rlwe.Ciphertext, error) {
	out := make([]*rlwe.Ciphertext, len(right))
	for p, vec := range right {
		ct, err := e.EMatVec(mat, vec)
		if err != nil {
			return nil, fmt.Errorf("column pair %d: %w", p, err)
		}
		out[p] = ct
	}
	return out, nil
}

func (e *Engine) encodeAll(vecs [][]int64) ([]*rlwe.Plaintext, error) {
	pts := make([]*rlwe.Plaintext, len(vecs))
	for i, v := range vecs {
		pt, err := e.ctx.Encode(v)
		if err != nil {
			return nil, err
		}
		pts[i] = pt
	}
	return pts, nil
}

// MatEVec multiplies plain left diagonals by one encrypted right column pair.
func (e *Engine) MatEVec(mat [][]int64, vec *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	pts, err := e.encodeAll(mat)
	if err != nil {
		return nil, err
	}
	return e.matEVec(pts, vec)
}

func (e *Engine) matEVec(pts []*rlwe.Plaintext, vec *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	return e.sum("mat_evec", len(pts), rotatedTerms(vec, func(i int) rlwe.Operand { return pts[i] }))
}

// MatEMat runs MatEVec once per right ciphertext, encoding mat only once.
func (e *Engine) MatEMat(mat [][]int64, right []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	pts, err := e.encodeAll(mat)
	if err != nil {
		return nil, err
	}
	out := make([]*rlwe.Ciphertext, len(right))
	for p, vec := range right {
		ct, err := e.matEVec(pts, vec)
		if err != nil {
			return nil, fmt.Errorf("column pair %d: %w", p, err)
		}
		out[p] = ct
	}
	return out, nil
}
