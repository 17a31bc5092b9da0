package packing

import (
	"errors"
	"fmt"
)

// ErrShape is matched by every *ShapeError via errors.Is.
var ErrShape = errors.New("shape error")

// ShapeError reports a matrix whose dimensions cannot be packed into the
// slot vectors of the current backend.
type ShapeError struct {
	Op     string
	Rows   int
	Cols   int
	Slots  int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %dx%d matrix with %d slots: %s", e.Op, e.Rows, e.Cols, e.Slots, e.Reason)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

func shapeErr(op string, rows, cols, slots int, format string, args ...any) error {
	return &ShapeError{Op: op, Rows: rows, Cols: cols, Slots: slots, Reason: fmt.Sprintf(format, args...)}
}
