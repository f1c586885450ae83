package dynamics

import (
	"errors"
	"fmt"
)

// Domain errors for field evaluation. Disconnected-gradient and singular-solve
// failures propagate from the ad and linalg packages respectively; these cover
// contract violations detected in this package.
var (
	// ErrShape indicates a state or constraint-Jacobian tensor whose rank or
	// dimensions do not match the field's contract.
	ErrShape = errors.New("dynamics: shape contract violation")
)

func checkState(z State, dim int) error {
	if z.Dim != dim {
		return fmt.Errorf("%w: state dim %d, field dim %d", ErrShape, z.Dim, dim)
	}
	if z.Dim%2 != 0 {
		return fmt.Errorf("%w: state dim %d is odd", ErrShape, z.Dim)
	}
	if len(z.Data) != z.Batch*z.Dim {
		return fmt.Errorf("%w: state backing has %d values, want %d", ErrShape, len(z.Data), z.Batch*z.Dim)
	}
	return nil
}
