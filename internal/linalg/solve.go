// Package linalg provides the dense linear solves used by the dynamics
// fields: batched value-level solves on gonum matrices, and a node-level
// solve that stays inside the differentiation graph.
package linalg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/benjuntilla/rigidsim/internal/ad"
)

// ErrSingular indicates a singular or near-singular linear system. It is
// surfaced as-is; no implicit regularization is applied.
var ErrSingular = errors.New("linalg: singular or ill-conditioned system")

// SolveBatch solves A_k X_k = B_k independently for each batch element.
func SolveBatch(as, bs []*mat.Dense) ([]*mat.Dense, error) {
	if len(as) != len(bs) {
		return nil, fmt.Errorf("linalg: batch mismatch: %d systems, %d right-hand sides", len(as), len(bs))
	}
	xs := make([]*mat.Dense, len(as))
	for k := range as {
		var x mat.Dense
		if err := x.Solve(as[k], bs[k]); err != nil {
			return nil, fmt.Errorf("%w (batch %d): %v", ErrSingular, k, err)
		}
		xs[k] = &x
	}
	return xs, nil
}

// SolveNodes solves M a = f by Gaussian elimination expressed in graph
// operations, so the solution remains differentiable with respect to
// everything M and f depend on. The pivot row at each step is chosen on
// current values and shared across the batch; a pivot whose magnitude is
// below ~1e-12 for every batch element fails with ErrSingular.
func SolveNodes(m [][]*ad.Node, f []*ad.Node) ([]*ad.Node, error) {
	d := len(m)
	if d == 0 || len(f) != d {
		return nil, fmt.Errorf("linalg: bad system shape: %dx%d matrix, %d rhs", d, d, len(f))
	}

	a := make([][]*ad.Node, d)
	for r := range m {
		if len(m[r]) != d {
			return nil, fmt.Errorf("linalg: bad system shape: row %d has %d entries", r, len(m[r]))
		}
		a[r] = append([]*ad.Node(nil), m[r]...)
	}
	rhs := append([]*ad.Node(nil), f...)

	for c := 0; c < d; c++ {
		p, best := c, maxAbs(a[c][c])
		for r := c + 1; r < d; r++ {
			if v := maxAbs(a[r][c]); v > best {
				p, best = r, v
			}
		}
		if best < 1e-12 {
			return nil, fmt.Errorf("%w: zero pivot at column %d", ErrSingular, c)
		}
		a[p], a[c] = a[c], a[p]
		rhs[p], rhs[c] = rhs[c], rhs[p]

		for r := c + 1; r < d; r++ {
			factor := a[r][c].Div(a[c][c])
			for j := c + 1; j < d; j++ {
				a[r][j] = a[r][j].Sub(factor.Mul(a[c][j]))
			}
			rhs[r] = rhs[r].Sub(factor.Mul(rhs[c]))
		}
	}

	out := make([]*ad.Node, d)
	for r := d - 1; r >= 0; r-- {
		acc := rhs[r]
		for j := r + 1; j < d; j++ {
			acc = acc.Sub(a[r][j].Mul(out[j]))
		}
		out[r] = acc.Div(a[r][r])
	}
	return out, nil
}

func maxAbs(n *ad.Node) float64 {
	best := 0.0
	for i := 0; i < n.Batch(); i++ {
		if v := math.Abs(n.At(i)); v > best {
			best = v
		}
	}
	return best
}
