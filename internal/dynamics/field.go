package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/benjuntilla/rigidsim/internal/ad"
)

// Field is a batched time-derivative vector field f(t, z) -> dz/dt,
// consumable by the solver package.
type Field interface {
	Eval(t float64, z State) (State, error)
	Dim() int

	// NFE reports the number of field evaluations since the last reset.
	// Diagnostics only; the solver resets it at the start of each
	// integration call.
	NFE() int
	ResetNFE()
}

// nfeCounter is the shared evaluation counter owned by each field instance.
type nfeCounter struct{ nfe int }

func (c *nfeCounter) NFE() int  { return c.nfe }
func (c *nfeCounter) ResetNFE() { c.nfe = 0 }

// Energy is the scalar energy functional contract: given the time and the
// state columns as graph nodes, return one scalar per batch element. The
// function must be pure up to diagnostics and differentiable in its inputs.
type Energy func(t float64, z []*ad.Node) *ad.Node

// Potential maps position coordinates to one potential value per batch
// element.
type Potential func(q []*ad.Node) *ad.Node

// MassOperator applies a possibly state-dependent mass operator to a
// velocity-like vector, returning a momentum-like vector of the same length.
type MassOperator func(q, v []*ad.Node) []*ad.Node

// InverseMassOperator applies the declared inverse of a MassOperator to a
// momentum-like vector.
type InverseMassOperator func(q, p []*ad.Node) []*ad.Node

// Jacobian is the constraint contract: for each batch element, a dense
// (2nd)×(2C) operator relating perturbations of (position, momentum) rows to
// perturbations of (constraint value, constraint time-derivative) columns.
// Constraint columns are ordered edges first, then tethers, each in
// declaration order. A nil slice is the valid C = 0 "no constraints" signal
// and short-circuits the projection path entirely.
type Jacobian func(z State) ([]*mat.Dense, error)

// leaves wraps each state column in a fresh graph leaf.
func leaves(z State) []*ad.Node {
	out := make([]*ad.Node, z.Dim)
	for i := 0; i < z.Dim; i++ {
		out[i] = ad.Var(z.Col(i))
	}
	return out
}

// symplecticOut applies the canonical swap-and-negate operator to the
// gradient columns rg, producing the symplectic-gradient state. Both the
// unconstrained Hamiltonian field and the C=0 short-circuit of the
// constrained field go through here, so the two agree bit for bit.
func symplecticOut(rg []*ad.Node, batch, dim int) State {
	d := dim / 2
	out := NewState(batch, dim)
	for i := 0; i < d; i++ {
		out.SetCol(i, rg[i+d].Values())
		neg := rg[i].Values()
		for b := range neg {
			neg[b] = -neg[b]
		}
		out.SetCol(i+d, neg)
	}
	return out
}

// applyJ returns J·m, where J acts on the row blocks: the bottom half moves
// up, the top half moves down negated.
func applyJ(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	h := r / 2
	out := mat.NewDense(r, c, nil)
	for i := 0; i < h; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(i+h, j))
			out.Set(i+h, j, -m.At(i, j))
		}
	}
	return out
}
