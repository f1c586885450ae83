package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/benjuntilla/rigidsim/internal/ad"
	"github.com/benjuntilla/rigidsim/internal/linalg"
)

// LagrangianField recovers accelerations from a Lagrangian L(t, q, v) via the
// Euler-Lagrange equation: the generalized mass matrix d²L/dv² is extracted
// row by row and solved against the generalized force.
type LagrangianField struct {
	L Energy
	// WithGrad keeps second-derivative graphs alive and routes the mass
	// solve through the differentiable node solver.
	WithGrad bool

	dim int
	nfeCounter
}

// NewLagrangianField builds the field for a 2d-dimensional (q, v) state.
func NewLagrangianField(dim int, l Energy) *LagrangianField {
	if dim <= 0 || dim%2 != 0 {
		panic("dynamics: state dim must be positive and even")
	}
	return &LagrangianField{L: l, dim: dim}
}

func (f *LagrangianField) Dim() int { return f.dim }

func (f *LagrangianField) Eval(t float64, z State) (State, error) {
	if err := checkState(z, f.dim); err != nil {
		return State{}, err
	}
	f.nfe++
	d := z.Dim / 2

	// Fresh leaves for q and v feed both the combined state and the
	// per-block gradients; building the graph the other way around would
	// lose the q/v gradients.
	q := make([]*ad.Node, d)
	v := make([]*ad.Node, d)
	for i := 0; i < d; i++ {
		q[i] = ad.Var(z.Col(i))
		v[i] = ad.Var(z.Col(i + d))
	}
	zs := make([]*ad.Node, 0, z.Dim)
	zs = append(zs, q...)
	zs = append(zs, v...)

	l := f.L(t, zs)
	dL, err := ad.Grad(l, zs, ad.GradOpts{CreateGraph: true, AllowUnused: true})
	if err != nil {
		return State{}, err
	}
	dLdq, dLdv := dL[:d], dL[d:]

	// Convective term: differentiate (dL/dq)·v with v held fixed as a
	// multiplier, isolating the bilinear coupling of the EL expansion.
	vFixed := make([]*ad.Node, d)
	for i := range v {
		vFixed[i] = v[i].Detach()
	}
	fvNeg, err := ad.Grad(ad.Dot(dLdq, vFixed), v, ad.GradOpts{CreateGraph: true, AllowUnused: true})
	if err != nil {
		return State{}, err
	}

	// Generalized mass matrix, one reverse pass per row: M[i][j] = d(dL/dv_i)/dv_j.
	m := make([][]*ad.Node, d)
	for i := 0; i < d; i++ {
		row, err := ad.Grad(dLdv[i], v, ad.GradOpts{CreateGraph: f.WithGrad, AllowUnused: true})
		if err != nil {
			return State{}, err
		}
		m[i] = row
	}

	rhs := make([]*ad.Node, d)
	for i := 0; i < d; i++ {
		rhs[i] = dLdq[i].Sub(fvNeg[i])
	}

	a, err := f.solve(m, rhs, z.Batch, d)
	if err != nil {
		return State{}, err
	}

	out := NewState(z.Batch, z.Dim)
	for i := 0; i < d; i++ {
		out.SetCol(i, z.Col(i+d))
		out.SetCol(i+d, a[i])
	}
	return out, nil
}

func (f *LagrangianField) solve(m [][]*ad.Node, rhs []*ad.Node, batch, d int) ([][]float64, error) {
	if f.WithGrad {
		nodes, err := linalg.SolveNodes(m, rhs)
		if err != nil {
			return nil, err
		}
		out := make([][]float64, d)
		for i := range nodes {
			out[i] = nodes[i].Values()
		}
		return out, nil
	}

	// Value-level path: one dense solve per batch element inside the
	// linear-algebra kernel.
	as := make([]*mat.Dense, batch)
	bs := make([]*mat.Dense, batch)
	for b := 0; b < batch; b++ {
		a := mat.NewDense(d, d, nil)
		r := mat.NewDense(d, 1, nil)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				a.Set(i, j, m[i][j].At(b))
			}
			r.Set(i, 0, rhs[i].At(b))
		}
		as[b], bs[b] = a, r
	}
	xs, err := linalg.SolveBatch(as, bs)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, d)
	for i := 0; i < d; i++ {
		out[i] = make([]float64, batch)
		for b := 0; b < batch; b++ {
			out[i][b] = xs[b].At(i, 0)
		}
	}
	return out, nil
}
