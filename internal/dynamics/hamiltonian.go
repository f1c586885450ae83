package dynamics

import "github.com/benjuntilla/rigidsim/internal/ad"

// HamiltonianField is the unconstrained Hamiltonian vector field: the
// symplectic gradient of H(t, z). One reverse pass per evaluation, no solve.
type HamiltonianField struct {
	H Energy
	// WithGrad keeps the gradient graph alive so trajectories remain
	// differentiable end to end.
	WithGrad bool

	dim int
	nfeCounter
}

// NewHamiltonianField builds the field for a 2d-dimensional state.
func NewHamiltonianField(dim int, h Energy) *HamiltonianField {
	if dim <= 0 || dim%2 != 0 {
		panic("dynamics: state dim must be positive and even")
	}
	return &HamiltonianField{H: h, dim: dim}
}

func (f *HamiltonianField) Dim() int { return f.dim }

// Eval returns the symplectic gradient S·dH at (t, z).
func (f *HamiltonianField) Eval(t float64, z State) (State, error) {
	if err := checkState(z, f.dim); err != nil {
		return State{}, err
	}
	f.nfe++

	zs := leaves(z)
	h := f.H(t, zs)
	// H may be flat in some coordinates (a free particle's H has no q
	// dependence); those gradients are legitimately zero.
	rg, err := ad.Grad(h, zs, ad.GradOpts{CreateGraph: f.WithGrad, AllowUnused: true})
	if err != nil {
		return State{}, err
	}
	return symplecticOut(rg, z.Batch, z.Dim), nil
}
