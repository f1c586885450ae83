package dynamics

import (
	"fmt"

	"github.com/benjuntilla/rigidsim/internal/ad"
)

// MassOperatorField is the decomposed-energy form: instead of a single scalar
// Lagrangian, the caller supplies a potential V(q), a (possibly nonlinear)
// mass operator M(q, v), and its declared inverse. Kinetic energy is
// T = v·M(q,v)/2 and the acceleration is obtained by applying the inverse
// operator to the generalized force, allowing structured or iterative
// inverses instead of an explicit matrix solve.
type MassOperatorField struct {
	V    Potential
	M    MassOperator
	Minv InverseMassOperator

	dim int
	nfeCounter
}

// NewMassOperatorField builds the field for a 2d-dimensional (q, v) state.
func NewMassOperatorField(dim int, v Potential, m MassOperator, minv InverseMassOperator) *MassOperatorField {
	if dim <= 0 || dim%2 != 0 {
		panic("dynamics: state dim must be positive and even")
	}
	return &MassOperatorField{V: v, M: m, Minv: minv, dim: dim}
}

func (f *MassOperatorField) Dim() int { return f.dim }

func (f *MassOperatorField) Eval(t float64, z State) (State, error) {
	if err := checkState(z, f.dim); err != nil {
		return State{}, err
	}
	f.nfe++
	d := z.Dim / 2

	q := make([]*ad.Node, d)
	v := make([]*ad.Node, d)
	for i := 0; i < d; i++ {
		q[i] = ad.Var(z.Col(i))
		v[i] = ad.Var(z.Col(i + d))
	}

	mv := f.M(q, v)
	if len(mv) != d {
		return State{}, fmt.Errorf("%w: mass operator returned %d components, want %d", ErrShape, len(mv), d)
	}
	kinetic := ad.Dot(v, mv).Scale(0.5)
	lag := kinetic.Sub(f.V(q))

	fq, err := ad.Grad(lag, q, ad.GradOpts{CreateGraph: true, AllowUnused: true})
	if err != nil {
		return State{}, err
	}

	vFixed := make([]*ad.Node, d)
	for i := range v {
		vFixed[i] = v[i].Detach()
	}
	fvNeg, err := ad.Grad(ad.Dot(vFixed, fq), v, ad.GradOpts{CreateGraph: true, AllowUnused: true})
	if err != nil {
		return State{}, err
	}

	force := make([]*ad.Node, d)
	for i := 0; i < d; i++ {
		force[i] = fq[i].Sub(fvNeg[i])
	}
	a := f.Minv(q, force)
	if len(a) != d {
		return State{}, fmt.Errorf("%w: inverse mass operator returned %d components, want %d", ErrShape, len(a), d)
	}

	out := NewState(z.Batch, z.Dim)
	for i := 0; i < d; i++ {
		out.SetCol(i, z.Col(i+d))
		out.SetCol(i+d, a[i].Values())
	}
	return out, nil
}
