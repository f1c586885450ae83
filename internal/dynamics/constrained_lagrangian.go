package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/benjuntilla/rigidsim/internal/ad"
	"github.com/benjuntilla/rigidsim/internal/linalg"
)

// ConstrainedLagrangianField is the generic (position, velocity)
// parameterization of constrained dynamics for point-mass systems with a
// fixed inverse mass operator: unconstrained acceleration f = −M⁻¹∇V, then
// the multiplier system
//
//	(Gᵀ M⁻¹ G) λ = Gᵀ f + Ġᵀ v
//
// is solved per evaluation and the projected acceleration is f − M⁻¹Gλ.
type ConstrainedLagrangianField struct {
	// V is the potential over the n*d Cartesian position coordinates.
	V Potential
	// Minv is the n×n inverse mass operator, applied per spatial dimension.
	Minv *mat.Dense
	// DPhi is evaluated at the (x, v) state; same layout contract as the
	// canonical form.
	DPhi Jacobian
	// Reg has the same semantics as on ConstrainedHamiltonianField.
	Reg      float64
	WithGrad bool

	nodes, space int
	nfeCounter
}

// NewConstrainedLagrangianField builds the field for n point masses in d
// spatial dimensions (state dim 2nd).
func NewConstrainedLagrangianField(nodes, space int, v Potential, minv *mat.Dense, dphi Jacobian) *ConstrainedLagrangianField {
	r, c := minv.Dims()
	if r != nodes || c != nodes {
		panic("dynamics: inverse mass operator must be n×n")
	}
	return &ConstrainedLagrangianField{V: v, Minv: minv, DPhi: dphi, nodes: nodes, space: space}
}

func (f *ConstrainedLagrangianField) Dim() int { return 2 * f.nodes * f.space }

func (f *ConstrainedLagrangianField) Eval(t float64, z State) (State, error) {
	if err := checkState(z, f.Dim()); err != nil {
		return State{}, err
	}
	f.nfe++
	nd := f.nodes * f.space

	x := make([]*ad.Node, nd)
	for i := 0; i < nd; i++ {
		x[i] = ad.Var(z.Col(i))
	}
	dV, err := ad.Grad(f.V(x), x, ad.GradOpts{CreateGraph: f.WithGrad, AllowUnused: true})
	if err != nil {
		return State{}, err
	}

	// Unconstrained acceleration per batch element: f = −M⁻¹ dV.
	force := make([][]float64, z.Batch)
	for b := 0; b < z.Batch; b++ {
		grad := make([]float64, nd)
		for i := 0; i < nd; i++ {
			grad[i] = dV[i].At(b)
		}
		fb := f.applyMinv(grad)
		for i := range fb {
			fb[i] = -fb[i]
		}
		force[b] = fb
	}

	dphis, err := f.DPhi(z)
	if err != nil {
		return State{}, err
	}

	out := NewState(z.Batch, z.Dim)
	if dphis == nil {
		// No constraints: the unconstrained acceleration passes through.
		for b := 0; b < z.Batch; b++ {
			row := out.Row(b)
			copy(row[:nd], z.Row(b)[nd:])
			copy(row[nd:], force[b])
		}
		return out, nil
	}
	if len(dphis) != z.Batch {
		return State{}, fmt.Errorf("%w: constraint jacobian has %d batch elements, want %d", ErrShape, len(dphis), z.Batch)
	}
	rows, cols := dphis[0].Dims()
	if rows != 2*nd || cols%2 != 0 {
		return State{}, fmt.Errorf("%w: constraint jacobian is %dx%d, want %dx even", ErrShape, rows, cols, 2*nd)
	}
	c := cols / 2

	as := make([]*mat.Dense, z.Batch)
	bs := make([]*mat.Dense, z.Batch)
	minvG := make([]*mat.Dense, z.Batch)
	gdots := make([]*mat.Dense, z.Batch)
	for b := 0; b < z.Batch; b++ {
		dphi := dphis[b]
		g := dphi.Slice(0, nd, 0, c).(*mat.Dense)
		gdots[b] = dphi.Slice(0, nd, c, 2*c).(*mat.Dense)

		mg := mat.NewDense(nd, c, nil)
		col := make([]float64, nd)
		for j := 0; j < c; j++ {
			mat.Col(col, j, g)
			mg.SetCol(j, f.applyMinv(col))
		}
		minvG[b] = mg

		a := mat.NewDense(c, c, nil)
		a.Mul(g.T(), mg)
		if f.Reg != 0 {
			for i := 0; i < c; i++ {
				a.Set(i, i, a.At(i, i)+f.Reg)
			}
		}

		// Right-hand side: constraint-acceleration violation under the
		// unconstrained force plus the velocity-dependent drift term.
		fb := mat.NewVecDense(nd, force[b])
		vb := mat.NewVecDense(nd, z.Row(b)[nd:])
		rhs := mat.NewDense(c, 1, nil)
		rhs.Mul(g.T(), fb)
		var drift mat.Dense
		drift.Mul(gdots[b].T(), vb)
		rhs.Add(rhs, &drift)

		as[b], bs[b] = a, rhs
	}

	sols, err := linalg.SolveBatch(as, bs)
	if err != nil {
		return State{}, err
	}

	for b := 0; b < z.Batch; b++ {
		var lam mat.Dense
		lam.Mul(minvG[b], sols[b])
		row := out.Row(b)
		copy(row[:nd], z.Row(b)[nd:])
		for i := 0; i < nd; i++ {
			row[nd+i] = force[b][i] - lam.At(i, 0)
		}
	}
	return out, nil
}

// applyMinv applies the n×n inverse mass operator to an nd vector, one
// spatial dimension at a time.
func (f *ConstrainedLagrangianField) applyMinv(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for i := 0; i < f.nodes; i++ {
		for dd := 0; dd < f.space; dd++ {
			acc := 0.0
			for j := 0; j < f.nodes; j++ {
				acc += f.Minv.At(i, j) * vec[j*f.space+dd]
			}
			out[i*f.space+dd] = acc
		}
	}
	return out
}
