package body

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/benjuntilla/rigidsim/internal/dynamics"
)

// DPhi builds the constraint Jacobian at a canonical (x, p) state: one
// (2nd)×(2·C) matrix per batch element, position rows on top, momentum rows
// below, constraint-value columns left (edges then tethers), time-derivative
// columns right in the same order. A graph with no constraints returns nil,
// the C=0 signal.
func (g *Graph) DPhi(z dynamics.State) ([]*mat.Dense, error) {
	if g.Constraints() == 0 {
		return nil, nil
	}
	minv, err := g.Minv()
	if err != nil {
		return nil, err
	}
	nd := len(g.nodes) * g.dim
	if z.Dim != 2*nd {
		return nil, fmt.Errorf("%w: state dim %d, body has %d phase-space coordinates", dynamics.ErrShape, z.Dim, 2*nd)
	}

	out := make([]*mat.Dense, z.Batch)
	for b := 0; b < z.Batch; b++ {
		row := z.Row(b)
		x := row[:nd]
		v := g.applyMinv(minv, row[nd:])
		out[b] = g.buildDPhi(x, v, minv)
	}
	return out, nil
}

// DPhiXV is the (position, velocity) variant: the derivative rows are built
// from the velocity block directly instead of Minv·p. The momentum-coupling
// rows keep their canonical form; (x, v) consumers read only the position
// rows.
func (g *Graph) DPhiXV(z dynamics.State) ([]*mat.Dense, error) {
	if g.Constraints() == 0 {
		return nil, nil
	}
	minv, err := g.Minv()
	if err != nil {
		return nil, err
	}
	nd := len(g.nodes) * g.dim
	if z.Dim != 2*nd {
		return nil, fmt.Errorf("%w: state dim %d, body has %d phase-space coordinates", dynamics.ErrShape, z.Dim, 2*nd)
	}

	out := make([]*mat.Dense, z.Batch)
	for b := 0; b < z.Batch; b++ {
		row := z.Row(b)
		out[b] = g.buildDPhi(row[:nd], row[nd:], minv)
	}
	return out, nil
}

// buildDPhi assembles the Jacobian from positions and velocities. Column
// layout: [edge φ | tether φ | edge φ̇ | tether φ̇].
func (g *Graph) buildDPhi(x, v []float64, minv *mat.Dense) *mat.Dense {
	n, d := len(g.nodes), g.dim
	nd := n * d
	et := g.Constraints()
	m := mat.NewDense(2*nd, 2*et, nil)

	for eid, e := range g.edges {
		for dd := 0; dd < d; dd++ {
			dx := x[e.I*d+dd] - x[e.J*d+dd]
			// Squared-distance constraint gradient.
			m.Set(e.I*d+dd, eid, 2*dx)
			m.Set(e.J*d+dd, eid, -2*dx)
			// Its time derivative's position gradient.
			dv := v[e.I*d+dd] - v[e.J*d+dd]
			m.Set(e.I*d+dd, et+eid, 2*dv)
			m.Set(e.J*d+dd, et+eid, -2*dv)
			// Momentum coupling of the derivative row.
			for k := 0; k < n; k++ {
				m.Set(nd+k*d+dd, et+eid, 2*dx*(minv.At(k, e.I)-minv.At(k, e.J)))
			}
		}
	}

	for tid, i := range g.tethers {
		c := g.nodes[i].Tether
		for dd := 0; dd < d; dd++ {
			dx := x[i*d+dd] - c[dd]
			m.Set(i*d+dd, len(g.edges)+tid, 2*dx)
			m.Set(i*d+dd, et+len(g.edges)+tid, 2*v[i*d+dd])
			for k := 0; k < n; k++ {
				m.Set(nd+k*d+dd, et+len(g.edges)+tid, 2*dx*minv.At(k, i))
			}
		}
	}
	return m
}

// applyMinv maps a momentum block to velocities, one spatial dimension at a
// time.
func (g *Graph) applyMinv(minv *mat.Dense, p []float64) []float64 {
	n, d := len(g.nodes), g.dim
	out := make([]float64, n*d)
	for i := 0; i < n; i++ {
		for dd := 0; dd < d; dd++ {
			acc := 0.0
			for j := 0; j < n; j++ {
				acc += minv.At(i, j) * p[j*d+dd]
			}
			out[i*d+dd] = acc
		}
	}
	return out
}
