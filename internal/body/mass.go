package body

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/benjuntilla/rigidsim/internal/linalg"
)

// massCache holds the lazily derived mass matrix and its inverse. Both are
// computed once per graph lifetime and owned exclusively by the graph;
// mutation of the graph invalidates them.
type massCache struct {
	m    *mat.Dense
	minv *mat.Dense
}

func (c *massCache) invalidate() {
	c.m = nil
	c.minv = nil
}

// M returns the n×n mass matrix, computing and caching it on first access.
//
// Node masses sit on the diagonal. A massful edge contributes m/4 to each of
// the four entries linking its endpoints, treating the edge's mass as
// concentrated at the midpoint. Edge inertia adds I·m to the endpoint
// diagonal entries and subtracts it from the off-diagonal pair.
func (g *Graph) M() *mat.Dense {
	if g.mass.m != nil {
		return g.mass.m
	}
	n := len(g.nodes)
	m := mat.NewDense(n, n, nil)
	for i, node := range g.nodes {
		if node.HasMass {
			m.Set(i, i, m.At(i, i)+node.Mass)
		}
	}
	for _, e := range g.edges {
		if e.HasMass {
			q := e.Mass / 4
			m.Set(e.I, e.I, m.At(e.I, e.I)+q)
			m.Set(e.I, e.J, m.At(e.I, e.J)+q)
			m.Set(e.J, e.I, m.At(e.J, e.I)+q)
			m.Set(e.J, e.J, m.At(e.J, e.J)+q)
		}
		if e.HasInertia {
			im := e.Inertia * e.Mass
			m.Set(e.I, e.I, m.At(e.I, e.I)+im)
			m.Set(e.I, e.J, m.At(e.I, e.J)-im)
			m.Set(e.J, e.I, m.At(e.J, e.I)-im)
			m.Set(e.J, e.J, m.At(e.J, e.J)+im)
		}
	}
	g.mass.m = m
	return m
}

// Minv returns the cached inverse mass matrix, inverting lazily on first
// access.
func (g *Graph) Minv() (*mat.Dense, error) {
	if g.mass.minv != nil {
		return g.mass.minv, nil
	}
	var inv mat.Dense
	if err := inv.Inverse(g.M()); err != nil {
		return nil, fmt.Errorf("%w: mass matrix not invertible: %v", linalg.ErrSingular, err)
	}
	g.mass.minv = &inv
	return &inv, nil
}
