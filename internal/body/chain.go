package body

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/benjuntilla/rigidsim/internal/ad"
	"github.com/benjuntilla/rigidsim/internal/dynamics"
	"github.com/benjuntilla/rigidsim/internal/solver"
)

// ChainPendulum is a chain of rigid links hanging from a fixed tether at the
// origin in two spatial dimensions. With beams=false the mass sits on the
// nodes; with beams=true the links themselves are massive beams
// (I/(ml²) = 1/12) and the interior nodes are massless joints.
type ChainPendulum struct {
	*Graph
	Links   int
	Gravity float64
}

// NewChainPendulum builds a chain of the given number of links, each of mass
// m and length l. Gravity defaults to 1 (the unit-gravity convention of the
// Hamiltonian below); override the field for physical values.
func NewChainPendulum(links int, beams bool, m, l float64) *ChainPendulum {
	if links < 1 {
		panic("body: chain needs at least one link")
	}
	g := NewGraph(2)
	if beams {
		g.AddNode(Node{Mass: m, HasMass: true, Tether: []float64{0, 0}, Length: l})
		for i := 1; i < links; i++ {
			g.AddNode(Node{})
			if err := g.AddEdge(Edge{I: i - 1, J: i, Mass: m, HasMass: true, Inertia: 1.0 / 12, HasInertia: true, Length: l}); err != nil {
				panic(err)
			}
		}
	} else {
		g.AddNode(Node{Mass: m, HasMass: true, Tether: []float64{0, 0}, Length: l})
		for i := 1; i < links; i++ {
			g.AddNode(Node{Mass: m, HasMass: true})
			if err := g.AddEdge(Edge{I: i - 1, J: i, Length: l}); err != nil {
				panic(err)
			}
		}
	}
	return &ChainPendulum{Graph: g, Links: links, Gravity: 1}
}

// linkLength returns the length of the link ending at node k: the tether
// link for the root, the incoming edge otherwise.
func (c *ChainPendulum) linkLength(k int) float64 {
	if k == 0 {
		return c.nodes[0].Length
	}
	return c.edges[k-1].Length
}

// FromAngles embeds angular states into Cartesian (x, v) phase space by
// walking the chain from the tether: each link hangs at angle θ from the
// vertical with angular velocity ω. The embedded state satisfies every
// constraint and its time derivative exactly.
func (c *ChainPendulum) FromAngles(thetas, omegas [][]float64) dynamics.State {
	n := len(c.nodes)
	batch := len(thetas)
	nd := n * 2
	z := dynamics.NewState(batch, 2*nd)
	for b := 0; b < batch; b++ {
		row := z.Row(b)
		px, py := c.nodes[0].Tether[0], c.nodes[0].Tether[1]
		vx, vy := 0.0, 0.0
		for k := 0; k < n; k++ {
			l := c.linkLength(k)
			th, om := thetas[b][k], omegas[b][k]
			px += l * math.Sin(th)
			py -= l * math.Cos(th)
			vx += l * math.Cos(th) * om
			vy += l * math.Sin(th) * om
			row[k*2] = px
			row[k*2+1] = py
			row[nd+k*2] = vx
			row[nd+k*2+1] = vy
		}
	}
	return z
}

// SampleInitialConditions draws n systems with standard-normal link angles
// and angular velocities, embedded into Cartesian (x, v) states.
func (c *ChainPendulum) SampleInitialConditions(rng *rand.Rand, n int) dynamics.State {
	nn := len(c.nodes)
	thetas := make([][]float64, n)
	omegas := make([][]float64, n)
	for b := 0; b < n; b++ {
		thetas[b] = make([]float64, nn)
		omegas[b] = make([]float64, nn)
		for k := 0; k < nn; k++ {
			thetas[b][k] = rng.NormFloat64()
			omegas[b][k] = rng.NormFloat64()
		}
	}
	return c.FromAngles(thetas, omegas)
}

// Potential returns the gravity potential g·Σ(M·x)_y over the Cartesian
// position nodes. The mass matrix and gravity are captured at call time.
func (c *ChainPendulum) Potential() dynamics.Potential {
	m := c.M()
	n, d := len(c.nodes), c.dim

	// Column sums of M give the per-node gravity weights.
	weights := make([]float64, n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			weights[j] += m.At(i, j)
		}
	}
	grav := c.Gravity

	return func(x []*ad.Node) *ad.Node {
		terms := make([]*ad.Node, n)
		for j := 0; j < n; j++ {
			terms[j] = x[j*d+1].Scale(grav * weights[j])
		}
		return ad.Sum(terms...)
	}
}

// Hamiltonian returns H(t, z) = pᵀM⁻¹p/2 + g·Σ(M·x)_y as an energy
// functional over the canonical state.
func (c *ChainPendulum) Hamiltonian() (dynamics.Energy, error) {
	minv, err := c.Minv()
	if err != nil {
		return nil, err
	}
	pot := c.Potential()
	n, d := len(c.nodes), c.dim
	nd := n * d

	return func(t float64, z []*ad.Node) *ad.Node {
		x := z[:nd]
		p := z[nd:]

		var terms []*ad.Node
		for dd := 0; dd < d; dd++ {
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					w := minv.At(i, j)
					if w == 0 {
						continue
					}
					terms = append(terms, p[i*d+dd].Mul(p[j*d+dd]).Scale(w/2))
				}
			}
		}
		return ad.Sum(terms...).Add(pot(x))
	}, nil
}

// Field builds the constrained Hamiltonian dynamics field for this chain.
func (c *ChainPendulum) Field() (*dynamics.ConstrainedHamiltonianField, error) {
	h, err := c.Hamiltonian()
	if err != nil {
		return nil, err
	}
	return dynamics.NewConstrainedHamiltonianField(c.StateDim(), h, c.DPhi), nil
}

// FieldXV builds the (x, v) parameterization of the same dynamics: the
// constrained Lagrangian field over the chain's potential, inverse mass
// matrix, and velocity-form constraint Jacobian.
func (c *ChainPendulum) FieldXV() (*dynamics.ConstrainedLagrangianField, error) {
	minv, err := c.Minv()
	if err != nil {
		return nil, err
	}
	return dynamics.NewConstrainedLagrangianField(len(c.nodes), c.dim, c.Potential(), minv, c.DPhiXV), nil
}

// Energy evaluates the Hamiltonian at a canonical (x, p) state, one value
// per batch element.
func (c *ChainPendulum) Energy(z dynamics.State) ([]float64, error) {
	minv, err := c.Minv()
	if err != nil {
		return nil, err
	}
	m := c.M()
	n, d := len(c.nodes), c.dim
	nd := n * d
	if z.Dim != 2*nd {
		return nil, fmt.Errorf("%w: state dim %d, body has %d phase-space coordinates", dynamics.ErrShape, z.Dim, 2*nd)
	}

	out := make([]float64, z.Batch)
	for b := 0; b < z.Batch; b++ {
		row := z.Row(b)
		x, p := row[:nd], row[nd:]
		e := 0.0
		for dd := 0; dd < d; dd++ {
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					e += minv.At(i, j) * p[i*d+dd] * p[j*d+dd] / 2
				}
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				e += c.Gravity * m.At(i, j) * x[j*d+1]
			}
		}
		out[b] = e
	}
	return out, nil
}

// MaxConstraintViolation returns, per batch element, the largest deviation
// of any link or tether length from its rest length. Only the position block
// of z is read, so both (x, p) and (x, v) states are accepted.
func (c *ChainPendulum) MaxConstraintViolation(z dynamics.State) []float64 {
	n, d := len(c.nodes), c.dim
	out := make([]float64, z.Batch)
	for b := 0; b < z.Batch; b++ {
		x := z.Row(b)[:n*d]
		worst := 0.0
		for _, e := range c.edges {
			acc := 0.0
			for dd := 0; dd < d; dd++ {
				dx := x[e.I*d+dd] - x[e.J*d+dd]
				acc += dx * dx
			}
			if v := math.Abs(math.Sqrt(acc) - e.Length); v > worst {
				worst = v
			}
		}
		for _, i := range c.tethers {
			acc := 0.0
			for dd := 0; dd < d; dd++ {
				dx := x[i*d+dd] - c.nodes[i].Tether[dd]
				acc += dx * dx
			}
			if v := math.Abs(math.Sqrt(acc) - c.nodes[i].Length); v > worst {
				worst = v
			}
		}
		out[b] = worst
	}
	return out
}

// VelocityToMomentum maps an (x, v) state to the canonical (x, p) state via
// the mass matrix, one spatial dimension at a time.
func (c *ChainPendulum) VelocityToMomentum(z dynamics.State) dynamics.State {
	return c.convert(z, c.M())
}

// MomentumToVelocity is the inverse map.
func (c *ChainPendulum) MomentumToVelocity(z dynamics.State) (dynamics.State, error) {
	minv, err := c.Minv()
	if err != nil {
		return dynamics.State{}, err
	}
	return c.convert(z, minv), nil
}

func (c *ChainPendulum) convert(z dynamics.State, op *mat.Dense) dynamics.State {
	n, d := len(c.nodes), c.dim
	nd := n * d
	out := z.Clone()
	for b := 0; b < z.Batch; b++ {
		src := z.Row(b)[nd:]
		dst := out.Row(b)[nd:]
		for i := 0; i < n; i++ {
			for dd := 0; dd < d; dd++ {
				acc := 0.0
				for j := 0; j < n; j++ {
					acc += op.At(i, j) * src[j*d+dd]
				}
				dst[i*d+dd] = acc
			}
		}
	}
	return out
}

// Integrate runs the chain's constrained dynamics from an (x, v) state over
// the requested times, returning (x, v) states: velocities are mapped to
// canonical momenta before integration and back after.
func (c *ChainPendulum) Integrate(z0 dynamics.State, times []float64, opts solver.Options) (*solver.Trajectory, error) {
	field, err := c.Field()
	if err != nil {
		return nil, err
	}
	traj, err := solver.Integrate(field, c.VelocityToMomentum(z0), times, opts)
	if err != nil {
		return nil, err
	}
	for k := range traj.States {
		traj.States[k], err = c.MomentumToVelocity(traj.States[k])
		if err != nil {
			return nil, err
		}
	}
	return traj, nil
}
