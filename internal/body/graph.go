package body

import "fmt"

// Node is a point mass. Massless nodes are allowed when the surrounding
// edges carry the mass (beam bodies). A non-nil Tether pins the node at a
// fixed distance Length from the given point.
type Node struct {
	Mass    float64
	HasMass bool
	// Tether is the fixed anchor point, nil for free nodes.
	Tether []float64
	// Length is the rest length of the tether link (and, for chain roots,
	// of the link used when embedding angular coordinates).
	Length float64
}

// Edge is a rigid link between nodes I and J with rest length Length.
// A massful edge concentrates its mass at the midpoint; Inertia is the
// unitless ratio I/(m l²): 1/12 for a beam, 1/2 for a disk.
type Edge struct {
	I, J       int
	Mass       float64
	HasMass    bool
	Inertia    float64
	HasInertia bool
	Length     float64
}

// Graph is a static rigid-body description: nodes and edges in declaration
// order, with the derived mass matrix cached on first access.
type Graph struct {
	dim     int
	nodes   []Node
	edges   []Edge
	tethers []int // node indices with tethers, declaration order

	mass *massCache
}

// NewGraph creates an empty body description in the given spatial dimension.
func NewGraph(dim int) *Graph {
	if dim <= 0 {
		panic("body: spatial dimension must be positive")
	}
	return &Graph{dim: dim, mass: &massCache{}}
}

// AddNode appends a node and returns its index. Mutation invalidates the
// cached mass matrix.
func (g *Graph) AddNode(n Node) int {
	if n.Tether != nil && len(n.Tether) != g.dim {
		panic(fmt.Sprintf("body: tether point has %d coordinates, want %d", len(n.Tether), g.dim))
	}
	g.nodes = append(g.nodes, n)
	if n.Tether != nil {
		g.tethers = append(g.tethers, len(g.nodes)-1)
	}
	g.mass.invalidate()
	return len(g.nodes) - 1
}

// AddEdge appends a rigid link. Mutation invalidates the cached mass matrix.
func (g *Graph) AddEdge(e Edge) error {
	if e.I < 0 || e.J < 0 || e.I >= len(g.nodes) || e.J >= len(g.nodes) || e.I == e.J {
		return fmt.Errorf("body: edge (%d, %d) out of range for %d nodes", e.I, e.J, len(g.nodes))
	}
	g.edges = append(g.edges, e)
	g.mass.invalidate()
	return nil
}

// N returns the node count.
func (g *Graph) N() int { return len(g.nodes) }

// E returns the edge count.
func (g *Graph) E() int { return len(g.edges) }

// Dim returns the spatial dimension.
func (g *Graph) Dim() int { return g.dim }

// StateDim returns the dimension 2nd of the flattened phase-space state.
func (g *Graph) StateDim() int { return 2 * len(g.nodes) * g.dim }

// Constraints returns the number of scalar constraints: one per edge plus
// one per tether.
func (g *Graph) Constraints() int { return len(g.edges) + len(g.tethers) }

// Nodes returns the node specs in declaration order.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns the edge specs in declaration order.
func (g *Graph) Edges() []Edge { return g.edges }

// Tethers returns the tethered node indices in declaration order.
func (g *Graph) Tethers() []int { return g.tethers }
