package ad

// Node is one recorded value in the computation graph: a scalar replicated
// across the batch. Nodes are immutable once created; every operation
// allocates a new node and records its inputs so gradients can flow back.
type Node struct {
	vals   []float64
	inputs []*Node
	// vjp maps the adjoint of this node to adjoint contributions for each
	// input, built out of ordinary ops so the result stays differentiable.
	// nil for leaves.
	vjp func(adj *Node) []*Node
}

// Var creates a leaf node from a copy of vals.
func Var(vals []float64) *Node {
	c := make([]float64, len(vals))
	copy(c, vals)
	return &Node{vals: c}
}

// FullOf creates a leaf node with the constant c replicated batch times.
func FullOf(batch int, c float64) *Node {
	vals := make([]float64, batch)
	for i := range vals {
		vals[i] = c
	}
	return &Node{vals: vals}
}

// Zeros creates a zero-valued leaf node.
func Zeros(batch int) *Node { return &Node{vals: make([]float64, batch)} }

// Batch returns the number of batch elements carried by the node.
func (n *Node) Batch() int { return len(n.vals) }

// At returns the value for batch element i.
func (n *Node) At(i int) float64 { return n.vals[i] }

// Values returns a copy of the batched values.
func (n *Node) Values() []float64 {
	c := make([]float64, len(n.vals))
	copy(c, n.vals)
	return c
}

// Detach returns a leaf node sharing this node's values. Gradients never
// flow through a detached node into the original graph; this is how a
// velocity is held fixed as a multiplier when isolating the convective term.
func (n *Node) Detach() *Node { return &Node{vals: n.vals} }

func (n *Node) sameBatch(m *Node) int {
	if len(n.vals) != len(m.vals) {
		panic("ad: batch length mismatch")
	}
	return len(n.vals)
}
