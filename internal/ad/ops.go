package ad

import "math"

// Add returns n + m elementwise.
func (n *Node) Add(m *Node) *Node {
	b := n.sameBatch(m)
	vals := make([]float64, b)
	for i := range vals {
		vals[i] = n.vals[i] + m.vals[i]
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n, m},
		vjp:    func(adj *Node) []*Node { return []*Node{adj, adj} },
	}
}

// Sub returns n - m elementwise.
func (n *Node) Sub(m *Node) *Node {
	b := n.sameBatch(m)
	vals := make([]float64, b)
	for i := range vals {
		vals[i] = n.vals[i] - m.vals[i]
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n, m},
		vjp:    func(adj *Node) []*Node { return []*Node{adj, adj.Neg()} },
	}
}

// Mul returns n * m elementwise.
func (n *Node) Mul(m *Node) *Node {
	b := n.sameBatch(m)
	vals := make([]float64, b)
	for i := range vals {
		vals[i] = n.vals[i] * m.vals[i]
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n, m},
		vjp: func(adj *Node) []*Node {
			return []*Node{adj.Mul(m), adj.Mul(n)}
		},
	}
}

// Div returns n / m elementwise.
func (n *Node) Div(m *Node) *Node {
	b := n.sameBatch(m)
	vals := make([]float64, b)
	for i := range vals {
		vals[i] = n.vals[i] / m.vals[i]
	}
	out := &Node{vals: vals, inputs: []*Node{n, m}}
	out.vjp = func(adj *Node) []*Node {
		return []*Node{adj.Div(m), adj.Mul(out).Div(m).Neg()}
	}
	return out
}

// Neg returns -n.
func (n *Node) Neg() *Node {
	vals := make([]float64, len(n.vals))
	for i := range vals {
		vals[i] = -n.vals[i]
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n},
		vjp:    func(adj *Node) []*Node { return []*Node{adj.Neg()} },
	}
}

// Scale returns c * n for a plain constant c.
func (n *Node) Scale(c float64) *Node {
	vals := make([]float64, len(n.vals))
	for i := range vals {
		vals[i] = c * n.vals[i]
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n},
		vjp:    func(adj *Node) []*Node { return []*Node{adj.Scale(c)} },
	}
}

// Shift returns n + c for a plain constant c.
func (n *Node) Shift(c float64) *Node {
	vals := make([]float64, len(n.vals))
	for i := range vals {
		vals[i] = n.vals[i] + c
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n},
		vjp:    func(adj *Node) []*Node { return []*Node{adj} },
	}
}

// Sin returns sin(n) elementwise.
func (n *Node) Sin() *Node {
	vals := make([]float64, len(n.vals))
	for i := range vals {
		vals[i] = math.Sin(n.vals[i])
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n},
		vjp:    func(adj *Node) []*Node { return []*Node{adj.Mul(n.Cos())} },
	}
}

// Cos returns cos(n) elementwise.
func (n *Node) Cos() *Node {
	vals := make([]float64, len(n.vals))
	for i := range vals {
		vals[i] = math.Cos(n.vals[i])
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n},
		vjp:    func(adj *Node) []*Node { return []*Node{adj.Mul(n.Sin()).Neg()} },
	}
}

// Square returns n * n elementwise.
func (n *Node) Square() *Node {
	vals := make([]float64, len(n.vals))
	for i := range vals {
		vals[i] = n.vals[i] * n.vals[i]
	}
	return &Node{
		vals:   vals,
		inputs: []*Node{n},
		vjp:    func(adj *Node) []*Node { return []*Node{adj.Mul(n).Scale(2)} },
	}
}

// Sqrt returns sqrt(n) elementwise.
func (n *Node) Sqrt() *Node {
	vals := make([]float64, len(n.vals))
	for i := range vals {
		vals[i] = math.Sqrt(n.vals[i])
	}
	out := &Node{vals: vals, inputs: []*Node{n}}
	out.vjp = func(adj *Node) []*Node {
		return []*Node{adj.Div(out.Scale(2))}
	}
	return out
}

// Sum returns the sum of the given nodes elementwise across the batch.
func Sum(nodes ...*Node) *Node {
	if len(nodes) == 0 {
		panic("ad: Sum of no nodes")
	}
	out := nodes[0]
	for _, n := range nodes[1:] {
		out = out.Add(n)
	}
	return out
}

// Dot returns sum_i xs[i]*ys[i], one scalar per batch element.
func Dot(xs, ys []*Node) *Node {
	if len(xs) != len(ys) {
		panic("ad: Dot length mismatch")
	}
	if len(xs) == 0 {
		panic("ad: Dot of empty vectors")
	}
	out := xs[0].Mul(ys[0])
	for i := 1; i < len(xs); i++ {
		out = out.Add(xs[i].Mul(ys[i]))
	}
	return out
}
