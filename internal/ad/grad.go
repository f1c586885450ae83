package ad

import (
	"errors"
	"fmt"
)

// ErrDisconnected indicates a requested gradient has no path from the output
// to the input. It signals a misconfigured energy functional, not a
// recoverable condition.
var ErrDisconnected = errors.New("ad: output does not depend on requested input")

// GradOpts controls a reverse pass.
type GradOpts struct {
	// CreateGraph keeps the returned gradients attached to the graph so they
	// can be differentiated again. When false the results are detached.
	CreateGraph bool
	// AllowUnused tolerates inputs the output does not depend on, yielding
	// zero gradients for them instead of ErrDisconnected.
	AllowUnused bool
}

// Grad computes the gradient of output with respect to each of inputs.
// The output is treated as summed over the batch; since batch elements are
// independent this yields the per-element gradients in one pass.
func Grad(output *Node, inputs []*Node, opts GradOpts) ([]*Node, error) {
	order := topo(output)

	adj := make(map[*Node]*Node, len(order))
	adj[output] = FullOf(output.Batch(), 1)

	// Post-order puts every node after its inputs, so walking in reverse
	// visits each node only after all of its consumers.
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		a := adj[n]
		if a == nil || n.vjp == nil {
			continue
		}
		contribs := n.vjp(a)
		for k, in := range n.inputs {
			c := contribs[k]
			if c == nil {
				continue
			}
			if cur := adj[in]; cur != nil {
				adj[in] = cur.Add(c)
			} else {
				adj[in] = c
			}
		}
	}

	out := make([]*Node, len(inputs))
	for i, in := range inputs {
		g := adj[in]
		if g == nil {
			if !opts.AllowUnused {
				return nil, fmt.Errorf("%w (input %d)", ErrDisconnected, i)
			}
			g = Zeros(in.Batch())
		}
		if !opts.CreateGraph {
			g = g.Detach()
		}
		out[i] = g
	}
	return out, nil
}

// topo returns the nodes reachable from root in post-order.
func topo(root *Node) []*Node {
	type frame struct {
		n   *Node
		idx int
	}
	seen := map[*Node]bool{root: true}
	stack := []frame{{n: root}}
	var order []*Node
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.idx < len(f.n.inputs) {
			in := f.n.inputs[f.idx]
			f.idx++
			if !seen[in] {
				seen[in] = true
				stack = append(stack, frame{n: in})
			}
		} else {
			order = append(order, f.n)
			stack = stack[:len(stack)-1]
		}
	}
	return order
}
