// Package ad provides reverse-mode automatic differentiation for batched
// scalar computations.
//
// A [Node] holds one scalar per batch element; operations apply elementwise
// across the batch and record the computation graph as they go. [Grad] walks
// the graph backwards and returns gradients that are themselves nodes, so
// second and higher derivatives are obtained by differentiating again:
//
//	x := ad.Var([]float64{0.3, 1.1})
//	y := x.Sin()
//	g, _ := ad.Grad(y, []*ad.Node{x}, ad.GradOpts{CreateGraph: true})
//	g2, _ := ad.Grad(g[0], []*ad.Node{x}, ad.GradOpts{})  // -sin(x)
//
// Because batch elements never mix, differentiating a batched scalar directly
// yields the per-element gradients in a single backward pass.
//
// Operations panic on batch-length mismatch, following the gonum/mat
// convention of panicking on shape errors.
package ad
