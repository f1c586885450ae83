// Package dynamics derives time-derivative fields from energy functionals.
//
// A [Field] maps (t, state) to dstate/dt for a batch of independent systems.
// Fields are built from an energy function rather than hand-derived equations
// of motion:
//
//   - [HamiltonianField]: symplectic gradient of H(t, z); one reverse pass.
//   - [LagrangianField]: Euler-Lagrange recovery from L(t, q, v) with a
//     generalized mass-matrix solve.
//   - [MassOperatorField]: decomposed potential/mass-operator form where the
//     inverse mass is applied as a callable instead of an explicit solve.
//   - [ConstrainedHamiltonianField], [ConstrainedLagrangianField]: the above
//     augmented with a per-evaluation Lagrange-multiplier projection that
//     removes constraint-violating accelerations.
//
// States are batched: the position block is always the first half of the
// state's last axis, velocity or momentum the second half.
//
// All errors (shape violations, disconnected gradients, singular solves) are
// fatal to the enclosing integration call; nothing is retried or clamped.
package dynamics
