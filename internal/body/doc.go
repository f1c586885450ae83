// Package body describes rigid bodies as graphs of point masses and rigid
// links, and builds from them the two objects constrained dynamics needs:
// the (cached) mass matrix and the per-state constraint Jacobian.
//
// A [Graph] is static after construction. Edge rest-length constraints and
// node tether constraints are the only sources of constraint rows, and the
// constraint columns are ordered edges first, then tethers, each in
// declaration order; downstream consumers index into the Jacobian by
// position, so this ordering is a stable contract.
//
// [ChainPendulum] is the canonical example body: a chain of point masses
// (or massive beams) hanging from a fixed tether under gravity.
package body
