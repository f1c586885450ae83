// Package solver integrates batched dynamics fields forward in time.
//
// [Integrate] drives a stepping method over a field f(t, z) and returns the
// states at each requested evaluation time. Two steppers are provided:
// classic fixed-step [RK4] and the adaptive Dormand-Prince 4(5) pair with
// step rejection and error-proportional step control.
//
// An integration call runs to completion or fails; there is no retry and no
// partial recovery, because a malformed field cannot be fixed by stepping
// differently.
package solver
