package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/benjuntilla/rigidsim/internal/dynamics"
)

var (
	// ErrStepTooSmall indicates the adaptive step shrank below Options.MinDt.
	ErrStepTooSmall = errors.New("solver: adaptive step below minimum")

	// ErrMaxSteps indicates the step budget was exhausted before reaching
	// the final evaluation time.
	ErrMaxSteps = errors.New("solver: maximum step count exceeded")

	// ErrInvalidState indicates the integrated state picked up NaN or Inf.
	ErrInvalidState = errors.New("solver: invalid state (NaN or Inf)")

	// ErrBadTimes indicates a malformed evaluation-time sequence.
	ErrBadTimes = errors.New("solver: evaluation times must strictly increase")
)

// Options configures an integration run.
type Options struct {
	// Method selects the stepper: "rk4" (default) or "dopri5".
	Method string
	// Dt is the fixed step for rk4 and the initial step for dopri5.
	Dt float64
	// Tol is the adaptive error tolerance per step.
	Tol float64
	// MinDt and MaxDt clamp the adaptive step.
	MinDt, MaxDt float64
	// MaxSteps bounds the total number of steps across the whole call.
	MaxSteps int
}

func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = "rk4"
	}
	if o.Dt <= 0 {
		o.Dt = 0.01
	}
	if o.Tol <= 0 {
		o.Tol = 1e-6
	}
	if o.MinDt <= 0 {
		o.MinDt = 1e-10
	}
	if o.MaxDt <= 0 {
		o.MaxDt = 0.5
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = 1_000_000
	}
	return o
}

// Trajectory holds batched states at the requested evaluation times.
type Trajectory struct {
	Times  []float64
	States []dynamics.State
	// NFE is the number of field evaluations the run consumed.
	NFE int
	// Steps is the number of accepted integration steps.
	Steps int
}

// Integrate drives the selected stepper over the field, returning states at
// each requested time. times must strictly increase; times[0] is the initial
// time of z0. The field's evaluation counter is reset at the start of the
// call.
func Integrate(f dynamics.Field, z0 dynamics.State, times []float64, opts Options) (*Trajectory, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no evaluation times", ErrBadTimes)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("%w: times[%d]=%g, times[%d]=%g", ErrBadTimes, i-1, times[i-1], i, times[i])
		}
	}
	opts = opts.withDefaults()
	if opts.Method != "rk4" && opts.Method != "dopri5" {
		return nil, fmt.Errorf("solver: unknown method %q", opts.Method)
	}

	f.ResetNFE()

	traj := &Trajectory{
		Times:  append([]float64(nil), times...),
		States: make([]dynamics.State, 0, len(times)),
	}
	traj.States = append(traj.States, z0.Clone())

	z := z0.Clone()
	var err error
	switch opts.Method {
	case "rk4":
		err = integrateFixed(f, &z, times, opts, traj)
	case "dopri5":
		err = integrateAdaptive(f, &z, times, opts, traj)
	}
	if err != nil {
		return nil, err
	}
	traj.NFE = f.NFE()
	return traj, nil
}

func integrateFixed(f dynamics.Field, z *dynamics.State, times []float64, opts Options, traj *Trajectory) error {
	rk := NewRK4()
	for seg := 1; seg < len(times); seg++ {
		t0, t1 := times[seg-1], times[seg]
		nsub := int(math.Ceil((t1 - t0) / opts.Dt))
		if nsub < 1 {
			nsub = 1
		}
		h := (t1 - t0) / float64(nsub)
		t := t0
		for i := 0; i < nsub; i++ {
			next, err := rk.Step(f, *z, t, h)
			if err != nil {
				return err
			}
			if !next.IsValid() {
				return fmt.Errorf("%w at t=%.6g", ErrInvalidState, t+h)
			}
			*z = next
			t += h
			traj.Steps++
			if traj.Steps > opts.MaxSteps {
				return fmt.Errorf("%w (%d)", ErrMaxSteps, opts.MaxSteps)
			}
		}
		traj.States = append(traj.States, z.Clone())
	}
	return nil
}

func integrateAdaptive(f dynamics.Field, z *dynamics.State, times []float64, opts Options, traj *Trajectory) error {
	dp := NewDormandPrince()
	h := opts.Dt
	for seg := 1; seg < len(times); seg++ {
		t, t1 := times[seg-1], times[seg]
		for t < t1 {
			if h > t1-t {
				h = t1 - t
			}
			if h < opts.MinDt {
				return fmt.Errorf("%w: h=%.3g at t=%.6g", ErrStepTooSmall, h, t)
			}

			next, errMax, err := dp.attempt(f, *z, t, h)
			if err != nil {
				return err
			}
			ratio := errMax / opts.Tol
			if ratio > 1 {
				// Reject and retry with the shrunken step.
				h = dp.nextStep(h, ratio)
				continue
			}
			if !next.IsValid() {
				return fmt.Errorf("%w at t=%.6g", ErrInvalidState, t+h)
			}
			*z = next
			t += h
			traj.Steps++
			if traj.Steps > opts.MaxSteps {
				return fmt.Errorf("%w (%d)", ErrMaxSteps, opts.MaxSteps)
			}
			h = math.Min(dp.nextStep(h, ratio), opts.MaxDt)
		}
		traj.States = append(traj.States, z.Clone())
	}
	return nil
}
