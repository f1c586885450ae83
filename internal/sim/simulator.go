// Package sim orchestrates integration runs: it drives the solver segment
// by segment, feeds every stored state to metrics and observers, and honors
// context cancellation between segments.
package sim

import (
	"context"
	"fmt"

	"github.com/benjuntilla/rigidsim/internal/dynamics"
	"github.com/benjuntilla/rigidsim/internal/metrics"
	"github.com/benjuntilla/rigidsim/internal/solver"
)

// Observer receives every stored state as the run progresses.
type Observer interface {
	OnState(t float64, z dynamics.State)
}

type Simulator struct {
	field     dynamics.Field
	opts      solver.Options
	metrics   []metrics.Metric
	observers []Observer
}

func New(field dynamics.Field, opts solver.Options) *Simulator {
	return &Simulator{
		field: field,
		opts:  opts,
	}
}

func (s *Simulator) AddMetric(m metrics.Metric) { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }

type Result struct {
	Times   []float64
	States  []dynamics.State
	Metrics map[string]float64
	NFE     int
	Steps   int
}

// Run integrates from z0 through the requested times. Cancellation is
// checked between segments; a cancelled run returns the states produced so
// far alongside the context error.
func (s *Simulator) Run(ctx context.Context, z0 dynamics.State, times []float64) (*Result, error) {
	if len(times) < 2 {
		return nil, fmt.Errorf("sim: need at least two times, got %d", len(times))
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result := &Result{
		Times:   make([]float64, 0, len(times)),
		States:  make([]dynamics.State, 0, len(times)),
		Metrics: make(map[string]float64),
	}

	s.observe(result, times[0], z0)

	cur := z0
	for i := 1; i < len(times); i++ {
		select {
		case <-ctx.Done():
			s.finish(result)
			return result, ctx.Err()
		default:
		}

		traj, err := solver.Integrate(s.field, cur, times[i-1:i+1], s.opts)
		if err != nil {
			s.finish(result)
			return result, fmt.Errorf("sim: segment [%g, %g]: %w", times[i-1], times[i], err)
		}
		result.NFE += traj.NFE
		result.Steps += traj.Steps

		cur = traj.States[len(traj.States)-1]
		s.observe(result, times[i], cur)
	}

	s.finish(result)
	return result, nil
}

func (s *Simulator) observe(result *Result, t float64, z dynamics.State) {
	result.Times = append(result.Times, t)
	result.States = append(result.States, z.Clone())
	for _, m := range s.metrics {
		m.Observe(t, z)
	}
	for _, o := range s.observers {
		o.OnState(t, z)
	}
}

func (s *Simulator) finish(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
