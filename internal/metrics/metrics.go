// Package metrics collects per-trajectory quality measures: energy drift,
// constraint violation, and state boundedness. A Metric observes each stored
// state and reduces to a single number.
package metrics

import (
	"math"

	"github.com/benjuntilla/rigidsim/internal/dynamics"
)

type Metric interface {
	Name() string
	Observe(t float64, z dynamics.State)
	Value() float64
	Reset()
}

// EnergyDrift tracks the worst relative deviation of total energy from its
// value at the first observed state, across all batch elements.
type EnergyDrift struct {
	name     string
	energy   func(dynamics.State) ([]float64, error)
	initial  []float64
	maxDrift float64
	samples  int
	failures int
}

func NewEnergyDrift(energy func(dynamics.State) ([]float64, error)) *EnergyDrift {
	return &EnergyDrift{
		name:   "energy_drift",
		energy: energy,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(t float64, z dynamics.State) {
	vals, err := e.energy(z)
	if err != nil {
		e.failures++
		return
	}
	if e.samples == 0 {
		e.initial = vals
	}
	e.samples++
	for b, v := range vals {
		ref := e.initial[b]
		drift := math.Abs(v - ref)
		if ref != 0 {
			drift /= math.Abs(ref)
		}
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

// Value is the worst relative drift, or NaN when every energy evaluation
// failed so that no drift could be measured.
func (e *EnergyDrift) Value() float64 {
	if e.samples == 0 && e.failures > 0 {
		return math.NaN()
	}
	return e.maxDrift
}

// Failures counts observations whose energy evaluation returned an error.
func (e *EnergyDrift) Failures() int { return e.failures }

func (e *EnergyDrift) Reset() {
	e.initial = nil
	e.maxDrift = 0
	e.samples = 0
	e.failures = 0
}

// ConstraintViolation tracks the worst holonomic constraint residual seen
// over a trajectory.
type ConstraintViolation struct {
	name      string
	violation func(dynamics.State) []float64
	max       float64
	samples   int
}

func NewConstraintViolation(violation func(dynamics.State) []float64) *ConstraintViolation {
	return &ConstraintViolation{
		name:      "constraint_violation",
		violation: violation,
	}
}

func (c *ConstraintViolation) Name() string { return c.name }

func (c *ConstraintViolation) Observe(t float64, z dynamics.State) {
	c.samples++
	for _, v := range c.violation(z) {
		c.max = math.Max(c.max, v)
	}
}

func (c *ConstraintViolation) Value() float64 { return c.max }

func (c *ConstraintViolation) Reset() {
	c.max = 0
	c.samples = 0
}

// Boundedness reports the fraction of observed states whose coordinates all
// stay within a threshold. A value below 1 flags a diverging trajectory.
type Boundedness struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewBoundedness(threshold float64) *Boundedness {
	return &Boundedness{
		name:      "boundedness",
		threshold: threshold,
	}
}

func (s *Boundedness) Name() string { return s.name }

func (s *Boundedness) Observe(t float64, z dynamics.State) {
	s.samples++
	for _, v := range z.Data {
		if math.Abs(v) > s.threshold || math.IsNaN(v) {
			s.violations++
			break
		}
	}
}

func (s *Boundedness) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Boundedness) Reset() {
	s.violations = 0
	s.samples = 0
}
