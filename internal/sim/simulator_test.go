package sim

import (
	"context"
	"math"
	"testing"

	"github.com/benjuntilla/rigidsim/internal/ad"
	"github.com/benjuntilla/rigidsim/internal/dynamics"
	"github.com/benjuntilla/rigidsim/internal/metrics"
	"github.com/benjuntilla/rigidsim/internal/solver"
)

func oscillator() dynamics.Field {
	return dynamics.NewHamiltonianField(2, func(t float64, z []*ad.Node) *ad.Node {
		return z[0].Square().Add(z[1].Square()).Scale(0.5)
	})
}

func oscEnergy(z dynamics.State) ([]float64, error) {
	out := make([]float64, z.Batch)
	for b := 0; b < z.Batch; b++ {
		q, p := z.At(b, 0), z.At(b, 1)
		out[b] = (q*q + p*p) / 2
	}
	return out, nil
}

func grid(n int, dt float64) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) * dt
	}
	return ts
}

type recorder struct {
	count int
}

func (r *recorder) OnState(t float64, z dynamics.State) { r.count++ }

func TestSimulatorRun(t *testing.T) {
	s := New(oscillator(), solver.Options{Method: "rk4", Dt: 0.01})
	s.AddMetric(metrics.NewEnergyDrift(oscEnergy))
	rec := &recorder{}
	s.AddObserver(rec)

	times := grid(11, 0.1)
	res, err := s.Run(context.Background(), dynamics.FromRows([][]float64{{1, 0}}), times)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.States) != 11 || len(res.Times) != 11 {
		t.Fatalf("expected 11 samples, got %d states, %d times", len(res.States), len(res.Times))
	}
	if rec.count != 11 {
		t.Errorf("observer saw %d states, want 11", rec.count)
	}

	final := res.States[len(res.States)-1]
	if math.Abs(final.At(0, 0)-math.Cos(1)) > 1e-6 {
		t.Errorf("q(1) = %v, want %v", final.At(0, 0), math.Cos(1))
	}

	drift, ok := res.Metrics["energy_drift"]
	if !ok {
		t.Fatal("energy_drift metric missing from result")
	}
	if drift > 1e-8 {
		t.Errorf("energy drift %v too large", drift)
	}
	if res.NFE == 0 || res.Steps == 0 {
		t.Errorf("expected nonzero work counters, got NFE=%d Steps=%d", res.NFE, res.Steps)
	}
}

func TestSimulatorCancellation(t *testing.T) {
	s := New(oscillator(), solver.Options{Method: "rk4", Dt: 0.01})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx, dynamics.FromRows([][]float64{{1, 0}}), grid(11, 0.1))
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(res.States) != 1 {
		t.Errorf("expected only the initial state, got %d", len(res.States))
	}
}

func TestSimulatorBadTimes(t *testing.T) {
	s := New(oscillator(), solver.Options{Method: "rk4", Dt: 0.01})
	if _, err := s.Run(context.Background(), dynamics.FromRows([][]float64{{1, 0}}), []float64{0}); err == nil {
		t.Fatal("expected error for single-point time grid")
	}
}

func TestEnsembleRun(t *testing.T) {
	factory := func() (*Simulator, error) {
		s := New(oscillator(), solver.Options{Method: "rk4", Dt: 0.01})
		s.AddMetric(metrics.NewEnergyDrift(oscEnergy))
		return s, nil
	}

	z0s := []dynamics.State{
		dynamics.FromRows([][]float64{{1, 0}}),
		dynamics.FromRows([][]float64{{0, 1}}),
		dynamics.FromRows([][]float64{{0.5, -0.5}}),
	}
	results, err := NewEnsemble(factory).Run(context.Background(), z0s, grid(6, 0.1))
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if len(res.States) != 6 {
			t.Errorf("run %d: expected 6 states, got %d", i, len(res.States))
		}
		if res.Metrics["energy_drift"] > 1e-8 {
			t.Errorf("run %d: energy drift %v too large", i, res.Metrics["energy_drift"])
		}
	}
}
