package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/benjuntilla/rigidsim/internal/ad"
	"github.com/benjuntilla/rigidsim/internal/dynamics"
)

// oscillatorH is H = (q² + p²)/2, whose flow is a rigid rotation of phase
// space: q(t) = q0 cos t + p0 sin t, p(t) = p0 cos t − q0 sin t.
func oscillatorH(t float64, z []*ad.Node) *ad.Node {
	return z[0].Square().Add(z[1].Square()).Scale(0.5)
}

func pendulumH(t float64, z []*ad.Node) *ad.Node {
	return z[1].Square().Scale(0.5).Sub(z[0].Cos())
}

func TestRK4AgainstExactOscillator(t *testing.T) {
	f := dynamics.NewHamiltonianField(2, oscillatorH)
	z0 := dynamics.FromRows([][]float64{{1, 0}, {0.2, -0.7}})

	times := []float64{0, 0.5, 1.0, 2.0}
	traj, err := Integrate(f, z0, times, Options{Method: "rk4", Dt: 1e-3})
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	for k, tv := range times {
		for b := 0; b < 2; b++ {
			q0, p0 := z0.At(b, 0), z0.At(b, 1)
			wantQ := q0*math.Cos(tv) + p0*math.Sin(tv)
			wantP := p0*math.Cos(tv) - q0*math.Sin(tv)
			if math.Abs(traj.States[k].At(b, 0)-wantQ) > 1e-9 {
				t.Errorf("t=%g batch %d: q expected %f, got %f", tv, b, wantQ, traj.States[k].At(b, 0))
			}
			if math.Abs(traj.States[k].At(b, 1)-wantP) > 1e-9 {
				t.Errorf("t=%g batch %d: p expected %f, got %f", tv, b, wantP, traj.States[k].At(b, 1))
			}
		}
	}
}

func TestDormandPrinceAgainstExactOscillator(t *testing.T) {
	f := dynamics.NewHamiltonianField(2, oscillatorH)
	z0 := dynamics.FromRows([][]float64{{1, 0}})

	traj, err := Integrate(f, z0, []float64{0, 5}, Options{Method: "dopri5", Tol: 1e-9})
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	wantQ := math.Cos(5.0)
	wantP := -math.Sin(5.0)
	if math.Abs(traj.States[1].At(0, 0)-wantQ) > 1e-6 {
		t.Errorf("q expected %f, got %f", wantQ, traj.States[1].At(0, 0))
	}
	if math.Abs(traj.States[1].At(0, 1)-wantP) > 1e-6 {
		t.Errorf("p expected %f, got %f", wantP, traj.States[1].At(0, 1))
	}
}

func TestEnergyConservation(t *testing.T) {
	f := dynamics.NewHamiltonianField(2, pendulumH)
	z0 := dynamics.FromRows([][]float64{{math.Pi / 3, 0.4}})

	times := make([]float64, 51)
	for i := range times {
		times[i] = float64(i) * 0.2
	}
	traj, err := Integrate(f, z0, times, Options{Method: "rk4", Dt: 1e-3})
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	energy := func(q, p float64) float64 { return p*p/2 - math.Cos(q) }
	e0 := energy(z0.At(0, 0), z0.At(0, 1))
	for k, s := range traj.States {
		e := energy(s.At(0, 0), s.At(0, 1))
		if math.Abs(e-e0) > 1e-8 {
			t.Errorf("t=%g: energy drifted from %f to %f", traj.Times[k], e0, e)
		}
	}
}

func TestUnstableEquilibriumStaysPut(t *testing.T) {
	f := dynamics.NewHamiltonianField(2, pendulumH)
	z0 := dynamics.FromRows([][]float64{{math.Pi, 0}})

	traj, err := Integrate(f, z0, []float64{0, 10}, Options{Method: "rk4", Dt: 1e-2})
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}
	if math.Abs(traj.States[1].At(0, 0)-math.Pi) > 1e-9 || math.Abs(traj.States[1].At(0, 1)) > 1e-9 {
		t.Errorf("left equilibrium: got (%f, %f)", traj.States[1].At(0, 0), traj.States[1].At(0, 1))
	}
}

func TestPendulumPeriod(t *testing.T) {
	// Released from rest at q = π/2 the period is 4K(sin²(π/4)) in units of
	// sqrt(l/g); K(m=1/2) = 1.854074677301372.
	period := 4 * 1.854074677301372

	f := dynamics.NewHamiltonianField(2, pendulumH)
	z0 := dynamics.FromRows([][]float64{{math.Pi / 2, 0}})

	traj, err := Integrate(f, z0, []float64{0, period}, Options{Method: "dopri5", Tol: 1e-10})
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}
	if math.Abs(traj.States[1].At(0, 0)-math.Pi/2) > 1e-5 {
		t.Errorf("q after one period: expected %f, got %f", math.Pi/2, traj.States[1].At(0, 0))
	}
	if math.Abs(traj.States[1].At(0, 1)) > 1e-5 {
		t.Errorf("p after one period: expected 0, got %f", traj.States[1].At(0, 1))
	}
}

func TestNFEAccounting(t *testing.T) {
	f := dynamics.NewHamiltonianField(2, oscillatorH)
	z0 := dynamics.FromRows([][]float64{{1, 0}})

	// Pre-load the counter; Integrate must reset it.
	if _, err := f.Eval(0, z0); err != nil {
		t.Fatalf("eval failed: %v", err)
	}

	traj, err := Integrate(f, z0, []float64{0, 1}, Options{Method: "rk4", Dt: 0.1})
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}
	if traj.Steps != 10 {
		t.Errorf("expected 10 steps, got %d", traj.Steps)
	}
	if traj.NFE != 40 {
		t.Errorf("expected 40 field evaluations, got %d", traj.NFE)
	}
}

func TestBadTimes(t *testing.T) {
	f := dynamics.NewHamiltonianField(2, oscillatorH)
	z0 := dynamics.FromRows([][]float64{{1, 0}})

	if _, err := Integrate(f, z0, nil, Options{}); !errors.Is(err, ErrBadTimes) {
		t.Errorf("expected ErrBadTimes for empty times, got %v", err)
	}
	if _, err := Integrate(f, z0, []float64{0, 1, 1}, Options{}); !errors.Is(err, ErrBadTimes) {
		t.Errorf("expected ErrBadTimes for repeated times, got %v", err)
	}
}

func TestMaxStepsExceeded(t *testing.T) {
	f := dynamics.NewHamiltonianField(2, oscillatorH)
	z0 := dynamics.FromRows([][]float64{{1, 0}})

	_, err := Integrate(f, z0, []float64{0, 1}, Options{Method: "rk4", Dt: 1e-4, MaxSteps: 10})
	if !errors.Is(err, ErrMaxSteps) {
		t.Fatalf("expected ErrMaxSteps, got %v", err)
	}
}

// blowupField drives the state to NaN immediately.
type blowupField struct{}

func (f *blowupField) Eval(t float64, z dynamics.State) (dynamics.State, error) {
	out := dynamics.NewState(z.Batch, z.Dim)
	for i := range out.Data {
		out.Data[i] = math.NaN()
	}
	return out, nil
}
func (f *blowupField) Dim() int  { return 2 }
func (f *blowupField) NFE() int  { return 0 }
func (f *blowupField) ResetNFE() {}

func TestInvalidStateDetected(t *testing.T) {
	z0 := dynamics.FromRows([][]float64{{1, 0}})
	_, err := Integrate(&blowupField{}, z0, []float64{0, 1}, Options{Method: "rk4", Dt: 0.1})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func BenchmarkRK4Oscillator(b *testing.B) {
	f := dynamics.NewHamiltonianField(2, oscillatorH)
	z0 := dynamics.FromRows([][]float64{{1, 0}})
	times := []float64{0, 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Integrate(f, z0, times, Options{Method: "rk4", Dt: 0.01}); err != nil {
			b.Fatal(err)
		}
	}
}
