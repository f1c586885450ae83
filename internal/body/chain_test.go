package body

import (
	"math"
	"math/rand"
	"testing"

	"github.com/benjuntilla/rigidsim/internal/ad"
	"github.com/benjuntilla/rigidsim/internal/dynamics"
	"github.com/benjuntilla/rigidsim/internal/solver"
)

func TestBeamChainMassMatrix(t *testing.T) {
	c := NewChainPendulum(2, true, 1, 1)
	m := c.M()
	want := [2][2]float64{
		{1 + 0.25 + 1.0/12, 0.25 - 1.0/12},
		{0.25 - 1.0/12, 0.25 + 1.0/12},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got := m.At(i, j); math.Abs(got-want[i][j]) > 1e-15 {
				t.Errorf("M[%d][%d] = %v, want %v", i, j, got, want[i][j])
			}
		}
	}
}

func TestPointMassChainMassMatrix(t *testing.T) {
	c := NewChainPendulum(3, false, 2, 1)
	m := c.M()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 2
			}
			if got := m.At(i, j); got != want {
				t.Errorf("M[%d][%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestMassMatrixCached(t *testing.T) {
	c := NewChainPendulum(2, true, 1, 1)
	if c.M() != c.M() {
		t.Error("repeated M() calls should return the cached matrix")
	}
	m1, err := c.Minv()
	if err != nil {
		t.Fatal(err)
	}
	m2, err := c.Minv()
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 {
		t.Error("repeated Minv() calls should return the cached matrix")
	}
	before := c.M()
	c.AddNode(Node{Mass: 1, HasMass: true})
	if c.M() == before {
		t.Error("AddNode should invalidate the mass matrix cache")
	}
}

func TestSingularMassMatrix(t *testing.T) {
	g := NewGraph(2)
	g.AddNode(Node{Tether: []float64{0, 0}, Length: 1}) // massless
	if _, err := g.Minv(); err == nil {
		t.Fatal("expected singular mass matrix error")
	}
}

func TestDPhiShapeAndOrdering(t *testing.T) {
	c := NewChainPendulum(2, false, 1, 1)
	z := c.FromAngles([][]float64{{0.3, 0.9}}, [][]float64{{0, 0}})
	zp := c.VelocityToMomentum(z)

	dphis, err := c.DPhi(zp)
	if err != nil {
		t.Fatal(err)
	}
	if len(dphis) != 1 {
		t.Fatalf("got %d jacobians, want 1", len(dphis))
	}
	r, cc := dphis[0].Dims()
	if r != 8 || cc != 4 {
		t.Fatalf("DPhi dims = %dx%d, want 8x4", r, cc)
	}

	// Columns are edge constraints first, then tethers. The edge (0,1)
	// gradient rows are 2(x0-x1) on node 0 and the negation on node 1;
	// the tether columns touch only node 0.
	x := z.Row(0)[:4]
	for dd := 0; dd < 2; dd++ {
		want := 2 * (x[dd] - x[2+dd])
		if got := dphis[0].At(dd, 0); math.Abs(got-want) > 1e-12 {
			t.Errorf("edge column row %d = %v, want %v", dd, got, want)
		}
		if got := dphis[0].At(2+dd, 0); math.Abs(got+want) > 1e-12 {
			t.Errorf("edge column row %d = %v, want %v", 2+dd, got, -want)
		}
		if got := dphis[0].At(2+dd, 1); got != 0 {
			t.Errorf("tether column should not touch node 1, got %v", got)
		}
		wantT := 2 * x[dd]
		if got := dphis[0].At(dd, 1); math.Abs(got-wantT) > 1e-12 {
			t.Errorf("tether column row %d = %v, want %v", dd, got, wantT)
		}
	}
}

func TestFreeBodyHasNoConstraints(t *testing.T) {
	g := NewGraph(2)
	g.AddNode(Node{Mass: 1, HasMass: true})
	z := dynamics.FromRows([][]float64{{0, 0, 1, 1}})
	dphis, err := g.DPhi(z)
	if err != nil {
		t.Fatal(err)
	}
	if dphis != nil {
		t.Fatal("free body should report no constraint jacobian")
	}
}

func TestFromAnglesSatisfiesConstraints(t *testing.T) {
	c := NewChainPendulum(3, false, 1, 0.7)
	rng := rand.New(rand.NewSource(5))
	z := c.SampleInitialConditions(rng, 8)
	for b, v := range c.MaxConstraintViolation(z) {
		if v > 1e-12 {
			t.Errorf("batch %d: constraint violation %v", b, v)
		}
	}
}

func TestVelocityMomentumRoundTrip(t *testing.T) {
	c := NewChainPendulum(2, true, 1.5, 1)
	rng := rand.New(rand.NewSource(2))
	z := c.SampleInitialConditions(rng, 3)
	zp := c.VelocityToMomentum(z)
	back, err := c.MomentumToVelocity(zp)
	if err != nil {
		t.Fatal(err)
	}
	for i := range z.Data {
		if math.Abs(z.Data[i]-back.Data[i]) > 1e-12 {
			t.Fatalf("round trip mismatch at %d: %v vs %v", i, z.Data[i], back.Data[i])
		}
	}
}

// The (x, v) Lagrangian parameterization and the canonical (x, p) field
// describe the same dynamics; with the constant mass matrix, mapping the
// canonical derivative's momentum block through Minv must reproduce the
// velocity-form derivative exactly.
func TestVelocityFormulationMatchesCanonical(t *testing.T) {
	c := NewChainPendulum(2, false, 1, 1)
	zv := c.FromAngles([][]float64{{0.7, -0.3}}, [][]float64{{0.4, 0.1}})

	xv, err := c.FieldXV()
	if err != nil {
		t.Fatal(err)
	}
	dzv, err := xv.Eval(0, zv)
	if err != nil {
		t.Fatalf("velocity-form eval failed: %v", err)
	}

	h, err := c.Field()
	if err != nil {
		t.Fatal(err)
	}
	dzp, err := h.Eval(0, c.VelocityToMomentum(zv))
	if err != nil {
		t.Fatalf("canonical eval failed: %v", err)
	}
	want, err := c.MomentumToVelocity(dzp)
	if err != nil {
		t.Fatal(err)
	}

	for i := range want.Data {
		if math.Abs(dzv.Data[i]-want.Data[i]) > 1e-10 {
			t.Errorf("index %d: velocity form %v, canonical %v", i, dzv.Data[i], want.Data[i])
		}
	}
}

func TestChainEnergyAndConstraintConservation(t *testing.T) {
	c := NewChainPendulum(2, false, 1, 1)
	z0 := c.FromAngles([][]float64{{0.8, -0.4}}, [][]float64{{0.2, 0}})

	times := make([]float64, 11)
	for i := range times {
		times[i] = float64(i) * 0.2
	}
	traj, err := c.Integrate(z0, times, solver.Options{Method: "dopri5", Tol: 1e-10})
	if err != nil {
		t.Fatal(err)
	}

	e0, err := c.Energy(c.VelocityToMomentum(traj.States[0]))
	if err != nil {
		t.Fatal(err)
	}
	for k, zt := range traj.States {
		et, err := c.Energy(c.VelocityToMomentum(zt))
		if err != nil {
			t.Fatal(err)
		}
		if drift := math.Abs(et[0] - e0[0]); drift > 1e-6 {
			t.Errorf("t=%v: energy drift %v", traj.Times[k], drift)
		}
		if v := c.MaxConstraintViolation(zt)[0]; v > 1e-6 {
			t.Errorf("t=%v: constraint violation %v", traj.Times[k], v)
		}
	}
}

// A single tethered link must reproduce the plain angular pendulum
// H = p²/2 - cos θ embedded as x = (sin θ, -cos θ).
func TestSingleLinkMatchesAngularPendulum(t *testing.T) {
	angular := dynamics.NewHamiltonianField(2, func(tt float64, z []*ad.Node) *ad.Node {
		return z[1].Square().Scale(0.5).Sub(z[0].Cos())
	})

	theta0 := 1.1
	times := []float64{0, 0.5, 1, 1.5, 2}
	opts := solver.Options{Method: "dopri5", Tol: 1e-10}

	ref, err := solver.Integrate(angular, dynamics.FromRows([][]float64{{theta0, 0}}), times, opts)
	if err != nil {
		t.Fatal(err)
	}

	c := NewChainPendulum(1, false, 1, 1)
	traj, err := c.Integrate(c.FromAngles([][]float64{{theta0}}, [][]float64{{0}}), times, opts)
	if err != nil {
		t.Fatal(err)
	}

	for k := range times {
		th := ref.States[k].At(0, 0)
		wx, wy := math.Sin(th), -math.Cos(th)
		gx, gy := traj.States[k].At(0, 0), traj.States[k].At(0, 1)
		if math.Abs(gx-wx) > 1e-5 || math.Abs(gy-wy) > 1e-5 {
			t.Errorf("t=%v: position (%v, %v), want (%v, %v)", times[k], gx, gy, wx, wy)
		}
	}
}

func TestEnergyShapeError(t *testing.T) {
	c := NewChainPendulum(2, false, 1, 1)
	if _, err := c.Energy(dynamics.FromRows([][]float64{{1, 2, 3}})); err == nil {
		t.Fatal("expected shape error")
	}
}
