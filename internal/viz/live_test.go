package viz

import (
	"strings"
	"testing"
	"time"

	"github.com/benjuntilla/rigidsim/internal/body"
	"github.com/benjuntilla/rigidsim/internal/solver"
)

func TestModelStepAndView(t *testing.T) {
	chain := body.NewChainPendulum(1, false, 1, 1)
	z0 := chain.FromAngles([][]float64{{1.0}}, [][]float64{{0}})

	m, err := NewModel(chain, z0, solver.Options{Method: "rk4", Dt: 0.01})
	if err != nil {
		t.Fatal(err)
	}

	next, _ := m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if m.t == 0 {
		t.Error("tick should advance simulation time")
	}

	view := m.View()
	if !strings.Contains(view, "RUNNING") {
		t.Error("view should show run status")
	}
	if !strings.Contains(view, "1-link chain") {
		t.Error("view should name the system")
	}
}

func TestModelBatchRejected(t *testing.T) {
	chain := body.NewChainPendulum(1, false, 1, 1)
	z0 := chain.FromAngles([][]float64{{1.0}, {0.5}}, [][]float64{{0}, {0}})
	if _, err := NewModel(chain, z0, solver.Options{Method: "rk4", Dt: 0.01}); err == nil {
		t.Fatal("expected batch rejection")
	}
}
