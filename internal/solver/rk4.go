package solver

import "github.com/benjuntilla/rigidsim/internal/dynamics"

// RK4 is the classic fourth-order Runge-Kutta stepper.
type RK4 struct {
	scratch dynamics.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(batch, dim int) {
	if len(r.scratch.Data) != batch*dim {
		r.scratch = dynamics.NewState(batch, dim)
	}
}

// Step advances z from t by h.
func (r *RK4) Step(f dynamics.Field, z dynamics.State, t, h float64) (dynamics.State, error) {
	r.ensureScratch(z.Batch, z.Dim)

	k1, err := f.Eval(t, z)
	if err != nil {
		return dynamics.State{}, err
	}

	axpyInto(r.scratch, z, k1, h*0.5)
	k2, err := f.Eval(t+h*0.5, r.scratch)
	if err != nil {
		return dynamics.State{}, err
	}

	axpyInto(r.scratch, z, k2, h*0.5)
	k3, err := f.Eval(t+h*0.5, r.scratch)
	if err != nil {
		return dynamics.State{}, err
	}

	axpyInto(r.scratch, z, k3, h)
	k4, err := f.Eval(t+h, r.scratch)
	if err != nil {
		return dynamics.State{}, err
	}

	out := dynamics.NewState(z.Batch, z.Dim)
	h6 := h / 6.0
	for i := range out.Data {
		out.Data[i] = z.Data[i] + h6*(k1.Data[i]+2*k2.Data[i]+2*k3.Data[i]+k4.Data[i])
	}
	return out, nil
}

// axpyInto writes z + c*k into dst.
func axpyInto(dst, z, k dynamics.State, c float64) {
	for i := range dst.Data {
		dst.Data[i] = z.Data[i] + c*k.Data[i]
	}
}
