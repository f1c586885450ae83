package solver

import (
	"math"

	"github.com/benjuntilla/rigidsim/internal/dynamics"
)

// Dormand-Prince 4(5) coefficients.
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// DormandPrince is the adaptive 4(5) embedded pair with step rejection.
type DormandPrince struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewDormandPrince() *DormandPrince {
	return &DormandPrince{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// attempt takes one trial step of size h and returns the fifth-order result
// together with the scaled error estimate (error relative to per-component
// scale, max over batch and components).
func (r *DormandPrince) attempt(f dynamics.Field, z dynamics.State, t, h float64) (dynamics.State, float64, error) {
	stage := dynamics.NewState(z.Batch, z.Dim)

	k1, err := f.Eval(t, z)
	if err != nil {
		return dynamics.State{}, 0, err
	}

	for i := range stage.Data {
		stage.Data[i] = z.Data[i] + h*b21*k1.Data[i]
	}
	k2, err := f.Eval(t+a2*h, stage)
	if err != nil {
		return dynamics.State{}, 0, err
	}

	for i := range stage.Data {
		stage.Data[i] = z.Data[i] + h*(b31*k1.Data[i]+b32*k2.Data[i])
	}
	k3, err := f.Eval(t+a3*h, stage)
	if err != nil {
		return dynamics.State{}, 0, err
	}

	for i := range stage.Data {
		stage.Data[i] = z.Data[i] + h*(b41*k1.Data[i]+b42*k2.Data[i]+b43*k3.Data[i])
	}
	k4, err := f.Eval(t+a4*h, stage)
	if err != nil {
		return dynamics.State{}, 0, err
	}

	for i := range stage.Data {
		stage.Data[i] = z.Data[i] + h*(b51*k1.Data[i]+b52*k2.Data[i]+b53*k3.Data[i]+b54*k4.Data[i])
	}
	k5, err := f.Eval(t+a5*h, stage)
	if err != nil {
		return dynamics.State{}, 0, err
	}

	for i := range stage.Data {
		stage.Data[i] = z.Data[i] + h*(b61*k1.Data[i]+b62*k2.Data[i]+b63*k3.Data[i]+b64*k4.Data[i]+b65*k5.Data[i])
	}
	k6, err := f.Eval(t+h, stage)
	if err != nil {
		return dynamics.State{}, 0, err
	}

	zNew := dynamics.NewState(z.Batch, z.Dim)
	for i := range zNew.Data {
		zNew.Data[i] = z.Data[i] + h*(c1*k1.Data[i]+c3*k3.Data[i]+c4*k4.Data[i]+c5*k5.Data[i]+c6*k6.Data[i])
	}

	k7, err := f.Eval(t+h, zNew)
	if err != nil {
		return dynamics.State{}, 0, err
	}

	errMax := 0.0
	for i := range zNew.Data {
		errEst := h * (dc1*k1.Data[i] + dc3*k3.Data[i] + dc4*k4.Data[i] + dc5*k5.Data[i] + dc6*k6.Data[i] + dc7*k7.Data[i])
		scale := math.Abs(z.Data[i]) + math.Abs(h*k1.Data[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	return zNew, errMax, nil
}

// nextStep proposes the next step size from the error ratio of the last
// attempt.
func (r *DormandPrince) nextStep(h, errRatio float64) float64 {
	if errRatio > 1 {
		return h * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	}
	if errRatio > 0 {
		return h * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	}
	return h * r.maxScale
}
