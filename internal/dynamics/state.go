package dynamics

import "math"

// State is a batch of system states, row-major: Batch rows of Dim values.
// By convention the first Dim/2 columns are positions and the second half
// velocities or momenta.
type State struct {
	Data  []float64
	Batch int
	Dim   int
}

// NewState allocates a zeroed batch×dim state.
func NewState(batch, dim int) State {
	return State{Data: make([]float64, batch*dim), Batch: batch, Dim: dim}
}

// FromRows builds a state from one row per batch element.
func FromRows(rows [][]float64) State {
	if len(rows) == 0 {
		return State{}
	}
	s := NewState(len(rows), len(rows[0]))
	for b, r := range rows {
		copy(s.Data[b*s.Dim:(b+1)*s.Dim], r)
	}
	return s
}

func (s State) At(b, i int) float64     { return s.Data[b*s.Dim+i] }
func (s State) Set(b, i int, v float64) { s.Data[b*s.Dim+i] = v }

// Row returns batch element b's state without copying.
func (s State) Row(b int) []float64 { return s.Data[b*s.Dim : (b+1)*s.Dim] }

// Col gathers column i across the batch.
func (s State) Col(i int) []float64 {
	out := make([]float64, s.Batch)
	for b := 0; b < s.Batch; b++ {
		out[b] = s.Data[b*s.Dim+i]
	}
	return out
}

// SetCol scatters vals into column i.
func (s State) SetCol(i int, vals []float64) {
	for b := 0; b < s.Batch; b++ {
		s.Data[b*s.Dim+i] = vals[b]
	}
}

func (s State) Clone() State {
	c := State{Data: make([]float64, len(s.Data)), Batch: s.Batch, Dim: s.Dim}
	copy(c.Data, s.Data)
	return c
}

// IsValid reports whether the state is free of NaN and Inf entries.
func (s State) IsValid() bool {
	for _, v := range s.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
