package sim

import (
	"context"
	"sync"

	"github.com/benjuntilla/rigidsim/internal/dynamics"
)

// Ensemble runs one simulation per initial condition, concurrently. Fields
// carry evaluation counters and metrics carry running state, so each run
// gets its own Simulator from the factory.
type Ensemble struct {
	factory func() (*Simulator, error)
}

func NewEnsemble(factory func() (*Simulator, error)) *Ensemble {
	return &Ensemble{factory: factory}
}

// Run integrates each initial state over the same time grid. The first
// error encountered is returned; results for the other runs are discarded.
func (e *Ensemble) Run(ctx context.Context, z0s []dynamics.State, times []float64) ([]*Result, error) {
	results := make([]*Result, len(z0s))
	errs := make([]error, len(z0s))

	var wg sync.WaitGroup
	for i := range z0s {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			s, err := e.factory()
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = s.Run(ctx, z0s[idx], times)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
