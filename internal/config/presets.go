package config

import "sort"

var Presets = map[string]*Config{
	"pendulum": {
		Body:   BodyConfig{Links: 1, Mass: 1, Length: 1, Gravity: 1},
		Solver: SolverConfig{Method: "dopri5", Dt: 0.01, Tol: 1e-9},
		Run:    RunConfig{Duration: 20.0, Samples: 200},
		Init:   InitConfig{Angles: []float64{2.0}},
	},
	"double": {
		Body:   BodyConfig{Links: 2, Mass: 1, Length: 1, Gravity: 1},
		Solver: SolverConfig{Method: "dopri5", Dt: 0.005, Tol: 1e-9},
		Run:    RunConfig{Duration: 30.0, Samples: 300},
		Init:   InitConfig{Angles: []float64{2.5, 2.5}},
	},
	"beams": {
		Body:   BodyConfig{Links: 3, Beams: true, Mass: 1, Length: 1, Gravity: 1},
		Solver: SolverConfig{Method: "dopri5", Dt: 0.005, Tol: 1e-9},
		Run:    RunConfig{Duration: 30.0, Samples: 300},
		Init:   InitConfig{Angles: []float64{1.5, 1.5, 1.5}},
	},
	"ensemble": {
		Body:   BodyConfig{Links: 2, Mass: 1, Length: 1, Gravity: 1},
		Solver: SolverConfig{Method: "rk4", Dt: 0.01},
		Run:    RunConfig{Duration: 10.0, Samples: 100},
		Init:   InitConfig{Seed: 1, Batch: 16},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
