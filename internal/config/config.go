package config

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/benjuntilla/rigidsim/internal/body"
	"github.com/benjuntilla/rigidsim/internal/dynamics"
	"github.com/benjuntilla/rigidsim/internal/solver"
)

const (
	DefaultLinks    = 2
	DefaultMass     = 1.0
	DefaultLength   = 1.0
	DefaultGravity  = 1.0
	DefaultDt       = 0.01
	DefaultTol      = 1e-8
	DefaultDuration = 10.0
	DefaultSamples  = 100
)

type Config struct {
	Body   BodyConfig   `yaml:"body"`
	Solver SolverConfig `yaml:"solver"`
	Run    RunConfig    `yaml:"run"`
	Init   InitConfig   `yaml:"init"`
}

type BodyConfig struct {
	Links   int     `yaml:"links"`
	Beams   bool    `yaml:"beams"`
	Mass    float64 `yaml:"mass"`
	Length  float64 `yaml:"length"`
	Gravity float64 `yaml:"gravity"`
}

type SolverConfig struct {
	Method   string  `yaml:"method"`
	Dt       float64 `yaml:"dt"`
	Tol      float64 `yaml:"tol"`
	MaxSteps int     `yaml:"max_steps"`
}

type RunConfig struct {
	Duration float64 `yaml:"duration"`
	Samples  int     `yaml:"samples"`
}

// InitConfig selects the initial condition: explicit per-link angles when
// given, otherwise seeded random sampling of batch systems.
type InitConfig struct {
	Angles []float64 `yaml:"angles"`
	Omegas []float64 `yaml:"omegas"`
	Seed   int64     `yaml:"seed"`
	Batch  int       `yaml:"batch"`
}

func DefaultConfig() *Config {
	return &Config{
		Body: BodyConfig{
			Links:   DefaultLinks,
			Mass:    DefaultMass,
			Length:  DefaultLength,
			Gravity: DefaultGravity,
		},
		Solver: SolverConfig{
			Method: "rk4",
			Dt:     DefaultDt,
			Tol:    DefaultTol,
		},
		Run: RunConfig{
			Duration: DefaultDuration,
			Samples:  DefaultSamples,
		},
		Init: InitConfig{
			Angles: []float64{2.0, 2.0},
			Batch:  1,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Body.Links < 1 {
		return fmt.Errorf("config: links must be at least 1, got %d", c.Body.Links)
	}
	if c.Body.Mass <= 0 || c.Body.Length <= 0 {
		return fmt.Errorf("config: mass and length must be positive, got %g and %g", c.Body.Mass, c.Body.Length)
	}
	if c.Body.Gravity < 0 {
		return fmt.Errorf("config: gravity must not be negative, got %g", c.Body.Gravity)
	}
	if c.Solver.Method != "rk4" && c.Solver.Method != "dopri5" {
		return fmt.Errorf("config: unknown method %q", c.Solver.Method)
	}
	if c.Run.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Run.Duration)
	}
	if c.Run.Samples < 2 {
		return fmt.Errorf("config: samples must be at least 2, got %d", c.Run.Samples)
	}
	if len(c.Init.Angles) > 0 && len(c.Init.Angles) != c.Body.Links {
		return fmt.Errorf("config: %d angles for %d links", len(c.Init.Angles), c.Body.Links)
	}
	if len(c.Init.Omegas) > 0 && len(c.Init.Omegas) != c.Body.Links {
		return fmt.Errorf("config: %d omegas for %d links", len(c.Init.Omegas), c.Body.Links)
	}
	if len(c.Init.Angles) == 0 && c.Init.Batch < 1 {
		return fmt.Errorf("config: batch must be at least 1, got %d", c.Init.Batch)
	}
	return nil
}

// Chain builds the configured pendulum. Gravity is taken as configured;
// zero means a free chain.
func (c *Config) Chain() *body.ChainPendulum {
	chain := body.NewChainPendulum(c.Body.Links, c.Body.Beams, c.Body.Mass, c.Body.Length)
	chain.Gravity = c.Body.Gravity
	return chain
}

// InitialState embeds the configured initial condition into (x, v) phase
// space.
func (c *Config) InitialState(chain *body.ChainPendulum) dynamics.State {
	if len(c.Init.Angles) > 0 {
		omegas := c.Init.Omegas
		if len(omegas) == 0 {
			omegas = make([]float64, c.Body.Links)
		}
		return chain.FromAngles([][]float64{c.Init.Angles}, [][]float64{omegas})
	}
	rng := rand.New(rand.NewSource(c.Init.Seed))
	return chain.SampleInitialConditions(rng, c.Init.Batch)
}

// SolverOptions translates the solver section.
func (c *Config) SolverOptions() solver.Options {
	return solver.Options{
		Method:   c.Solver.Method,
		Dt:       c.Solver.Dt,
		Tol:      c.Solver.Tol,
		MaxSteps: c.Solver.MaxSteps,
	}
}

// Times returns the uniform sample grid for the run.
func (c *Config) Times() []float64 {
	n := c.Run.Samples
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = c.Run.Duration * float64(i) / float64(n-1)
	}
	return ts
}
