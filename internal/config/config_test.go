package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Body.Links != 2 {
		t.Errorf("expected 2 links, got %d", cfg.Body.Links)
	}
	if cfg.Solver.Dt <= 0 {
		t.Error("dt should be positive")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero links", func(c *Config) { c.Body.Links = 0 }},
		{"negative mass", func(c *Config) { c.Body.Mass = -1 }},
		{"negative gravity", func(c *Config) { c.Body.Gravity = -9.8 }},
		{"unknown method", func(c *Config) { c.Solver.Method = "euler" }},
		{"zero duration", func(c *Config) { c.Run.Duration = 0 }},
		{"one sample", func(c *Config) { c.Run.Samples = 1 }},
		{"angle count mismatch", func(c *Config) { c.Init.Angles = []float64{1} }},
		{"zero batch", func(c *Config) { c.Init.Angles = nil; c.Init.Batch = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestZeroGravityKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Body.Gravity = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero gravity should be valid: %v", err)
	}
	if g := cfg.Chain().Gravity; g != 0 {
		t.Errorf("configured gravity 0 became %g", g)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	cfg := DefaultConfig()
	cfg.Body.Links = 3
	cfg.Init.Angles = []float64{0.1, 0.2, 0.3}
	cfg.Solver.Method = "dopri5"

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Body.Links != 3 || got.Solver.Method != "dopri5" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if len(got.Init.Angles) != 3 || got.Init.Angles[2] != 0.3 {
		t.Errorf("round trip lost angles: %v", got.Init.Angles)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("pendulum")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Body.Links != 1 {
		t.Errorf("expected 1 link, got %d", cfg.Body.Links)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset invalid: %v", err)
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestAllPresetsValid(t *testing.T) {
	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestTimes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run.Duration = 2
	cfg.Run.Samples = 5
	ts := cfg.Times()
	if len(ts) != 5 || ts[0] != 0 || ts[4] != 2 {
		t.Errorf("unexpected time grid %v", ts)
	}
}

func TestInitialState(t *testing.T) {
	cfg := DefaultConfig()
	chain := cfg.Chain()

	z := cfg.InitialState(chain)
	if z.Batch != 1 || z.Dim != chain.StateDim() {
		t.Errorf("explicit init: got %dx%d", z.Batch, z.Dim)
	}

	cfg.Init.Angles = nil
	cfg.Init.Batch = 4
	z = cfg.InitialState(chain)
	if z.Batch != 4 {
		t.Errorf("sampled init: got batch %d, want 4", z.Batch)
	}
	for _, v := range chain.MaxConstraintViolation(z) {
		if v > 1e-12 {
			t.Errorf("sampled init violates constraints: %v", v)
		}
	}
}
