package knot

import (
	"errors"
	"testing"

	"github.com/justapithecus/knotfold/types"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "threshold negative", mutate: func(c *Config) { c.Threshold = -0.1 }, wantErr: true},
		{name: "threshold one", mutate: func(c *Config) { c.Threshold = 1 }, wantErr: true},
		{name: "min helix one", mutate: func(c *Config) { c.MinHelix = 1 }, wantErr: true},
		{name: "max helix eleven", mutate: func(c *Config) { c.MaxHelix = 11 }, wantErr: true},
		{name: "max below min", mutate: func(c *Config) { c.MinHelix = 5; c.MaxHelix = 4 }, wantErr: true},
		{name: "zero tracebacks", mutate: func(c *Config) { c.MaxTracebacks = 0 }, wantErr: true},
		{name: "zero parallel", mutate: func(c *Config) { c.Parallel = 0 }, wantErr: true},
		{name: "negative window", mutate: func(c *Config) { c.Window = -1 }, wantErr: true},
		{name: "negative output", mutate: func(c *Config) { c.Output.MaxStructures = -1 }, wantErr: true},
		{name: "uncapped candidates", mutate: func(c *Config) { c.MaxCandidates = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, types.ErrConfig) {
					t.Errorf("Validate() = %v, want config error", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
