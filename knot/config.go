package knot

import (
	"fmt"

	"github.com/justapithecus/knotfold/types"
)

// Engine defaults.
const (
	DefaultThreshold     = 0.25
	DefaultMaxCandidates = 100
	DefaultMaxTracebacks = 1
	DefaultPercent       = 10
	DefaultParallel      = 1
)

// Config controls candidate search and refinement.
type Config struct {
	// Threshold is the relative window above the MFE for candidate cells.
	Threshold float64
	// MinHelix and MaxHelix bound candidate helix length.
	MinHelix int
	MaxHelix int
	// MaxCandidates caps the reduced candidate list.
	MaxCandidates int

	// Suboptimality passed to every constrained fold.
	MaxTracebacks int
	Percent       float64
	Window        int

	// Parallel is the number of concurrent refinement trials.
	Parallel int

	Output OutputFilter
}

// OutputFilter trims the final aggregate. Zero values disable a bound.
type OutputFilter struct {
	// MaxStructures caps the number of entries, baseline included.
	MaxStructures int
	// Percent drops entries more than Percent% above the lowest energy in
	// the aggregate.
	Percent float64
	// Window drops an entry when every pair it has lies within Window
	// nucleotides, on both sides, of a pair in an entry kept before it.
	Window int
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		MinHelix:      types.MinHelixLength,
		MaxHelix:      types.MaxHelixLength,
		MaxCandidates: DefaultMaxCandidates,
		MaxTracebacks: DefaultMaxTracebacks,
		Percent:       DefaultPercent,
		Parallel:      DefaultParallel,
	}
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return types.NewError(types.CodeConfig, "engine", fmt.Sprintf(format, args...))
	}
	switch {
	case c.Threshold < 0 || c.Threshold >= 1:
		return fail("threshold must be in [0,1), got %g", c.Threshold)
	case c.MinHelix < types.MinHelixLength:
		return fail("min helix must be >= %d, got %d", types.MinHelixLength, c.MinHelix)
	case c.MaxHelix < c.MinHelix || c.MaxHelix > types.MaxHelixLength:
		return fail("max helix must be in [%d,%d], got %d", c.MinHelix, types.MaxHelixLength, c.MaxHelix)
	case c.MaxCandidates < 0:
		return fail("max candidates must be >= 0, got %d", c.MaxCandidates)
	case c.MaxTracebacks < 1:
		return fail("max tracebacks must be >= 1, got %d", c.MaxTracebacks)
	case c.Percent < 0:
		return fail("percent must be >= 0, got %g", c.Percent)
	case c.Window < 0:
		return fail("window must be >= 0, got %d", c.Window)
	case c.Parallel < 1:
		return fail("parallel must be >= 1, got %d", c.Parallel)
	case c.Output.MaxStructures < 0 || c.Output.Percent < 0 || c.Output.Window < 0:
		return fail("output bounds must be >= 0")
	}
	return nil
}
