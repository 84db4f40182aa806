package probe

import (
	"fmt"
	"math"

	"github.com/justapithecus/knotfold/types"
)

// Default SHAPE pseudo-energy parameters in kcal/mol.
const (
	DefaultSHAPESlope     = 1.8
	DefaultSHAPEIntercept = -0.6
)

// Options collects every probing input for one sequence.
type Options struct {
	SHAPE          *Series
	SHAPESlope     float64
	SHAPEIntercept float64

	DMS          *Series
	DMSSlope     float64
	DMSIntercept float64

	// DSHAPE is double-stranded-specific reactivity: high values favour pairing.
	DSHAPE          *Series
	DSHAPESlope     float64
	DSHAPEIntercept float64

	// Offsets are per-position energies added when a position pairs.
	Offsets []types.Energy
}

// DefaultOptions returns options with the SHAPE defaults and no data.
func DefaultOptions() Options {
	return Options{
		SHAPESlope:     DefaultSHAPESlope,
		SHAPEIntercept: DefaultSHAPEIntercept,
	}
}

// Empty reports whether no probing data is attached.
func (o Options) Empty() bool {
	return o.SHAPE == nil && o.DMS == nil && o.DSHAPE == nil && len(o.Offsets) == 0
}

// Validate rejects non-finite slopes, intercepts or reactivities and
// offsets beyond MaxOffsetKcal.
func (o Options) Validate() error {
	fail := func(detail string) error {
		return types.NewError(types.CodeInvalidProbe, "probe options", detail)
	}
	terms := []struct {
		name             string
		series           *Series
		slope, intercept float64
	}{
		{"shape", o.SHAPE, o.SHAPESlope, o.SHAPEIntercept},
		{"dms", o.DMS, o.DMSSlope, o.DMSIntercept},
		{"dshape", o.DSHAPE, o.DSHAPESlope, o.DSHAPEIntercept},
	}
	for _, t := range terms {
		if !finite(t.slope) || !finite(t.intercept) {
			return fail(fmt.Sprintf("%s slope and intercept must be finite", t.name))
		}
		if t.series == nil {
			continue
		}
		for i := 1; i <= t.series.Len(); i++ {
			if r, _ := t.series.Value(i); !finite(r) {
				return fail(fmt.Sprintf("%s reactivity at position %d is not finite", t.name, i))
			}
		}
	}
	limit := types.EnergyFromKcal(MaxOffsetKcal)
	for i, e := range o.Offsets {
		if e > limit || e < -limit {
			return fail(fmt.Sprintf("offset at position %d exceeds %g kcal/mol", i, MaxOffsetKcal))
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PairBonus returns the pseudo-energy added when 1-based position i pairs.
// Index 0 is unused. Positions without data contribute zero.
func (o Options) PairBonus(n int) []types.Energy {
	out := make([]types.Energy, n+1)
	for i := 1; i <= n; i++ {
		var kcal float64
		if r, ok := o.SHAPE.Value(i); ok {
			kcal += pseudoEnergy(r, o.SHAPESlope, o.SHAPEIntercept)
		}
		if r, ok := o.DMS.Value(i); ok {
			kcal += pseudoEnergy(r, o.DMSSlope, o.DMSIntercept)
		}
		if r, ok := o.DSHAPE.Value(i); ok {
			kcal -= pseudoEnergy(r, o.DSHAPESlope, o.DSHAPEIntercept)
		}
		out[i] = types.EnergyFromKcal(kcal)
		if i < len(o.Offsets) {
			out[i] += o.Offsets[i]
		}
	}
	return out
}

// pseudoEnergy is slope*ln(r+1)+intercept. Negative reactivities are
// clamped to zero first.
func pseudoEnergy(r, slope, intercept float64) float64 {
	if r < 0 {
		r = 0
	}
	return slope*math.Log(r+1) + intercept
}
