// Package types defines core value types shared by the knotfold engine,
// its fold service and its persistence layers.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"math"
)

// Energy is a free energy in deci-kcal/mol (10 == 1 kcal/mol).
// Integer units keep folding and aggregation bit-identical across runs.
type Energy int32

// Infinite marks an unreachable matrix cell or an impossible structure.
const Infinite Energy = math.MaxInt32 / 4

// EnergyFromKcal rounds a kcal/mol value to the nearest deci-kcal.
func EnergyFromKcal(kcal float64) Energy {
	return Energy(math.Round(kcal * 10))
}

// Kcal returns the energy in kcal/mol.
func (e Energy) Kcal() float64 {
	return float64(e) / 10
}

// IsInfinite reports whether e is at or beyond the Infinite sentinel.
func (e Energy) IsInfinite() bool {
	return e >= Infinite
}

// String formats the energy in kcal/mol with one decimal.
func (e Energy) String() string {
	if e.IsInfinite() {
		return "inf"
	}
	return fmt.Sprintf("%.1f", e.Kcal())
}

// Add returns e+o, saturating at Infinite.
func (e Energy) Add(o Energy) Energy {
	if e.IsInfinite() || o.IsInfinite() {
		return Infinite
	}
	return e + o
}
