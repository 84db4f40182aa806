// Package fold is the reference Fold Service: a nearest-neighbour
// free-energy minimiser with inside and outside dynamic programming,
// suboptimal tracebacks and structure evaluation.
//
// All parameters live in an explicit Params value. Nothing is loaded into
// package state; callers build Params once and pass it to NewService.
package fold

import (
	"fmt"
	"math"

	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// Gas constant in kcal/(K·mol).
const gasConstant = 0.0019872

// loopTableSize bounds the tabulated loop initiation energies. Larger
// loops are extrapolated logarithmically from the last entry.
const loopTableSize = 31

// Params is a complete thermodynamic parameter set at one temperature.
type Params struct {
	Alphabet    rna.Alphabet
	Temperature float64 // Kelvin

	// Stacks holds stacking energies keyed "XY/ZW": 5'-XY-3' paired with
	// 3'-ZW-5', so X pairs with Z and Y with W.
	Stacks map[string]types.Energy
	// GU stacking fallbacks for keys absent from Stacks.
	GUWithGC types.Energy
	GUWithAU types.Energy
	GUWithGU types.Energy

	Hairpin  [loopTableSize]types.Energy
	Bulge    [loopTableSize]types.Energy
	Interior [loopTableSize]types.Energy

	// Asymmetry is the interior loop penalty per unit |n1-n2|, capped at MaxAsymmetry.
	Asymmetry    types.Energy
	MaxAsymmetry types.Energy
	// TerminalPenalty applies to AU, UA, GU and UG closures of loops and branches.
	TerminalPenalty types.Energy
	// HairpinMismatch is added to hairpins longer than MinHairpin.
	HairpinMismatch types.Energy

	// Multiloop: A per loop, B per unpaired nucleotide, C per branch.
	MultiA types.Energy
	MultiB types.Energy
	MultiC types.Energy

	MinHairpin int
	MaxLoop    int

	// Pseudoknot penalty P1 + P2*ln(span) in kcal/mol.
	P1 float64
	P2 float64

	AllowGU bool
}

// Default pseudoknot penalty coefficients (kcal/mol).
const (
	DefaultP1 = 0.35
	DefaultP2 = 0.65
)

// rnaStacks are Watson-Crick stacks at 37 °C (kcal/mol).
var rnaStacks = map[string]float64{
	"AA/UU": -0.93,
	"AU/UA": -1.10,
	"UA/AU": -1.33,
	"CU/GA": -2.08,
	"CA/GU": -2.11,
	"GU/CA": -2.24,
	"GA/CU": -2.35,
	"CG/GC": -2.36,
	"GG/CC": -3.26,
	"GC/CG": -3.42,
}

// dnaStacks are SantaLucia & Hicks (2004) dimer enthalpy (kcal/mol) and
// entropy (cal/K·mol) at 1 M Na+.
var dnaStacks = map[string][2]float64{
	"AA/TT": {-7.6, -21.3},
	"AT/TA": {-7.2, -20.4},
	"TA/AT": {-7.2, -21.3},
	"CA/GT": {-8.5, -22.7},
	"GT/CA": {-8.4, -22.4},
	"CT/GA": {-7.8, -21.0},
	"GA/CT": {-8.2, -22.2},
	"CG/GC": {-10.6, -27.2},
	"GC/CG": {-9.8, -24.4},
	"GG/CC": {-8.0, -19.9},
}

// Loop initiation at 37 °C (kcal/mol), indexed by loop size.
var (
	hairpin37  = map[int]float64{3: 5.4, 4: 5.6, 5: 5.7, 6: 5.4, 7: 6.0, 8: 5.5, 9: 6.4}
	bulge37    = map[int]float64{1: 3.8, 2: 2.8, 3: 3.2, 4: 3.6, 5: 4.0, 6: 4.4}
	interior37 = map[int]float64{2: 0.5, 3: 1.6, 4: 1.1, 5: 2.0, 6: 2.0}
)

// DefaultRNA returns RNA parameters at the given temperature. Stacks keep
// their 37 °C values; loop terms are entropic and scale with T.
func DefaultRNA(kelvin float64) Params {
	p := baseParams(rna.AlphabetRNA, kelvin)
	p.Stacks = make(map[string]types.Energy, len(rnaStacks))
	for k, v := range rnaStacks {
		p.Stacks[k] = types.EnergyFromKcal(v)
	}
	p.AllowGU = true
	return p
}

// DefaultDNA returns DNA parameters with stacks evaluated at the given
// temperature as dH - T*dS.
func DefaultDNA(kelvin float64) Params {
	p := baseParams(rna.AlphabetDNA, kelvin)
	p.Stacks = make(map[string]types.Energy, len(dnaStacks))
	for k, v := range dnaStacks {
		p.Stacks[k] = types.EnergyFromKcal(v[0] - kelvin*v[1]/1000)
	}
	return p
}

// ForAlphabet returns the default parameters for a backbone type.
func ForAlphabet(a rna.Alphabet, kelvin float64) Params {
	if a == rna.AlphabetDNA {
		return DefaultDNA(kelvin)
	}
	return DefaultRNA(kelvin)
}

func baseParams(a rna.Alphabet, kelvin float64) Params {
	scale := kelvin / rna.DefaultTemperature
	scaled := func(kcal float64) types.Energy { return types.EnergyFromKcal(kcal * scale) }

	p := Params{
		Alphabet:        a,
		Temperature:     kelvin,
		GUWithGC:        types.EnergyFromKcal(-1.4),
		GUWithAU:        types.EnergyFromKcal(-0.6),
		GUWithGU:        types.EnergyFromKcal(-0.5),
		Asymmetry:       scaled(0.6),
		MaxAsymmetry:    scaled(3.0),
		TerminalPenalty: types.EnergyFromKcal(0.5),
		HairpinMismatch: types.EnergyFromKcal(-0.8),
		MultiA:          scaled(3.4),
		MultiB:          0,
		MultiC:          scaled(0.4),
		MinHairpin:      3,
		MaxLoop:         30,
		P1:              DefaultP1,
		P2:              DefaultP2,
	}
	fillLoopTable(&p.Hairpin, hairpin37, scale, kelvin)
	fillLoopTable(&p.Bulge, bulge37, scale, kelvin)
	fillLoopTable(&p.Interior, interior37, scale, kelvin)
	return p
}

// fillLoopTable copies known sizes and extrapolates the rest from the
// largest known size with 1.75*RT*ln(n/n0). Sizes below the smallest
// known one are impossible.
func fillLoopTable(dst *[loopTableSize]types.Energy, known map[int]float64, scale, kelvin float64) {
	lo, hi := loopTableSize, 0
	for n := range known {
		lo = min(lo, n)
		hi = max(hi, n)
	}
	for n := range dst {
		switch {
		case n < lo:
			dst[n] = types.Infinite
		case n <= hi:
			dst[n] = types.EnergyFromKcal(known[n] * scale)
		default:
			dst[n] = types.EnergyFromKcal(known[hi]*scale + 1.75*gasConstant*kelvin*math.Log(float64(n)/float64(hi)))
		}
	}
}

// loopEnergy looks up a loop table, extrapolating past its end.
func (p *Params) loopEnergy(table *[loopTableSize]types.Energy, n int) types.Energy {
	if n < loopTableSize {
		return table[n]
	}
	last := loopTableSize - 1
	return table[last] + types.EnergyFromKcal(1.75*gasConstant*p.Temperature*math.Log(float64(n)/float64(last)))
}

// PseudoknotPenalty is P1 + P2*ln(span) for a crossing helix spanning span nt.
func (p *Params) PseudoknotPenalty(span int) types.Energy {
	if span < 1 {
		span = 1
	}
	return types.EnergyFromKcal(p.P1 + p.P2*math.Log(float64(span)))
}

// Validate checks that the parameter set is usable.
func (p *Params) Validate() error {
	switch {
	case p.Temperature <= 0:
		return types.NewError(types.CodeConfig, "fold params", fmt.Sprintf("temperature must be > 0 K, got %g", p.Temperature))
	case len(p.Stacks) == 0:
		return types.NewError(types.CodeConfig, "fold params", "stack table is empty")
	case p.MinHairpin < 0:
		return types.NewError(types.CodeConfig, "fold params", "min hairpin must be >= 0")
	case p.MaxLoop < 1:
		return types.NewError(types.CodeConfig, "fold params", "max loop must be >= 1")
	case p.P1 < 0 || p.P2 < 0:
		return types.NewError(types.CodeConfig, "fold params", "pseudoknot penalties must be >= 0")
	}
	return nil
}
