package types

import (
	"errors"
	"fmt"
	"sort"
)

// Helix length bounds for pseudoknot candidates.
const (
	MinHelixLength = 2
	MaxHelixLength = 10
)

// Helix is a contiguous run of stacked base pairs.
// Positions are 1-based and inclusive. The 5' strand IStart..IEnd pairs
// antiparallel with the 3' strand JStart..JEnd: IStart+k pairs with JEnd-k.
//
// Energy is the total structure energy implied at the cell the helix was
// seeded from. Helices decomposed from a finished structure carry zero.
type Helix struct {
	IStart int    `json:"i_start" msgpack:"i_start"`
	IEnd   int    `json:"i_end" msgpack:"i_end"`
	JStart int    `json:"j_start" msgpack:"j_start"`
	JEnd   int    `json:"j_end" msgpack:"j_end"`
	Length int    `json:"length" msgpack:"length"`
	Energy Energy `json:"energy" msgpack:"energy"`
}

// NewHelix builds a helix of the given length whose outermost pair is (i, j).
func NewHelix(i, j, length int, energy Energy) Helix {
	return Helix{
		IStart: i,
		IEnd:   i + length - 1,
		JStart: j - length + 1,
		JEnd:   j,
		Length: length,
		Energy: energy,
	}
}

// Validate checks the strand ordering and length invariants:
//   - IStart <= IEnd < JStart <= JEnd
//   - both strands span Length nucleotides
//   - MinHelixLength <= Length <= MaxHelixLength
func (h Helix) Validate() error {
	if h.IStart < 1 {
		return fmt.Errorf("helix start must be >= 1, got %d", h.IStart)
	}
	if h.IStart > h.IEnd || h.IEnd >= h.JStart || h.JStart > h.JEnd {
		return fmt.Errorf("helix strands out of order: %d-%d / %d-%d", h.IStart, h.IEnd, h.JStart, h.JEnd)
	}
	if h.IEnd-h.IStart+1 != h.Length || h.JEnd-h.JStart+1 != h.Length {
		return errors.New("helix strand spans do not match length")
	}
	if h.Length < MinHelixLength || h.Length > MaxHelixLength {
		return fmt.Errorf("helix length %d outside [%d,%d]", h.Length, MinHelixLength, MaxHelixLength)
	}
	return nil
}

// Pairs returns the helix base pairs from the outermost inward.
func (h Helix) Pairs() [][2]int {
	out := make([][2]int, h.Length)
	for k := range h.Length {
		out[k] = [2]int{h.IStart + k, h.JEnd - k}
	}
	return out
}

// Positions returns every nucleotide covered by either strand, ascending.
func (h Helix) Positions() []int {
	out := make([]int, 0, 2*h.Length)
	for p := h.IStart; p <= h.IEnd; p++ {
		out = append(out, p)
	}
	for p := h.JStart; p <= h.JEnd; p++ {
		out = append(out, p)
	}
	return out
}

// Span is the number of nucleotides from IStart to JEnd inclusive.
func (h Helix) Span() int {
	return h.JEnd - h.IStart + 1
}

// Crosses reports whether h and o interleave: iA < iB < jA < jB or the mirror.
// i is a helix's 5'-most position and j its 3'-most.
func (h Helix) Crosses(o Helix) bool {
	iA, jA := h.IStart, h.JEnd
	iB, jB := o.IStart, o.JEnd
	return (iA < iB && iB < jA && jA < jB) || (iB < iA && iA < jB && jB < jA)
}

// SameStrands reports whether h and o cover the same base pairs.
func (h Helix) SameStrands(o Helix) bool {
	return h.IStart == o.IStart && h.IEnd == o.IEnd && h.JStart == o.JStart && h.JEnd == o.JEnd
}

// String formats the helix as "i-i'/j-j' (len)".
func (h Helix) String() string {
	return fmt.Sprintf("%d-%d/%d-%d (%d)", h.IStart, h.IEnd, h.JStart, h.JEnd, h.Length)
}

// HelixList is an ordered helix sequence. Order is significant: it fixes
// tie-breaking during reduction and refinement.
type HelixList []Helix

// SortByEnergy returns a copy sorted by ascending energy. The sort is stable,
// so equal energies keep their original (discovery) order.
func (l HelixList) SortByEnergy() HelixList {
	out := make(HelixList, len(l))
	copy(out, l)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Energy < out[b].Energy
	})
	return out
}
