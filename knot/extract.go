package knot

import (
	"math"

	"github.com/justapithecus/knotfold/types"
)

// minHairpin is the smallest hairpin a candidate helix may close.
const minHairpin = 3

// Extract scans the total-energy matrix for stacked runs whose best
// containing structure lies within cfg.Threshold of e0.
//
// Cells are visited with i ascending and j descending. A run starts at a
// cell whose outer diagonal neighbour is outside the threshold or carries
// a different total, and extends inward while the total is unchanged.
// Runs longer than cfg.MaxHelix are discarded. The result is in discovery
// order and each helix carries the seed cell's total energy.
func Extract(m EnergyMatrix, e0 types.Energy, cfg Config) types.HelixList {
	if e0 >= 0 || m == nil {
		return nil
	}
	w := newWindow(m, e0, cfg.Threshold)
	n := m.Len()

	var out types.HelixList
	for i := 1; i <= n; i++ {
		for j := n; j > i+minHairpin; j-- {
			seed, ok := w.within(i, j)
			if !ok {
				continue
			}
			if outer, ok := w.within(i-1, j+1); ok && outer == seed {
				continue
			}
			length := w.run(i, j, seed, cfg.MaxHelix)
			if length >= cfg.MinHelix && length <= cfg.MaxHelix {
				out = append(out, types.NewHelix(i, j, length, seed))
			}
		}
	}
	return out
}

// window applies the threshold test in integer arithmetic.
type window struct {
	m     EnergyMatrix
	n     int
	limit int64 // E0 * (100 - pct)
}

func newWindow(m EnergyMatrix, e0 types.Energy, threshold float64) window {
	pct := int64(math.Round(threshold * 100))
	return window{m: m, n: m.Len(), limit: int64(e0) * (100 - pct)}
}

// within returns the total at (i, j) when it exists and is inside the window.
func (w window) within(i, j int) (types.Energy, bool) {
	if i < 1 || j > w.n || i >= j {
		return 0, false
	}
	total, ok := w.m.Total(i, j)
	if !ok || total.IsInfinite() || int64(total)*100 > w.limit {
		return 0, false
	}
	return total, true
}

// run walks the diagonal from (i, j) and returns the run length. A
// return value above maxLen marks a run that overflowed and was cut short.
func (w window) run(i, j int, seed types.Energy, maxLen int) int {
	length := 1
	for {
		ni, nj := i+length, j-length
		if nj-ni-1 < minHairpin {
			return length
		}
		total, ok := w.within(ni, nj)
		if !ok || total != seed {
			return length
		}
		length++
		if length > maxLen {
			return length
		}
	}
}
