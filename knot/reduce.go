package knot

import "github.com/justapithecus/knotfold/types"

// Reduce drops candidates that only rebuild baseline helices and caps the
// rest at limit, lowest energy first. Equal energies keep discovery order.
// A non-positive limit disables the cap. The input is not modified.
func Reduce(candidates types.HelixList, baseline types.Structure, limit int) types.HelixList {
	if len(candidates) == 0 {
		return nil
	}
	helices := baseline.Helices()

	kept := make(types.HelixList, 0, len(candidates))
	for _, h := range candidates {
		if !repairsBaseline(h, helices) {
			kept = append(kept, h)
		}
	}

	kept = kept.SortByEnergy()
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// repairsBaseline reports whether both strands of h land on some baseline
// helix. Such a candidate cannot cross that helix.
func repairsBaseline(h types.Helix, baseline []types.Helix) bool {
	for _, b := range baseline {
		if h.SameStrands(b) {
			return true
		}
		if touches(h.IStart, h.IEnd, b) && touches(h.JStart, h.JEnd, b) {
			return true
		}
	}
	return false
}

// touches reports whether the range lo..hi overlaps either strand of b.
func touches(lo, hi int, b types.Helix) bool {
	return overlaps(lo, hi, b.IStart, b.IEnd) || overlaps(lo, hi, b.JStart, b.JEnd)
}

func overlaps(a0, a1, b0, b1 int) bool {
	return a0 <= b1 && b0 <= a1
}
