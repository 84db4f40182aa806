package knot

import "github.com/justapithecus/knotfold/types"

// Classification describes the crossing topology of a structure.
type Classification struct {
	Pseudoknotted bool
	// NeedsReview is set when a helix crosses more than one other helix.
	// The single-crossing test does not describe such topologies fully.
	NeedsReview bool
	// Crossings counts crossing helix pairs.
	Crossings int
}

// Classify decomposes s into helices and tests every pair for crossing.
func Classify(s types.Structure) Classification {
	helices := s.Helices()
	partners := make([]int, len(helices))

	var c Classification
	for a := range helices {
		for b := a + 1; b < len(helices); b++ {
			if helices[a].Crosses(helices[b]) {
				c.Crossings++
				partners[a]++
				partners[b]++
			}
		}
	}
	c.Pseudoknotted = c.Crossings > 0
	for _, n := range partners {
		if n > 1 {
			c.NeedsReview = true
			break
		}
	}
	return c
}

// Aggregator collects accepted structures behind the baseline, dropping
// exact duplicates. It is not safe for concurrent use; the engine commits
// from a single goroutine.
type Aggregator struct {
	agg  types.Aggregate
	seen map[string]struct{}
}

// NewAggregator seeds an aggregate with the baseline MFE.
func NewAggregator(baseline types.Structure) *Aggregator {
	a := &Aggregator{seen: make(map[string]struct{})}
	c := Classify(baseline)
	a.agg.Entries = append(a.agg.Entries, types.Entry{
		Structure:     baseline,
		Baseline:      true,
		Pseudoknotted: c.Pseudoknotted,
		NeedsReview:   c.NeedsReview,
	})
	a.seen[baseline.Key()] = struct{}{}
	return a
}

// Add classifies s and appends it with its source helix. It returns false
// when an identical pairing is already present.
func (a *Aggregator) Add(s types.Structure, source types.Helix) bool {
	key := s.Key()
	if _, dup := a.seen[key]; dup {
		return false
	}
	a.seen[key] = struct{}{}

	c := Classify(s)
	src := source
	a.agg.Entries = append(a.agg.Entries, types.Entry{
		Structure:     s,
		Source:        &src,
		Pseudoknotted: c.Pseudoknotted,
		NeedsReview:   c.NeedsReview,
	})
	return true
}

// Len returns the number of entries, baseline included.
func (a *Aggregator) Len() int {
	return len(a.agg.Entries)
}

// Aggregate returns the collected entries, baseline first.
func (a *Aggregator) Aggregate() types.Aggregate {
	entries := make([]types.Entry, len(a.agg.Entries))
	copy(entries, a.agg.Entries)
	return types.Aggregate{Entries: entries}
}

// Apply filters an aggregate by energy window, pairing window and size.
// The percent bound is measured from the lowest energy in agg. The
// baseline is always kept. Zero bounds are ignored.
func (f OutputFilter) Apply(agg types.Aggregate) types.Aggregate {
	base, ok := agg.Baseline()
	if !ok {
		return agg
	}
	best := base.Structure.Energy
	for _, e := range agg.Entries {
		best = min(best, e.Structure.Energy)
	}

	out := types.Aggregate{Entries: []types.Entry{base}}
	for _, e := range agg.Entries[1:] {
		if f.Percent > 0 && !withinPercent(e.Structure.Energy, best, f.Percent) {
			continue
		}
		if f.Window > 0 && !distinct(e.Structure, out.Entries, f.Window) {
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	if f.MaxStructures > 0 && len(out.Entries) > f.MaxStructures {
		out.Entries = out.Entries[:f.MaxStructures]
	}
	return out
}

// withinPercent reports e <= best + percent% of |best|, in deci-kcal.
func withinPercent(e, best types.Energy, percent float64) bool {
	abs := int64(best)
	if abs < 0 {
		abs = -abs
	}
	return int64(e)*100 <= int64(best)*100+int64(percent*float64(abs))
}

// distinct reports whether s has a pair farther than window from every
// pair of the kept entries.
func distinct(s types.Structure, kept []types.Entry, window int) bool {
	for i, j := range s.Pairs {
		if j <= i {
			continue
		}
		if !nearKept(kept, i, j, window) {
			return true
		}
	}
	return false
}

func nearKept(kept []types.Entry, i, j, window int) bool {
	for _, e := range kept {
		pairs := e.Structure.Pairs
		for a := max(1, i-window); a <= min(len(pairs)-1, i+window); a++ {
			if b := pairs[a]; b > a && b >= j-window && b <= j+window {
				return true
			}
		}
	}
	return false
}
