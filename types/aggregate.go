package types

// Entry is one structure retained in an Aggregate.
type Entry struct {
	Structure Structure `json:"structure" msgpack:"structure"`
	// Source is the candidate helix whose reinsertion produced the structure.
	// Nil for the baseline MFE.
	Source *Helix `json:"source,omitempty" msgpack:"source,omitempty"`
	// Baseline marks the pseudoknot-free MFE entry.
	Baseline bool `json:"baseline" msgpack:"baseline"`
	// Pseudoknotted is set when any two helices of the structure cross.
	Pseudoknotted bool `json:"pseudoknotted" msgpack:"pseudoknotted"`
	// NeedsReview is set when a helix crosses more than one other helix.
	// The pairwise crossing test does not describe such topologies fully.
	NeedsReview bool `json:"needs_review" msgpack:"needs_review"`
}

// Aggregate is the ordered result set of a prediction. Entries[0] is
// always the baseline MFE; accepted variants follow in commit order.
type Aggregate struct {
	Entries []Entry `json:"entries" msgpack:"entries"`
}

// Baseline returns the baseline entry, or false for an empty aggregate.
func (a *Aggregate) Baseline() (Entry, bool) {
	if a == nil || len(a.Entries) == 0 {
		return Entry{}, false
	}
	return a.Entries[0], true
}

// Len returns the number of entries.
func (a *Aggregate) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Entries)
}

// PseudoknotCount counts entries classified as pseudoknotted.
func (a *Aggregate) PseudoknotCount() int {
	if a == nil {
		return 0
	}
	n := 0
	for _, e := range a.Entries {
		if e.Pseudoknotted {
			n++
		}
	}
	return n
}
