package reader

import (
	"github.com/justapithecus/knotfold/archive"
	"github.com/justapithecus/knotfold/rna"
)

// InspectArchive reads a prediction archive written by predict --archive.
func InspectArchive(path string) (*RunDetail, error) {
	a, err := archive.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromArchive(a), nil
}

// FromArchive converts a decoded archive to a RunDetail.
func FromArchive(a *archive.Archive) *RunDetail {
	h := a.Header
	d := &RunDetail{
		RunID:       h.RunID,
		Label:       h.Label,
		Alphabet:    h.Alphabet,
		Length:      int64(len(h.Sequence)),
		Sequence:    h.Sequence,
		Temperature: h.Temperature,
		E0Kcal:      h.E0.Kcal(),
		Version:     h.Version,
		Structures:  make([]StructureView, 0, len(a.Aggregate.Entries)),
	}
	for i, e := range a.Aggregate.Entries {
		v := StructureView{
			Rank:          i,
			EnergyKcal:    e.Structure.Energy.Kcal(),
			Baseline:      e.Baseline,
			Pseudoknotted: e.Pseudoknotted,
			NeedsReview:   e.NeedsReview,
			DotBracket:    rna.DotBracket(e.Structure),
		}
		if e.Source != nil {
			v.Helix = e.Source.String()
		}
		d.Structures = append(d.Structures, v)
	}
	return d
}
