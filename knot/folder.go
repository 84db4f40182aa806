// Package knot is the pseudoknot candidate-search and refinement engine.
//
// The engine takes the total-energy matrix of a pseudoknot-free MFE fold,
// extracts short helices that are energetically plausible near the MFE,
// discards those that only rebuild baseline helices, and tests each
// survivor by forcing it single-stranded, refolding and reinserting it.
// Structures that beat the baseline energy are deduplicated and
// classified by whether any of their helices cross.
//
// Folding itself is delegated to a Folder.
package knot

import (
	"context"

	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// FoldRequest is one call into the Fold Service.
type FoldRequest struct {
	Sequence   *rna.Sequence
	Constraint types.Constraint
	// MaxTracebacks bounds the number of structures returned (>= 1).
	MaxTracebacks int
	// Percent is the suboptimal energy window, in percent of |MFE|.
	Percent float64
	// Window is the structure diversity window in nucleotides.
	Window int
}

// FoldResult is the Fold Service response.
type FoldResult struct {
	// Structures are ascending by energy. May be empty.
	Structures []types.Structure
	// Matrix gives, per pair, the energy of the best structure containing it.
	Matrix EnergyMatrix
}

// EnergyMatrix is the triangular total-energy view of a fold.
type EnergyMatrix interface {
	// Len returns the sequence length.
	Len() int
	// Total returns the energy of the best structure containing pair i-j,
	// or false when i-j cannot pair.
	Total(i, j int) (types.Energy, bool)
}

// Folder is the Fold Service consumed by the engine.
type Folder interface {
	Fold(ctx context.Context, req FoldRequest) (*FoldResult, error)
	// Evaluate scores a full pairing, crossing helices included.
	Evaluate(seq *rna.Sequence, s types.Structure) (types.Energy, error)
}
