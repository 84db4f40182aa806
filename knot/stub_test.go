package knot

import (
	"context"
	"sync"

	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// gridMatrix is a sparse synthetic EnergyMatrix. Missing cells cannot pair.
type gridMatrix struct {
	n     int
	cells map[[2]int]types.Energy
}

func newGridMatrix(n int) *gridMatrix {
	return &gridMatrix{n: n, cells: make(map[[2]int]types.Energy)}
}

func (g *gridMatrix) Len() int { return g.n }

func (g *gridMatrix) Total(i, j int) (types.Energy, bool) {
	e, ok := g.cells[[2]int{i, j}]
	return e, ok
}

// setRun fills length diagonal cells inward from (i, j).
func (g *gridMatrix) setRun(i, j, length int, e types.Energy) *gridMatrix {
	for k := range length {
		g.cells[[2]int{i + k, j - k}] = e
	}
	return g
}

// stubFolder is a hand-written Folder. Nil funcs fall back to a fixed
// baseline for unconstrained folds and a copy of it otherwise.
type stubFolder struct {
	baseline types.Structure
	matrix   EnergyMatrix
	fold     func(req FoldRequest) (*FoldResult, error)
	evaluate func(s types.Structure) (types.Energy, error)

	mu       sync.Mutex
	requests []FoldRequest
}

func (f *stubFolder) Fold(ctx context.Context, req FoldRequest) (*FoldResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.fold != nil {
		return f.fold(req)
	}
	return &FoldResult{
		Structures: []types.Structure{f.baseline.Clone()},
		Matrix:     f.matrix,
	}, nil
}

func (f *stubFolder) Evaluate(_ *rna.Sequence, s types.Structure) (types.Energy, error) {
	if f.evaluate != nil {
		return f.evaluate(s)
	}
	return s.Energy, nil
}

func (f *stubFolder) constrainedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if !r.Constraint.Empty() {
			n++
		}
	}
	return n
}

func mustPairs(t interface {
	Helper()
	Fatalf(string, ...any)
}, n int, pairs ...[2]int) types.Structure {
	t.Helper()
	s, err := types.StructureFromPairs(n, pairs...)
	if err != nil {
		t.Fatalf("StructureFromPairs failed: %v", err)
	}
	return s
}

func helixPairs(i, j, length int) [][2]int {
	return types.NewHelix(i, j, length, 0).Pairs()
}

func polyA(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'A'
	}
	return string(b)
}
