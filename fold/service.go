package fold

import (
	"context"
	"errors"

	"github.com/justapithecus/knotfold/knot"
	"github.com/justapithecus/knotfold/probe"
	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// Service is the reference knot.Folder. It is safe for concurrent use:
// every call builds its own model and tables.
type Service struct {
	params Params
	probe  probe.Options
}

// NewService validates params and binds the probing data used to bias
// every fold and evaluation.
func NewService(params Params, opts probe.Options) (*Service, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Service{params: params, probe: opts}, nil
}

// Params returns the parameter set in use.
func (s *Service) Params() Params {
	return s.params
}

func (s *Service) newModel(seq *rna.Sequence, c types.Constraint) *model {
	var bonus []types.Energy
	if !s.probe.Empty() {
		bonus = s.probe.PairBonus(seq.Len())
	}
	return newModel(&s.params, seq, bonus, c)
}

// Fold minimises free energy under the request's constraint and returns
// up to MaxTracebacks structures plus the total-energy matrix.
func (s *Service) Fold(ctx context.Context, req knot.FoldRequest) (*knot.FoldResult, error) {
	if req.Sequence == nil {
		return nil, errors.New("fold request has no sequence")
	}
	m := s.newModel(req.Sequence, req.Constraint)
	t, err := fill(ctx, m)
	if err != nil {
		return nil, err
	}
	structures, err := t.tracebacks(max(1, req.MaxTracebacks), req.Percent, req.Window)
	if err != nil {
		return nil, err
	}
	return &knot.FoldResult{
		Structures: structures,
		Matrix:     &Matrices{t: t},
	}, nil
}

// Evaluate scores an arbitrary structure, crossing helices included.
func (s *Service) Evaluate(seq *rna.Sequence, st types.Structure) (types.Energy, error) {
	return s.newModel(seq, types.Constraint{}).evaluate(st)
}

// Verify Service implements knot.Folder.
var _ knot.Folder = (*Service)(nil)
