package fold

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/justapithecus/knotfold/types"
)

type traceKind int

const (
	traceW5 traceKind = iota
	traceW3
	traceV
	traceWM
	traceVo
	traceWMo
)

type traceTask struct {
	kind traceKind
	i, j int
}

// errTraceback means no recursion rule reproduces a stored cell value.
var errTraceback = errors.New("traceback found no matching decomposition")

// tracer rebuilds a structure from filled tables with an explicit stack.
type tracer struct {
	t     *tables
	s     types.Structure
	stack []traceTask
}

func newTracer(t *tables) *tracer {
	return &tracer{t: t, s: types.NewStructure(t.m.n)}
}

func (tr *tracer) push(kind traceKind, i, j int) {
	tr.stack = append(tr.stack, traceTask{kind: kind, i: i, j: j})
}

func (tr *tracer) run() (types.Structure, error) {
	for len(tr.stack) > 0 {
		task := tr.stack[len(tr.stack)-1]
		tr.stack = tr.stack[:len(tr.stack)-1]

		var err error
		switch task.kind {
		case traceW5:
			err = tr.w5(task.j)
		case traceW3:
			err = tr.w3(task.i)
		case traceV:
			err = tr.v(task.i, task.j)
		case traceWM:
			err = tr.wm(task.i, task.j)
		case traceVo:
			err = tr.vo(task.i, task.j)
		case traceWMo:
			err = tr.wmo(task.i, task.j)
		}
		if err != nil {
			return types.Structure{}, err
		}
	}
	return tr.s, nil
}

func (tr *tracer) pair(i, j int) error {
	if err := tr.s.Pair(i, j); err != nil {
		return fmt.Errorf("traceback: %w", err)
	}
	return nil
}

func (tr *tracer) w5(j int) error {
	t, m := tr.t, tr.t.m
	if j <= 0 {
		return nil
	}
	if t.W5[j] == t.W5[j-1] {
		tr.push(traceW5, 0, j-1)
		return nil
	}
	for i := 1; i < j; i++ {
		v := t.V.at(i, j)
		if !v.IsInfinite() && t.W5[i-1]+v+m.terminal(i, j) == t.W5[j] {
			tr.push(traceW5, 0, i-1)
			tr.push(traceV, i, j)
			return nil
		}
	}
	return fmt.Errorf("%w: W5(%d)", errTraceback, j)
}

func (tr *tracer) w3(i int) error {
	t, m := tr.t, tr.t.m
	if i > m.n {
		return nil
	}
	if t.W3[i] == t.W3[i+1] {
		tr.push(traceW3, i+1, 0)
		return nil
	}
	for j := i + 1; j <= m.n; j++ {
		v := t.V.at(i, j)
		if !v.IsInfinite() && v+m.terminal(i, j)+t.W3[j+1] == t.W3[i] {
			tr.push(traceW3, j+1, 0)
			tr.push(traceV, i, j)
			return nil
		}
	}
	return fmt.Errorf("%w: W3(%d)", errTraceback, i)
}

func (tr *tracer) v(i, j int) error {
	t, m, p := tr.t, tr.t.m, tr.t.m.p
	if err := tr.pair(i, j); err != nil {
		return err
	}
	target := t.V.at(i, j) - m.pairBonus(i, j)
	if m.hairpin(i, j) == target {
		return nil
	}
	for k := i + 1; k < j-1 && k-i-1 <= p.MaxLoop; k++ {
		for l := j - 1; l > k; l-- {
			if k-i-1+j-l-1 > p.MaxLoop {
				break
			}
			if !m.canPair(k, l) {
				continue
			}
			if v := t.V.at(k, l); !v.IsInfinite() && m.interior(i, j, k, l)+v == target {
				tr.push(traceV, k, l)
				return nil
			}
		}
	}
	closing := m.multiClosing(i, j)
	for u := i + 2; u < j-1; u++ {
		e := t.WM.at(i+1, u).Add(t.WM.at(u+1, j-1)).Add(closing)
		if !e.IsInfinite() && e == target {
			tr.push(traceWM, i+1, u)
			tr.push(traceWM, u+1, j-1)
			return nil
		}
	}
	return fmt.Errorf("%w: V(%d,%d)", errTraceback, i, j)
}

func (tr *tracer) wm(i, j int) error {
	t, m, p := tr.t, tr.t.m, tr.t.m.p
	target := t.WM.at(i, j)
	if target.IsInfinite() {
		return fmt.Errorf("%w: WM(%d,%d) unreachable", errTraceback, i, j)
	}
	if v := t.V.at(i, j); !v.IsInfinite() && v+m.branch(i, j) == target {
		tr.push(traceV, i, j)
		return nil
	}
	if t.WM.at(i+1, j).Add(p.MultiB) == target {
		tr.push(traceWM, i+1, j)
		return nil
	}
	if t.WM.at(i, j-1).Add(p.MultiB) == target {
		tr.push(traceWM, i, j-1)
		return nil
	}
	for k := i + 1; k < j; k++ {
		if t.WM.at(i, k).Add(t.WM.at(k+1, j)) == target {
			tr.push(traceWM, i, k)
			tr.push(traceWM, k+1, j)
			return nil
		}
	}
	return fmt.Errorf("%w: WM(%d,%d)", errTraceback, i, j)
}

func (tr *tracer) vo(i, j int) error {
	t, m, p := tr.t, tr.t.m, tr.t.m.p
	target := t.Vo.at(i, j)
	if target.IsInfinite() {
		return fmt.Errorf("%w: Vo(%d,%d) unreachable", errTraceback, i, j)
	}
	if t.W5[i-1]+m.terminal(i, j)+t.W3[j+1] == target {
		tr.push(traceW5, 0, i-1)
		tr.push(traceW3, j+1, 0)
		return nil
	}
	for pp := i - 1; pp >= 1 && i-pp-1 <= p.MaxLoop; pp-- {
		for q := j + 1; q <= m.n && i-pp-1+q-j-1 <= p.MaxLoop; q++ {
			if !m.canPair(pp, q) {
				continue
			}
			vo := t.Vo.at(pp, q)
			if !vo.IsInfinite() && vo+m.interior(pp, q, i, j)+m.pairBonus(pp, q) == target {
				if err := tr.pair(pp, q); err != nil {
					return err
				}
				tr.push(traceVo, pp, q)
				return nil
			}
		}
	}
	if t.WMo.at(i, j).Add(m.branch(i, j)) == target {
		tr.push(traceWMo, i, j)
		return nil
	}
	return fmt.Errorf("%w: Vo(%d,%d)", errTraceback, i, j)
}

func (tr *tracer) wmo(i, j int) error {
	t, m, p := tr.t, tr.t.m, tr.t.m.p
	n := m.n
	target := t.WMo.at(i, j)
	if target.IsInfinite() {
		return fmt.Errorf("%w: WMo(%d,%d) unreachable", errTraceback, i, j)
	}
	if i > 1 && t.WMo.at(i-1, j).Add(p.MultiB) == target {
		tr.push(traceWMo, i-1, j)
		return nil
	}
	if j < n && t.WMo.at(i, j+1).Add(p.MultiB) == target {
		tr.push(traceWMo, i, j+1)
		return nil
	}
	for k := j + 1; k <= n; k++ {
		if t.WMo.at(i, k).Add(t.WM.at(j+1, k)) == target {
			tr.push(traceWM, j+1, k)
			tr.push(traceWMo, i, k)
			return nil
		}
	}
	for h := 1; h < i; h++ {
		if t.WMo.at(h, j).Add(t.WM.at(h, i-1)) == target {
			tr.push(traceWM, h, i-1)
			tr.push(traceWMo, h, j)
			return nil
		}
	}
	if i > 1 {
		for q := j + 2; q <= n; q++ {
			if m.canPair(i-1, q) && t.Vo.at(i-1, q).Add(t.WM.at(j+1, q-1)).Add(t.closingOutside(i-1, q)) == target {
				if err := tr.pair(i-1, q); err != nil {
					return err
				}
				tr.push(traceWM, j+1, q-1)
				tr.push(traceVo, i-1, q)
				return nil
			}
		}
	}
	if j < n {
		for pp := 1; pp < i-1; pp++ {
			if m.canPair(pp, j+1) && t.Vo.at(pp, j+1).Add(t.WM.at(pp+1, i-1)).Add(t.closingOutside(pp, j+1)) == target {
				if err := tr.pair(pp, j+1); err != nil {
					return err
				}
				tr.push(traceWM, pp+1, i-1)
				tr.push(traceVo, pp, j+1)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: WMo(%d,%d)", errTraceback, i, j)
}

// traceMFE rebuilds the minimum free energy structure.
func (t *tables) traceMFE() (types.Structure, error) {
	tr := newTracer(t)
	tr.push(traceW5, 0, t.m.n)
	s, err := tr.run()
	if err != nil {
		return types.Structure{}, err
	}
	s.Energy = t.mfe()
	return s, nil
}

// traceWithPair rebuilds the best structure containing pair i-j.
func (t *tables) traceWithPair(i, j int) (types.Structure, error) {
	tr := newTracer(t)
	tr.push(traceVo, i, j)
	tr.push(traceV, i, j)
	s, err := tr.run()
	if err != nil {
		return types.Structure{}, err
	}
	s.Energy = t.total(i, j)
	return s, nil
}

type seedPair struct {
	i, j  int
	total types.Energy
}

// tracebacks returns up to maxCount structures ascending by energy: the
// MFE first, then the best structures through other low-energy pairs.
// A seed pair is skipped when a structure already holds a pair within
// window nucleotides of it on both sides.
func (t *tables) tracebacks(maxCount int, percent float64, window int) ([]types.Structure, error) {
	mfe, err := t.traceMFE()
	if err != nil {
		return nil, err
	}
	out := []types.Structure{mfe}
	if maxCount <= 1 {
		return out, nil
	}

	e0 := t.mfe()
	limit := e0 + types.Energy(math.Ceil(percent/100*math.Abs(float64(e0))))

	var seeds []seedPair
	for i := 1; i <= t.m.n; i++ {
		for j := i + 1; j <= t.m.n; j++ {
			if e := t.total(i, j); !e.IsInfinite() && e <= limit {
				seeds = append(seeds, seedPair{i: i, j: j, total: e})
			}
		}
	}
	sort.SliceStable(seeds, func(a, b int) bool { return seeds[a].total < seeds[b].total })

	seen := map[string]struct{}{mfe.Key(): {}}
	for _, sp := range seeds {
		if len(out) >= maxCount {
			break
		}
		if covered(out, sp.i, sp.j, window) {
			continue
		}
		s, err := t.traceWithPair(sp.i, sp.j)
		if err != nil {
			return nil, err
		}
		key := s.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Energy < out[b].Energy })
	for r := range out {
		out[r].Rank = r
	}
	return out, nil
}

func covered(structures []types.Structure, i, j, window int) bool {
	for _, s := range structures {
		for a := max(1, i-window); a <= min(s.Len(), i+window); a++ {
			if b := s.Pairs[a]; b > a && abs(b-j) <= window {
				return true
			}
		}
	}
	return false
}
