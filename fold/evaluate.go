package fold

import (
	"fmt"
	"sort"

	"github.com/justapithecus/knotfold/types"
)

// evaluate computes the free energy of s, which may contain crossing
// helices. The largest non-crossing subset of helices (greedy by length,
// then 5' position) is scored with the loop model. Every remaining helix
// adds its stacking energy, its probing bonus, its closure penalties and
// the pseudoknot penalty for its span.
func (m *model) evaluate(s types.Structure) (types.Energy, error) {
	if s.Len() != m.n {
		return 0, fmt.Errorf("structure length %d does not match sequence length %d", s.Len(), m.n)
	}
	for _, pr := range s.PairList() {
		if !m.basesPair(m.seq[pr[0]], m.seq[pr[1]]) {
			return 0, fmt.Errorf("pair %d-%d (%c-%c) is not canonical", pr[0], pr[1], m.seq[pr[0]], m.seq[pr[1]])
		}
	}

	nested, crossing := splitHelices(s.Helices())

	backbone := types.NewStructure(m.n)
	for _, h := range nested {
		for _, pr := range h.Pairs() {
			backbone.Pairs[pr[0]] = pr[1]
			backbone.Pairs[pr[1]] = pr[0]
		}
	}
	total := m.evaluateNested(backbone.Pairs)

	for _, h := range crossing {
		e := m.terminal(h.IStart, h.JEnd) + m.terminal(h.IEnd, h.JStart)
		for k, pr := range h.Pairs() {
			e += m.pairBonus(pr[0], pr[1])
			if k > 0 {
				e += m.stack(pr[0]-1, pr[1]+1, pr[0], pr[1])
			}
		}
		total = total.Add(e + m.p.PseudoknotPenalty(h.Span()))
	}
	return total, nil
}

// splitHelices picks a non-crossing backbone greedily, longest helix
// first, and returns the rest as crossing helices in 5' order.
func splitHelices(helices []types.Helix) (nested, crossing []types.Helix) {
	order := make([]types.Helix, len(helices))
	copy(order, helices)
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].Length != order[b].Length {
			return order[a].Length > order[b].Length
		}
		return order[a].IStart < order[b].IStart
	})

	for _, h := range order {
		clash := false
		for _, o := range nested {
			if h.Crosses(o) {
				clash = true
				break
			}
		}
		if clash {
			crossing = append(crossing, h)
		} else {
			nested = append(nested, h)
		}
	}
	sort.SliceStable(crossing, func(a, b int) bool { return crossing[a].IStart < crossing[b].IStart })
	return nested, crossing
}

// evaluateNested scores a pseudoknot-free pairing by loop decomposition.
func (m *model) evaluateNested(pairs []int) types.Energy {
	total := types.Energy(0)
	for i := 1; i <= m.n; i++ {
		if j := pairs[i]; j > i {
			total = total.Add(m.evaluatePair(pairs, i, j)).Add(m.terminal(i, j))
			i = j
		}
	}
	return total
}

// evaluatePair scores the loop closed by i-j and everything inside it.
func (m *model) evaluatePair(pairs []int, i, j int) types.Energy {
	var branches [][2]int
	unpaired := 0
	for k := i + 1; k < j; k++ {
		if l := pairs[k]; l > k {
			branches = append(branches, [2]int{k, l})
			k = l
		} else {
			unpaired++
		}
	}

	e := m.pairBonus(i, j)
	switch len(branches) {
	case 0:
		return e.Add(m.hairpin(i, j))
	case 1:
		k, l := branches[0][0], branches[0][1]
		return e.Add(m.interior(i, j, k, l)).Add(m.evaluatePair(pairs, k, l))
	default:
		e = e.Add(m.multiClosing(i, j)).Add(m.p.MultiB * types.Energy(unpaired))
		for _, b := range branches {
			e = e.Add(m.branch(b[0], b[1])).Add(m.evaluatePair(pairs, b[0], b[1]))
		}
		return e
	}
}
