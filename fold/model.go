package fold

import (
	"github.com/andrew-torda/matrix"

	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// model binds a parameter set to one sequence, its probing bonus and a
// constraint. All positions are 1-based.
type model struct {
	p     *Params
	n     int
	seq   []byte
	bonus []types.Energy
	// pairable.Mat[i][j] is 1 when i<j may pair under the constraint.
	pairable *matrix.BMatrix2d
}

func newModel(p *Params, s *rna.Sequence, bonus []types.Energy, c types.Constraint) *model {
	n := s.Len()
	seq := make([]byte, n+1)
	for i := 1; i <= n; i++ {
		seq[i] = s.Base(i)
	}
	if len(bonus) != n+1 {
		bonus = make([]types.Energy, n+1)
	}

	forced := make([]bool, n+2)
	for _, pos := range c.Unpaired {
		if pos >= 1 && pos <= n {
			forced[pos] = true
		}
	}

	m := &model{p: p, n: n, seq: seq, bonus: bonus, pairable: matrix.NewBMatrix2d(n+2, n+2)}
	for i := 1; i <= n; i++ {
		if forced[i] {
			continue
		}
		for j := i + p.MinHairpin + 1; j <= n; j++ {
			if !forced[j] && m.basesPair(seq[i], seq[j]) {
				m.pairable.Mat[i][j] = 1
			}
		}
	}
	return m
}

// basesPair reports whether two nucleotides form a canonical pair.
func (m *model) basesPair(a, b byte) bool {
	switch {
	case a == 'G' && b == 'C', a == 'C' && b == 'G':
		return true
	case a == 'A' && (b == 'U' || b == 'T'), (a == 'U' || a == 'T') && b == 'A':
		return true
	case m.p.AllowGU && (a == 'G' && b == 'U' || a == 'U' && b == 'G'):
		return true
	}
	return false
}

func (m *model) canPair(i, j int) bool {
	return i >= 1 && j <= m.n && i < j && m.pairable.Mat[i][j] == 1
}

func (m *model) pairBonus(i, j int) types.Energy {
	return m.bonus[i] + m.bonus[j]
}

func isGC(a, b byte) bool {
	return a == 'G' && b == 'C' || a == 'C' && b == 'G'
}

func isGU(a, b byte) bool {
	return a == 'G' && b == 'U' || a == 'U' && b == 'G'
}

// terminal is the AU/GU closure penalty for pair i-j.
func (m *model) terminal(i, j int) types.Energy {
	if isGC(m.seq[i], m.seq[j]) {
		return 0
	}
	return m.p.TerminalPenalty
}

// stack is the energy of pair k-l stacked inside i-j (k=i+1, l=j-1).
func (m *model) stack(i, j, k, l int) types.Energy {
	bi, bj, bk, bl := m.seq[i], m.seq[j], m.seq[k], m.seq[l]
	if e, ok := m.p.Stacks[string([]byte{bi, bk, '/', bj, bl})]; ok {
		return e
	}
	if e, ok := m.p.Stacks[string([]byte{bl, bj, '/', bk, bi})]; ok {
		return e
	}
	outerGU, innerGU := isGU(bi, bj), isGU(bk, bl)
	switch {
	case outerGU && innerGU:
		return m.p.GUWithGU
	case outerGU && isGC(bk, bl), innerGU && isGC(bi, bj):
		return m.p.GUWithGC
	default:
		return m.p.GUWithAU
	}
}

// hairpin is the energy of the hairpin loop closed by i-j.
func (m *model) hairpin(i, j int) types.Energy {
	size := j - i - 1
	if size < m.p.MinHairpin {
		return types.Infinite
	}
	e := m.p.loopEnergy(&m.p.Hairpin, size)
	if e.IsInfinite() {
		return e
	}
	if size == 3 {
		return e + m.terminal(i, j)
	}
	return e + m.p.HairpinMismatch
}

// interior is the energy of the two-pair loop closed by i-j with inner
// pair k-l: a stack, a bulge or an interior loop.
func (m *model) interior(i, j, k, l int) types.Energy {
	n1, n2 := k-i-1, j-l-1
	switch {
	case n1 == 0 && n2 == 0:
		return m.stack(i, j, k, l)
	case n1 == 0 || n2 == 0:
		size := n1 + n2
		e := m.p.loopEnergy(&m.p.Bulge, size)
		if size == 1 {
			return e + m.stack(i, j, k, l)
		}
		return e + m.terminal(i, j) + m.terminal(k, l)
	default:
		e := m.p.loopEnergy(&m.p.Interior, n1+n2)
		asym := m.p.Asymmetry * types.Energy(abs(n1-n2))
		return e + min(asym, m.p.MaxAsymmetry) + m.terminal(i, j) + m.terminal(k, l)
	}
}

// multiClosing is the fixed cost of a multiloop closed by i-j.
func (m *model) multiClosing(i, j int) types.Energy {
	return m.p.MultiA + m.p.MultiC + m.terminal(i, j)
}

// branch is the cost of pair i-j as a multiloop branch.
func (m *model) branch(i, j int) types.Energy {
	return m.p.MultiC + m.terminal(i, j)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
