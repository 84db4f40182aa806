package fold

import (
	"context"

	"github.com/andrew-torda/matrix"

	"github.com/justapithecus/knotfold/types"
)

// grid is a dense (n+2)x(n+2) energy matrix. Energies are whole deci-kcal
// values, which float32 holds exactly well past any folding energy.
type grid struct {
	*matrix.FMatrix2d
}

func newGrid(n int) grid {
	g := grid{matrix.NewFMatrix2d(n+2, n+2)}
	for _, row := range g.Mat {
		for c := range row {
			row[c] = float32(types.Infinite)
		}
	}
	return g
}

func (g grid) at(i, j int) types.Energy {
	e := types.Energy(g.Mat[i][j])
	if e >= types.Infinite {
		return types.Infinite
	}
	return e
}

func (g grid) set(i, j int, e types.Energy) {
	if e >= types.Infinite {
		e = types.Infinite
	}
	g.Mat[i][j] = float32(e)
}

// tables holds the inside and outside matrices of one fold.
//
//	V(i,j)   best energy of i..j given i-j pair
//	WM(i,j)  best energy of a multiloop segment i..j with at least one branch
//	W5(j)    best energy of the prefix 1..j
//	W3(i)    best energy of the suffix i..n
//	Vo(i,j)  best energy of everything outside pair i-j
//	WMo(i,j) best energy of everything outside an i..j multiloop segment
type tables struct {
	m   *model
	V   grid
	WM  grid
	Vo  grid
	WMo grid
	W5  []types.Energy
	W3  []types.Energy
}

// fill runs the inside recursion followed by the outside recursion.
func fill(ctx context.Context, m *model) (*tables, error) {
	n := m.n
	t := &tables{
		m:   m,
		V:   newGrid(n),
		WM:  newGrid(n),
		Vo:  newGrid(n),
		WMo: newGrid(n),
		W5:  make([]types.Energy, n+2),
		W3:  make([]types.Energy, n+2),
	}
	if err := t.inside(ctx); err != nil {
		return nil, err
	}
	if err := t.outside(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *tables) inside(ctx context.Context) error {
	m, n, p := t.m, t.m.n, t.m.p
	for d := 1; d < n; d++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 1; i+d <= n; i++ {
			j := i + d
			if m.canPair(i, j) {
				t.V.set(i, j, t.bestV(i, j))
			}

			best := types.Infinite
			if v := t.V.at(i, j); !v.IsInfinite() {
				best = v + m.branch(i, j)
			}
			best = min(best, t.WM.at(i+1, j).Add(p.MultiB), t.WM.at(i, j-1).Add(p.MultiB))
			for k := i + 1; k < j; k++ {
				best = min(best, t.WM.at(i, k).Add(t.WM.at(k+1, j)))
			}
			t.WM.set(i, j, best)
		}
	}

	t.W5[0] = 0
	for j := 1; j <= n; j++ {
		best := t.W5[j-1]
		for i := 1; i < j; i++ {
			if v := t.V.at(i, j); !v.IsInfinite() {
				best = min(best, t.W5[i-1]+v+m.terminal(i, j))
			}
		}
		t.W5[j] = best
	}

	t.W3[n+1] = 0
	for i := n; i >= 1; i-- {
		best := t.W3[i+1]
		for j := i + 1; j <= n; j++ {
			if v := t.V.at(i, j); !v.IsInfinite() {
				best = min(best, v+m.terminal(i, j)+t.W3[j+1])
			}
		}
		t.W3[i] = best
	}
	return nil
}

// bestV is the inside energy of pair i-j, including its probing bonus.
func (t *tables) bestV(i, j int) types.Energy {
	m, p := t.m, t.m.p
	best := m.hairpin(i, j)

	for k := i + 1; k < j-1 && k-i-1 <= p.MaxLoop; k++ {
		n1 := k - i - 1
		for l := j - 1; l > k; l-- {
			if n1+j-l-1 > p.MaxLoop {
				break
			}
			if !m.canPair(k, l) {
				continue
			}
			if v := t.V.at(k, l); !v.IsInfinite() {
				best = min(best, m.interior(i, j, k, l)+v)
			}
		}
	}

	closing := m.multiClosing(i, j)
	for u := i + 2; u < j-1; u++ {
		best = min(best, t.WM.at(i+1, u).Add(t.WM.at(u+1, j-1)).Add(closing))
	}
	return best.Add(m.pairBonus(i, j))
}

func (t *tables) outside(ctx context.Context) error {
	m, n, p := t.m, t.m.n, t.m.p
	for d := n - 1; d >= 1; d-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 1; i+d <= n; i++ {
			j := i + d
			t.WMo.set(i, j, t.bestWMo(i, j))
			if !m.canPair(i, j) {
				continue
			}

			best := t.W5[i-1] + m.terminal(i, j) + t.W3[j+1]
			for pp := i - 1; pp >= 1 && i-pp-1 <= p.MaxLoop; pp-- {
				n1 := i - pp - 1
				for q := j + 1; q <= n && n1+q-j-1 <= p.MaxLoop; q++ {
					if !m.canPair(pp, q) {
						continue
					}
					if vo := t.Vo.at(pp, q); !vo.IsInfinite() {
						best = min(best, vo+m.interior(pp, q, i, j)+m.pairBonus(pp, q))
					}
				}
			}
			best = min(best, t.WMo.at(i, j).Add(m.branch(i, j)))
			t.Vo.set(i, j, best)
		}
	}
	return nil
}

// bestWMo mirrors every inside rule that consumes WM(i,j).
func (t *tables) bestWMo(i, j int) types.Energy {
	m, n, p := t.m, t.m.n, t.m.p
	best := types.Infinite
	if i > 1 {
		best = min(best, t.WMo.at(i-1, j).Add(p.MultiB))
	}
	if j < n {
		best = min(best, t.WMo.at(i, j+1).Add(p.MultiB))
	}
	for k := j + 1; k <= n; k++ {
		best = min(best, t.WMo.at(i, k).Add(t.WM.at(j+1, k)))
	}
	for h := 1; h < i; h++ {
		best = min(best, t.WMo.at(h, j).Add(t.WM.at(h, i-1)))
	}
	// Left segment of a multiloop closed by (i-1, q).
	if i > 1 {
		for q := j + 2; q <= n; q++ {
			if m.canPair(i-1, q) {
				best = min(best, t.Vo.at(i-1, q).Add(t.WM.at(j+1, q-1)).Add(t.closingOutside(i-1, q)))
			}
		}
	}
	// Right segment of a multiloop closed by (pp, j+1).
	if j < n {
		for pp := 1; pp < i-1; pp++ {
			if m.canPair(pp, j+1) {
				best = min(best, t.Vo.at(pp, j+1).Add(t.WM.at(pp+1, i-1)).Add(t.closingOutside(pp, j+1)))
			}
		}
	}
	return best
}

func (t *tables) closingOutside(i, j int) types.Energy {
	return t.m.multiClosing(i, j) + t.m.pairBonus(i, j)
}

// mfe is the minimum free energy of the whole sequence.
func (t *tables) mfe() types.Energy {
	return t.W5[t.m.n]
}

// total is the energy of the best structure containing pair i-j.
func (t *tables) total(i, j int) types.Energy {
	if !t.m.canPair(i, j) {
		return types.Infinite
	}
	return t.V.at(i, j).Add(t.Vo.at(i, j))
}

// Matrices exposes the total-energy view of a finished fold.
type Matrices struct {
	t *tables
}

// Len returns the sequence length.
func (x *Matrices) Len() int {
	return x.t.m.n
}

// Total returns the energy of the best structure containing pair i-j,
// and false when the pair is impossible.
func (x *Matrices) Total(i, j int) (types.Energy, bool) {
	if i < 1 || j > x.t.m.n || i >= j {
		return types.Infinite, false
	}
	e := x.t.total(i, j)
	return e, !e.IsInfinite()
}

// MFE returns the minimum free energy of the fold.
func (x *Matrices) MFE() types.Energy {
	return x.t.mfe()
}
