package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
)

// Structure is a full pairing assignment over a sequence of length n.
// Pairs is 1-based with length n+1; Pairs[0] is unused, Pairs[i] == 0 means
// position i is unpaired, otherwise it holds the partner position.
type Structure struct {
	Pairs  []int  `json:"pairs" msgpack:"pairs"`
	Energy Energy `json:"energy" msgpack:"energy"`
	// Rank is the traceback rank within the fold call that produced it (0 = lowest).
	Rank int `json:"rank" msgpack:"rank"`
}

// NewStructure returns an all-unpaired structure over n nucleotides.
func NewStructure(n int) Structure {
	return Structure{Pairs: make([]int, n+1)}
}

// StructureFromPairs builds a structure from explicit 1-based pairs.
func StructureFromPairs(n int, pairs ...[2]int) (Structure, error) {
	s := NewStructure(n)
	for _, p := range pairs {
		if err := s.Pair(p[0], p[1]); err != nil {
			return Structure{}, err
		}
	}
	return s, nil
}

// Len returns the number of nucleotides.
func (s Structure) Len() int {
	if len(s.Pairs) == 0 {
		return 0
	}
	return len(s.Pairs) - 1
}

// Pair records i-j. Both positions must be in range, distinct and unpaired.
func (s Structure) Pair(i, j int) error {
	n := s.Len()
	if i < 1 || j < 1 || i > n || j > n || i == j {
		return fmt.Errorf("pair %d-%d out of range for length %d", i, j, n)
	}
	if s.Pairs[i] != 0 || s.Pairs[j] != 0 {
		return fmt.Errorf("pair %d-%d conflicts with an existing pair", i, j)
	}
	s.Pairs[i] = j
	s.Pairs[j] = i
	return nil
}

// Unpair clears position i and its partner.
func (s Structure) Unpair(i int) {
	if j := s.Pairs[i]; j != 0 {
		s.Pairs[j] = 0
	}
	s.Pairs[i] = 0
}

// Clone returns a deep copy.
func (s Structure) Clone() Structure {
	return Structure{Pairs: slices.Clone(s.Pairs), Energy: s.Energy, Rank: s.Rank}
}

// PairList returns every i<j pair in ascending i.
func (s Structure) PairList() [][2]int {
	var out [][2]int
	for i := 1; i <= s.Len(); i++ {
		if j := s.Pairs[i]; j > i {
			out = append(out, [2]int{i, j})
		}
	}
	return out
}

// NumPairs counts base pairs.
func (s Structure) NumPairs() int {
	return len(s.PairList())
}

// Helices decomposes the structure into maximal runs of stacked pairs,
// ordered by 5' start. Lengths are unbounded; a lone pair is a helix of one.
func (s Structure) Helices() []Helix {
	var out []Helix
	n := s.Len()
	for i := 1; i <= n; i++ {
		j := s.Pairs[i]
		if j <= i {
			continue
		}
		// Not a run start if (i-1, j+1) stacks on this pair.
		if i > 1 && j < n && s.Pairs[i-1] == j+1 {
			continue
		}
		length := 1
		for i+length < j-length && s.Pairs[i+length] == j-length {
			length++
		}
		out = append(out, NewHelix(i, j, length, 0))
	}
	return out
}

// Key is a stable digest of the pairing assignment. Energy and rank are
// not part of it, so two structures with equal keys pair identically.
func (s Structure) Key() string {
	h := sha256.New()
	var buf [4]byte
	for _, p := range s.Pairs {
		binary.BigEndian.PutUint32(buf[:], uint32(p))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Equal reports whether s and o pair identically.
func (s Structure) Equal(o Structure) bool {
	return slices.Equal(s.Pairs, o.Pairs)
}

// Constraint forces positions single-stranded before a fold call.
type Constraint struct {
	Unpaired []int `json:"unpaired,omitempty"`
}

// Empty reports whether the constraint restricts nothing.
func (c Constraint) Empty() bool {
	return len(c.Unpaired) == 0
}

// Contains reports whether position p is forced unpaired.
func (c Constraint) Contains(p int) bool {
	return slices.Contains(c.Unpaired, p)
}

// Merge returns a constraint covering both sets, sorted and deduplicated.
func (c Constraint) Merge(o Constraint) Constraint {
	all := append(slices.Clone(c.Unpaired), o.Unpaired...)
	slices.Sort(all)
	return Constraint{Unpaired: slices.Compact(all)}
}

// UnpairedHelix forces both strands of h single-stranded.
func UnpairedHelix(h Helix) Constraint {
	return Constraint{Unpaired: h.Positions()}
}
