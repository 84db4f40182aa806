package rna

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/justapithecus/knotfold/types"
)

// WriteCT writes one connectivity-table block per structure. Each block
// starts with "<n>  ENERGY = <kcal>  <label>" followed by one line per
// nucleotide: index, base, previous, next, partner, natural numbering.
func WriteCT(w io.Writer, seq *Sequence, structures []types.Structure) error {
	bw := bufio.NewWriter(w)
	n := seq.Len()
	for _, s := range structures {
		if s.Len() != n {
			return fmt.Errorf("structure length %d does not match sequence length %d", s.Len(), n)
		}
		if _, err := fmt.Fprintf(bw, "%5d  ENERGY = %s  %s\n", n, s.Energy, seq.Label); err != nil {
			return err
		}
		for i := 1; i <= n; i++ {
			next := i + 1
			if i == n {
				next = 0
			}
			if _, err := fmt.Fprintf(bw, "%5d %c %7d %4d %4d %4d\n", i, seq.Base(i), i-1, next, s.Pairs[i], i); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// ReadCT parses the first block of a connectivity table.
func ReadCT(r io.Reader, alphabet Alphabet) (*Sequence, types.Structure, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, types.Structure{}, types.NewError(types.CodeInvalidSequence, "ct", "missing header")
	}
	header := strings.Fields(sc.Text())
	if len(header) == 0 {
		return nil, types.Structure{}, types.NewError(types.CodeInvalidSequence, "ct", "empty header")
	}
	n, err := strconv.Atoi(header[0])
	if err != nil || n <= 0 {
		return nil, types.Structure{}, types.NewError(types.CodeInvalidSequence, "ct", fmt.Sprintf("bad length %q", header[0]))
	}
	energy, label := parseCTHeader(header[1:])

	bases := make([]byte, 0, n)
	s := types.NewStructure(n)
	s.Energy = energy
	for line := 1; line <= n; line++ {
		if !sc.Scan() {
			return nil, types.Structure{}, types.NewError(types.CodeInvalidSequence, "ct",
				fmt.Sprintf("expected %d nucleotide lines, got %d", n, line-1))
		}
		f := strings.Fields(sc.Text())
		if len(f) < 5 {
			return nil, types.Structure{}, types.NewError(types.CodeInvalidSequence, "ct",
				fmt.Sprintf("line %d: expected at least 5 columns", line+1))
		}
		partner, err := strconv.Atoi(f[4])
		if err != nil || partner < 0 || partner > n {
			return nil, types.Structure{}, types.NewError(types.CodeInvalidSequence, "ct",
				fmt.Sprintf("line %d: bad partner %q", line+1, f[4]))
		}
		bases = append(bases, f[1][0])
		s.Pairs[line] = partner
	}
	for i := 1; i <= n; i++ {
		if j := s.Pairs[i]; j != 0 && s.Pairs[j] != i {
			return nil, types.Structure{}, types.NewError(types.CodeInvalidSequence, "ct",
				fmt.Sprintf("pair %d-%d is not symmetric", i, j))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, types.Structure{}, types.WrapError(types.CodeInvalidSequence, "ct", err)
	}
	seq, err := NewSequence(label, string(bases), alphabet)
	if err != nil {
		return nil, types.Structure{}, err
	}
	return seq, s, nil
}

// parseCTHeader reads "ENERGY = -12.3 label" (or just "label").
func parseCTHeader(fields []string) (types.Energy, string) {
	var energy types.Energy
	if len(fields) >= 3 && strings.EqualFold(fields[0], "ENERGY") && fields[1] == "=" {
		if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
			energy = types.EnergyFromKcal(v)
		}
		fields = fields[3:]
	}
	return energy, strings.Join(fields, " ")
}
