// Package probe parses chemical-probing data and converts it into the
// per-nucleotide pseudo-free-energy terms that bias folding.
package probe

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/justapithecus/knotfold/iox"
	"github.com/justapithecus/knotfold/types"
)

// MissingData is the reactivity threshold below which a value means "no data".
const MissingData = -500.0

// MaxOffsetKcal bounds the magnitude of a per-position offset, after
// repeated positions are summed.
const MaxOffsetKcal = 100.0

// Series is a 1-based reactivity series. Positions without a value hold
// a missing-data marker.
type Series struct {
	// Name identifies the source (usually the file path).
	Name   string
	values []float64
}

// NewSeries returns an all-missing series over n nucleotides.
func NewSeries(name string, n int) *Series {
	v := make([]float64, n+1)
	for i := range v {
		v[i] = MissingData - 499
	}
	return &Series{Name: name, values: v}
}

// Set records reactivity r at 1-based position i.
func (s *Series) Set(i int, r float64) {
	s.values[i] = r
}

// Value returns the reactivity at i and whether data is present.
func (s *Series) Value(i int) (float64, bool) {
	if s == nil || i < 1 || i >= len(s.values) {
		return 0, false
	}
	r := s.values[i]
	return r, r >= MissingData
}

// Len returns the number of positions the series covers.
func (s *Series) Len() int {
	return len(s.values) - 1
}

// ReadSeriesFile parses "position value" lines for a sequence of length n.
func ReadSeriesFile(path string, n int) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.WrapError(types.CodeInvalidProbe, path, err)
	}
	defer iox.DiscardClose(f)
	return ReadSeries(f, path, n)
}

// ReadSeries parses "position value" lines. Blank lines and lines starting
// with '#' or ';' are ignored.
func ReadSeries(r io.Reader, name string, n int) (*Series, error) {
	s := NewSeries(name, n)
	err := scanPairs(r, name, n, func(pos int, v float64) error {
		s.Set(pos, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ReadOffsetsFile parses "position kcal" lines into per-position energies.
func ReadOffsetsFile(path string, n int) ([]types.Energy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.WrapError(types.CodeInvalidProbe, path, err)
	}
	defer iox.DiscardClose(f)
	return ReadOffsets(f, path, n)
}

// ReadOffsets parses "position kcal" lines. Repeated positions accumulate.
func ReadOffsets(r io.Reader, name string, n int) ([]types.Energy, error) {
	out := make([]types.Energy, n+1)
	sums := make([]float64, n+1)
	err := scanPairs(r, name, n, func(pos int, v float64) error {
		sums[pos] += v
		if math.Abs(sums[pos]) > MaxOffsetKcal {
			return fmt.Errorf("offset at position %d exceeds %g kcal/mol", pos, MaxOffsetKcal)
		}
		out[pos] = types.EnergyFromKcal(sums[pos])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scanPairs calls fn for every "position value" line. Errors from fn are
// reported with the file and line.
func scanPairs(r io.Reader, name string, n int, fn func(int, float64) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' || text[0] == ';' {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return types.NewError(types.CodeInvalidProbe, fmt.Sprintf("%s:%d", name, line), "expected position and value")
		}
		pos, err := strconv.Atoi(fields[0])
		if err != nil {
			return types.NewError(types.CodeInvalidProbe, fmt.Sprintf("%s:%d", name, line), fmt.Sprintf("bad position %q", fields[0]))
		}
		if pos < 1 || pos > n {
			return types.NewError(types.CodeInvalidProbe, fmt.Sprintf("%s:%d", name, line),
				fmt.Sprintf("position %d outside sequence of length %d", pos, n))
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || !finite(v) {
			return types.NewError(types.CodeInvalidProbe, fmt.Sprintf("%s:%d", name, line), fmt.Sprintf("bad value %q", fields[1]))
		}
		if err := fn(pos, v); err != nil {
			return types.NewError(types.CodeInvalidProbe, fmt.Sprintf("%s:%d", name, line), err.Error())
		}
	}
	if err := sc.Err(); err != nil {
		return types.WrapError(types.CodeInvalidProbe, name, err)
	}
	return nil
}
