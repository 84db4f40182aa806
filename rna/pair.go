package rna

import (
	"fmt"

	"github.com/justapithecus/knotfold/types"
)

// Pair holds two independently owned sequences, such as a bimolecular
// construct or two probing replicates of one transcript. Temperature is
// not duplicated: it is read from and written to the first sequence only.
type Pair struct {
	first  *Sequence
	second *Sequence
}

// NewPair takes ownership of both handles. The backbone types must agree.
func NewPair(first, second *Sequence) (*Pair, error) {
	if first == nil || second == nil {
		return nil, types.NewError(types.CodeInvalidSequence, "pair", "both sequences are required")
	}
	if first.Alphabet() != second.Alphabet() {
		return nil, types.NewError(types.CodeMismatch, "pair",
			fmt.Sprintf("%s is %s but %s is %s", first.Label, first.Alphabet(), second.Label, second.Alphabet()))
	}
	return &Pair{first: first, second: second}, nil
}

// First returns the first sequence.
func (p *Pair) First() *Sequence {
	return p.first
}

// Second returns the second sequence.
func (p *Pair) Second() *Sequence {
	return p.second
}

// Temperature returns the shared folding temperature.
func (p *Pair) Temperature() float64 {
	return p.first.Temperature()
}

// SetTemperature sets the shared folding temperature.
func (p *Pair) SetTemperature(kelvin float64) error {
	return p.first.SetTemperature(kelvin)
}

// Len returns both sequence lengths.
func (p *Pair) Len() (int, int) {
	return p.first.Len(), p.second.Len()
}

// Folding returns the second sequence prepared for folding at the shared
// temperature. The returned handle is a copy; the owned second handle is
// left untouched.
func (p *Pair) Folding() *Sequence {
	cp := *p.second
	cp.bases = append([]byte(nil), p.second.bases...)
	cp.temperature = p.first.Temperature()
	return &cp
}
