// Package rna holds nucleotide sequence handles and their file formats:
// sequence loading (FASTA, .seq, plain text) and structure export as
// connectivity tables and dot-bracket strings.
package rna

import (
	"fmt"
	"strings"

	"github.com/justapithecus/knotfold/types"
)

// Alphabet is the backbone type of a sequence.
type Alphabet string

const (
	// AlphabetRNA accepts A, C, G, U (T is read as U).
	AlphabetRNA Alphabet = "rna"
	// AlphabetDNA accepts A, C, G, T (U is read as T).
	AlphabetDNA Alphabet = "dna"
)

// ParseAlphabet parses "rna" or "dna" (case-insensitive). Empty means RNA.
func ParseAlphabet(s string) (Alphabet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rna":
		return AlphabetRNA, nil
	case "dna":
		return AlphabetDNA, nil
	default:
		return "", types.NewError(types.CodeConfig, "alphabet", fmt.Sprintf("unknown alphabet %q", s))
	}
}

// DefaultTemperature is 37 °C in Kelvin.
const DefaultTemperature = 310.15

// Sequence is an owned nucleotide sequence handle.
type Sequence struct {
	Label       string
	bases       []byte
	alphabet    Alphabet
	temperature float64
}

// NewSequence validates text against the alphabet and returns a handle.
// Whitespace and digits are skipped; N and X are kept as unpairable bases.
func NewSequence(label, text string, alphabet Alphabet) (*Sequence, error) {
	if alphabet == "" {
		alphabet = AlphabetRNA
	}
	bases := make([]byte, 0, len(text))
	for idx := 0; idx < len(text); idx++ {
		c := text[idx]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || (c >= '0' && c <= '9') {
			continue
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		switch c {
		case 'A', 'C', 'G', 'N', 'X':
		case 'U', 'T':
			if alphabet == AlphabetRNA {
				c = 'U'
			} else {
				c = 'T'
			}
		default:
			return nil, types.NewError(types.CodeInvalidSequence, label,
				fmt.Sprintf("unexpected character %q at offset %d", text[idx], idx))
		}
		bases = append(bases, c)
	}
	if len(bases) == 0 {
		return nil, types.NewError(types.CodeInvalidSequence, label, "sequence is empty")
	}
	return &Sequence{
		Label:       label,
		bases:       bases,
		alphabet:    alphabet,
		temperature: DefaultTemperature,
	}, nil
}

// Len returns the number of nucleotides.
func (s *Sequence) Len() int {
	return len(s.bases)
}

// Base returns the nucleotide at 1-based position i.
func (s *Sequence) Base(i int) byte {
	return s.bases[i-1]
}

// String returns the sequence text.
func (s *Sequence) String() string {
	return string(s.bases)
}

// Alphabet returns the backbone type.
func (s *Sequence) Alphabet() Alphabet {
	return s.alphabet
}

// IsRNA reports whether the backbone is RNA.
func (s *Sequence) IsRNA() bool {
	return s.alphabet == AlphabetRNA
}

// Temperature returns the folding temperature in Kelvin.
func (s *Sequence) Temperature() float64 {
	return s.temperature
}

// SetTemperature sets the folding temperature in Kelvin.
func (s *Sequence) SetTemperature(kelvin float64) error {
	if kelvin <= 0 {
		return types.NewError(types.CodeConfig, s.Label, fmt.Sprintf("temperature must be > 0 K, got %g", kelvin))
	}
	s.temperature = kelvin
	return nil
}
