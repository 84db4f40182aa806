package rna

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/justapithecus/knotfold/types"
)

func TestNewSequence(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		alphabet Alphabet
		want     string
		wantErr  bool
	}{
		{name: "rna", text: "acgu", alphabet: AlphabetRNA, want: "ACGU"},
		{name: "t read as u", text: "ACGT", alphabet: AlphabetRNA, want: "ACGU"},
		{name: "dna converts u", text: "ACGU", alphabet: AlphabetDNA, want: "ACGT"},
		{name: "whitespace and numbering", text: "  1 ACG\n11 UUN", alphabet: AlphabetRNA, want: "ACGUUN"},
		{name: "bad base", text: "ACZ", alphabet: AlphabetRNA, wantErr: true},
		{name: "empty", text: " \n", alphabet: AlphabetRNA, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSequence("test", tt.text, tt.alphabet)
			if tt.wantErr {
				if !errors.Is(err, types.ErrInvalidSequence) {
					t.Errorf("expected invalid sequence error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSequence failed: %v", err)
			}
			if s.String() != tt.want {
				t.Errorf("String() = %q, want %q", s.String(), tt.want)
			}
			if s.Temperature() != DefaultTemperature {
				t.Errorf("Temperature() = %g", s.Temperature())
			}
		})
	}
}

func TestLoad_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.fa":  ">first some description\nGGGAAA\nCCC\n>second\nAUGC\n",
		"b.seq": "; comment\n; another\ntitle line\nGGGAAACCC1\n",
		"c.txt": "GGGAAACCC\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		file      string
		wantLabel string
	}{
		{file: "a.fa", wantLabel: "first"},
		{file: "b.seq", wantLabel: "title line"},
		{file: "c.txt", wantLabel: "c"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			s, err := Load(filepath.Join(dir, tt.file), AlphabetRNA)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if s.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", s.Label, tt.wantLabel)
			}
			if s.String() != "GGGAAACCC" {
				t.Errorf("sequence = %q", s.String())
			}
		})
	}

	all, err := LoadAll(filepath.Join(dir, "a.fa"), AlphabetRNA)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(all) != 2 || all[1].Label != "second" {
		t.Errorf("LoadAll returned %d records", len(all))
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.fa")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	unterminated := filepath.Join(dir, "bad.seq")
	if err := os.WriteFile(unterminated, []byte(";c\ntitle\nGGGA\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{empty, unterminated, filepath.Join(dir, "missing.fa")} {
		_, err := Load(path, AlphabetRNA)
		if !errors.Is(err, types.ErrInvalidSequence) {
			t.Errorf("Load(%s) error = %v, want invalid sequence", filepath.Base(path), err)
		}
	}
}

func TestPair_DelegatesTemperature(t *testing.T) {
	a, _ := NewSequence("a", "GGGAAACCC", AlphabetRNA)
	b, _ := NewSequence("b", "GGGAAUCCC", AlphabetRNA)
	p, err := NewPair(a, b)
	if err != nil {
		t.Fatalf("NewPair failed: %v", err)
	}

	if err := p.SetTemperature(300); err != nil {
		t.Fatalf("SetTemperature failed: %v", err)
	}
	if a.Temperature() != 300 {
		t.Errorf("first temperature = %g, want 300", a.Temperature())
	}
	if b.Temperature() != DefaultTemperature {
		t.Errorf("second temperature changed to %g", b.Temperature())
	}
	if got := p.Folding().Temperature(); got != 300 {
		t.Errorf("Folding().Temperature() = %g, want 300", got)
	}

	d, _ := NewSequence("d", "GGGAAACCC", AlphabetDNA)
	if _, err := NewPair(a, d); !errors.Is(err, types.ErrMismatch) {
		t.Errorf("NewPair(rna, dna) error = %v, want mismatch", err)
	}
}

func TestCT_RoundTrip(t *testing.T) {
	seq, _ := NewSequence("hairpin", "GGGGAAACCCC", AlphabetRNA)
	s, err := ParseDotBracket("((((...))))")
	if err != nil {
		t.Fatal(err)
	}
	s.Energy = -43

	var buf bytes.Buffer
	if err := WriteCT(&buf, seq, []types.Structure{s}); err != nil {
		t.Fatalf("WriteCT failed: %v", err)
	}

	got, gs, err := ReadCT(&buf, AlphabetRNA)
	if err != nil {
		t.Fatalf("ReadCT failed: %v", err)
	}
	if got.String() != seq.String() || got.Label != "hairpin" {
		t.Errorf("ReadCT sequence = %q (%s)", got.String(), got.Label)
	}
	if !gs.Equal(s) || gs.Energy != -43 {
		t.Errorf("ReadCT structure = %v energy %d", gs.Pairs, gs.Energy)
	}
}

func TestDotBracket(t *testing.T) {
	tests := []struct {
		name  string
		pairs [][2]int
		want  string
	}{
		{name: "nested", pairs: [][2]int{{1, 10}, {2, 9}, {4, 7}}, want: "((.(..).))"},
		{name: "crossing", pairs: [][2]int{{1, 6}, {2, 5}, {3, 9}, {4, 8}}, want: "(([[)).]]."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := types.StructureFromPairs(10, tt.pairs...)
			if err != nil {
				t.Fatal(err)
			}
			got := DotBracket(s)
			if got != tt.want {
				t.Errorf("DotBracket = %q, want %q", got, tt.want)
			}
			back, err := ParseDotBracket(got)
			if err != nil {
				t.Fatalf("ParseDotBracket failed: %v", err)
			}
			if !back.Equal(s) {
				t.Errorf("round trip pairs = %v, want %v", back.Pairs, s.Pairs)
			}
		})
	}
}
