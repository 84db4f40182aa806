package types

import (
	"errors"
	"testing"
)

func mustStructure(t *testing.T, n int, pairs ...[2]int) Structure {
	t.Helper()
	s, err := StructureFromPairs(n, pairs...)
	if err != nil {
		t.Fatalf("StructureFromPairs failed: %v", err)
	}
	return s
}

func TestStructure_Helices(t *testing.T) {
	// Two stacked runs separated by a bulge on the 3' side.
	s := mustStructure(t, 30,
		[2]int{1, 30}, [2]int{2, 29}, [2]int{3, 28},
		[2]int{4, 26}, [2]int{5, 25},
		[2]int{10, 20},
	)

	got := s.Helices()
	want := []Helix{
		NewHelix(1, 30, 3, 0),
		NewHelix(4, 26, 2, 0),
		NewHelix(10, 20, 1, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("Helices() returned %d helices, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].SameStrands(want[i]) {
			t.Errorf("helix %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStructure_PairConflicts(t *testing.T) {
	s := NewStructure(10)
	if err := s.Pair(1, 10); err != nil {
		t.Fatalf("Pair(1,10) failed: %v", err)
	}
	if err := s.Pair(1, 9); err == nil {
		t.Error("expected conflict pairing an already paired position")
	}
	if err := s.Pair(0, 5); err == nil {
		t.Error("expected range error for position 0")
	}
	s.Unpair(10)
	if s.Pairs[1] != 0 || s.Pairs[10] != 0 {
		t.Errorf("Unpair left pairs behind: %v", s.Pairs)
	}
}

func TestStructure_Key(t *testing.T) {
	a := mustStructure(t, 20, [2]int{1, 20}, [2]int{2, 19})
	b := mustStructure(t, 20, [2]int{1, 20}, [2]int{2, 19})
	b.Energy = -50
	c := mustStructure(t, 20, [2]int{1, 20}, [2]int{3, 19})

	if a.Key() != b.Key() {
		t.Error("identical pairings must share a key regardless of energy")
	}
	if a.Key() == c.Key() {
		t.Error("different pairings must not share a key")
	}
}

func TestHelix_Validate(t *testing.T) {
	tests := []struct {
		name    string
		helix   Helix
		wantErr bool
	}{
		{name: "valid", helix: NewHelix(1, 20, 4, -10)},
		{name: "max length", helix: NewHelix(1, 40, 10, 0)},
		{name: "too short", helix: NewHelix(1, 20, 1, 0), wantErr: true},
		{name: "too long", helix: NewHelix(1, 40, 11, 0), wantErr: true},
		{name: "overlapping strands", helix: NewHelix(1, 6, 4, 0), wantErr: true},
		{name: "zero start", helix: Helix{IStart: 0, IEnd: 1, JStart: 5, JEnd: 6, Length: 2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.helix.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHelix_Crosses(t *testing.T) {
	nested := [2]Helix{NewHelix(1, 20, 2, 0), NewHelix(5, 15, 2, 0)}
	crossing := [2]Helix{NewHelix(1, 15, 2, 0), NewHelix(5, 20, 2, 0)}

	if nested[0].Crosses(nested[1]) || nested[1].Crosses(nested[0]) {
		t.Error("nested helices reported as crossing")
	}
	if !crossing[0].Crosses(crossing[1]) || !crossing[1].Crosses(crossing[0]) {
		t.Error("crossing helices not detected")
	}
}

func TestHelixList_SortByEnergyStable(t *testing.T) {
	l := HelixList{
		NewHelix(1, 30, 2, -5),
		NewHelix(2, 29, 2, -9),
		NewHelix(3, 28, 2, -5),
	}
	got := l.SortByEnergy()
	if got[0].IStart != 2 || got[1].IStart != 1 || got[2].IStart != 3 {
		t.Errorf("SortByEnergy order = %v", got)
	}
	if l[0].IStart != 1 {
		t.Error("SortByEnergy mutated its receiver")
	}
}

func TestConstraint_Merge(t *testing.T) {
	c := Constraint{Unpaired: []int{5, 1}}.Merge(Constraint{Unpaired: []int{1, 3}})
	want := []int{1, 3, 5}
	if len(c.Unpaired) != len(want) {
		t.Fatalf("Merge = %v, want %v", c.Unpaired, want)
	}
	for i := range want {
		if c.Unpaired[i] != want[i] {
			t.Fatalf("Merge = %v, want %v", c.Unpaired, want)
		}
	}
	if !c.Contains(3) || c.Contains(2) {
		t.Error("Contains disagrees with Merge result")
	}
}

func TestError_Is(t *testing.T) {
	err := NewError(CodeInvalidSequence, "seq.fa", "unexpected base 'Z'")
	wrapped := errors.Join(errors.New("load"), err)

	if !errors.Is(wrapped, ErrInvalidSequence) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(wrapped, ErrInvalidProbe) {
		t.Error("errors.Is matched the wrong code")
	}
	if CodeOf(wrapped) != CodeInvalidSequence {
		t.Errorf("CodeOf = %v", CodeOf(wrapped))
	}
	if got := err.Error(); got != "invalid sequence (1000) in seq.fa: unexpected base 'Z'" {
		t.Errorf("Error() = %q", got)
	}
}

func TestEnergy(t *testing.T) {
	if EnergyFromKcal(-1.26) != -13 {
		t.Errorf("EnergyFromKcal(-1.26) = %d", EnergyFromKcal(-1.26))
	}
	if Energy(-123).String() != "-12.3" {
		t.Errorf("String() = %s", Energy(-123).String())
	}
	if !Infinite.Add(-10).IsInfinite() {
		t.Error("Add must saturate at Infinite")
	}
}
