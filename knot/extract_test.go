package knot

import (
	"testing"

	"github.com/justapithecus/knotfold/types"
)

func TestExtract(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		matrix *gridMatrix
		e0     types.Energy
		want   types.HelixList
	}{
		{
			name:   "single run",
			matrix: newGridMatrix(30).setRun(1, 20, 3, -90),
			e0:     -100,
			want:   types.HelixList{types.NewHelix(1, 20, 3, -90)},
		},
		{
			name:   "positive mfe yields nothing",
			matrix: newGridMatrix(30).setRun(1, 20, 3, -90),
			e0:     0,
		},
		{
			name:   "threshold boundary included",
			matrix: newGridMatrix(30).setRun(1, 20, 2, -75),
			e0:     -100,
			want:   types.HelixList{types.NewHelix(1, 20, 2, -75)},
		},
		{
			name:   "just outside threshold",
			matrix: newGridMatrix(30).setRun(1, 20, 2, -74),
			e0:     -100,
		},
		{
			name:   "single pair is too short",
			matrix: newGridMatrix(30).setRun(1, 20, 1, -90),
			e0:     -100,
		},
		{
			name:   "energy change splits the run",
			matrix: newGridMatrix(30).setRun(1, 20, 1, -90).setRun(2, 19, 2, -80),
			e0:     -100,
			want:   types.HelixList{types.NewHelix(2, 19, 2, -80)},
		},
		{
			name:   "hairpin of three stops the walk",
			matrix: newGridMatrix(30).setRun(1, 10, 4, -90),
			e0:     -100,
			want:   types.HelixList{types.NewHelix(1, 10, 3, -90)},
		},
		{
			name:   "overlong run discarded",
			matrix: newGridMatrix(40).setRun(1, 35, 11, -95),
			e0:     -100,
		},
		{
			name:   "run of exactly ten kept",
			matrix: newGridMatrix(40).setRun(1, 35, 10, -95),
			e0:     -100,
			want:   types.HelixList{types.NewHelix(1, 35, 10, -95)},
		},
		{
			name: "discovery order",
			matrix: newGridMatrix(60).
				setRun(30, 50, 2, -80).
				setRun(5, 40, 3, -90).
				setRun(5, 55, 2, -85),
			e0: -100,
			want: types.HelixList{
				types.NewHelix(5, 55, 2, -85),
				types.NewHelix(5, 40, 3, -90),
				types.NewHelix(30, 50, 2, -80),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.matrix, tt.e0, cfg)
			if len(got) != len(tt.want) {
				t.Fatalf("Extract returned %v, want %v", got, tt.want)
			}
			for k := range got {
				if got[k] != tt.want[k] {
					t.Errorf("helix %d = %+v, want %+v", k, got[k], tt.want[k])
				}
			}
		})
	}
}

func TestExtract_LengthBounds(t *testing.T) {
	m := newGridMatrix(200)
	// Runs of every length from 1 to 12, well separated.
	for k := 1; k <= 12; k++ {
		m.setRun(k*4, 200-k, k, types.Energy(-90+k))
	}

	got := Extract(m, -100, DefaultConfig())
	for _, h := range got {
		if err := h.Validate(); err != nil {
			t.Errorf("helix %s invalid: %v", h, err)
		}
		if h.Length < 2 || h.Length > 10 {
			t.Errorf("helix %s length out of bounds", h)
		}
	}
	if len(got) != 9 {
		t.Errorf("got %d helices, want 9 (lengths 2..10)", len(got))
	}
}

func TestExtract_NoWithinThresholdCell(t *testing.T) {
	m := newGridMatrix(50)
	for i := 1; i <= 50; i++ {
		for j := i + 4; j <= 50; j++ {
			m.cells[[2]int{i, j}] = -10
		}
	}
	if got := Extract(m, -100, DefaultConfig()); len(got) != 0 {
		t.Errorf("Extract returned %d helices, want 0", len(got))
	}
}
