package layout

import (
	"fmt"
	"testing"
)

// stubSource returns a deterministic alphabet-cycling sequence.
type stubSource struct {
	cue int
}

func (s stubSource) FillSequence(n int, fixed map[int]string) ([]string, int) {
	seq := make([]string, n)
	for i := range seq {
		seq[i] = string(rune('a' + i%26))
	}
	for idx, v := range fixed {
		if idx >= 0 && idx < n {
			seq[idx] = v
		}
	}
	cue := s.cue
	if cue >= n {
		cue = -1
	}
	return seq, cue
}

func TestComputePatchesStayInsideBox(t *testing.T) {
	cases := []struct {
		w, n, e, s int
		columns    int
		padding    float64
	}{
		{0, 0, 600, 800, 6, 0.2},
		{0, 100, 960, 1080, 6, 0.2},
		{10, 20, 500, 700, 4, 0.0},
		{0, 0, 333, 500, 5, 0.5},
		{0, 0, 100, 100, 1, 0.1},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%dx%d_c%d", tc.e-tc.w, tc.s-tc.n, tc.columns), func(t *testing.T) {
			g := New(Box{W: tc.w, N: tc.n, E: tc.e, S: tc.s}, tc.columns, tc.padding)
			patches, _ := g.Compute(stubSource{cue: -1}, nil)
			if len(patches) == 0 {
				t.Fatalf("expected non-empty layout")
			}
			d := (tc.e - tc.w) / tc.columns
			for _, p := range patches {
				if p.Size > d {
					t.Fatalf("patch %d size %d exceeds bin width %d", p.ID, p.Size, d)
				}
				if tc.padding > 0 && p.Size >= d {
					t.Fatalf("patch %d size %d not padded inside bin %d", p.ID, p.Size, d)
				}
				if p.X < tc.w || p.X+p.Size > tc.e {
					t.Fatalf("patch %d x-range [%d,%d] outside [%d,%d]", p.ID, p.X, p.X+p.Size, tc.w, tc.e)
				}
				if p.Y < tc.n || p.Y+p.Size > tc.s {
					t.Fatalf("patch %d y-range [%d,%d] outside [%d,%d]", p.ID, p.Y, p.Y+p.Size, tc.n, tc.s)
				}
			}
		})
	}
}

func TestComputeRowMajorOrder(t *testing.T) {
	g := New(Box{W: 0, N: 0, E: 300, S: 300}, 3, 0.2)
	patches, _ := g.Compute(stubSource{cue: -1}, nil)
	rows, columns, count := g.Grid()
	if rows != 3 || columns != 3 || count != 9 {
		t.Fatalf("unexpected grid %dx%d (%d)", rows, columns, count)
	}
	for i, p := range patches {
		if p.ID != i {
			t.Fatalf("patch %d has id %d", i, p.ID)
		}
	}
	// Same row shares y, columns increase x left to right.
	if patches[0].Y != patches[1].Y || patches[1].Y != patches[2].Y {
		t.Fatalf("first row not aligned: %d %d %d", patches[0].Y, patches[1].Y, patches[2].Y)
	}
	if !(patches[0].X < patches[1].X && patches[1].X < patches[2].X) {
		t.Fatalf("first row not left to right: %d %d %d", patches[0].X, patches[1].X, patches[2].X)
	}
	if patches[3].Y <= patches[0].Y {
		t.Fatalf("second row not below first: %d vs %d", patches[3].Y, patches[0].Y)
	}
}

func TestComputeDegenerateParams(t *testing.T) {
	cases := []struct {
		name string
		gen  *Generator
	}{
		{"zero columns", New(Box{W: 0, N: 0, E: 100, S: 100}, 0, 0.2)},
		{"negative columns", New(Box{W: 0, N: 0, E: 100, S: 100}, -2, 0.2)},
		{"inverted box", New(Box{W: 100, N: 0, E: 0, S: 100}, 4, 0.2)},
		{"too many columns", New(Box{W: 0, N: 0, E: 3, S: 100}, 10, 0.2)},
		{"flat box", New(Box{W: 0, N: 100, E: 100, S: 100}, 4, 0.2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patches, cue := tc.gen.Compute(stubSource{cue: 0}, nil)
			if len(patches) != 0 {
				t.Fatalf("expected empty layout, got %d patches", len(patches))
			}
			if cue != -1 {
				t.Fatalf("expected cueIndex -1, got %d", cue)
			}
		})
	}
}

func TestComputeAppliesFixedPositions(t *testing.T) {
	g := New(Box{W: 0, N: 0, E: 400, S: 400}, 4, 0.2)
	_, _, count := g.Grid()
	fixed := map[int]string{count - 3: "Back", count - 2: "Space", count - 1: "Enter"}
	patches, _ := g.Compute(stubSource{cue: -1}, fixed)
	if patches[count-3].Char != "Back" || patches[count-2].Char != "Space" || patches[count-1].Char != "Enter" {
		t.Fatalf("fixed chars not applied: %q %q %q",
			patches[count-3].Char, patches[count-2].Char, patches[count-1].Char)
	}
}

func TestComputeDeterministicWithFixedSource(t *testing.T) {
	g := New(Box{W: 0, N: 0, E: 600, S: 600}, 6, 0.2)
	a, _ := g.Compute(stubSource{cue: 2}, nil)
	b, _ := g.Compute(stubSource{cue: 2}, nil)
	if len(a) != len(b) {
		t.Fatalf("layout length changed: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("patch %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
