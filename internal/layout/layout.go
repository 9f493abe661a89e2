// Package layout computes flicker patch grids.
package layout

import (
	"github.com/listenzcc/BCI-engine/internal/model"
)

// Box is the drawable region for the patch grid: x in [W,E], y in [N,S].
type Box struct {
	W int
	N int
	E int
	S int
}

// CharSource supplies a character sequence for a fresh layout. The second
// return value is the cue index, or -1 when no cue is pending.
type CharSource interface {
	FillSequence(n int, fixed map[int]string) ([]string, int)
}

// Generator subdivides a bounding box into equal-width bins and produces
// row-major patches. Randomness enters only through the CharSource.
type Generator struct {
	box          Box
	columns      int
	paddingRatio float64
}

// New returns a Generator for the given box and column count.
func New(box Box, columns int, paddingRatio float64) *Generator {
	return &Generator{box: box, columns: columns, paddingRatio: paddingRatio}
}

// ResetColumns replaces the column count. The box is fixed for the
// session; only the grid density changes at runtime.
func (g *Generator) ResetColumns(columns int) {
	g.columns = columns
}

// Columns returns the current column count.
func (g *Generator) Columns() int {
	return g.columns
}

// Grid returns (rows, columns, patch count) for the current parameters.
// Degenerate parameters yield a zero grid.
func (g *Generator) Grid() (rows, columns, count int) {
	if g.columns <= 0 || g.box.E <= g.box.W {
		return 0, 0, 0
	}
	d := (g.box.E - g.box.W) / g.columns
	if d <= 0 {
		return 0, 0, 0
	}
	rows = (g.box.S - g.box.N) / d
	if rows <= 0 {
		return 0, 0, 0
	}
	return rows, g.columns, rows * g.columns
}

// Compute builds a fresh layout. Characters come from source; fixed maps a
// patch index to a forced character. Degenerate parameters produce an
// empty layout and cueIndex -1; callers treat that as a no-draw frame.
func (g *Generator) Compute(source CharSource, fixed map[int]string) ([]model.Patch, int) {
	rows, columns, count := g.Grid()
	if count == 0 {
		return nil, -1
	}

	d := (g.box.E - g.box.W) / columns
	size := int(float64(d) * (1 - g.paddingRatio))

	chars, cueIndex := source.FillSequence(count, fixed)
	if len(chars) < count {
		return nil, -1
	}

	patches := make([]model.Patch, 0, count)
	id := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			patches = append(patches, model.Patch{
				ID:   id,
				X:    g.box.W + d*j + (d-size)/2,
				Y:    g.box.N + d*i + (d-size)/2,
				Size: size,
				Char: chars[id],
			})
			id++
		}
	}
	return patches, cueIndex
}
