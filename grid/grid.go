// seehuhn.de/go/zonal - exact zonal statistics
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package grid describes regular raster grids and rectangular windows into them.
//
// A Grid maps geographic coordinates to cell space, where cell (col, row)
// occupies the half-open square [col, col+1) × [row, row+1). Cells contain
// their left and top edges in cell space and exclude the right and bottom
// ones. The same convention is used by the coverage engine, so that a point
// on a shared boundary is attributed to exactly one cell.
package grid

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// ErrInvalid is returned when grid parameters do not describe a usable grid.
var ErrInvalid = errors.New("grid: invalid grid")

// snapTolerance is the distance in cells below which a cell-space coordinate
// is treated as lying on the grid line.
const snapTolerance = 1e-9

// Grid is a regular raster grid.
type Grid struct {
	// Origin is the geographic position of the outer corner of cell (0, 0).
	Origin vec.Vec2

	// CellWidth is the extent of one column along the x axis.
	// Negative values mean that columns run towards smaller x.
	CellWidth float64

	// CellHeight is the extent of one row along the y axis.
	// North-up rasters have a negative cell height.
	CellHeight float64

	// Cols and Rows give the size of the grid in cells.
	Cols, Rows int
}

// New returns a validated grid.
func New(origin vec.Vec2, cellWidth, cellHeight float64, cols, rows int) (Grid, error) {
	g := Grid{
		Origin:     origin,
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
		Cols:       cols,
		Rows:       rows,
	}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// NorthUp returns the north-up grid with the given geographic bounds.
// Row 0 is the northernmost row.
func NorthUp(bounds rect.Rect, cols, rows int) (Grid, error) {
	if cols <= 0 || rows <= 0 {
		return Grid{}, fmt.Errorf("%w: %d×%d cells", ErrInvalid, cols, rows)
	}
	return New(
		vec.Vec2{X: bounds.LLx, Y: bounds.URy},
		(bounds.URx-bounds.LLx)/float64(cols),
		-(bounds.URy-bounds.LLy)/float64(rows),
		cols, rows)
}

// Validate checks that the cell size is finite and non-zero and that the
// grid has a non-negative size.
func (g Grid) Validate() error {
	switch {
	case g.CellWidth == 0 || math.IsNaN(g.CellWidth) || math.IsInf(g.CellWidth, 0):
		return fmt.Errorf("%w: cell width %g", ErrInvalid, g.CellWidth)
	case g.CellHeight == 0 || math.IsNaN(g.CellHeight) || math.IsInf(g.CellHeight, 0):
		return fmt.Errorf("%w: cell height %g", ErrInvalid, g.CellHeight)
	case math.IsNaN(g.Origin.X) || math.IsNaN(g.Origin.Y):
		return fmt.Errorf("%w: origin %v", ErrInvalid, g.Origin)
	case g.Cols < 0 || g.Rows < 0:
		return fmt.Errorf("%w: %d×%d cells", ErrInvalid, g.Cols, g.Rows)
	}
	return nil
}

// Full returns the window covering the whole grid.
func (g Grid) Full() Window {
	return Window{Cols: g.Cols, Rows: g.Rows}
}

// Bounds returns the geographic extent of the grid.
func (g Grid) Bounds() rect.Rect {
	x0 := g.Origin.X
	x1 := g.Origin.X + float64(g.Cols)*g.CellWidth
	y0 := g.Origin.Y
	y1 := g.Origin.Y + float64(g.Rows)*g.CellHeight
	return rect.Rect{
		LLx: min(x0, x1),
		LLy: min(y0, y1),
		URx: max(x0, x1),
		URy: max(y0, y1),
	}
}

// CellArea returns the geographic area of a single cell.
func (g Grid) CellArea() float64 {
	return math.Abs(g.CellWidth * g.CellHeight)
}

// CTM returns the affine map from geographic coordinates to cell space.
// A point p maps to (CTM[0]*p.X + CTM[2]*p.Y + CTM[4], CTM[1]*p.X + CTM[3]*p.Y + CTM[5]).
func (g Grid) CTM() matrix.Matrix {
	return matrix.Matrix{
		1 / g.CellWidth, 0,
		0, 1 / g.CellHeight,
		-g.Origin.X / g.CellWidth, -g.Origin.Y / g.CellHeight,
	}
}

// ToCell converts a geographic point to fractional cell coordinates.
func (g Grid) ToCell(p vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: (p.X - g.Origin.X) / g.CellWidth,
		Y: (p.Y - g.Origin.Y) / g.CellHeight,
	}
}

// CellIndex returns the cell containing the geographic point (x, y).
// The boolean result is false if the point lies outside the grid.
func (g Grid) CellIndex(x, y float64) (col, row int, ok bool) {
	c := g.ToCell(vec.Vec2{X: x, Y: y})
	col = int(math.Floor(c.X))
	row = int(math.Floor(c.Y))
	ok = col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
	return col, row, ok
}

// CellCenter returns the geographic centre of a cell.
func (g Grid) CellCenter(col, row int) vec.Vec2 {
	return vec.Vec2{
		X: g.Origin.X + (float64(col)+0.5)*g.CellWidth,
		Y: g.Origin.Y + (float64(row)+0.5)*g.CellHeight,
	}
}

// CellBounds returns the geographic extent of a cell.
func (g Grid) CellBounds(col, row int) rect.Rect {
	x0 := g.Origin.X + float64(col)*g.CellWidth
	x1 := x0 + g.CellWidth
	y0 := g.Origin.Y + float64(row)*g.CellHeight
	y1 := y0 + g.CellHeight
	return rect.Rect{
		LLx: min(x0, x1),
		LLy: min(y0, y1),
		URx: max(x0, x1),
		URy: max(y0, y1),
	}
}

// CellID returns the row-major identifier of a cell.
func (g Grid) CellID(col, row int) int64 {
	return int64(row)*int64(g.Cols) + int64(col)
}

// WindowFor returns the smallest window covering the geographic extent r,
// clipped to the grid. The boolean result is false if the extent does not
// overlap the grid; this is not an error.
func (g Grid) WindowFor(r rect.Rect) (Window, bool) {
	c0 := (r.LLx - g.Origin.X) / g.CellWidth
	c1 := (r.URx - g.Origin.X) / g.CellWidth
	r0 := (r.LLy - g.Origin.Y) / g.CellHeight
	r1 := (r.URy - g.Origin.Y) / g.CellHeight

	colMin := clampIndex(math.Floor(snap(min(c0, c1))), g.Cols)
	colMax := clampIndex(math.Ceil(snap(max(c0, c1))), g.Cols)
	rowMin := clampIndex(math.Floor(snap(min(r0, r1))), g.Rows)
	rowMax := clampIndex(math.Ceil(snap(max(r0, r1))), g.Rows)

	if colMax <= colMin || rowMax <= rowMin {
		return Window{}, false
	}
	return Window{
		Col:  colMin,
		Row:  rowMin,
		Cols: colMax - colMin,
		Rows: rowMax - rowMin,
	}, true
}

// Sub returns the grid formed by the cells of w.
func (g Grid) Sub(w Window) Grid {
	return Grid{
		Origin: vec.Vec2{
			X: g.Origin.X + float64(w.Col)*g.CellWidth,
			Y: g.Origin.Y + float64(w.Row)*g.CellHeight,
		},
		CellWidth:  g.CellWidth,
		CellHeight: g.CellHeight,
		Cols:       w.Cols,
		Rows:       w.Rows,
	}
}

// Aligned reports whether other has the same cell size as g and its cell
// boundaries coincide with those of g. If so, dCol and dRow give the
// position of other's cell (0, 0) in the cell space of g.
func (g Grid) Aligned(other Grid) (dCol, dRow int, ok bool) {
	if !sameSize(g.CellWidth, other.CellWidth) || !sameSize(g.CellHeight, other.CellHeight) {
		return 0, 0, false
	}
	c := g.ToCell(other.Origin)
	fc := math.Round(c.X)
	fr := math.Round(c.Y)
	if math.Abs(c.X-fc) > 1e-6 || math.Abs(c.Y-fr) > 1e-6 {
		return 0, 0, false
	}
	return int(fc), int(fr), true
}

// Equal reports whether two grids describe the same cells.
func (g Grid) Equal(other Grid) bool {
	dc, dr, ok := g.Aligned(other)
	return ok && dc == 0 && dr == 0 && g.Cols == other.Cols && g.Rows == other.Rows
}

func (g Grid) String() string {
	return fmt.Sprintf("grid %d×%d at (%g, %g) cell %g×%g",
		g.Cols, g.Rows, g.Origin.X, g.Origin.Y, g.CellWidth, g.CellHeight)
}

func sameSize(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*max(math.Abs(a), math.Abs(b))
}

// snap moves cell-space coordinates within snapTolerance of a grid line
// onto that line, so that round-off in the division does not add a
// spurious row or column.
func snap(x float64) float64 {
	r := math.Round(x)
	if math.Abs(x-r) < snapTolerance {
		return r
	}
	return x
}

// clampIndex converts x to an integer in [0, n]. The clamping is done
// in floating point, so that huge and infinite values cannot overflow.
// NaN maps to 0.
func clampIndex(x float64, n int) int {
	if !(x > 0) {
		return 0
	}
	if x >= float64(n) {
		return n
	}
	return int(x)
}
