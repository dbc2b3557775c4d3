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

// Package coverage computes the exact fraction of every raster cell which
// lies inside a polygon.
//
// The polygon outline is transformed to cell space and every edge deposits
// its signed contribution into the cells it crosses. Integrating each row
// from left to right then yields the exact area of polygon ∩ cell, since
// the edges are straight inside every cell. Exterior rings count positive
// and holes negative; the result is clamped to [0, 1].
package coverage

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/zonal/geometry"
	"seehuhn.de/go/zonal/grid"
)

// ErrDegenerate is matched by all errors which report that a geometry
// covers no part of the grid. The accompanying Fractions are valid and
// empty; callers treat these errors as zero contribution.
var ErrDegenerate = errors.New("coverage: degenerate geometry")

// Reasons for a degenerate result.
var (
	ErrEmptyGeometry = fmt.Errorf("%w: empty geometry", ErrDegenerate)
	ErrZeroArea      = fmt.Errorf("%w: zero area", ErrDegenerate)
	ErrNoOverlap     = fmt.Errorf("%w: no overlap with grid", ErrDegenerate)
)

// LineStyle describes the buffer used to give line geometries an area.
// The zero value means that lines are not buffered and have no coverage.
type LineStyle struct {
	// Width is the full buffer width in geographic units.
	Width float64

	// Cap is the end style. The zero value is graphics.LineCapButt.
	Cap graphics.LineCapStyle

	// Join is the corner style. The zero value is graphics.LineJoinMiter.
	Join graphics.LineJoinStyle

	// MiterLimit limits the length of miter joins, as a multiple of the
	// half width. Values below 1 select the default of 10.
	MiterLimit float64
}

// extent returns how far the buffer can reach from the line.
func (s LineStyle) extent() float64 {
	k := math.Sqrt2
	if s.Join == graphics.LineJoinMiter {
		k = max(k, s.miterLimit())
	}
	return k * s.Width / 2
}

func (s LineStyle) miterLimit() float64 {
	if s.MiterLimit < 1 {
		return defaultMiterLimit
	}
	return s.MiterLimit
}

// Engine computes coverage fractions. An Engine reuses internal buffers
// between calls and must not be used concurrently.
type Engine struct {
	// Lines is the buffer applied to line geometries.
	Lines LineStyle

	r *rasteriser
}

// NewEngine returns an engine which does not buffer lines.
func NewEngine() *Engine {
	return &Engine{r: newRasteriser()}
}

// Compute returns the coverage fractions of geom on g. The fractions cover
// the smallest window containing the geometry's bounding box.
//
// If the geometry does not cover any part of the grid, the returned
// Fractions are empty and the error matches ErrDegenerate.
func (e *Engine) Compute(g grid.Grid, geom geometry.Geometry) (*Fractions, error) {
	if geom == nil || geom.Empty() {
		return &Fractions{Grid: g}, ErrEmptyGeometry
	}

	_, isLine := geom.(geometry.Lines)
	if isLine && e.Lines.Width <= 0 {
		return &Fractions{Grid: g}, ErrZeroArea
	}

	bounds := geom.Bounds()
	if isLine {
		d := e.Lines.extent()
		bounds = rect.Rect{
			LLx: bounds.LLx - d,
			LLy: bounds.LLy - d,
			URx: bounds.URx + d,
			URy: bounds.URy + d,
		}
	}
	w, ok := g.WindowFor(bounds)
	if !ok {
		return &Fractions{Grid: g}, ErrNoOverlap
	}
	return e.ComputeWindow(g, w, geom)
}

// ComputeWindow is like Compute, but restricts the computation to the
// window w of g. Cells outside w are ignored.
func (e *Engine) ComputeWindow(g grid.Grid, w grid.Window, geom geometry.Geometry) (*Fractions, error) {
	if geom == nil || geom.Empty() {
		return &Fractions{Grid: g}, ErrEmptyGeometry
	}
	if w.Empty() {
		return &Fractions{Grid: g}, ErrNoOverlap
	}
	if e.r == nil {
		e.r = newRasteriser()
	}

	f := &Fractions{
		Grid:   g,
		Window: w,
		Data:   make([]float64, w.Len()),
	}
	emit := func(y, xMin int, coverage []float64) {
		copy(f.Data[w.Index(xMin, y):], coverage)
	}

	r := e.r
	r.CTM = g.CTM()
	r.Clip = rect.Rect{
		LLx: float64(w.Col),
		LLy: float64(w.Row),
		URx: float64(w.Col + w.Cols),
		URy: float64(w.Row + w.Rows),
	}
	if lines, isLine := geom.(geometry.Lines); isLine {
		if e.Lines.Width <= 0 {
			return &Fractions{Grid: g}, ErrZeroArea
		}
		r.Width = e.Lines.Width
		r.Cap = e.Lines.Cap
		r.Join = e.Lines.Join
		r.MiterLimit = e.Lines.miterLimit()
		r.bufferLines(lines, emit)
	} else {
		r.FillPath(geom.Path(), emit)
	}

	if f.Sum() == 0 {
		if _, isLine := geom.(geometry.Lines); !isLine && geom.Area() == 0 {
			return &Fractions{Grid: g}, ErrZeroArea
		}
		return &Fractions{Grid: g}, ErrNoOverlap
	}
	return f, nil
}

// Fractions holds the coverage fraction of every cell in a window of a grid.
type Fractions struct {
	// Grid is the grid the fractions refer to.
	Grid grid.Grid

	// Window is the block of cells covered by Data.
	Window grid.Window

	// Data holds one fraction in [0, 1] per cell of Window, in row-major
	// order. Cells outside the geometry are exactly 0.
	Data []float64
}

// Empty reports whether no cell has non-zero coverage.
func (f *Fractions) Empty() bool {
	for _, v := range f.Data {
		if v != 0 {
			return false
		}
	}
	return true
}

// At returns the coverage fraction of cell (col, row) of the grid.
// Cells outside the window have zero coverage.
func (f *Fractions) At(col, row int) float64 {
	if !f.Window.Contains(col, row) {
		return 0
	}
	return f.Data[f.Window.Index(col, row)]
}

// Sum returns the total coverage, in units of cells.
func (f *Fractions) Sum() float64 {
	var s float64
	for _, v := range f.Data {
		s += v
	}
	return s
}

// Area returns the covered geographic area.
func (f *Fractions) Area() float64 {
	return f.Sum() * f.Grid.CellArea()
}

// Each calls fn for every cell with non-zero coverage, in row-major order.
func (f *Fractions) Each(fn func(col, row int, frac float64)) {
	w := f.Window
	for i, v := range f.Data {
		if v == 0 {
			continue
		}
		fn(w.Col+i%w.Cols, w.Row+i/w.Cols, v)
	}
}
