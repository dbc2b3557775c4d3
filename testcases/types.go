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

package testcases

import (
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/zonal/geometry"
	"seehuhn.de/go/zonal/grid"
)

// TestCase defines a single coverage test.
type TestCase struct {
	Name     string            // lowercase a-z, 0-9 and _ only
	Geometry geometry.Geometry // the shape to measure
	Grid     grid.Grid         // the grid to measure it on
	Area     float64           // covered area in geographic units
	Buffer   *Buffer           // line buffer, nil for polygons

	// Tolerance is the allowed relative error of the total area.
	// Zero means 1e-9.
	Tolerance float64
}

// Buffer specifies the buffer around a line geometry.
type Buffer struct {
	Width      float64                // full buffer width (>0)
	Cap        graphics.LineCapStyle  // LineCapButt, LineCapRound, LineCapSquare
	Join       graphics.LineJoinStyle // LineJoinMiter, LineJoinRound, LineJoinBevel
	MiterLimit float64                // miter limit
}

// pt is a helper to create a vec.Vec2 from x, y coordinates.
func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

// mustGrid builds a grid and panics on invalid parameters.
func mustGrid(ox, oy, cw, ch float64, cols, rows int) grid.Grid {
	g, err := grid.New(pt(ox, oy), cw, ch, cols, rows)
	if err != nil {
		panic(err)
	}
	return g
}

// unitGrid is a north-up grid of unit cells covering [0,n]×[0,n].
func unitGrid(n int) grid.Grid {
	g, err := grid.NorthUp(rect.Rect{URx: float64(n), URy: float64(n)}, n, n)
	if err != nil {
		panic(err)
	}
	return g
}

// polygonCase builds a test case for a polygonal geometry which lies
// entirely inside the grid.
func polygonCase(name string, g grid.Grid, geom geometry.Geometry) TestCase {
	return TestCase{
		Name:     name,
		Geometry: geom,
		Grid:     g,
		Area:     geom.Area(),
	}
}

// rectangle builds an axis-aligned rectangle with counter-clockwise vertices.
func rectangle(x0, y0, x1, y1 float64) geometry.Ring {
	return geometry.Ring{pt(x0, y0), pt(x1, y0), pt(x1, y1), pt(x0, y1)}
}

// reversed returns the ring with the opposite orientation.
func reversed(r geometry.Ring) geometry.Ring {
	res := make(geometry.Ring, len(r))
	for i, p := range r {
		res[len(r)-1-i] = p
	}
	return res
}

// translated returns the ring shifted by (dx, dy).
func translated(r geometry.Ring, dx, dy float64) geometry.Ring {
	res := make(geometry.Ring, len(r))
	for i, p := range r {
		res[i] = pt(p.X+dx, p.Y+dy)
	}
	return res
}
