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
	"math"

	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/zonal/geometry"
)

// bufferCases measure the buffer around line geometries.
var bufferCases = []TestCase{
	{
		Name:     "horizontal_butt",
		Geometry: geometry.Lines{{pt(4.3, 10.5), pt(27.8, 10.5)}},
		Grid:     unitGrid(32),
		Buffer:   &Buffer{Width: 2, Cap: graphics.LineCapButt, Join: graphics.LineJoinMiter, MiterLimit: 10},
		Area:     23.5 * 2,
	},
	{
		Name:     "diagonal_square_cap",
		Geometry: geometry.Lines{{pt(5, 5), pt(25, 20)}},
		Grid:     unitGrid(32),
		Buffer:   &Buffer{Width: 1.5, Cap: graphics.LineCapSquare, Join: graphics.LineJoinMiter, MiterLimit: 10},
		Area:     (25 + 1.5) * 1.5,
	},
	{
		Name:     "right_angle_miter",
		Geometry: geometry.Lines{{pt(1, 1), pt(8, 1), pt(8, 8)}},
		Grid:     unitGrid(16),
		Buffer:   &Buffer{Width: 1, Cap: graphics.LineCapButt, Join: graphics.LineJoinMiter, MiterLimit: 10},
		Area:     14,
	},
	{
		Name:     "right_angle_bevel",
		Geometry: geometry.Lines{{pt(1, 1), pt(8, 1), pt(8, 8)}},
		Grid:     unitGrid(16),
		Buffer:   &Buffer{Width: 1, Cap: graphics.LineCapButt, Join: graphics.LineJoinBevel, MiterLimit: 10},
		Area:     14 - 0.125,
	},
	{
		Name:      "round_cap",
		Geometry:  geometry.Lines{{pt(6.2, 12.1), pt(24.7, 12.1)}},
		Grid:      unitGrid(32),
		Buffer:    &Buffer{Width: 4, Cap: graphics.LineCapRound, Join: graphics.LineJoinRound, MiterLimit: 10},
		Area:      18.5*4 + math.Pi*4,
		Tolerance: 2e-3,
	},
	{
		Name:     "two_parallel_lines",
		Geometry: geometry.Lines{{pt(2, 4), pt(20, 4)}, {pt(20, 10), pt(2, 10)}},
		Grid:     unitGrid(32),
		Buffer:   &Buffer{Width: 2, Cap: graphics.LineCapButt, Join: graphics.LineJoinMiter, MiterLimit: 10},
		Area:     2 * 18 * 2,
	},
	{
		Name:     "crossing_lines",
		Geometry: geometry.Lines{{pt(2, 10), pt(20, 10)}, {pt(11, 20), pt(11, 2)}},
		Grid:     unitGrid(32),
		Buffer:   &Buffer{Width: 2, Cap: graphics.LineCapButt, Join: graphics.LineJoinMiter, MiterLimit: 10},
		Area:     2*18*2 - 4,
	},
}
