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

import "seehuhn.de/go/zonal/geometry"

// precisionCases place vertices and edges at or near cell boundaries,
// where round-off decides which cell receives the area.
var precisionCases = []TestCase{
	polygonCase("vertices_on_grid_lines", unitGrid(16),
		geometry.Polygon{{pt(2, 2), pt(14, 3), pt(9, 14), pt(4, 11)}}),
	polygonCase("edges_on_grid_lines", unitGrid(16),
		geometry.Polygon{{pt(3, 3), pt(12, 3), pt(12, 5), pt(7, 5), pt(7, 11), pt(3, 11)}}),
	polygonCase("near_grid_lines", unitGrid(16),
		geometry.Polygon{rectangle(3+1e-9, 3-1e-9, 12-1e-9, 11+1e-9)}),
	polygonCase("thin_vertical", unitGrid(16),
		geometry.Polygon{rectangle(5.5, 1.25, 5.5+1e-6, 14.75)}),
	polygonCase("thin_horizontal", unitGrid(16),
		geometry.Polygon{rectangle(1.25, 7.5, 14.75, 7.5+1e-6)}),
	polygonCase("thin_diagonal", unitGrid(16),
		geometry.Polygon{{pt(1, 1), pt(15, 14.999), pt(15, 15)}}),
	polygonCase("nearly_horizontal_edge", unitGrid(16),
		geometry.Polygon{{pt(1.5, 4), pt(14.5, 4+1e-11), pt(14.5, 9.5), pt(1.5, 9.5)}}),
	polygonCase("large_offset", mustGrid(1e6, 1e6+64, 1, -1, 64, 64),
		geometry.Polygon{translated(rectangle(10.3, 10.7, 50.1, 45.9), 1e6, 1e6)}),
	polygonCase("vertex_at_cell_corner", unitGrid(8),
		geometry.Polygon{{pt(1, 1), pt(4, 1), pt(7, 4), pt(4, 7), pt(1, 4)}}),
}
