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

// gridCases measure the same kind of shape on grids with different
// orientation, cell shape and origin.
var gridCases = []TestCase{
	polygonCase("north_up", mustGrid(0, 20, 1, -1, 20, 20),
		geometry.Polygon{{pt(2.5, 3.2), pt(17.1, 5.5), pt(9.4, 18.8)}}),
	polygonCase("south_up", mustGrid(0, 0, 1, 1, 20, 20),
		geometry.Polygon{{pt(2.5, 3.2), pt(17.1, 5.5), pt(9.4, 18.8)}}),
	polygonCase("east_west_flipped", mustGrid(20, 20, -1, -1, 20, 20),
		geometry.Polygon{{pt(2.5, 3.2), pt(17.1, 5.5), pt(9.4, 18.8)}}),
	polygonCase("non_square_cells", mustGrid(0, 20, 0.5, -2, 40, 10),
		geometry.Polygon{{pt(2.5, 3.2), pt(17.1, 5.5), pt(9.4, 18.8)}}),
	polygonCase("small_cells", mustGrid(0, 0.02, 0.001, -0.001, 20, 20),
		geometry.Polygon{{pt(0.0025, 0.0032), pt(0.0171, 0.0055), pt(0.0094, 0.0188)}}),
	polygonCase("projected_origin", mustGrid(500000, 5000000, 30, -30, 200, 200),
		geometry.Polygon{{pt(500100, 4994500), pt(505800, 4995000), pt(503000, 4999900)}}),
	polygonCase("geographic_degrees", mustGrid(-180, 90, 0.25, -0.25, 1440, 720),
		geometry.Polygon{rectangle(5.87, 45.82, 10.49, 47.81), reversed(diamond(8, 46.8, 0.3))}),
}
