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

// subpathCases cover polygons with holes and multi-part geometries.
var subpathCases = []TestCase{
	polygonCase("square_hole", unitGrid(32), geometry.Polygon{
		rectangle(4, 4, 28, 28),
		reversed(rectangle(10, 10, 20, 20)),
	}),
	polygonCase("square_hole_same_orientation", unitGrid(32), geometry.Polygon{
		rectangle(4, 4, 28, 28),
		rectangle(10, 10, 20, 20),
	}),
	polygonCase("offset_hole", unitGrid(32), geometry.Polygon{
		rectangle(4.3, 4.6, 27.2, 28.1),
		rectangle(10.5, 10.25, 19.75, 20.125),
	}),
	polygonCase("diamond_hole", unitGrid(64), geometry.Polygon{
		rectangle(8, 8, 56, 56),
		diamond(32, 32, 15.5),
	}),
	polygonCase("hole_in_one_cell", unitGrid(16), geometry.Polygon{
		rectangle(2, 2, 14, 14),
		rectangle(7.25, 7.25, 7.75, 7.75),
	}),
	polygonCase("several_holes", unitGrid(64), geometry.Polygon{
		regularPolygon(32, 32, 30, 40),
		diamond(20, 32, 5),
		diamond(44, 32, 5),
		rectangle(28.5, 15.5, 35.5, 22.5),
	}),
	polygonCase("two_parts", unitGrid(32), geometry.MultiPolygon{
		{rectangle(2, 2, 10.5, 10.5)},
		{diamond(22, 22, 6)},
	}),
	polygonCase("parts_sharing_edge", unitGrid(32), geometry.MultiPolygon{
		{rectangle(2.5, 2.5, 10.3, 12.7)},
		{rectangle(10.3, 2.5, 20.9, 12.7)},
	}),
	polygonCase("parts_sharing_diagonal", unitGrid(32), geometry.MultiPolygon{
		{{pt(3, 3), pt(25.5, 3), pt(3, 27.3)}},
		{{pt(25.5, 3), pt(25.5, 27.3), pt(3, 27.3)}},
	}),
	polygonCase("part_in_hole", unitGrid(32), geometry.MultiPolygon{
		{rectangle(2, 2, 30, 30), rectangle(8, 8, 24, 24)},
		{rectangle(12.5, 12.5, 19.5, 19.5)},
	}),
}
