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

// largeCases contains test cases with bounding boxes > 65536 cells
// to exercise Approach B (active edge list) in the rasteriser.
var largeCases = []TestCase{
	polygonCase("large_rectangle", unitGrid(512),
		geometry.Polygon{rectangle(50.5, 50.25, 461.75, 462)}),
	polygonCase("large_concentric", unitGrid(512), geometry.Polygon{
		rectangle(56, 56, 456, 456),
		rectangle(156.5, 156.5, 355.5, 355.5),
	}),
	polygonCase("large_diamond", unitGrid(512),
		geometry.Polygon{diamond(256, 256, 180.3)}),
	polygonCase("large_star", unitGrid(512),
		geometry.Polygon{star(256.2, 255.9, 240, 90, 12)}),
	polygonCase("large_multi", unitGrid(512), geometry.MultiPolygon{
		{rectangle(10.5, 10.5, 250.5, 250.5)},
		{diamond(380, 380, 120)},
		{regularPolygon(120, 400, 90, 33)},
	}),
}
