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

	"seehuhn.de/go/zonal/geometry"
)

// complexCases are concave shapes with many edges per row.
var complexCases = []TestCase{
	polygonCase("star", unitGrid(64),
		geometry.Polygon{star(32, 32, 28, 11, 5)}),
	polygonCase("star_many_points", unitGrid(64),
		geometry.Polygon{star(31.6, 32.2, 29, 17.3, 23)}),
	polygonCase("comb", unitGrid(64),
		geometry.Polygon{comb(4.5, 6.2, 59.5, 57.3, 9)}),
	polygonCase("glyph_like", unitGrid(64),
		geometry.Polygon{{
			pt(10, 8), pt(50.5, 8), pt(50.5, 16.5), pt(20.25, 16.5), pt(20.25, 28),
			pt(44, 28), pt(44, 36.3), pt(20.25, 36.3), pt(20.25, 47.5), pt(51, 47.5),
			pt(51, 56), pt(10, 56),
		}}),
	polygonCase("coastline", unitGrid(128),
		geometry.Polygon{wobbly(64.2, 63.7, 50, 8, 1000)}),
}

// star builds a star-shaped polygon (not self-intersecting) with n points.
func star(cx, cy, rOuter, rInner float64, n int) geometry.Ring {
	res := make(geometry.Ring, 2*n)
	for i := range 2 * n {
		r := rOuter
		if i%2 == 1 {
			r = rInner
		}
		angle := float64(i)*math.Pi/float64(n) - math.Pi/2
		res[i] = pt(cx+r*math.Cos(angle), cy+r*math.Sin(angle))
	}
	return res
}

// comb builds a comb with n teeth pointing up.
func comb(x0, y0, x1, y1 float64, n int) geometry.Ring {
	w := (x1 - x0) / float64(2*n-1)
	base := y0 + (y1-y0)/5
	res := geometry.Ring{pt(x0, y0), pt(x1, y0)}
	for i := n - 1; i >= 0; i-- {
		left := x0 + float64(2*i)*w
		right := left + w
		res = append(res, pt(right, y1), pt(left, y1))
		if i > 0 {
			res = append(res, pt(left, base), pt(left-w, base))
		}
	}
	return res
}

// wobbly builds a star-shaped polygon with a deterministic irregular
// outline and many vertices.
func wobbly(cx, cy, r, amplitude float64, n int) geometry.Ring {
	res := make(geometry.Ring, n)
	for i := range n {
		t := float64(i) * 2 * math.Pi / float64(n)
		rr := r + amplitude*(math.Sin(7*t)*0.6+math.Sin(23*t+1)*0.3+math.Sin(101*t+2)*0.1)
		res[i] = pt(cx+rr*math.Cos(t), cy+rr*math.Sin(t))
	}
	return res
}
