package testcases

import (
	"math"

	"seehuhn.de/go/zonal/geometry"
)

var fillCases = []TestCase{
	polygonCase("triangle", unitGrid(64),
		geometry.Polygon{{pt(10, 50), pt(32, 10), pt(54, 50)}}),
	polygonCase("triangle_diagonal", unitGrid(10),
		geometry.Polygon{{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 0)}}),
	polygonCase("rectangle_aligned", unitGrid(64),
		geometry.Polygon{rectangle(10, 10, 44, 44)}),
	polygonCase("rectangle_offset", unitGrid(64),
		geometry.Polygon{rectangle(10.25, 10.5, 44.75, 43.125)}),
	polygonCase("rectangle_clockwise", unitGrid(64),
		geometry.Polygon{reversed(rectangle(10.25, 10.5, 44.75, 43.125))}),
	polygonCase("single_cell", unitGrid(8),
		geometry.Polygon{rectangle(3, 4, 4, 5)}),
	polygonCase("inside_one_cell", unitGrid(8),
		geometry.Polygon{rectangle(3.2, 4.1, 3.7, 4.6)}),
	polygonCase("diamond", unitGrid(64),
		geometry.Polygon{diamond(32, 32, 20)}),
	polygonCase("regular_polygon", unitGrid(64),
		geometry.Polygon{regularPolygon(32.3, 31.7, 25, 17)}),
	polygonCase("closed_ring", unitGrid(16),
		geometry.Polygon{{pt(2, 2), pt(12.5, 3), pt(7, 13.25), pt(2, 2)}}),
	{
		Name:     "clipped_by_grid",
		Geometry: geometry.Polygon{rectangle(-4, -4, 5.5, 3)},
		Grid:     unitGrid(16),
		Area:     5.5 * 3,
	},
	{
		Name:     "covers_grid",
		Geometry: geometry.Polygon{rectangle(-100, -100, 100, 100)},
		Grid:     unitGrid(16),
		Area:     16 * 16,
	},
}

// diamond builds a square rotated by 45°, with corners at distance r from
// the centre.
func diamond(cx, cy, r float64) geometry.Ring {
	return geometry.Ring{pt(cx, cy-r), pt(cx+r, cy), pt(cx, cy+r), pt(cx-r, cy)}
}

// regularPolygon builds a convex regular polygon with n vertices.
func regularPolygon(cx, cy, r float64, n int) geometry.Ring {
	res := make(geometry.Ring, n)
	for i := range n {
		angle := float64(i) * 2 * math.Pi / float64(n)
		res[i] = pt(cx+r*math.Cos(angle), cy+r*math.Sin(angle))
	}
	return res
}
