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

// Package geometry holds the vector shapes whose coverage is computed.
//
// Shapes are plain slices of points in geographic coordinates. They are
// never modified by the coverage engine. Ring orientation in the input is
// irrelevant: Path normalises exterior rings to counter-clockwise and holes
// to clockwise order.
package geometry

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// ErrUnsupported is returned when converting a geometry type which has no
// area and cannot be buffered, such as a point.
var ErrUnsupported = errors.New("geometry: unsupported geometry type")

// Geometry is a shape whose cell coverage can be computed.
type Geometry interface {
	// Bounds returns the bounding box. The result is meaningless for an
	// empty geometry.
	Bounds() rect.Rect

	// Area returns the enclosed area. Holes are subtracted.
	Area() float64

	// Empty reports whether the geometry has no vertices.
	Empty() bool

	// Path returns the outline as a path. Closed shapes use closed subpaths
	// with normalised orientation.
	Path() *path.Data
}

// Ring is a closed sequence of vertices. Repeating the first vertex at the
// end is allowed but not required.
type Ring []vec.Vec2

// SignedArea returns the area enclosed by the ring, positive for
// counter-clockwise vertex order.
func (r Ring) SignedArea() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	// shift by the first vertex to reduce cancellation for large coordinates
	o := r[0]
	var s float64
	for i := 1; i < n-1; i++ {
		a := r[i].Sub(o)
		b := r[i+1].Sub(o)
		s += a.X*b.Y - a.Y*b.X
	}
	return s / 2
}

// Bounds returns the bounding box of the ring.
func (r Ring) Bounds() rect.Rect {
	return pointBounds(r)
}

// open returns the ring without a repeated closing vertex.
func (r Ring) open() Ring {
	if n := len(r); n > 1 && r[0] == r[n-1] {
		return r[:n-1]
	}
	return r
}

// appendPath adds the ring as a closed subpath. If ccw is true the vertices
// are emitted in counter-clockwise order, otherwise clockwise.
func (r Ring) appendPath(p *path.Data, ccw bool) *path.Data {
	pts := r.open()
	if len(pts) == 0 {
		return p
	}
	if (r.SignedArea() >= 0) == ccw {
		p = p.MoveTo(pts[0])
		for _, pt := range pts[1:] {
			p = p.LineTo(pt)
		}
	} else {
		p = p.MoveTo(pts[len(pts)-1])
		for i := len(pts) - 2; i >= 0; i-- {
			p = p.LineTo(pts[i])
		}
	}
	return p.Close()
}

// Polygon is an exterior ring followed by zero or more holes.
type Polygon []Ring

// Bounds returns the bounding box of the exterior ring.
func (p Polygon) Bounds() rect.Rect {
	if len(p) == 0 {
		return rect.Rect{}
	}
	return p[0].Bounds()
}

// Area returns the area of the exterior ring minus the area of the holes.
func (p Polygon) Area() float64 {
	if len(p) == 0 {
		return 0
	}
	a := math.Abs(p[0].SignedArea())
	for _, hole := range p[1:] {
		a -= math.Abs(hole.SignedArea())
	}
	return a
}

// Empty reports whether the polygon has no vertices.
func (p Polygon) Empty() bool {
	for _, r := range p {
		if len(r) > 0 {
			return false
		}
	}
	return true
}

// Path returns the polygon outline with a counter-clockwise exterior and
// clockwise holes.
func (p Polygon) Path() *path.Data {
	return p.appendPath(&path.Data{})
}

func (p Polygon) appendPath(d *path.Data) *path.Data {
	for i, r := range p {
		d = r.appendPath(d, i == 0)
	}
	return d
}

// MultiPolygon is a collection of polygons.
type MultiPolygon []Polygon

// Bounds returns the union of the parts' bounding boxes.
func (m MultiPolygon) Bounds() rect.Rect {
	var b rect.Rect
	first := true
	for _, p := range m {
		if p.Empty() {
			continue
		}
		b = extend(b, p.Bounds(), first)
		first = false
	}
	return b
}

// Area returns the sum of the areas of the parts.
func (m MultiPolygon) Area() float64 {
	var a float64
	for _, p := range m {
		a += p.Area()
	}
	return a
}

// Empty reports whether no part has any vertices.
func (m MultiPolygon) Empty() bool {
	for _, p := range m {
		if !p.Empty() {
			return false
		}
	}
	return true
}

// Path returns the outlines of all parts.
func (m MultiPolygon) Path() *path.Data {
	d := &path.Data{}
	for _, p := range m {
		d = p.appendPath(d)
	}
	return d
}

// LineString is an open polyline.
type LineString []vec.Vec2

// Lines is a collection of polylines. Lines enclose no area; their coverage
// is that of a buffer around them.
type Lines []LineString

// Bounds returns the bounding box of all vertices.
func (l Lines) Bounds() rect.Rect {
	var b rect.Rect
	first := true
	for _, ls := range l {
		if len(ls) == 0 {
			continue
		}
		b = extend(b, pointBounds(ls), first)
		first = false
	}
	return b
}

// Area always returns 0.
func (l Lines) Area() float64 { return 0 }

// Empty reports whether there are no vertices.
func (l Lines) Empty() bool {
	for _, ls := range l {
		if len(ls) > 0 {
			return false
		}
	}
	return true
}

// Path returns one open subpath per polyline.
func (l Lines) Path() *path.Data {
	d := &path.Data{}
	for _, ls := range l {
		if len(ls) == 0 {
			continue
		}
		d = d.MoveTo(ls[0])
		for _, pt := range ls[1:] {
			d = d.LineTo(pt)
		}
	}
	return d
}

// Rectangle returns the axis-aligned polygon covering r.
func Rectangle(r rect.Rect) Polygon {
	return Polygon{Ring{
		{X: r.LLx, Y: r.LLy},
		{X: r.URx, Y: r.LLy},
		{X: r.URx, Y: r.URy},
		{X: r.LLx, Y: r.URy},
	}}
}

func pointBounds(pts []vec.Vec2) rect.Rect {
	if len(pts) == 0 {
		return rect.Rect{}
	}
	b := rect.Rect{LLx: pts[0].X, LLy: pts[0].Y, URx: pts[0].X, URy: pts[0].Y}
	for _, p := range pts[1:] {
		b.LLx = min(b.LLx, p.X)
		b.LLy = min(b.LLy, p.Y)
		b.URx = max(b.URx, p.X)
		b.URy = max(b.URy, p.Y)
	}
	return b
}

func extend(b, other rect.Rect, first bool) rect.Rect {
	if first {
		return other
	}
	return rect.Rect{
		LLx: min(b.LLx, other.LLx),
		LLy: min(b.LLy, other.LLy),
		URx: max(b.URx, other.URx),
		URy: max(b.URy, other.URy),
	}
}
