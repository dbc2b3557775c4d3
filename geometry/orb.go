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

package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"seehuhn.de/go/geom/vec"
)

// FromOrb converts an orb geometry. Polygons, multipolygons, rings and
// bounds become polygonal geometries; line strings become Lines.
// Collections are flattened if all members are polygonal or all are linear.
func FromOrb(g orb.Geometry) (Geometry, error) {
	switch g := g.(type) {
	case nil:
		return MultiPolygon(nil), nil
	case orb.Polygon:
		return fromOrbPolygon(g), nil
	case orb.MultiPolygon:
		m := make(MultiPolygon, len(g))
		for i, p := range g {
			m[i] = fromOrbPolygon(p)
		}
		return m, nil
	case orb.Ring:
		return Polygon{fromOrbPoints(g)}, nil
	case orb.Bound:
		return fromOrbPolygon(g.ToPolygon()), nil
	case orb.LineString:
		return Lines{LineString(fromOrbPoints(g))}, nil
	case orb.MultiLineString:
		l := make(Lines, len(g))
		for i, ls := range g {
			l[i] = LineString(fromOrbPoints(ls))
		}
		return l, nil
	case orb.Collection:
		return fromOrbCollection(g)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, g.GeoJSONType())
	}
}

func fromOrbCollection(c orb.Collection) (Geometry, error) {
	var polys MultiPolygon
	var lines Lines
	for _, member := range c {
		g, err := FromOrb(member)
		if err != nil {
			return nil, err
		}
		switch g := g.(type) {
		case Polygon:
			polys = append(polys, g)
		case MultiPolygon:
			polys = append(polys, g...)
		case Lines:
			lines = append(lines, g...)
		}
	}
	if len(polys) > 0 && len(lines) > 0 {
		return nil, fmt.Errorf("%w: mixed polygons and lines in collection", ErrUnsupported)
	}
	if len(lines) > 0 {
		return lines, nil
	}
	return polys, nil
}

func fromOrbPolygon(p orb.Polygon) Polygon {
	res := make(Polygon, len(p))
	for i, r := range p {
		res[i] = fromOrbPoints(r)
	}
	return res
}

func fromOrbPoints[S ~[]orb.Point](pts S) Ring {
	res := make(Ring, len(pts))
	for i, p := range pts {
		res[i] = vec.Vec2{X: p[0], Y: p[1]}
	}
	return res
}

// ToOrb converts a geometry back to orb, for example to write it as GeoJSON.
func ToOrb(g Geometry) orb.Geometry {
	switch g := g.(type) {
	case Polygon:
		return toOrbPolygon(g)
	case MultiPolygon:
		m := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			m[i] = toOrbPolygon(p)
		}
		return m
	case Lines:
		m := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			m[i] = orb.LineString(toOrbPoints(ls))
		}
		if len(m) == 1 {
			return m[0]
		}
		return m
	default:
		return nil
	}
}

func toOrbPolygon(p Polygon) orb.Polygon {
	res := make(orb.Polygon, len(p))
	for i, r := range p {
		ring := orb.Ring(toOrbPoints(r))
		if n := len(ring); n > 0 && ring[0] != ring[n-1] {
			ring = append(ring, ring[0])
		}
		res[i] = ring
	}
	return res
}

func toOrbPoints[S ~[]vec.Vec2](pts S) []orb.Point {
	res := make([]orb.Point, len(pts))
	for i, p := range pts {
		res[i] = orb.Point{p.X, p.Y}
	}
	return res
}
