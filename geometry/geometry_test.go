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
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

func square(x0, y0, x1, y1 float64) Ring {
	return Ring{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func reversed(r Ring) Ring {
	res := make(Ring, len(r))
	for i, p := range r {
		res[len(r)-1-i] = p
	}
	return res
}

// pathRings extracts the vertex lists of the closed subpaths of p.
func pathRings(p *path.Data) []Ring {
	var res []Ring
	var cur Ring
	idx := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			cur = Ring{p.Coords[idx]}
			idx++
		case path.CmdLineTo:
			cur = append(cur, p.Coords[idx])
			idx++
		case path.CmdClose:
			res = append(res, cur)
		}
	}
	return res
}

func TestSignedArea(t *testing.T) {
	ccw := square(0, 0, 2, 3)
	assert.InDelta(t, 6, ccw.SignedArea(), 1e-12)
	assert.InDelta(t, -6, reversed(ccw).SignedArea(), 1e-12)

	closed := append(square(0, 0, 2, 3), vec.Vec2{X: 0, Y: 0})
	assert.InDelta(t, 6, closed.SignedArea(), 1e-12)

	assert.Zero(t, Ring{{X: 0, Y: 0}, {X: 1, Y: 1}}.SignedArea())
}

func TestPolygonArea(t *testing.T) {
	p := Polygon{square(0, 0, 10, 10), reversed(square(2, 2, 4, 4)), square(6, 6, 7, 7)}
	assert.InDelta(t, 100-4-1, p.Area(), 1e-12)
	assert.Equal(t, rect.Rect{LLx: 0, LLy: 0, URx: 10, URy: 10}, p.Bounds())

	m := MultiPolygon{p, {square(20, 20, 21, 22)}}
	assert.InDelta(t, 95+2, m.Area(), 1e-12)
	assert.Equal(t, rect.Rect{LLx: 0, LLy: 0, URx: 21, URy: 22}, m.Bounds())
}

func TestPathOrientation(t *testing.T) {
	// input orientation is deliberately wrong for both rings
	p := Polygon{reversed(square(0, 0, 10, 10)), square(2, 2, 4, 4)}
	rings := pathRings(p.Path())
	require.Len(t, rings, 2)
	assert.Greater(t, rings[0].SignedArea(), 0.0, "exterior must be counter-clockwise")
	assert.Less(t, rings[1].SignedArea(), 0.0, "hole must be clockwise")
	assert.Len(t, rings[0], 4)
}

func TestPathDropsClosingVertex(t *testing.T) {
	r := append(square(0, 0, 1, 1), vec.Vec2{X: 0, Y: 0})
	rings := pathRings(Polygon{r}.Path())
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 4)
}

func TestEmpty(t *testing.T) {
	assert.True(t, Polygon{}.Empty())
	assert.True(t, Polygon{Ring{}}.Empty())
	assert.True(t, MultiPolygon{{}, {Ring{}}}.Empty())
	assert.True(t, Lines{}.Empty())
	assert.False(t, Rectangle(rect.Rect{URx: 1, URy: 1}).Empty())
}

func TestFromOrb(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {1, 2}, {2, 2}, {2, 1}, {1, 1}},
	}

	g, err := FromOrb(poly)
	require.NoError(t, err)
	require.IsType(t, Polygon{}, g)
	assert.InDelta(t, 15, g.Area(), 1e-12)

	g, err = FromOrb(orb.MultiPolygon{poly, {{{10, 10}, {11, 10}, {11, 11}, {10, 10}}}})
	require.NoError(t, err)
	assert.InDelta(t, 15.5, g.Area(), 1e-12)

	g, err = FromOrb(orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3, 5}})
	require.NoError(t, err)
	assert.InDelta(t, 6, g.Area(), 1e-12)

	g, err = FromOrb(orb.LineString{{0, 0}, {5, 0}})
	require.NoError(t, err)
	assert.IsType(t, Lines{}, g)
	assert.Zero(t, g.Area())

	_, err = FromOrb(orb.Point{1, 2})
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = FromOrb(orb.Collection{poly, orb.LineString{{0, 0}, {1, 1}}})
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestToOrbRoundTrip(t *testing.T) {
	p := Polygon{square(0, 0, 3, 3), reversed(square(1, 1, 2, 2))}
	o := ToOrb(p)
	op, ok := o.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, op, 2)
	assert.Equal(t, op[0][0], op[0][len(op[0])-1], "orb rings are explicitly closed")

	back, err := FromOrb(o)
	require.NoError(t, err)
	assert.InDelta(t, p.Area(), back.Area(), 1e-12)
}
