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

package coverage

import (
	"math"

	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/zonal/geometry"
)

// lineSegment is a non-degenerate piece of a polyline.
type lineSegment struct {
	A, B vec.Vec2 // endpoints
	T    vec.Vec2 // unit tangent (A→B direction)
	N    vec.Vec2 // unit normal (90° CCW from T)
}

// bufferLines computes the coverage of the area within Width/2 of the
// polylines, using Cap and Join for the outline shape. Overlapping parts
// of the buffer are counted once.
func (r *rasteriser) bufferLines(lines geometry.Lines, emit func(y, xMin int, coverage []float64)) {
	r.collectSegments(lines)
	if len(r.polylines) == 0 && len(r.points) == 0 {
		return
	}

	r.outline = r.outline[:0]
	r.outlineOffsets = r.outlineOffsets[:0]

	// isolated points only have an extent with round caps
	if r.Cap == graphics.LineCapRound {
		for _, pt := range r.points {
			start := len(r.outline)
			r.addArc(pt, r.Width/2, vec.Vec2{X: 1, Y: 0}, 2*math.Pi, true)
			r.outlineOffsets = append(r.outlineOffsets, start)
		}
	}

	for i := range r.polylines {
		start := len(r.outline)
		r.outlinePolyline(r.polyline(i))
		if len(r.outline)-start >= 3 {
			r.outlineOffsets = append(r.outlineOffsets, start)
		} else {
			r.outline = r.outline[:start]
		}
	}

	if len(r.outlineOffsets) == 0 {
		return
	}
	xMin, xMax, yMin, yMax, ok := r.collectOutlineEdges()
	if !ok {
		return
	}
	r.fill(xMin, xMax, yMin, yMax, fillNonZero, emit)
}

// polyline returns the segments of polyline i as a slice into r.segs.
func (r *rasteriser) polyline(i int) []lineSegment {
	end := len(r.segs)
	if i+1 < len(r.polylines) {
		end = r.polylines[i+1]
	}
	return r.segs[r.polylines[i]:end]
}

// collectSegments splits the polylines into non-degenerate segments.
// Polylines without any such segment are kept in r.points.
func (r *rasteriser) collectSegments(lines geometry.Lines) {
	r.segs = r.segs[:0]
	r.polylines = r.polylines[:0]
	r.points = r.points[:0]

	for _, ls := range lines {
		if len(ls) == 0 {
			continue
		}
		start := len(r.segs)
		for i := 1; i < len(ls); i++ {
			r.addSegment(ls[i-1], ls[i])
		}
		if len(r.segs) == start {
			r.points = append(r.points, ls[0])
		} else {
			r.polylines = append(r.polylines, start)
		}
	}
}

// addSegment appends the segment from a to b, unless it has zero length.
func (r *rasteriser) addSegment(a, b vec.Vec2) {
	d := b.Sub(a)
	length := d.Length()
	if length < zeroLengthThreshold {
		return
	}
	t := d.Mul(1 / length)
	r.segs = append(r.segs, lineSegment{A: a, B: b, T: t, N: vec.Vec2{X: -t.Y, Y: t.X}})
}

// outlinePolyline appends the buffer outline of one polyline to r.outline.
// The outline is a closed polygon: forward along the +N side, around the
// end cap, back along the -N side and around the start cap. Joins are
// added on the outer side of each corner.
func (r *rasteriser) outlinePolyline(segs []lineSegment) {
	if len(segs) == 0 {
		return
	}
	d := r.Width / 2
	first := &segs[0]
	last := &segs[len(segs)-1]

	r.addCap(first.A, first.T.Mul(-1), d)

	skipNextA := false
	for i := range segs {
		seg := &segs[i]
		if !skipNextA {
			r.outline = append(r.outline, seg.A.Add(seg.N.Mul(d)))
		}
		skipNextA = false
		if i == len(segs)-1 {
			r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)))
			continue
		}
		next := &segs[i+1]
		sinTheta := seg.T.X*next.T.Y - seg.T.Y*next.T.X
		switch {
		case math.Abs(sinTheta) < collinearityThreshold:
			r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)))
		case sinTheta > 0:
			skipNextA = r.addInnerIntersectionOrOffsets(seg.B, seg.T, next.T, seg.N, next.N, d, true)
		default:
			r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)))
			r.addJoin(seg.B, seg.T, next.T, d, true)
		}
	}

	r.addCap(last.B, last.T, d)

	skipNextB := false
	for i := len(segs) - 1; i >= 0; i-- {
		seg := &segs[i]
		if !skipNextB {
			r.outline = append(r.outline, seg.B.Sub(seg.N.Mul(d)))
		}
		skipNextB = false
		if i == 0 {
			r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)))
			continue
		}
		prev := &segs[i-1]
		sinTheta := prev.T.X*seg.T.Y - prev.T.Y*seg.T.X
		switch {
		case math.Abs(sinTheta) < collinearityThreshold:
			r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)))
		case sinTheta > 0:
			r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)))
			r.addJoin(seg.A, prev.T, seg.T, d, false)
		default:
			skipNextB = r.addInnerIntersectionOrOffsets(seg.A, prev.T, seg.T, prev.N, seg.N, d, false)
		}
	}
}

// addCap adds a line cap at point P. T is the outward tangent direction
// and d is half the buffer width.
func (r *rasteriser) addCap(P, T vec.Vec2, d float64) {
	N := vec.Vec2{X: -T.Y, Y: T.X}

	switch r.Cap {
	case graphics.LineCapSquare:
		ext := P.Add(T.Mul(d))
		r.outline = append(r.outline, ext.Add(N.Mul(d)), ext.Sub(N.Mul(d)))

	case graphics.LineCapRound:
		// semicircle from N through T to -N
		r.addArc(P, d, N, -math.Pi, true)
	}
}

// computeInnerIntersection returns the intersection point of the two inner
// offset lines at a corner.
func computeInnerIntersection(P, T1, T2 vec.Vec2, d float64, isPositiveNormalSide bool) (vec.Vec2, bool) {
	cosTheta := T1.Dot(T2)
	if cosTheta > 1-1e-9 {
		return vec.Vec2{}, false
	}

	// cos(θ/2) = sqrt((1 + cos θ) / 2)
	halfAngle := math.Sqrt((1 + cosTheta) / 2)
	if halfAngle < 1e-9 {
		return vec.Vec2{}, false
	}

	N1 := vec.Vec2{X: -T1.Y, Y: T1.X}
	N2 := vec.Vec2{X: -T2.Y, Y: T2.X}
	innerDir := N1.Add(N2)
	if !isPositiveNormalSide {
		innerDir = innerDir.Mul(-1)
	}

	innerDirLen := innerDir.Length()
	if innerDirLen < 1e-9 {
		return vec.Vec2{}, false
	}
	innerDir = innerDir.Mul(1 / innerDirLen)

	return P.Add(innerDir.Mul(d / halfAngle)), true
}

// addInnerIntersectionOrOffsets handles the inner side of a corner. It
// reports whether the intersection point was used, in which case the next
// segment's offset start point must be skipped.
func (r *rasteriser) addInnerIntersectionOrOffsets(P, T1, T2, N1, N2 vec.Vec2, d float64, isPositiveNormalSide bool) bool {
	if innerPt, ok := computeInnerIntersection(P, T1, T2, d, isPositiveNormalSide); ok {
		r.outline = append(r.outline, innerPt)
		return true
	}
	if isPositiveNormalSide {
		r.outline = append(r.outline, P.Add(N1.Mul(d)), P.Add(N2.Mul(d)))
	} else {
		r.outline = append(r.outline, P.Sub(N1.Mul(d)), P.Sub(N2.Mul(d)))
	}
	return false
}

// addJoin adds a line join at point P where the tangent changes from T1
// to T2, on the side selected by isPositiveNormalSide.
func (r *rasteriser) addJoin(P, T1, T2 vec.Vec2, d float64, isPositiveNormalSide bool) {
	cosTheta := T1.Dot(T2)
	sinTheta := T1.X*T2.Y - T1.Y*T2.X

	if sinTheta > -collinearityThreshold && sinTheta < collinearityThreshold {
		return
	}

	// cusp: the line doubles back on itself
	if cosTheta < cuspCosineThreshold {
		r.addCap(P, T1, d)
		r.addCap(P, T2.Mul(-1), d)
		return
	}

	switch r.Join {
	case graphics.LineJoinMiter:
		// miter length ratio is 1/sin(φ/2) = 1/cos(θ/2)
		sinHalf := math.Sqrt((1 + cosTheta) / 2)
		const miterEpsilon = 1e-10
		if sinHalf > 0 && 1/sinHalf <= r.MiterLimit+miterEpsilon {
			N1 := vec.Vec2{X: -T1.Y, Y: T1.X}
			N2 := vec.Vec2{X: -T2.Y, Y: T2.X}
			bisector := N1.Add(N2)
			if !isPositiveNormalSide {
				bisector = bisector.Mul(-1)
			}
			if l := bisector.Length(); l > zeroLengthThreshold {
				r.outline = append(r.outline, P.Add(bisector.Mul(d/(l*sinHalf))))
			}
		}
		// beyond the miter limit the join is bevelled

	case graphics.LineJoinBevel:
		// the offset lines meet directly

	case graphics.LineJoinRound:
		angle := math.Acos(max(-1, min(1, cosTheta)))
		if isPositiveNormalSide {
			N1 := vec.Vec2{X: -T1.Y, Y: T1.X}
			if sinTheta > 0 {
				r.addArc(P, d, N1, angle, false)
			} else {
				r.addArc(P, d, N1, -angle, false)
			}
		} else {
			N2 := vec.Vec2{X: T2.Y, Y: -T2.X}
			if sinTheta > 0 {
				r.addArc(P, d, N2, -angle, false)
			} else {
				r.addArc(P, d, N2, angle, false)
			}
		}
	}
}

// addArc adds arc vertices to the outline.
// startDir is the unit vector from center to arc start and sweep is the
// sweep angle in radians (positive = CCW).
func (r *rasteriser) addArc(center vec.Vec2, radius float64, startDir vec.Vec2, sweep float64, includeStart bool) {
	// the flatness tolerance is given in cells
	devRadius := max(
		r.transformLinear(vec.Vec2{X: radius, Y: 0}).Length(),
		r.transformLinear(vec.Vec2{X: 0, Y: radius}).Length())

	rotate := func(angle float64) vec.Vec2 {
		cos, sin := math.Cos(angle), math.Sin(angle)
		return vec.Vec2{
			X: startDir.X*cos - startDir.Y*sin,
			Y: startDir.X*sin + startDir.Y*cos,
		}
	}

	if devRadius < r.Flatness {
		if includeStart {
			r.outline = append(r.outline, center.Add(startDir.Mul(radius)))
		}
		r.outline = append(r.outline, center.Add(rotate(sweep).Mul(radius)))
		return
	}

	// A chord subtending angle θ deviates from the arc by r*(1 - cos(θ/2)).
	angleStep := 2 * math.Acos(1-r.Flatness/devRadius)
	if angleStep <= 0 || math.IsNaN(angleStep) {
		angleStep = math.Pi / 4
	}
	n := max(int(math.Ceil(math.Abs(sweep)/angleStep)), 1)

	dt := sweep / float64(n)
	startI := 0
	if !includeStart {
		startI = 1
	}
	for i := startI; i <= n; i++ {
		r.outline = append(r.outline, center.Add(rotate(float64(i)*dt).Mul(radius)))
	}
}

// collectOutlineEdges builds the edge list from the outline polygons.
func (r *rasteriser) collectOutlineEdges() (xMin, xMax, yMin, yMax int, ok bool) {
	r.edges = r.edges[:0]
	r.edgeBBoxFirst = true

	for i, start := range r.outlineOffsets {
		end := len(r.outline)
		if i+1 < len(r.outlineOffsets) {
			end = r.outlineOffsets[i+1]
		}
		poly := r.outline[start:end]
		if len(poly) < 2 {
			continue
		}
		// Give all outlines the same orientation, so that overlapping
		// buffers of different lines add up instead of cancelling.
		if outlineArea(poly) >= 0 {
			for j := 1; j < len(poly); j++ {
				r.addEdge(poly[j-1], poly[j])
			}
			r.addEdge(poly[len(poly)-1], poly[0])
		} else {
			for j := len(poly) - 1; j > 0; j-- {
				r.addEdge(poly[j], poly[j-1])
			}
			r.addEdge(poly[0], poly[len(poly)-1])
		}
	}

	return r.edgeBounds()
}

// outlineArea returns the signed area of a closed polygon, positive for
// counter-clockwise order.
func outlineArea(poly []vec.Vec2) float64 {
	var s float64
	o := poly[0]
	for i := 1; i < len(poly)-1; i++ {
		a := poly[i].Sub(o)
		b := poly[i+1].Sub(o)
		s += a.X*b.Y - a.Y*b.X
	}
	return s / 2
}
