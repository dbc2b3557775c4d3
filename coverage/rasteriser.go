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
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// edge represents a line segment in cell space.
type edge struct {
	x0, y0 float64 // start point
	x1, y1 float64 // end point
	dxdy   float64 // (x1-x0)/(y1-y0), precomputed for x-intercept calculation
}

// rasteriser computes the exact area of a path inside every cell of a
// rectangular block of grid cells. One instance is reused for many paths;
// internal buffers grow as needed but never shrink.
type rasteriser struct {
	// CTM maps geographic coordinates to cell space.
	// Must be a non-singular matrix.
	CTM matrix.Matrix

	// Clip is the block of cells to compute, in cell space.
	// Must be a non-empty rectangle with integer-aligned coordinates.
	Clip rect.Rect

	// Flatness is the curve flattening tolerance in cells.
	Flatness float64

	// Width is the buffer width for line geometries, in geographic units.
	Width float64

	// Cap is the end style of buffered lines.
	Cap graphics.LineCapStyle

	// Join is the corner style of buffered lines.
	Join graphics.LineJoinStyle

	// MiterLimit is the miter limit for miter joins.
	// Must be >= 1.0.
	MiterLimit float64

	// smallPathThreshold is the maximum bounding box area (in cells) for
	// using 2D buffers (Approach A). Paths with larger bounding boxes use
	// the active edge list (Approach B).
	smallPathThreshold int

	// noShortcut disables rounding of cells which no edge crosses.
	noShortcut bool

	// winding is +1 or -1 so that counter-clockwise rings produce positive
	// area after the CTM has been applied.
	winding float64

	cover      []float64 // cover change per cell; reused as output
	area       []float64 // area within cell
	touched    []bool    // cells which received an area contribution
	fractional []bool    // rows containing an edge end point
	rowActive  []bool    // rows with at least one edge (Approach A)
	edges      []edge    // edge list for current path (cell space)
	activeIdx  []int     // indices of active edges
	crossings  []float64 // y values where an edge crosses column boundaries

	// line buffering
	segs           []lineSegment // segments of all polylines, contiguous
	polylines      []int         // start index of each polyline in segs
	points         []vec.Vec2    // polylines of zero length
	outline        []vec.Vec2    // buffer outline vertices (all polygons contiguous)
	outlineOffsets []int         // start index of each outline polygon in outline

	// Edge collection state (used by addEdge)
	edgeBBoxFirst bool
	edgeDevXMin   float64
	edgeDevXMax   float64
	edgeDevYMin   float64
	edgeDevYMax   float64
}

// newRasteriser returns a rasteriser with default parameters.
func newRasteriser() *rasteriser {
	return &rasteriser{
		CTM:                matrix.Identity,
		Flatness:           defaultFlatness,
		Cap:                graphics.LineCapRound,
		Join:               graphics.LineJoinRound,
		MiterLimit:         defaultMiterLimit,
		smallPathThreshold: smallPathThreshold,
	}
}

// transformLinear applies only the 2×2 linear part of CTM to a vector.
func (r *rasteriser) transformLinear(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: r.CTM[0]*v.X + r.CTM[2]*v.Y,
		Y: r.CTM[1]*v.X + r.CTM[3]*v.Y,
	}
}

// flattenQuadratic flattens a quadratic Bézier and calls emit for each line segment.
// p0 is the start point (current point), p1 is control, p2 is endpoint.
func (r *rasteriser) flattenQuadratic(p0, p1, p2 vec.Vec2, emit func(from, to vec.Vec2)) {
	// error vector: e = (P0 - 2*P1 + P2) / 4
	e := p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25)
	errDev := r.transformLinear(e).Length()

	n := 1
	if errDev > r.Flatness {
		n = int(math.Ceil(math.Sqrt(errDev / r.Flatness)))
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		pt := p0.Mul(omt * omt).Add(p1.Mul(2 * omt * t)).Add(p2.Mul(t * t))
		emit(prev, pt)
		prev = pt
	}
}

// flattenCubic flattens a cubic Bézier and calls emit for each line segment.
// p0 is start, p1/p2 are controls, p3 is endpoint.
func (r *rasteriser) flattenCubic(p0, p1, p2, p3 vec.Vec2, emit func(from, to vec.Vec2)) {
	d1 := p0.Sub(p1.Mul(2)).Add(p2) // P0 - 2*P1 + P2
	d2 := p1.Sub(p2.Mul(2)).Add(p3) // P1 - 2*P2 + P3

	// Wang's formula: n = ceil(sqrt(3 * m / (4 * ε)))
	m := max(r.transformLinear(d1).Length(), r.transformLinear(d2).Length())
	n := 1
	if m > 0 {
		nFloat := math.Sqrt(3 * m / (4 * r.Flatness))
		if nFloat > 1 {
			n = int(math.Ceil(nFloat))
		}
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		omt2 := omt * omt
		t2 := t * t
		pt := p0.Mul(omt2 * omt).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t2 * t))
		emit(prev, pt)
		prev = pt
	}
}

// fillRule identifies how the accumulated signed area is mapped to a
// coverage fraction.
type fillRule int

const (
	// fillSigned clamps the oriented area to [0, 1]. Holes, which have the
	// opposite orientation, subtract from the area of the enclosing ring.
	fillSigned fillRule = iota

	// fillNonZero clamps the absolute area to [0, 1], so that overlapping
	// outlines are counted once regardless of their orientation.
	fillNonZero
)

// FillPath computes the coverage of the area enclosed by p. Coverage is
// delivered row by row via the emit callback; the coverage slice is only
// valid for the duration of the callback.
func (r *rasteriser) FillPath(p *path.Data, emit func(y, xMin int, coverage []float64)) {
	xMin, xMax, yMin, yMax, ok := r.collectPathEdges(p)
	if !ok {
		return
	}
	r.fill(xMin, xMax, yMin, yMax, fillSigned, emit)
}

// fill dispatches to one of the two accumulation strategies.
func (r *rasteriser) fill(xMin, xMax, yMin, yMax int, rule fillRule, emit func(y, xMin int, coverage []float64)) {
	det := r.CTM[0]*r.CTM[3] - r.CTM[1]*r.CTM[2]
	r.winding = 1
	if det > 0 {
		r.winding = -1
	}

	r.markFractionalRows(yMin, yMax)

	width := xMax - xMin
	height := yMax - yMin
	if width*height < r.smallPathThreshold {
		r.fillSmallPath(xMin, xMax, yMin, yMax, rule, emit)
	} else {
		r.fillLargePath(xMin, xMax, yMin, yMax, rule, emit)
	}
}

// collectPathEdges walks the path, transforms to cell space, and builds the edge list.
// Returns the bounding box of all edges in cell coordinates (clamped to clip).
func (r *rasteriser) collectPathEdges(p *path.Data) (xMin, xMax, yMin, yMax int, ok bool) {
	r.edges = r.edges[:0]
	r.edgeBBoxFirst = true

	var current vec.Vec2 // current point
	var subpath vec.Vec2 // subpath start
	open := false

	coordIdx := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			// rings are closed implicitly
			if open && current != subpath {
				r.addEdge(current, subpath)
			}
			current = p.Coords[coordIdx]
			subpath = current
			open = true
			coordIdx++

		case path.CmdLineTo:
			r.addEdge(current, p.Coords[coordIdx])
			current = p.Coords[coordIdx]
			coordIdx++

		case path.CmdQuadTo:
			r.flattenQuadratic(current, p.Coords[coordIdx], p.Coords[coordIdx+1], r.addEdge)
			current = p.Coords[coordIdx+1]
			coordIdx += 2

		case path.CmdCubeTo:
			r.flattenCubic(current, p.Coords[coordIdx], p.Coords[coordIdx+1], p.Coords[coordIdx+2], r.addEdge)
			current = p.Coords[coordIdx+2]
			coordIdx += 3

		case path.CmdClose:
			if current != subpath {
				r.addEdge(current, subpath)
			}
			current = subpath
			open = false
		}
	}
	if open && current != subpath {
		r.addEdge(current, subpath)
	}

	return r.edgeBounds()
}

// edgeBounds returns the bounding box of the collected edges, clamped to
// the clip rectangle.
func (r *rasteriser) edgeBounds() (xMin, xMax, yMin, yMax int, ok bool) {
	if len(r.edges) == 0 {
		return 0, 0, 0, 0, false
	}

	clipXMin := int(r.Clip.LLx)
	clipXMax := int(r.Clip.URx)
	clipYMin := int(r.Clip.LLy)
	clipYMax := int(r.Clip.URy)

	// Edges left of the clip still contribute to the cells they enclose,
	// so the left bound is only clamped, never used to discard the path.
	xMin = max(int(math.Floor(r.edgeDevXMin)), clipXMin)
	xMax = min(int(math.Floor(r.edgeDevXMax))+1, clipXMax)
	yMin = max(int(math.Floor(r.edgeDevYMin)), clipYMin)
	yMax = min(int(math.Floor(r.edgeDevYMax))+1, clipYMax)

	if xMin >= xMax || yMin >= yMax {
		return 0, 0, 0, 0, false
	}
	return xMin, xMax, yMin, yMax, true
}

// addEdge adds an edge given in geographic coordinates, transforming to cell space.
func (r *rasteriser) addEdge(p0, p1 vec.Vec2) {
	dx0 := r.CTM[0]*p0.X + r.CTM[2]*p0.Y + r.CTM[4]
	dy0 := r.CTM[1]*p0.X + r.CTM[3]*p0.Y + r.CTM[5]
	dx1 := r.CTM[0]*p1.X + r.CTM[2]*p1.Y + r.CTM[4]
	dy1 := r.CTM[1]*p1.X + r.CTM[3]*p1.Y + r.CTM[5]

	// horizontal edges contribute nothing
	dy := dy1 - dy0
	if dy > -horizontalEdgeThreshold && dy < horizontalEdgeThreshold {
		return
	}

	r.edges = append(r.edges, edge{
		x0: dx0, y0: dy0,
		x1: dx1, y1: dy1,
		dxdy: (dx1 - dx0) / dy,
	})

	if r.edgeBBoxFirst {
		r.edgeDevXMin = min(dx0, dx1)
		r.edgeDevXMax = max(dx0, dx1)
		r.edgeDevYMin = min(dy0, dy1)
		r.edgeDevYMax = max(dy0, dy1)
		r.edgeBBoxFirst = false
	} else {
		r.edgeDevXMin = min(r.edgeDevXMin, dx0, dx1)
		r.edgeDevXMax = max(r.edgeDevXMax, dx0, dx1)
		r.edgeDevYMin = min(r.edgeDevYMin, dy0, dy1)
		r.edgeDevYMax = max(r.edgeDevYMax, dy0, dy1)
	}
}

// markFractionalRows flags every row in [yMin, yMax) which contains an edge
// end point strictly inside the row. In the remaining rows every edge spans
// the full row height, so a cell which no edge enters has integral winding.
func (r *rasteriser) markFractionalRows(yMin, yMax int) {
	height := yMax - yMin
	r.fractional = slices.Grow(r.fractional[:0], height)[:height]
	clear(r.fractional)
	mark := func(y float64) {
		fy := math.Floor(y)
		if y == fy {
			return
		}
		row := int(fy) - yMin
		if row >= 0 && row < height {
			r.fractional[row] = true
		}
	}
	for i := range r.edges {
		mark(r.edges[i].y0)
		mark(r.edges[i].y1)
	}
}

// Coverage accumulation model:
//
// For each cell, we track two values:
//   cover: signed vertical extent of edges crossing this cell column
//   area:  horizontal position weighting (how far right the crossing is)
//
// An edge crossing a cell contributes:
//   cover = sign * dy   (where sign is +1 for increasing y, -1 otherwise)
//   area  = cover * (1 - xFrac)   (where xFrac is the horizontal position within the cell)
//
// Final coverage is computed by integrateScanline:
//   cell_coverage = accumulated_cover + area[i]
//   accumulated_cover += cover[i]   (carry forward for next cell)
//
// Edges are straight within a cell, so this is the exact signed area of
// the path within each cell.

// accumulateEdge adds a single edge's contribution to the cover and area buffers.
// The buffers are indexed by (x - bboxXMin).
// Edges spanning several columns are split at column boundaries.
func (r *rasteriser) accumulateEdge(e *edge, y int, cover, area []float64, touched []bool, bboxXMin, bboxXMax int) {
	yTop := max(float64(y), min(e.y0, e.y1))
	yBot := min(float64(y+1), max(e.y0, e.y1))
	if yBot <= yTop {
		return
	}

	sign := 1.0
	if e.y1 < e.y0 {
		sign = -1
	}

	xAtYTop := e.x0 + e.dxdy*(yTop-e.y0)
	xAtYBot := e.x0 + e.dxdy*(yBot-e.y0)
	xLeft, xRight := xAtYTop, xAtYBot
	if xLeft > xRight {
		xLeft, xRight = xRight, xLeft
	}

	pixLeft := int(math.Floor(xLeft))
	pixRight := int(math.Floor(xRight))

	// edge entirely to the left of bbox: the whole row to the right is enclosed
	if pixRight < bboxXMin {
		coverVal := sign * (yBot - yTop)
		cover[0] += coverVal
		area[0] += coverVal
		return
	}

	// edge entirely to the right of bbox
	if pixLeft >= bboxXMax {
		return
	}

	if pixLeft == pixRight {
		r.accumulateEdgeInColumn(e, yTop, yBot, sign, pixLeft, cover, area, touched, bboxXMin, bboxXMax)
		return
	}

	// Split the edge at every integer x and process each piece.
	dydx := 1 / e.dxdy

	r.crossings = r.crossings[:0]
	r.crossings = append(r.crossings, yTop, yBot)
	for x := pixLeft + 1; x <= pixRight; x++ {
		yAtX := e.y0 + dydx*(float64(x)-e.x0)
		if yAtX > yTop && yAtX < yBot {
			r.crossings = append(r.crossings, yAtX)
		}
	}
	slices.Sort(r.crossings)

	for i := range len(r.crossings) - 1 {
		y0 := r.crossings[i]
		y1 := r.crossings[i+1]
		segDy := y1 - y0
		if segDy <= 0 {
			continue
		}
		coverVal := sign * segDy

		// the midpoint identifies the column of this piece
		yMid := (y0 + y1) / 2
		xMid := e.x0 + e.dxdy*(yMid-e.y0)
		pix := int(math.Floor(xMid))

		if pix < bboxXMin {
			cover[0] += coverVal
			area[0] += coverVal
		} else if pix < bboxXMax {
			idx := pix - bboxXMin
			cover[idx] += coverVal
			area[idx] += coverVal * (1 - (xMid - float64(pix)))
			touched[idx] = true
		}
	}
}

// accumulateEdgeInColumn handles an edge segment that falls within a single column.
func (r *rasteriser) accumulateEdgeInColumn(e *edge, yTop, yBot, sign float64, pix int, cover, area []float64, touched []bool, bboxXMin, bboxXMax int) {
	coverVal := sign * (yBot - yTop)

	if pix < bboxXMin {
		cover[0] += coverVal
		area[0] += coverVal
		return
	}
	if pix >= bboxXMax {
		return
	}

	yMid := (yTop + yBot) / 2
	xMid := e.x0 + e.dxdy*(yMid-e.y0)
	xFrac := xMid - float64(pix)

	idx := pix - bboxXMin
	cover[idx] += coverVal
	area[idx] += coverVal * (1 - xFrac)
	touched[idx] = true
}

// integrateScanline converts accumulated cover/area to coverage fractions.
// The cover slice is modified in place. If exact is set, cells which no
// edge entered are rounded to 0 or 1.
func (r *rasteriser) integrateScanline(cover, area []float64, touched []bool, rule fillRule, exact bool) {
	var accum float64
	for i := range cover {
		raw := accum + area[i]
		accum += cover[i]

		var cov float64
		if rule == fillSigned {
			cov = min(max(raw*r.winding, 0), 1)
		} else {
			cov = min(math.Abs(raw), 1)
		}
		if exact && !touched[i] {
			cov = math.Round(cov)
		}
		cover[i] = cov
	}
}

// trimZeros returns the non-zero portion of coverage and its starting offset.
// Returns nil, 0 if coverage is entirely zero.
func trimZeros(coverage []float64) (trimmed []float64, offset int) {
	n := len(coverage)
	lo := 0
	for lo < n && coverage[lo] == 0 {
		lo++
	}
	if lo == n {
		return nil, 0
	}
	hi := n - 1
	for hi > lo && coverage[hi] == 0 {
		hi--
	}
	return coverage[lo : hi+1], lo
}

// fillSmallPath rasterises using 2D buffers (Approach A).
// xMin, xMax, yMin, yMax define the path's bounding box (already clamped to clip).
func (r *rasteriser) fillSmallPath(xMin, xMax, yMin, yMax int, rule fillRule, emit func(y, xMin int, coverage []float64)) {
	width := xMax - xMin
	height := yMax - yMin

	size := width * height
	r.cover = slices.Grow(r.cover[:0], size)[:size]
	r.area = slices.Grow(r.area[:0], size)[:size]
	r.touched = slices.Grow(r.touched[:0], size)[:size]
	r.rowActive = slices.Grow(r.rowActive[:0], height)[:height]
	clear(r.cover)
	clear(r.area)
	clear(r.touched)
	clear(r.rowActive)

	for i := range r.edges {
		e := &r.edges[i]

		edgeYMin := int(math.Floor(min(e.y0, e.y1)))
		edgeYMax := int(math.Floor(max(e.y0, e.y1))) + 1
		edgeYMin = max(edgeYMin, yMin)
		edgeYMax = min(edgeYMax, yMax)

		for y := edgeYMin; y < edgeYMax; y++ {
			row := y - yMin
			lo := row * width
			hi := lo + width
			r.accumulateEdge(e, y, r.cover[lo:hi], r.area[lo:hi], r.touched[lo:hi], xMin, xMax)
			r.rowActive[row] = true
		}
	}

	for row := range height {
		if !r.rowActive[row] {
			continue
		}

		lo := row * width
		hi := lo + width
		coverage := r.cover[lo:hi]
		exact := !r.noShortcut && !r.fractional[row]
		r.integrateScanline(coverage, r.area[lo:hi], r.touched[lo:hi], rule, exact)

		if trimmed, offset := trimZeros(coverage); trimmed != nil {
			emit(yMin+row, xMin+offset, trimmed)
		}
	}
}

// fillLargePath rasterises using 1D buffers and an active edge list (Approach B).
// xMin, xMax, yMin, yMax define the path's bounding box (already clamped to clip).
func (r *rasteriser) fillLargePath(xMin, xMax, yMin, yMax int, rule fillRule, emit func(y, xMin int, coverage []float64)) {
	width := xMax - xMin

	r.cover = slices.Grow(r.cover[:0], width)[:width]
	r.area = slices.Grow(r.area[:0], width)[:width]
	r.touched = slices.Grow(r.touched[:0], width)[:width]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(min(a.y0, a.y1), min(b.y0, b.y1))
	})

	r.activeIdx = r.activeIdx[:0]
	nextEdge := 0

	for y := yMin; y < yMax; y++ {
		yf := float64(y)
		yfNext := float64(y + 1)

		// add edges that start before the end of this row
		for nextEdge < len(r.edges) {
			if min(r.edges[nextEdge].y0, r.edges[nextEdge].y1) >= yfNext {
				break
			}
			r.activeIdx = append(r.activeIdx, nextEdge)
			nextEdge++
		}

		if len(r.activeIdx) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		clear(r.touched)

		contributed := false
		for i := 0; i < len(r.activeIdx); {
			e := &r.edges[r.activeIdx[i]]

			if max(e.y0, e.y1) <= yf {
				// remove finished edge (swap with last)
				r.activeIdx[i] = r.activeIdx[len(r.activeIdx)-1]
				r.activeIdx = r.activeIdx[:len(r.activeIdx)-1]
				continue
			}

			r.accumulateEdge(e, y, r.cover, r.area, r.touched, xMin, xMax)
			contributed = true
			i++
		}

		if !contributed {
			continue
		}

		exact := !r.noShortcut && !r.fractional[y-yMin]
		r.integrateScanline(r.cover, r.area, r.touched, rule, exact)

		if trimmed, offset := trimZeros(r.cover); trimmed != nil {
			emit(y, xMin+offset, trimmed)
		}
	}
}

// Default values for rasteriser parameters.
const (
	// defaultFlatness is the default curve flattening tolerance in cells.
	defaultFlatness = 0.01

	// defaultMiterLimit matches the PDF/PostScript default.
	defaultMiterLimit = 10.0
)

// Numerical tolerances for the rasteriser.
const (
	// horizontalEdgeThreshold is the minimum vertical extent for an edge
	// to contribute to coverage.
	horizontalEdgeThreshold = 1e-10

	// smallPathThreshold is the maximum bounding box area (in cells) for
	// using 2D buffers (Approach A).
	smallPathThreshold = 65536

	// zeroLengthThreshold is the minimum length for a line segment when
	// buffering lines.
	zeroLengthThreshold = 1e-10

	// collinearityThreshold is used to detect nearly collinear segments
	// where no join is needed.
	collinearityThreshold = 1e-6

	// cuspCosineThreshold is the cosine threshold for detecting cusps
	// (path doubling back on itself). cos(179.43°) ≈ -0.9999
	cuspCosineThreshold = -0.9999
)
