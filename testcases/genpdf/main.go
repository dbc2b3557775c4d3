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

// Command genpdf draws the coverage fractions of all test cases.
// Every case becomes one PDF page, with each cell shaded by its coverage
// fraction and the geometry outline drawn on top.
package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/zonal/coverage"
	"seehuhn.de/go/zonal/testcases"
)

const outDir = "testdata/coverage"

// maxPageSize is the maximum page width or height in points.
const maxPageSize = 600.0

func main() {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		panic(err)
	}

	engine := coverage.NewEngine()
	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, tc := range testcases.All[category] {
			name := category + "_" + tc.Name
			if err := generatePDF(engine, tc, filepath.Join(outDir, name+".pdf")); err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
		}
	}
}

func generatePDF(engine *coverage.Engine, tc testcases.TestCase, pdfPath string) error {
	engine.Lines = coverage.LineStyle{}
	if b := tc.Buffer; b != nil {
		engine.Lines = coverage.LineStyle{
			Width:      b.Width,
			Cap:        b.Cap,
			Join:       b.Join,
			MiterLimit: b.MiterLimit,
		}
	}
	frac, err := engine.Compute(tc.Grid, tc.Geometry)
	if err != nil {
		return err
	}
	w := frac.Window

	scale := min(8, maxPageSize/float64(max(w.Cols, w.Rows)))
	paper := &pdf.Rectangle{
		URx: float64(w.Cols) * scale,
		URy: float64(w.Rows) * scale,
	}
	page, err := document.CreateSinglePage(pdfPath, paper, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	// toPage maps cell space to page coordinates, with row 0 at the top.
	toPage := func(c vec.Vec2) vec.Vec2 {
		return vec.Vec2{
			X: (c.X - float64(w.Col)) * scale,
			Y: (float64(w.Rows) - (c.Y - float64(w.Row))) * scale,
		}
	}

	// white means no coverage, black means full coverage
	page.SetFillColor(color.DeviceGray(1))
	page.Rectangle(0, 0, paper.URx, paper.URy)
	page.Fill()
	frac.Each(func(col, row int, f float64) {
		ll := toPage(vec.Vec2{X: float64(col), Y: float64(row + 1)})
		page.SetFillColor(color.DeviceGray(1 - f))
		page.Rectangle(ll.X, ll.Y, scale, scale)
		page.Fill()
	})

	page.SetStrokeColor(color.DeviceGray(0.5))
	page.SetLineWidth(0.5)
	p := tc.Geometry.Path()
	idx := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			q := toPage(tc.Grid.ToCell(p.Coords[idx]))
			page.MoveTo(q.X, q.Y)
			idx++
		case path.CmdLineTo:
			q := toPage(tc.Grid.ToCell(p.Coords[idx]))
			page.LineTo(q.X, q.Y)
			idx++
		case path.CmdClose:
			page.ClosePath()
		}
	}
	page.Stroke()

	return page.Close()
}
