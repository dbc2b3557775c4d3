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

package grid

import "fmt"

// Window is a rectangular block of cells, given by the column and row of its
// first cell and its size.
type Window struct {
	Col, Row   int
	Cols, Rows int
}

// Empty reports whether the window contains no cells.
func (w Window) Empty() bool {
	return w.Cols <= 0 || w.Rows <= 0
}

// Len returns the number of cells in the window.
func (w Window) Len() int {
	if w.Empty() {
		return 0
	}
	return w.Cols * w.Rows
}

// Contains reports whether cell (col, row) lies inside the window.
func (w Window) Contains(col, row int) bool {
	return col >= w.Col && col < w.Col+w.Cols && row >= w.Row && row < w.Row+w.Rows
}

// Index returns the row-major offset of cell (col, row) within the window.
// The cell must lie inside the window.
func (w Window) Index(col, row int) int {
	return (row-w.Row)*w.Cols + (col - w.Col)
}

// Intersect returns the cells common to both windows.
func (w Window) Intersect(other Window) Window {
	c0 := max(w.Col, other.Col)
	r0 := max(w.Row, other.Row)
	c1 := min(w.Col+w.Cols, other.Col+other.Cols)
	r1 := min(w.Row+w.Rows, other.Row+other.Rows)
	if c1 <= c0 || r1 <= r0 {
		return Window{}
	}
	return Window{Col: c0, Row: r0, Cols: c1 - c0, Rows: r1 - r0}
}

// Translate shifts the window by the given number of columns and rows.
func (w Window) Translate(dCol, dRow int) Window {
	w.Col += dCol
	w.Row += dRow
	return w
}

func (w Window) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", w.Col, w.Col+w.Cols, w.Row, w.Row+w.Rows)
}
