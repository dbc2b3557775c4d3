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

// Package raster provides read access to gridded cell values.
//
// A Source hands out rectangular windows of its grid. The core only ever
// requests windows which lie inside the source grid, one window per feature
// and source.
package raster

import (
	"context"
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/zonal/grid"
)

// ErrOutOfBounds is returned when a window does not lie inside the grid
// of the source.
var ErrOutOfBounds = errors.New("raster: window out of bounds")

// Source is a raster which can be read window by window.
// Implementations must be safe for concurrent use by multiple goroutines.
type Source interface {
	// Name identifies the raster in stat descriptors and error messages.
	Name() string

	// Grid returns the grid of the raster.
	Grid() grid.Grid

	// DType returns the type of the cell values.
	DType() DType

	// Read returns the cell values of window w. The window must lie inside
	// the grid.
	Read(ctx context.Context, w grid.Window) (*Window, error)
}

// Window holds the values of a block of cells.
type Window struct {
	// Grid is the grid of the source the window was read from.
	Grid grid.Grid

	// Extent gives the cells held, in the cell space of Grid.
	Extent grid.Window

	// DType is the type of the original cell values. Values of all types
	// are stored as float64; integers beyond ±2^53 lose precision.
	DType DType

	// Data holds one value per cell of Extent, in row-major order.
	Data []float64

	// Valid marks the cells which hold data. A nil slice means that all
	// cells are valid.
	Valid []bool
}

// At returns the value of cell (col, row) of the source grid.
// The boolean result is false for nodata cells and cells outside the window.
func (w *Window) At(col, row int) (float64, bool) {
	if !w.Extent.Contains(col, row) {
		return 0, false
	}
	i := w.Extent.Index(col, row)
	if w.Valid != nil && !w.Valid[i] {
		return 0, false
	}
	return w.Data[i], true
}

// AtPoint returns the value of the cell containing the geographic
// point (x, y).
func (w *Window) AtPoint(x, y float64) (float64, bool) {
	col, row, ok := w.Grid.CellIndex(x, y)
	if !ok {
		return 0, false
	}
	return w.At(col, row)
}

// checkWindow verifies that w is a non-empty window inside g.
func checkWindow(name string, g grid.Grid, w grid.Window) error {
	if w.Empty() || w.Intersect(g.Full()) != w {
		return fmt.Errorf("%w: %s of %q (%d×%d)", ErrOutOfBounds, w, name, g.Cols, g.Rows)
	}
	return nil
}

// Mem is a raster held in memory.
type Mem[T Number] struct {
	name   string
	grid   grid.Grid
	data   []T
	nodata T
	hasND  bool
}

// NewMem returns an in-memory raster. The data are given in row-major order
// and must hold exactly one value per cell of g. The slice is not copied.
func NewMem[T Number](name string, g grid.Grid, data []T) (*Mem[T], error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("raster %q: %w", name, err)
	}
	if n := g.Cols * g.Rows; len(data) != n {
		return nil, fmt.Errorf("raster %q: got %d values for %d cells", name, len(data), n)
	}
	return &Mem[T]{name: name, grid: g, data: data}, nil
}

// SetNodata marks all cells holding v as nodata.
// NaN cells of floating point rasters are always nodata.
func (m *Mem[T]) SetNodata(v T) *Mem[T] {
	m.nodata = v
	m.hasND = true
	return m
}

// Name implements the Source interface.
func (m *Mem[T]) Name() string { return m.name }

// Grid implements the Source interface.
func (m *Mem[T]) Grid() grid.Grid { return m.grid }

// DType implements the Source interface.
func (m *Mem[T]) DType() DType { return DTypeOf[T]() }

// Read implements the Source interface.
func (m *Mem[T]) Read(ctx context.Context, w grid.Window) (*Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkWindow(m.name, m.grid, w); err != nil {
		return nil, err
	}

	res := &Window{
		Grid:   m.grid,
		Extent: w,
		DType:  m.DType(),
		Data:   make([]float64, 0, w.Len()),
	}
	var valid []bool
	for row := w.Row; row < w.Row+w.Rows; row++ {
		line := m.data[row*m.grid.Cols+w.Col : row*m.grid.Cols+w.Col+w.Cols]
		for _, v := range line {
			x := float64(v)
			ok := !math.IsNaN(x) && !(m.hasND && v == m.nodata)
			if !ok && valid == nil {
				valid = make([]bool, len(res.Data), w.Len())
				for i := range valid {
					valid[i] = true
				}
			}
			if valid != nil {
				valid = append(valid, ok)
			}
			res.Data = append(res.Data, x)
		}
	}
	res.Valid = valid
	return res, nil
}
