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

package raster

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/zonal/grid"
)

func TestDTypeOf(t *testing.T) {
	type celsius float32
	type code uint8
	type level int16
	assert.Equal(t, Uint8, DTypeOf[uint8]())
	assert.Equal(t, Uint16, DTypeOf[uint16]())
	assert.Equal(t, Int16, DTypeOf[int16]())
	assert.Equal(t, Int32, DTypeOf[int32]())
	assert.Equal(t, Int64, DTypeOf[int64]())
	assert.Equal(t, Float32, DTypeOf[float32]())
	assert.Equal(t, Float64, DTypeOf[float64]())
	assert.Equal(t, Float32, DTypeOf[celsius]())
	assert.Equal(t, Uint8, DTypeOf[code]())
	assert.Equal(t, Int16, DTypeOf[level]())
}

func TestDTypeConvert(t *testing.T) {
	assert.Equal(t, uint8(7), Uint8.Convert(7))
	assert.Equal(t, int32(-3), Int32.Convert(-3))
	assert.Equal(t, float32(0.5), Float32.Convert(0.5))
	assert.Equal(t, 2.25, Float64.Convert(2.25))
	assert.Equal(t, "int16", Int16.String())
	assert.True(t, Float32.IsFloat())
	assert.False(t, Int64.IsFloat())
}

func testGrid(t *testing.T, cols, rows int) grid.Grid {
	t.Helper()
	g, err := grid.NorthUp(rect.Rect{URx: float64(cols), URy: float64(rows)}, cols, rows)
	require.NoError(t, err)
	return g
}

func TestMemRead(t *testing.T) {
	g := testGrid(t, 3, 3)
	m, err := NewMem("dem", g, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, "dem", m.Name())
	assert.Equal(t, Int32, m.DType())

	w, err := m.Read(context.Background(), grid.Window{Col: 1, Row: 1, Cols: 2, Rows: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 8, 9}, w.Data)
	assert.Nil(t, w.Valid)

	v, ok := w.At(2, 1)
	assert.True(t, ok)
	assert.Equal(t, 6.0, v)
	_, ok = w.At(0, 0)
	assert.False(t, ok)

	// cell (1, 2) covers x in [1, 2), y in [0, 1)
	v, ok = w.AtPoint(1.5, 0.5)
	assert.True(t, ok)
	assert.Equal(t, 8.0, v)
}

func TestMemNodata(t *testing.T) {
	g := testGrid(t, 2, 2)
	nan := math.NaN()

	m, err := NewMem("f", g, []float64{1, nan, -9999, 4})
	require.NoError(t, err)
	m.SetNodata(-9999)

	w, err := m.Read(context.Background(), g.Full())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, true}, w.Valid)

	_, ok := w.At(1, 0)
	assert.False(t, ok)
	_, ok = w.At(0, 1)
	assert.False(t, ok)
	v, ok := w.At(1, 1)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestMemErrors(t *testing.T) {
	g := testGrid(t, 3, 3)
	_, err := NewMem("short", g, []uint8{1, 2, 3})
	assert.Error(t, err)

	_, err = NewMem("bad", grid.Grid{Cols: 1, Rows: 1}, []uint8{1})
	assert.ErrorIs(t, err, grid.ErrInvalid)

	m, err := NewMem("ok", g, make([]uint8, 9))
	require.NoError(t, err)

	ctx := context.Background()
	for _, w := range []grid.Window{
		{Col: 2, Row: 0, Cols: 2, Rows: 1},
		{Col: -1, Row: 0, Cols: 1, Rows: 1},
		{Col: 0, Row: 0, Cols: 0, Rows: 1},
	} {
		_, err := m.Read(ctx, w)
		assert.ErrorIs(t, err, ErrOutOfBounds, "window %s", w)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Read(cancelled, g.Full())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseWorldFile(t *testing.T) {
	in := "10.0\n0.0\n0.0\n-10.0\n1005.0\n2995.0\n"
	g, err := ParseWorldFile(strings.NewReader(in), 4, 3)
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: 1000, Y: 3000}, g.Origin)
	assert.Equal(t, 10.0, g.CellWidth)
	assert.Equal(t, -10.0, g.CellHeight)
	assert.Equal(t, 4, g.Cols)
	assert.Equal(t, 3, g.Rows)

	_, err = ParseWorldFile(strings.NewReader("1\n0\n0\n-1\n0\n"), 1, 1)
	assert.Error(t, err)
	_, err = ParseWorldFile(strings.NewReader("1\n0.5\n0\n-1\n0\n0\n"), 1, 1)
	assert.Error(t, err)
	_, err = ParseWorldFile(strings.NewReader("1\nx\n0\n-1\n0\n0\n"), 1, 1)
	assert.Error(t, err)
}

func TestOpenImage(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(10 * (i + 1))
	}

	imgPath := filepath.Join(dir, "landuse.png")
	fd, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(fd, img))
	require.NoError(t, fd.Close())

	world := "2\n0\n0\n-2\n101\n199\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landuse.pgw"), []byte(world), 0644))

	m, err := OpenImage("landuse", imgPath)
	require.NoError(t, err)
	assert.Equal(t, Uint8, m.DType())
	assert.Equal(t, vec.Vec2{X: 100, Y: 200}, m.Grid().Origin)

	m.SetNodata(30)
	w, err := m.Read(context.Background(), m.Grid().Full())
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40, 50, 60}, w.Data)
	assert.Equal(t, []bool{true, true, false, true, true, true}, w.Valid)
}

func TestNewImageColour(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	g := testGrid(t, 1, 1)
	m, err := NewImage("rgb", g, img)
	require.NoError(t, err)
	w, err := m.Read(context.Background(), g.Full())
	require.NoError(t, err)
	assert.Equal(t, []float64{255}, w.Data)

	_, err = NewImage("wrong", testGrid(t, 2, 1), img)
	assert.Error(t, err)
}
