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
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // register the PNG decoder
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"  // register the BMP decoder
	_ "golang.org/x/image/tiff" // register the TIFF decoder
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/zonal/grid"
)

// Image is a single-band raster backed by a decoded image.
// Colour images are converted to grey levels.
type Image struct {
	name   string
	grid   grid.Grid
	img    image.Image
	dtype  DType
	nodata float64
	hasND  bool
}

// NewImage returns a raster for img, placed on the grid g.
// The grid must have the same size as the image.
func NewImage(name string, g grid.Grid, img image.Image) (*Image, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("raster %q: %w", name, err)
	}
	b := img.Bounds()
	if b.Dx() != g.Cols || b.Dy() != g.Rows {
		return nil, fmt.Errorf("raster %q: image is %d×%d, grid is %d×%d",
			name, b.Dx(), b.Dy(), g.Cols, g.Rows)
	}

	dtype := Uint8
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		dtype = Uint16
	}
	return &Image{name: name, grid: g, img: img, dtype: dtype}, nil
}

// OpenImage decodes a PNG, TIFF or BMP file and places it on the grid
// described by the accompanying world file. The world file is found by
// the usual naming conventions, for example "dem.tfw" or "dem.tif.wld"
// for "dem.tif".
func OpenImage(name, path string) (*Image, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	wf, err := findWorldFile(path)
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(wf)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	b := img.Bounds()
	g, err := ParseWorldFile(fd, b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wf, err)
	}
	return NewImage(name, g, img)
}

func decodeFile(path string) (img image.Image, err error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := fd.Close(); err == nil {
			err = cerr
		}
	}()

	img, _, err = image.Decode(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// findWorldFile returns the name of the world file belonging to path.
func findWorldFile(path string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	var candidates []string
	if len(ext) == 4 {
		// ".tif" -> ".tfw"
		candidates = append(candidates, base+ext[:2]+ext[3:]+"w")
	}
	candidates = append(candidates, base+ext+"w", path+".wld", base+".wld")

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("raster: no world file for %s", path)
}

// ParseWorldFile reads an ESRI world file and returns the grid of an
// image with the given number of columns and rows. Rotated world files
// are not supported.
func ParseWorldFile(r io.Reader, cols, rows int) (grid.Grid, error) {
	var p [6]float64
	n := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if n == len(p) {
			return grid.Grid{}, fmt.Errorf("raster: world file has more than %d values", len(p))
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return grid.Grid{}, fmt.Errorf("raster: world file line %d: %w", n+1, err)
		}
		p[n] = v
		n++
	}
	if err := sc.Err(); err != nil {
		return grid.Grid{}, err
	}
	if n != len(p) {
		return grid.Grid{}, fmt.Errorf("raster: world file has %d values, want %d", n, len(p))
	}

	// A, D, B, E, C, F; C and F refer to the centre of the first pixel
	a, d, b, e, c, f := p[0], p[1], p[2], p[3], p[4], p[5]
	if d != 0 || b != 0 {
		return grid.Grid{}, fmt.Errorf("raster: rotated world files are not supported")
	}
	origin := vec.Vec2{X: c - a/2, Y: f - e/2}
	return grid.New(origin, a, e, cols, rows)
}

// SetNodata marks all cells with grey level v as nodata.
func (m *Image) SetNodata(v float64) *Image {
	m.nodata = v
	m.hasND = true
	return m
}

// Name implements the Source interface.
func (m *Image) Name() string { return m.name }

// Grid implements the Source interface.
func (m *Image) Grid() grid.Grid { return m.grid }

// DType implements the Source interface.
func (m *Image) DType() DType { return m.dtype }

// Read implements the Source interface.
func (m *Image) Read(ctx context.Context, w grid.Window) (*Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkWindow(m.name, m.grid, w); err != nil {
		return nil, err
	}

	res := &Window{
		Grid:   m.grid,
		Extent: w,
		DType:  m.dtype,
		Data:   make([]float64, w.Len()),
	}
	ul := m.img.Bounds().Min
	i := 0
	for row := w.Row; row < w.Row+w.Rows; row++ {
		for col := w.Col; col < w.Col+w.Cols; col++ {
			v := m.level(m.img.At(ul.X+col, ul.Y+row))
			res.Data[i] = v
			if m.hasND && v == m.nodata {
				if res.Valid == nil {
					res.Valid = make([]bool, w.Len())
					for j := range res.Valid {
						res.Valid[j] = true
					}
				}
				res.Valid[i] = false
			}
			i++
		}
	}
	return res, nil
}

// level converts a colour to its grey level in the range of the DType.
func (m *Image) level(c color.Color) float64 {
	if m.dtype == Uint16 {
		return float64(color.Gray16Model.Convert(c).(color.Gray16).Y)
	}
	return float64(color.GrayModel.Convert(c).(color.Gray).Y)
}
