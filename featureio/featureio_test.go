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

package featureio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/geometry"
	"seehuhn.de/go/zonal/grid"
	"seehuhn.de/go/zonal/raster"
)

const fields = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": 17,
      "properties": {"name": "north", "code": "N"},
      "geometry": {"type": "Polygon", "coordinates": [[[0.5,0.5],[2.5,0.5],[2.5,2.5],[0.5,2.5],[0.5,0.5]]]}
    },
    {
      "type": "Feature",
      "properties": {"name": "road", "code": "R"},
      "geometry": {"type": "LineString", "coordinates": [[0,1.5],[3,1.5]]}
    },
    {
      "type": "Feature",
      "id": "far",
      "properties": {"name": "elsewhere", "code": "E"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[10,10],[11,10],[11,11],[10,10]]]]}
    }
  ]
}`

func readAll(t *testing.T, src zonal.FeatureSource) []zonal.Feature {
	t.Helper()
	var res []zonal.Feature
	for {
		f, err := src.Next(context.Background())
		if err == io.EOF {
			return res
		}
		require.NoError(t, err)
		res = append(res, f)
	}
}

func TestGeoJSONSource(t *testing.T) {
	src, err := ReadGeoJSON(strings.NewReader(fields), "")
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	features := readAll(t, src)
	require.Len(t, features, 3)

	assert.Equal(t, "17", features[0].ID)
	assert.Equal(t, "1", features[1].ID)
	assert.Equal(t, "far", features[2].ID)

	assert.IsType(t, geometry.Polygon{}, features[0].Geometry)
	assert.InDelta(t, 4.0, features[0].Geometry.Area(), 1e-12)
	assert.IsType(t, geometry.Lines{}, features[1].Geometry)
	assert.IsType(t, geometry.MultiPolygon{}, features[2].Geometry)
	assert.Equal(t, "north", features[0].Properties["name"])

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestGeoJSONSourceIDProperty(t *testing.T) {
	src, err := ReadGeoJSON(strings.NewReader(fields), "code")
	require.NoError(t, err)
	features := readAll(t, src)
	var ids []string
	for _, f := range features {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"N", "R", "E"}, ids)

	src, err = ReadGeoJSON(strings.NewReader(fields), "missing")
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	assert.ErrorContains(t, err, "missing")
}

func TestGeoJSONSourceErrors(t *testing.T) {
	_, err := ReadGeoJSON(strings.NewReader(`{"type": "Feature"}`), "")
	assert.Error(t, err)

	_, err = OpenGeoJSON(filepath.Join(t.TempDir(), "none.geojson"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)

	point := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
		"geometry":{"type":"Point","coordinates":[1,2]}}]}`
	src, err := ReadGeoJSON(strings.NewReader(point), "")
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, geometry.ErrUnsupported)
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource(zonal.Feature{ID: "a"}, zonal.Feature{ID: "b"})
	features := readAll(t, src)
	require.Len(t, features, 2)
	assert.Equal(t, "b", features[1].ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSliceSource(zonal.Feature{ID: "a"}).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemorySink(t *testing.T) {
	s := &MemorySink{}
	require.NoError(t, s.Write(context.Background(), zonal.Record{ID: "x"}))
	_, err := s.Records()
	assert.ErrorIs(t, err, ErrNotFinished)

	require.NoError(t, s.Finish(context.Background()))
	recs, err := s.Records()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "x", recs[0].ID)
}

// TestRoundTrip runs a processor from a GeoJSON source to a GeoJSON sink.
func TestRoundTrip(t *testing.T) {
	g, err := grid.New(vec.Vec2{}, 1, 1, 3, 3)
	require.NoError(t, err)
	values, err := raster.NewMem("v", g, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	cat, err := zonal.NewCatalog(values)
	require.NoError(t, err)
	ops, err := cat.Operations("count", "mean", "frac")
	require.NoError(t, err)

	src, err := ReadGeoJSON(strings.NewReader(fields), "")
	require.NoError(t, err)
	var buf bytes.Buffer
	sink := NewGeoJSONSink(&buf)

	p := zonal.NewProcessor(ops, zonal.WithIncludeCols("name"))
	require.NoError(t, p.Run(context.Background(), src, sink))

	var out struct {
		Type     string `json:"type"`
		Features []struct {
			ID         any            `json:"id"`
			Geometry   map[string]any `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "FeatureCollection", out.Type)
	require.Len(t, out.Features, 3)

	north := out.Features[0]
	assert.Equal(t, "17", north.ID)
	assert.Equal(t, "Polygon", north.Geometry["type"])
	assert.Equal(t, "north", north.Properties["name"])
	assert.NotContains(t, north.Properties, "code")
	assert.InDelta(t, 4.0, north.Properties["count"], 1e-12)
	assert.InDelta(t, 5.0, north.Properties["mean"], 1e-12)
	frac := north.Properties["frac"].(map[string]any)
	assert.InDelta(t, 0.25, frac["5"], 1e-12)

	// lines are not buffered by default
	road := out.Features[1]
	assert.Equal(t, 0.0, road.Properties["count"])
	assert.Nil(t, road.Properties["mean"])

	far := out.Features[2]
	assert.Equal(t, "far", far.ID)
	assert.Equal(t, 0.0, far.Properties["count"])
}
