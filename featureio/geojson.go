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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/geometry"
)

// GeoJSONSource reads features from a GeoJSON FeatureCollection.
type GeoJSONSource struct {
	features   []*geojson.Feature
	idProperty string
	next       int
}

// NewGeoJSONSource returns a source for the features of fc.
//
// If idProperty is non-empty, feature identifiers are taken from this
// property. Otherwise the GeoJSON feature id is used, and features without
// an id are numbered from 0.
func NewGeoJSONSource(fc *geojson.FeatureCollection, idProperty string) *GeoJSONSource {
	return &GeoJSONSource{features: fc.Features, idProperty: idProperty}
}

// ReadGeoJSON reads a FeatureCollection from r.
func ReadGeoJSON(r io.Reader, idProperty string) (*GeoJSONSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("featureio: %w", err)
	}
	return NewGeoJSONSource(fc, idProperty), nil
}

// OpenGeoJSON reads a FeatureCollection from a file.
func OpenGeoJSON(path, idProperty string) (*GeoJSONSource, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return ReadGeoJSON(fd, idProperty)
}

// Len returns the total number of features.
func (s *GeoJSONSource) Len() int {
	return len(s.features)
}

// Next implements the zonal.FeatureSource interface.
func (s *GeoJSONSource) Next(ctx context.Context) (zonal.Feature, error) {
	if err := ctx.Err(); err != nil {
		return zonal.Feature{}, err
	}
	if s.next >= len(s.features) {
		return zonal.Feature{}, io.EOF
	}
	i := s.next
	s.next++
	gf := s.features[i]

	var id any
	if s.idProperty != "" {
		v, ok := gf.Properties[s.idProperty]
		if !ok {
			return zonal.Feature{}, fmt.Errorf("featureio: feature %d: missing property %q", i, s.idProperty)
		}
		id = v
	} else if gf.ID != nil {
		id = gf.ID
	} else {
		id = i
	}

	geom, err := geometry.FromOrb(gf.Geometry)
	if err != nil {
		return zonal.Feature{}, fmt.Errorf("featureio: feature %d: %w", i, err)
	}
	return zonal.Feature{
		ID:         formatID(id),
		Geometry:   geom,
		Properties: map[string]any(gf.Properties),
	}, nil
}

func formatID(id any) string {
	switch id := id.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

// GeoJSONSink writes records as a GeoJSON FeatureCollection. The
// collection is written when the run finishes.
type GeoJSONSink struct {
	w  io.Writer
	fc *geojson.FeatureCollection
}

// NewGeoJSONSink returns a sink which writes to w.
func NewGeoJSONSink(w io.Writer) *GeoJSONSink {
	return &GeoJSONSink{w: w, fc: geojson.NewFeatureCollection()}
}

// Write implements the zonal.Sink interface.
func (s *GeoJSONSink) Write(_ context.Context, rec zonal.Record) error {
	var geom orb.Geometry
	if rec.Geometry != nil && !rec.Geometry.Empty() {
		geom = geometry.ToOrb(rec.Geometry)
	}
	g := geojson.NewFeature(geom)
	g.ID = rec.ID
	maps.Copy(g.Properties, rec.Properties)
	for _, f := range rec.Fields {
		g.Properties[f.Name] = jsonValue(f.Value)
	}
	s.fc.Append(g)
	return nil
}

// Finish implements the zonal.Sink interface.
func (s *GeoJSONSink) Finish(context.Context) error {
	data, err := json.Marshal(s.fc)
	if err != nil {
		return fmt.Errorf("featureio: %w", err)
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}

// jsonValue converts v into a value which encoding/json can represent.
// Non-finite numbers become null and floating point map keys become
// strings.
func jsonValue(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	case float32:
		return jsonValue(float64(v))
	case map[float64]float64:
		return stringKeys(v)
	case map[float32]float64:
		return stringKeys(v)
	}
	return v
}

func stringKeys[K float32 | float64](m map[K]float64) map[string]float64 {
	res := make(map[string]float64, len(m))
	for k, v := range m {
		res[strconv.FormatFloat(float64(k), 'g', -1, 64)] = v
	}
	return res
}
