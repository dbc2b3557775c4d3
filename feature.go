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

package zonal

import (
	"context"

	"seehuhn.de/go/zonal/geometry"
	"seehuhn.de/go/zonal/stats"
)

// Feature is a geometry with an identifier and optional properties.
type Feature struct {
	ID         string
	Geometry   geometry.Geometry
	Properties map[string]any
}

// FeatureSource supplies the features to process.
type FeatureSource interface {
	// Next returns the next feature. At the end of the input, Next
	// returns io.EOF.
	Next(ctx context.Context) (Feature, error)
}

// Field is one computed statistic.
type Field struct {
	Name string
	Type FieldType

	// Value holds the result in the Go type given by Type, or nil if the
	// statistic is undefined because no cell contributed.
	Value any
}

// Record holds the results for one feature.
type Record struct {
	ID string

	// Geometry is the geometry of the feature, for sinks which write it
	// alongside the results.
	Geometry geometry.Geometry

	// Properties holds the feature properties selected for output.
	Properties map[string]any

	// Fields holds one entry per operation, in operation order.
	Fields []Field
}

// Get returns the value of the field with the given name.
func (r *Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Sink receives the records of a run.
type Sink interface {
	// Write stores one record. Records arrive in input order.
	Write(ctx context.Context, rec Record) error

	// Finish is called once after the last record of a successful run.
	Finish(ctx context.Context) error
}

// FieldSpec describes an output field.
type FieldSpec struct {
	Name string
	Stat stats.Kind
	Type FieldType
}
