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
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"

	"seehuhn.de/go/zonal/raster"
	"seehuhn.de/go/zonal/stats"
)

// FieldType is the static type of an operation result.
type FieldType struct {
	Shape stats.Shape

	// Elem is the type of scalar values, of array elements and of map
	// values.
	Elem raster.DType

	// Key is the key type of map results.
	Key raster.DType
}

// GoType returns the Go type of non-nil result values, for example
// "float64", "[]int32" or "map[uint8]float64".
func (t FieldType) GoType() string {
	switch t.Shape {
	case stats.Array:
		return "[]" + t.Elem.String()
	case stats.Map:
		return "map[" + t.Key.String() + "]" + t.Elem.String()
	default:
		return t.Elem.String()
	}
}

func (t FieldType) String() string {
	return t.GoType()
}

// Operation is a validated request for one named output statistic.
// Operations are immutable and may be shared between processors.
type Operation struct {
	Stat    stats.Kind
	Name    string
	Values  raster.Source
	Weights raster.Source // nil if unweighted
	Args    map[string]string

	params stats.Params
	typ    FieldType
}

// NewOperation validates and returns an operation.
//
// An unusable values or weights raster gives an error matching ErrType.
// An unknown statistic, an empty name, missing or unknown arguments and
// missing weights for a weighted statistic give an error matching
// ErrValidation. A nil weights raster is always allowed; statistics which
// do not use weights ignore it.
func NewOperation(stat, name string, values, weights raster.Source, args map[string]string) (*Operation, error) {
	kind, ok := stats.Lookup(stat)
	if !ok {
		return nil, invalid("stat", "unknown statistic %q", stat)
	}
	if name == "" {
		return nil, invalid("name", "empty field name")
	}
	if err := checkSource("values", values); err != nil {
		return nil, err
	}
	if weights != nil {
		if err := checkSource("weights", weights); err != nil {
			return nil, err
		}
	}

	info := kind.Info()
	if info.Weights == stats.WeightsRequired && weights == nil {
		return nil, invalid("weights", "%s requires weights", stat)
	}

	op := &Operation{
		Stat:    kind,
		Name:    name,
		Values:  values,
		Weights: weights,
		Args:    maps.Clone(args),
	}
	if op.Args == nil {
		op.Args = map[string]string{}
	}

	for _, key := range slices.Sorted(maps.Keys(op.Args)) {
		if !slices.Contains(info.Params, key) {
			return nil, invalid(key, "unknown argument for %s", stat)
		}
	}
	if kind == stats.Quantile {
		s, ok := op.Args["q"]
		if !ok {
			return nil, invalid("q", "quantile requires a level q")
		}
		q, err := strconv.ParseFloat(s, 64)
		if err != nil || !(q >= 0 && q <= 1) {
			return nil, invalid("q", "%q is not a number in [0, 1]", s)
		}
		op.params.Q = q
	}

	op.typ = resultType(info, values.DType(), weights)
	return op, nil
}

// checkSource verifies that src can serve windows.
func checkSource(field string, src raster.Source) error {
	if src == nil {
		return badRaster(field, "missing raster")
	}
	if v := reflect.ValueOf(src); v.Kind() == reflect.Pointer && v.IsNil() {
		return badRaster(field, "nil %T", src)
	}
	if err := src.Grid().Validate(); err != nil {
		return badRaster(field, "%s: %v", src.Name(), err)
	}
	if src.DType() == raster.Invalid {
		return badRaster(field, "%s: unknown cell type", src.Name())
	}
	return nil
}

func resultType(info stats.Info, values raster.DType, weights raster.Source) FieldType {
	t := FieldType{Shape: info.Shape, Elem: raster.Float64}
	switch info.Elem {
	case stats.ElemInt64:
		t.Elem = raster.Int64
	case stats.ElemValues:
		t.Elem = values
	case stats.ElemWeights:
		t.Elem = weights.DType()
	}
	if info.Shape == stats.Map {
		t.Key = values
	}
	return t
}

// Type returns the type of the operation's result.
func (op *Operation) Type() FieldType {
	return op.typ
}

// Q returns the quantile level of quantile operations.
func (op *Operation) Q() float64 {
	return op.params.Q
}

// usesWeights reports whether cell weights influence the result.
func (op *Operation) usesWeights() bool {
	return op.Weights != nil && op.Stat.Info().Weights != stats.WeightsIgnored
}

func (op *Operation) newAccumulator() stats.Accumulator {
	acc, err := stats.New(op.Stat, op.params)
	if err != nil {
		// parameters were checked in NewOperation
		panic(err)
	}
	return acc
}

// convert turns an accumulator result into a value of the operation's
// result type. Undefined results become nil.
func (op *Operation) convert(v any, ok bool) any {
	if !ok {
		return nil
	}
	info := op.Stat.Info()
	if info.Elem != stats.ElemValues && info.Elem != stats.ElemWeights && info.Shape != stats.Map {
		return v
	}

	switch x := v.(type) {
	case float64:
		return op.typ.Elem.Convert(x)
	case []float64:
		return typedSlice(op.typ.Elem, x)
	case map[float64]float64:
		return typedMap(op.typ.Key, x)
	}
	return v
}

func (op *Operation) String() string {
	s := fmt.Sprintf("%s=%s(%s", op.Name, op.Stat, op.Values.Name())
	if op.Weights != nil {
		s += "," + op.Weights.Name()
	}
	for _, key := range slices.Sorted(maps.Keys(op.Args)) {
		s += "," + key + "=" + op.Args[key]
	}
	return s + ")"
}

func typedSlice(dt raster.DType, xs []float64) any {
	switch dt {
	case raster.Uint8:
		return castSlice[uint8](xs)
	case raster.Uint16:
		return castSlice[uint16](xs)
	case raster.Int16:
		return castSlice[int16](xs)
	case raster.Int32:
		return castSlice[int32](xs)
	case raster.Int64:
		return castSlice[int64](xs)
	case raster.Float32:
		return castSlice[float32](xs)
	}
	return xs
}

func castSlice[T raster.Number](xs []float64) []T {
	res := make([]T, len(xs))
	for i, x := range xs {
		res[i] = T(x)
	}
	return res
}

func typedMap(dt raster.DType, m map[float64]float64) any {
	switch dt {
	case raster.Uint8:
		return castMap[uint8](m)
	case raster.Uint16:
		return castMap[uint16](m)
	case raster.Int16:
		return castMap[int16](m)
	case raster.Int32:
		return castMap[int32](m)
	case raster.Int64:
		return castMap[int64](m)
	case raster.Float32:
		return castMap[float32](m)
	}
	return m
}

func castMap[T raster.Number](m map[float64]float64) map[T]float64 {
	res := make(map[T]float64, len(m))
	for k, v := range m {
		res[T(k)] += v
	}
	return res
}
