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
	"fmt"
	"reflect"
)

// DType is the type of the values stored in a raster.
type DType int

// Supported value types.
const (
	Invalid DType = iota
	Uint8
	Uint16
	Int16
	Int32
	Int64
	Float32
	Float64
)

// Number is the set of Go types a raster can hold.
type Number interface {
	~uint8 | ~uint16 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// DTypeOf returns the DType corresponding to T. Named types map to the
// DType of their underlying type.
func DTypeOf[T Number]() DType {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Uint8:
		return Uint8
	case reflect.Uint16:
		return Uint16
	case reflect.Int16:
		return Int16
	case reflect.Int32:
		return Int32
	case reflect.Int64:
		return Int64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	}
	return Invalid
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// Convert returns v represented in the Go type of d.
// Integer types are truncated towards zero.
func (d DType) Convert(v float64) any {
	switch d {
	case Uint8:
		return uint8(v)
	case Uint16:
		return uint16(v)
	case Int16:
		return int16(v)
	case Int32:
		return int32(v)
	case Int64:
		return int64(v)
	case Float32:
		return float32(v)
	default:
		return v
	}
}

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}
