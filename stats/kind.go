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

package stats

import "fmt"

// Kind identifies a statistic.
type Kind int

// The statistics of the catalog.
const (
	Count Kind = iota + 1
	Sum
	Mean
	Min
	Max
	Variety
	Majority
	Minority
	Mode
	Variance
	Stdev
	CoefficientOfVariation
	Quantile
	Median
	WeightedMean
	WeightedSum
	WeightedVariance
	WeightedStdev
	Frac
	WeightedFrac
	CellID
	Values
	Weights
	CenterX
	CenterY
	Coverage

	numKinds = iota + 1
)

// WeightUse describes how a statistic treats a weight raster.
type WeightUse int

const (
	// WeightsIgnored means that weights have no influence on the result.
	WeightsIgnored WeightUse = iota

	// WeightsOptional means that weights scale the contribution of a cell
	// if they are present.
	WeightsOptional

	// WeightsRequired means that the statistic cannot be computed without
	// weights.
	WeightsRequired
)

func (w WeightUse) String() string {
	switch w {
	case WeightsIgnored:
		return "ignored"
	case WeightsOptional:
		return "optional"
	case WeightsRequired:
		return "required"
	default:
		return fmt.Sprintf("WeightUse(%d)", int(w))
	}
}

// Shape is the structure of a result.
type Shape int

const (
	// Scalar results hold a single value.
	Scalar Shape = iota

	// Array results hold one element per contributing cell.
	Array

	// Map results map each distinct cell value to a share in [0, 1].
	Map
)

func (s Shape) String() string {
	switch s {
	case Scalar:
		return "scalar"
	case Array:
		return "array"
	case Map:
		return "map"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Elem is the element type of a result.
type Elem int

const (
	// ElemFloat64 results are float64 values.
	ElemFloat64 Elem = iota

	// ElemInt64 results are int64 values.
	ElemInt64

	// ElemValues results have the type of the value raster.
	ElemValues

	// ElemWeights results have the type of the weight raster.
	ElemWeights
)

// Info describes a statistic.
type Info struct {
	Name    string
	Weights WeightUse
	Shape   Shape
	Elem    Elem

	// Params lists the accepted parameter names.
	Params []string

	// NoData reports whether the statistic has no defined value when no
	// cell contributes.
	NoData bool
}

var catalog = [numKinds]Info{
	Count:                  {Name: "count", Weights: WeightsOptional},
	Sum:                    {Name: "sum", Weights: WeightsOptional},
	Mean:                   {Name: "mean", Weights: WeightsOptional, NoData: true},
	Min:                    {Name: "min", NoData: true},
	Max:                    {Name: "max", NoData: true},
	Variety:                {Name: "variety", Elem: ElemInt64},
	Majority:               {Name: "majority", Elem: ElemValues, NoData: true},
	Minority:               {Name: "minority", Elem: ElemValues, NoData: true},
	Mode:                   {Name: "mode", Elem: ElemValues, NoData: true},
	Variance:               {Name: "variance", Weights: WeightsOptional, NoData: true},
	Stdev:                  {Name: "stdev", Weights: WeightsOptional, NoData: true},
	CoefficientOfVariation: {Name: "coefficient_of_variation", Weights: WeightsOptional, NoData: true},
	Quantile:               {Name: "quantile", Params: []string{"q"}, NoData: true},
	Median:                 {Name: "median", NoData: true},
	WeightedMean:           {Name: "weighted_mean", Weights: WeightsRequired, NoData: true},
	WeightedSum:            {Name: "weighted_sum", Weights: WeightsRequired},
	WeightedVariance:       {Name: "weighted_variance", Weights: WeightsRequired, NoData: true},
	WeightedStdev:          {Name: "weighted_stdev", Weights: WeightsRequired, NoData: true},
	Frac:                   {Name: "frac", Shape: Map},
	WeightedFrac:           {Name: "weighted_frac", Weights: WeightsRequired, Shape: Map},
	CellID:                 {Name: "cell_id", Shape: Array, Elem: ElemInt64},
	Values:                 {Name: "values", Shape: Array, Elem: ElemValues},
	Weights:                {Name: "weights", Weights: WeightsRequired, Shape: Array, Elem: ElemWeights},
	CenterX:                {Name: "center_x", Shape: Array},
	CenterY:                {Name: "center_y", Shape: Array},
	Coverage:               {Name: "coverage", Shape: Array},
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, numKinds)
	for k := Count; k < numKinds; k++ {
		m[catalog[k].Name] = k
	}
	return m
}()

// Lookup returns the statistic with the given name.
func Lookup(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

// Kinds returns all statistics in catalog order.
func Kinds() []Kind {
	res := make([]Kind, 0, numKinds-1)
	for k := Count; k < numKinds; k++ {
		res = append(res, k)
	}
	return res
}

// Valid reports whether k is part of the catalog.
func (k Kind) Valid() bool {
	return k >= Count && k < numKinds
}

// Info returns the catalog entry of k.
func (k Kind) Info() Info {
	if !k.Valid() {
		return Info{}
	}
	return catalog[k]
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return catalog[k].Name
}
