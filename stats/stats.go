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

// Package stats implements the statistic accumulators of zonal statistics.
//
// An Accumulator consumes one Sample per raster cell which intersects a
// feature and reduces them to a result. Accumulators are created fresh for
// every feature and operation and are not safe for concurrent use.
package stats

import (
	"errors"
	"fmt"
	"math"
)

// ErrParam is returned when the parameters of a statistic are invalid.
var ErrParam = errors.New("stats: invalid parameter")

// Sample describes the contribution of a single cell.
type Sample struct {
	// Col and Row locate the cell in the value grid.
	Col, Row int

	// ID is the cell identifier within the value grid.
	ID int64

	// X and Y are the geographic coordinates of the cell centre.
	X, Y float64

	// Value is the cell value.
	Value float64

	// Weight is the weight of the cell. It is 1 if the operation has no
	// weights.
	Weight float64

	// Coverage is the fraction of the cell inside the feature, in (0, 1].
	Coverage float64
}

// Params holds the parameters of a statistic.
type Params struct {
	// Q is the quantile level in [0, 1], used by Quantile.
	Q float64
}

// Accumulator reduces a stream of samples to a result.
type Accumulator interface {
	// Add includes one cell in the statistic.
	Add(s Sample)

	// Result returns the value of the statistic. The boolean result is
	// false if the statistic is undefined because no cell contributed.
	//
	// Scalars are float64, except for Variety which is int64. Maps are
	// map[float64]float64. Arrays are []float64, except for CellID which
	// is []int64.
	Result() (any, bool)
}

// New returns a fresh accumulator for the statistic k.
func New(k Kind, p Params) (Accumulator, error) {
	switch k {
	case Count, Sum, Mean, WeightedSum, WeightedMean:
		return &moments{kind: k}, nil
	case Variance, Stdev, CoefficientOfVariation, WeightedVariance, WeightedStdev:
		return &moments{kind: k}, nil
	case Min:
		return &extremum{less: func(a, b float64) bool { return a < b }}, nil
	case Max:
		return &extremum{less: func(a, b float64) bool { return a > b }}, nil
	case Variety, Majority, Minority, Mode, Frac, WeightedFrac:
		return &frequencies{kind: k, freq: make(map[float64]float64)}, nil
	case Quantile:
		if math.IsNaN(p.Q) || p.Q < 0 || p.Q > 1 {
			return nil, fmt.Errorf("%w: quantile level %g not in [0, 1]", ErrParam, p.Q)
		}
		return &quantile{q: p.Q}, nil
	case Median:
		return &quantile{q: 0.5}, nil
	case CellID:
		return &cellIDs{ids: []int64{}}, nil
	case Values, Weights, CenterX, CenterY, Coverage:
		return &column{kind: k, data: []float64{}}, nil
	}
	return nil, fmt.Errorf("stats: unknown statistic %s", k)
}

// extremum tracks the smallest value according to less.
type extremum struct {
	less func(a, b float64) bool
	v    float64
	seen bool
}

func (e *extremum) Add(s Sample) {
	if !e.seen || e.less(s.Value, e.v) {
		e.v = s.Value
		e.seen = true
	}
}

func (e *extremum) Result() (any, bool) {
	if !e.seen {
		return nil, false
	}
	return e.v, true
}

// cellIDs collects the identifiers of the contributing cells.
type cellIDs struct {
	ids []int64
}

func (c *cellIDs) Add(s Sample) {
	c.ids = append(c.ids, s.ID)
}

func (c *cellIDs) Result() (any, bool) {
	return c.ids, true
}

// column collects one per-cell quantity.
type column struct {
	kind Kind
	data []float64
}

func (c *column) Add(s Sample) {
	var v float64
	switch c.kind {
	case Values:
		v = s.Value
	case Weights:
		v = s.Weight
	case CenterX:
		v = s.X
	case CenterY:
		v = s.Y
	case Coverage:
		v = s.Coverage
	}
	c.data = append(c.data, v)
}

func (c *column) Result() (any, bool) {
	return c.data, true
}
