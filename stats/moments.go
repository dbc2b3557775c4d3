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

import "math"

// moments accumulates weighted sums and the weighted mean and variance.
// The variance uses West's weighted variant of Welford's algorithm.
type moments struct {
	kind Kind

	count float64 // sum of weights
	sum   float64 // weighted sum of values
	mean  float64
	m2    float64
}

func (m *moments) Add(s Sample) {
	w := s.Coverage * s.Weight
	m.sum += s.Value * w
	if w == 0 {
		return
	}
	m.count += w
	delta := s.Value - m.mean
	m.mean += delta * w / m.count
	m.m2 += w * delta * (s.Value - m.mean)
}

func (m *moments) Result() (any, bool) {
	switch m.kind {
	case Count:
		return m.count, true
	case Sum, WeightedSum:
		return m.sum, true
	}

	if m.count <= 0 {
		return nil, false
	}
	switch m.kind {
	case Mean, WeightedMean:
		return m.sum / m.count, true
	case Variance, WeightedVariance:
		return m.variance(), true
	case Stdev, WeightedStdev:
		return math.Sqrt(m.variance()), true
	case CoefficientOfVariation:
		return math.Sqrt(m.variance()) / m.mean, true
	}
	return nil, false
}

// variance returns the population variance.
func (m *moments) variance() float64 {
	return max(m.m2/m.count, 0)
}
