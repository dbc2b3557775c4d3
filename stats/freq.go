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

import (
	"cmp"
	"math"
	"slices"
)

// frequencies keeps the total weight of every distinct value.
type frequencies struct {
	kind  Kind
	freq  map[float64]float64
	total float64
}

func (f *frequencies) Add(s Sample) {
	w := s.Coverage
	if f.kind == WeightedFrac {
		w *= s.Weight
	}
	f.freq[s.Value] += w
	f.total += w
}

func (f *frequencies) Result() (any, bool) {
	switch f.kind {
	case Variety:
		return int64(len(f.freq)), true
	case Frac, WeightedFrac:
		res := make(map[float64]float64, len(f.freq))
		if f.total == 0 {
			return res, true
		}
		for v, w := range f.freq {
			res[v] = w / f.total
		}
		return res, true
	}

	if len(f.freq) == 0 {
		return nil, false
	}

	// iterate in value order, so that ties go to the smallest value
	values := make([]float64, 0, len(f.freq))
	for v := range f.freq {
		values = append(values, v)
	}
	slices.SortFunc(values, cmp.Compare[float64])

	best := values[0]
	bestW := f.freq[best]
	for _, v := range values[1:] {
		w := f.freq[v]
		if f.kind == Minority && w < bestW || f.kind != Minority && w > bestW {
			best, bestW = v, w
		}
	}
	return best, true
}

// quantile materialises all values and computes a weighted order
// statistic. With equal weights the result agrees with the type 7
// quantile of Hyndman and Fan, the default of R and NumPy.
type quantile struct {
	q     float64
	elems []weighted
}

type weighted struct {
	x, w float64
	s    float64 // position of the element on the interpolation scale
}

func (q *quantile) Add(s Sample) {
	if s.Coverage <= 0 {
		return
	}
	q.elems = append(q.elems, weighted{x: s.Value, w: s.Coverage})
}

func (q *quantile) Result() (any, bool) {
	v := weightedQuantile(q.elems, q.q)
	if math.IsNaN(v) {
		return nil, false
	}
	return v, true
}

// weightedQuantile returns the q-quantile of the weighted values in elems.
// The slice is reordered. The result is NaN if elems is empty.
//
// Element k (0-based, in value order) is placed at
// s_k = k·w_k + (n-1)·W_{k-1}, where W_{k-1} is the total weight of the
// elements before it. The quantile is found by linear interpolation at
// q·s_{n-1}.
func weightedQuantile(elems []weighted, q float64) float64 {
	n := len(elems)
	if n == 0 {
		return math.NaN()
	}
	slices.SortStableFunc(elems, func(a, b weighted) int {
		return cmp.Compare(a.x, b.x)
	})

	var cum float64
	for k := range elems {
		elems[k].s = float64(k)*elems[k].w + float64(n-1)*cum
		cum += elems[k].w
	}

	target := q * elems[n-1].s
	i, _ := slices.BinarySearchFunc(elems, target, func(e weighted, t float64) int {
		if e.s <= t {
			return -1
		}
		return 1
	})
	switch {
	case i == n:
		return elems[n-1].x
	case i == 0:
		return elems[0].x
	}
	lo, hi := elems[i-1], elems[i]
	return lo.x + (target-lo.s)*(hi.x-lo.x)/(hi.s-lo.s)
}
