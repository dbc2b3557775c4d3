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

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/zonal"
)

var _ zonal.Observer = (*Collector)(nil)

func TestObserveFeature(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "zonal")

	c.ObserveFeature(zonal.FeatureReport{ID: "a", Samples: 12, Elapsed: time.Millisecond})
	c.ObserveFeature(zonal.FeatureReport{ID: "b", Degenerate: true})
	c.ObserveFeature(zonal.FeatureReport{ID: "c", Err: errors.New("boom")})
	c.ObserveFeature(zonal.FeatureReport{ID: "d", Samples: 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Features.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Features.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Features.WithLabelValues("error")))
	assert.Equal(t, 15.0, testutil.ToFloat64(c.Samples))

	n, err := testutil.GatherAndCount(reg, "zonal_feature_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "zonal")
	c.RecordRequest("/v1/zonal", "POST", 200, 20*time.Millisecond)
	c.RecordRequest("/v1/zonal", "POST", 400, time.Millisecond)
	c.RecordRequest("/v1/zonal", "POST", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/v1/zonal", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/v1/zonal", "POST", "400")))
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, "zonal")
	assert.Panics(t, func() { New(reg, "zonal") })
	assert.NotPanics(t, func() { New(reg, "other") })
}
