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

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/grid"
	"seehuhn.de/go/zonal/internal/metrics"
	"seehuhn.de/go/zonal/raster"
)

const square = `{"type":"FeatureCollection","features":[
	{"type":"Feature","id":"a","properties":{"name":"centre","owner":"x"},
	 "geometry":{"type":"Polygon","coordinates":[[[0.5,0.5],[2.5,0.5],[2.5,2.5],[0.5,2.5],[0.5,0.5]]]}},
	{"type":"Feature","id":"b","properties":{"name":"corner","owner":"y"},
	 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
]}`

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	g, err := grid.New(vec.Vec2{}, 1, 1, 3, 3)
	require.NoError(t, err)
	values, err := raster.NewMem("v", g, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	cat, err := zonal.NewCatalog(values)
	require.NoError(t, err)

	ts := httptest.NewServer(New(cat, opts...))
	t.Cleanup(ts.Close)
	return ts
}

type featureCollection struct {
	Features []struct {
		ID         string         `json:"id"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func TestZonal(t *testing.T) {
	ts := newTestServer(t, WithWorkers(2))

	resp, err := http.Post(ts.URL+"/v1/zonal?stat=count&stat=mean&stat=values&include=name",
		"application/geo+json", strings.NewReader(square))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var fc featureCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	require.Len(t, fc.Features, 2)

	a := fc.Features[0]
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, "centre", a.Properties["name"])
	assert.NotContains(t, a.Properties, "owner")
	assert.InDelta(t, 4.0, a.Properties["count"], 1e-12)
	assert.InDelta(t, 5.0, a.Properties["mean"], 1e-12)
	assert.Len(t, a.Properties["values"], 9)

	b := fc.Features[1]
	assert.Equal(t, "b", b.ID)
	assert.InDelta(t, 1.0, b.Properties["count"], 1e-12)
	assert.InDelta(t, 1.0, b.Properties["mean"], 1e-12)
}

func TestZonalUnnest(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/zonal?stat=cell_id&stat=count&unnest=true",
		"application/geo+json", strings.NewReader(square))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fc featureCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	require.Len(t, fc.Features, 10)
	for i, f := range fc.Features[:9] {
		assert.Equal(t, "a", f.ID)
		assert.Equal(t, float64(i), f.Properties["cell_id"])
		assert.InDelta(t, 4.0, f.Properties["count"], 1e-12)
	}
	assert.Equal(t, "b", fc.Features[9].ID)
}

func TestZonalErrors(t *testing.T) {
	ts := newTestServer(t, WithMaxBodyBytes(100))

	cases := []struct {
		name  string
		query string
		body  string
		code  int
	}{
		{"no stat", "", square, http.StatusBadRequest},
		{"unknown stat", "?stat=average", square, http.StatusBadRequest},
		{"unknown raster", "?stat=sum(pop)", square, http.StatusBadRequest},
		{"bad body", "?stat=sum", `{"type":"Feature"}`, http.StatusBadRequest},
		{"too large", "?stat=sum", square, http.StatusRequestEntityTooLarge},
		{"bad unnest", "?stat=sum&unnest=maybe", square, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/zonal"+tc.query, "application/geo+json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.code, resp.StatusCode)

			var e ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.Equal(t, tc.code, e.Code)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestCatalogRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/rasters")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rasters []RasterInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rasters))
	require.Len(t, rasters, 1)
	assert.Equal(t, RasterInfo{Name: "v", DType: "int32", Cols: 3, Rows: 3, CellWidth: 1, CellHeight: 1}, rasters[0])

	resp, err = http.Get(ts.URL + "/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []StatInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	found := false
	for _, s := range list {
		if s.Name == "quantile" {
			found = true
			assert.Equal(t, []string{"q"}, s.Params)
			assert.Equal(t, "scalar", s.Shape)
		}
	}
	assert.True(t, found)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, "zonal")
	ts := newTestServer(t, WithMetrics(c, reg))

	resp, err := http.Post(ts.URL+"/v1/zonal?stat=sum", "application/geo+json", strings.NewReader(square))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `zonal_features_processed_total{outcome="ok"} 2`)
	assert.Contains(t, text, `zonal_http_requests_total{method="POST",route="/v1/zonal",status="200"} 1`)
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))
}
