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

// Package metrics exports Prometheus metrics for zonal statistics runs and
// the HTTP service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"seehuhn.de/go/zonal"
)

// Collector holds the metrics. It implements zonal.Observer.
type Collector struct {
	// Features counts processed features by outcome: "ok", "empty" or
	// "error".
	Features        *prometheus.CounterVec
	FeatureDuration prometheus.Histogram
	Samples         prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Features: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "features_processed_total",
				Help:      "Total number of processed features by outcome",
			},
			[]string{"outcome"},
		),
		FeatureDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "feature_duration_seconds",
				Help:      "Time spent processing a single feature",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
		),
		Samples: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cell_samples_total",
				Help:      "Total number of cells fed to accumulators",
			},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"route"},
		),
	}
}

// ObserveFeature implements the zonal.Observer interface.
func (c *Collector) ObserveFeature(r zonal.FeatureReport) {
	outcome := "ok"
	switch {
	case r.Err != nil:
		outcome = "error"
	case r.Degenerate:
		outcome = "empty"
	}
	c.Features.WithLabelValues(outcome).Inc()
	c.FeatureDuration.Observe(r.Elapsed.Seconds())
	c.Samples.Add(float64(r.Samples))
}

// RecordRequest records one HTTP request.
func (c *Collector) RecordRequest(route, method string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
