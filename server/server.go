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

// Package server exposes zonal statistics over HTTP.
//
// Routes:
//
//	GET  /healthz      liveness check
//	GET  /metrics      Prometheus metrics, if enabled
//	GET  /v1/rasters   the rasters available in stat descriptors
//	GET  /v1/stats     the statistic catalog
//	POST /v1/zonal     GeoJSON FeatureCollection in, results out
//
// POST /v1/zonal takes the requested statistics as repeated "stat" query
// parameters holding stat descriptors, for example
// "?stat=sum(pop)&stat=frac(landuse)". Optional parameters are "include"
// (property names copied to the output, comma separated), "id" (property
// holding the feature identifier) and "unnest" (one output feature per
// cell for array statistics).
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/coverage"
	"seehuhn.de/go/zonal/internal/metrics"
)

// Server handles HTTP requests.
type Server struct {
	catalog  *zonal.Catalog
	logger   *slog.Logger
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	workers  int
	lines    coverage.LineStyle
	maxBody  int64

	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for access logs and errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics enables request and feature metrics, served from g.
func WithMetrics(c *metrics.Collector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = c
		s.gatherer = g
	}
}

// WithWorkers sets the number of goroutines used per request.
func WithWorkers(n int) Option {
	return func(s *Server) { s.workers = n }
}

// WithLineStyle sets the buffer applied to line features.
func WithLineStyle(ls coverage.LineStyle) Option {
	return func(s *Server) { s.lines = ls }
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// New returns a server computing statistics over the rasters in cat.
func New(cat *zonal.Catalog, opts ...Option) *Server {
	s := &Server{
		catalog: cat,
		logger:  zonal.Logger(),
		workers: 1,
		maxBody: 32 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.requestID, s.access)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/v1/rasters", s.rasters).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", s.stats).Methods(http.MethodGet)
	r.HandleFunc("/v1/zonal", s.zonal).Methods(http.MethodPost)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// requestID makes sure every request carries an X-Request-ID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// access logs requests and records request metrics.
func (s *Server) access(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		dur := time.Since(start)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		if s.metrics != nil {
			s.metrics.RecordRequest(route, r.Method, sw.status, dur)
		}
		s.logger.Debug("http_access",
			"request_id", r.Header.Get("X-Request-ID"),
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration_ms", dur.Milliseconds(),
			"ip", r.RemoteAddr,
		)
	})
}
