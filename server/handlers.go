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
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/featureio"
	"seehuhn.de/go/zonal/stats"
)

// ErrorResponse is the body of all error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RasterInfo describes an available raster.
type RasterInfo struct {
	Name       string  `json:"name"`
	DType      string  `json:"dtype"`
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
}

// StatInfo describes a statistic of the catalog.
type StatInfo struct {
	Name    string   `json:"name"`
	Weights string   `json:"weights"`
	Shape   string   `json:"shape"`
	Params  []string `json:"params,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func (s *Server) rasters(w http.ResponseWriter, r *http.Request) {
	res := []RasterInfo{}
	for _, name := range s.catalog.Names() {
		src, _ := s.catalog.Lookup(name)
		g := src.Grid()
		res = append(res, RasterInfo{
			Name:       name,
			DType:      src.DType().String(),
			Cols:       g.Cols,
			Rows:       g.Rows,
			OriginX:    g.Origin.X,
			OriginY:    g.Origin.Y,
			CellWidth:  g.CellWidth,
			CellHeight: g.CellHeight,
		})
	}
	s.sendJSON(w, res, http.StatusOK)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	var res []StatInfo
	for _, k := range stats.Kinds() {
		info := k.Info()
		res = append(res, StatInfo{
			Name:    info.Name,
			Weights: info.Weights.String(),
			Shape:   info.Shape.String(),
			Params:  info.Params,
		})
	}
	s.sendJSON(w, res, http.StatusOK)
}

func (s *Server) zonal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	descriptors := q["stat"]
	if len(descriptors) == 0 {
		s.sendError(w, r, "no statistics requested", http.StatusBadRequest)
		return
	}
	ops, err := s.catalog.Operations(descriptors...)
	if err != nil {
		s.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	unnest := false
	if v := q.Get("unnest"); v != "" {
		unnest, err = strconv.ParseBool(v)
		if err != nil {
			s.sendError(w, r, "invalid unnest value "+strconv.Quote(v), http.StatusBadRequest)
			return
		}
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	src, err := featureio.ReadGeoJSON(body, q.Get("id"))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.sendError(w, r, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		s.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	logger := s.logger.With("request_id", r.Header.Get("X-Request-ID"))
	opts := []zonal.Option{
		zonal.WithLogger(logger),
		zonal.WithLineStyle(s.lines),
		zonal.WithUnnest(unnest),
	}
	if q.Has("include") {
		var cols []string
		for _, c := range strings.Split(q.Get("include"), ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
		opts = append(opts, zonal.WithIncludeCols(cols...))
	}
	if s.metrics != nil {
		opts = append(opts, zonal.WithObserver(s.metrics))
	}
	p := zonal.NewProcessor(ops, opts...)

	var buf bytes.Buffer
	err = p.RunParallel(r.Context(), src, featureio.NewGeoJSONSink(&buf), s.workers)
	if err != nil {
		var fErr *zonal.FeatureError
		if errors.As(err, &fErr) {
			s.sendError(w, r, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		logger.Error("zonal request failed", "error", err)
		s.sendError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	s.logger.Debug("request rejected",
		"request_id", r.Header.Get("X-Request-ID"), "status", statusCode, "message", message)
	s.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}
