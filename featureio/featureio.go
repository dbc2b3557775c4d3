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

// Package featureio provides feature sources and record sinks for
// zonal.Processor.
package featureio

import (
	"context"
	"errors"
	"io"
	"sync"

	"seehuhn.de/go/zonal"
)

// ErrNotFinished is returned when the output of a sink is requested before
// the run has finished.
var ErrNotFinished = errors.New("featureio: sink not finished")

// SliceSource supplies features from a slice.
type SliceSource struct {
	features []zonal.Feature
	next     int
}

// NewSliceSource returns a source which yields the given features in order.
func NewSliceSource(features ...zonal.Feature) *SliceSource {
	return &SliceSource{features: features}
}

// Next implements the zonal.FeatureSource interface.
func (s *SliceSource) Next(ctx context.Context) (zonal.Feature, error) {
	if err := ctx.Err(); err != nil {
		return zonal.Feature{}, err
	}
	if s.next >= len(s.features) {
		return zonal.Feature{}, io.EOF
	}
	f := s.features[s.next]
	s.next++
	return f, nil
}

// MemorySink collects records in memory.
type MemorySink struct {
	mu       sync.Mutex
	records  []zonal.Record
	finished bool
}

// Write implements the zonal.Sink interface.
func (s *MemorySink) Write(_ context.Context, rec zonal.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Finish implements the zonal.Sink interface.
func (s *MemorySink) Finish(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	return nil
}

// Records returns the collected records. It fails with ErrNotFinished
// until Finish has been called.
func (s *MemorySink) Records() ([]zonal.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		return nil, ErrNotFinished
	}
	return s.records, nil
}
