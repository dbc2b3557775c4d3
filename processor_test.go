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

package zonal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/zonal/coverage"
	"seehuhn.de/go/zonal/geometry"
	"seehuhn.de/go/zonal/grid"
	"seehuhn.de/go/zonal/raster"
)

type sliceSource struct {
	features []Feature
}

func (s *sliceSource) Next(ctx context.Context) (Feature, error) {
	if err := ctx.Err(); err != nil {
		return Feature{}, err
	}
	if len(s.features) == 0 {
		return Feature{}, io.EOF
	}
	f := s.features[0]
	s.features = s.features[1:]
	return f, nil
}

type collectSink struct {
	records  []Record
	finished bool
}

func (s *collectSink) Write(_ context.Context, rec Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *collectSink) Finish(context.Context) error {
	s.finished = true
	return nil
}

func box(x0, y0, x1, y1 float64) geometry.Polygon {
	return geometry.Rectangle(rect.Rect{LLx: x0, LLy: y0, URx: x1, URy: y1})
}

// nine returns a 3×3 raster holding 1, ..., 9 in row-major order.
func nine(t *testing.T) *raster.Mem[int32] {
	t.Helper()
	m, err := raster.NewMem("nine", unitGrid(t, 3, 3), []int32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	return m
}

func operations(t *testing.T, sources []raster.Source, descriptors ...string) []*Operation {
	t.Helper()
	cat, err := NewCatalog(sources...)
	require.NoError(t, err)
	ops, err := cat.Operations(descriptors...)
	require.NoError(t, err)
	return ops
}

func process(t *testing.T, p *Processor, geom geometry.Geometry) Record {
	t.Helper()
	rec, err := p.Process(context.Background(), Feature{ID: "f", Geometry: geom})
	require.NoError(t, err)
	return rec
}

func get(t *testing.T, rec Record, name string) any {
	t.Helper()
	v, ok := rec.Get(name)
	require.True(t, ok, "missing field %q", name)
	return v
}

func TestTriangle(t *testing.T) {
	values := ramp[int32](t, "values", 10, 10)
	ops := operations(t, []raster.Source{values},
		"count(values)", "sum(values)", "mean(values)", "min(values)", "max(values)", "variety(values)")
	p := NewProcessor(ops)

	tri := geometry.Polygon{geometry.Ring{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 0}}}
	rec := process(t, p, tri)

	count := get(t, rec, "values_count")
	require.IsType(t, float64(0), count)
	assert.InDelta(t, 50.0, count, 1e-9)
	assert.InDelta(t, 1732.5, get(t, rec, "values_sum"), 1e-9)
	assert.InDelta(t, 34.65, get(t, rec, "values_mean"), 1e-9)
	assert.Equal(t, 0.0, get(t, rec, "values_min"))
	assert.Equal(t, 99.0, get(t, rec, "values_max"))
	assert.Equal(t, int64(55), get(t, rec, "values_variety"))
}

func TestSquare(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values},
		"n=count", "s=sum", "m=mean", "cell_id", "values", "coverage",
		"center_x", "frac", "majority", "median")
	p := NewProcessor(ops)
	rec := process(t, p, box(0.5, 0.5, 2.5, 2.5))

	assert.InDelta(t, 4.0, get(t, rec, "n"), 1e-12)
	assert.InDelta(t, 20.0, get(t, rec, "s"), 1e-12)
	assert.InDelta(t, 5.0, get(t, rec, "m"), 1e-12)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8}, get(t, rec, "cell_id"))
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9}, get(t, rec, "values"))
	assert.InDeltaSlice(t,
		[]float64{0.25, 0.5, 0.25, 0.5, 1, 0.5, 0.25, 0.5, 0.25},
		get(t, rec, "coverage"), 1e-12)
	assert.Equal(t,
		[]float64{0.5, 1.5, 2.5, 0.5, 1.5, 2.5, 0.5, 1.5, 2.5},
		get(t, rec, "center_x"))
	assert.Equal(t, int32(5), get(t, rec, "majority"))
	assert.Equal(t, 5.0, get(t, rec, "median"))

	frac := get(t, rec, "frac").(map[int32]float64)
	assert.InDelta(t, 0.25, frac[5], 1e-12)
	assert.InDelta(t, 1.0/16, frac[1], 1e-12)
}

func TestSchema(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "count(nine)", "values", "frac")
	p := NewProcessor(ops)

	schema := p.Schema()
	require.Len(t, schema, 3)
	assert.Equal(t, "nine_count", schema[0].Name)
	assert.Equal(t, "float64", schema[0].Type.GoType())
	assert.Equal(t, "[]int32", schema[1].Type.GoType())
	assert.Equal(t, "map[int32]float64", schema[2].Type.GoType())
}

func TestNodata(t *testing.T) {
	values := nine(t).SetNodata(5)
	ops := operations(t, []raster.Source{values}, "count(nine)", "sum(nine)", "cell_id(nine)")
	p := NewProcessor(ops)
	rec := process(t, p, box(0.5, 0.5, 2.5, 2.5))

	assert.InDelta(t, 3.0, get(t, rec, "nine_count"), 1e-12)
	assert.InDelta(t, 15.0, get(t, rec, "nine_sum"), 1e-12)
	assert.Equal(t, []int64{0, 1, 2, 3, 5, 6, 7, 8}, get(t, rec, "nine_cell_id"))
}

func TestAlignedWeights(t *testing.T) {
	values := nine(t)

	// the weights cover columns 1 and 2 of the value grid
	wg, err := grid.New(vec.Vec2{X: 1, Y: 0}, 1, 1, 2, 3)
	require.NoError(t, err)
	weights, err := raster.NewMem("w", wg, []float64{2, 2, 2, 2, 2, 2})
	require.NoError(t, err)

	ops := operations(t, []raster.Source{values, weights},
		"sum(nine,w)", "count(nine,w)", "weighted_mean(nine,w)", "min(nine,w)", "weights(nine,w)")
	p := NewProcessor(ops)
	rec := process(t, p, box(0.5, 0.5, 2.5, 2.5))

	assert.InDelta(t, 32.0, get(t, rec, "nine_sum"), 1e-12)
	assert.InDelta(t, 6.0, get(t, rec, "nine_count"), 1e-12)
	assert.InDelta(t, 32.0/6, get(t, rec, "nine_weighted_mean"), 1e-12)
	assert.Equal(t, 1.0, get(t, rec, "nine_min"), "weights are ignored by min")
	assert.Equal(t, []float64{2, 2, 2, 2, 2, 2}, get(t, rec, "nine_weights"))
}

func TestResampledWeights(t *testing.T) {
	values := nine(t)

	wg, err := grid.New(vec.Vec2{}, 0.5, 0.5, 6, 6)
	require.NoError(t, err)
	data := make([]float64, 36)
	for i := range data {
		data[i] = 3
	}
	weights, err := raster.NewMem("w", wg, data)
	require.NoError(t, err)

	ops := operations(t, []raster.Source{values, weights}, "sum(nine,w)", "count(nine,w)", "mean(nine,w)")
	p := NewProcessor(ops)
	rec := process(t, p, box(0.5, 0.5, 2.5, 2.5))

	assert.InDelta(t, 60.0, get(t, rec, "nine_sum"), 1e-12)
	assert.InDelta(t, 12.0, get(t, rec, "nine_count"), 1e-12)
	assert.InDelta(t, 5.0, get(t, rec, "nine_mean"), 1e-12)
}

func TestEmptyFeature(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "count(nine)", "sum(nine)", "mean(nine)", "cell_id(nine)", "frac(nine)")
	outside := Feature{ID: "outside", Geometry: box(20, 20, 21, 21)}
	inside := Feature{ID: "inside", Geometry: box(0, 0, 1, 1)}

	p := NewProcessor(ops)
	rec := process(t, p, outside.Geometry)
	assert.Equal(t, 0.0, get(t, rec, "nine_count"))
	assert.Equal(t, 0.0, get(t, rec, "nine_sum"))
	assert.Nil(t, get(t, rec, "nine_mean"))
	assert.Empty(t, get(t, rec, "nine_cell_id"))
	assert.Empty(t, get(t, rec, "nine_frac"))

	sink := &collectSink{}
	err := p.Run(context.Background(), &sliceSource{features: []Feature{outside, inside}}, sink)
	require.NoError(t, err)
	require.Len(t, sink.records, 2)
	assert.True(t, sink.finished)

	p = NewProcessor(ops, WithEmptyPolicy(EmptySkip))
	sink = &collectSink{}
	err = p.Run(context.Background(), &sliceSource{features: []Feature{outside, inside}}, sink)
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "inside", sink.records[0].ID)
}

func TestLines(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "count(nine)", "sum(nine)")
	road := geometry.Lines{{{X: 0, Y: 1.5}, {X: 3, Y: 1.5}}}

	p := NewProcessor(ops)
	rec := process(t, p, road)
	assert.Equal(t, 0.0, get(t, rec, "nine_count"))

	p = NewProcessor(ops, WithLineStyle(coverage.LineStyle{Width: 1}))
	rec = process(t, p, road)
	assert.InDelta(t, 3.0, get(t, rec, "nine_count"), 1e-9)
	assert.InDelta(t, 15.0, get(t, rec, "nine_sum"), 1e-9)
}

func TestIncludeCols(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "count")
	f := Feature{
		ID:         "a",
		Geometry:   box(0, 0, 1, 1),
		Properties: map[string]any{"name": "field 1", "owner": "x"},
	}

	rec, err := NewProcessor(ops).Process(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, f.Properties, rec.Properties)

	rec, err = NewProcessor(ops, WithIncludeCols("name", "missing")).Process(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "field 1"}, rec.Properties)

	rec, err = NewProcessor(ops, WithIncludeCols()).Process(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, rec.Properties)
}

var errDisk = errors.New("disk on fire")

// flaky fails all reads which reach column failCol or beyond.
type flaky struct {
	*raster.Mem[int32]
	failCol int
}

func (f *flaky) Read(ctx context.Context, w grid.Window) (*raster.Window, error) {
	if w.Col+w.Cols > f.failCol {
		return nil, errDisk
	}
	return f.Mem.Read(ctx, w)
}

func TestReadFailure(t *testing.T) {
	src := &flaky{Mem: ramp[int32](t, "flaky", 10, 10), failCol: 5}
	ops := operations(t, []raster.Source{src}, "sum")
	features := func() *sliceSource {
		return &sliceSource{features: []Feature{
			{ID: "left", Geometry: box(0, 0, 2, 2)},
			{ID: "right", Geometry: box(7, 0, 9, 2)},
			{ID: "left2", Geometry: box(1, 1, 3, 3)},
		}}
	}

	p := NewProcessor(ops)
	_, err := p.Process(context.Background(), Feature{ID: "right", Geometry: box(7, 0, 9, 2)})
	require.ErrorIs(t, err, errDisk)
	var fErr *FeatureError
	require.True(t, errors.As(err, &fErr))
	assert.Equal(t, "right", fErr.ID)

	sink := &collectSink{}
	err = p.Run(context.Background(), features(), sink)
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, sink.finished)

	p = NewProcessor(ops, WithContinueOnError(true))
	sink = &collectSink{}
	err = p.Run(context.Background(), features(), sink)
	require.NoError(t, err)
	require.Len(t, sink.records, 2)
	assert.Equal(t, "left", sink.records[0].ID)
	assert.Equal(t, "left2", sink.records[1].ID)

	sink = &collectSink{}
	err = p.RunParallel(context.Background(), features(), sink, 3)
	require.NoError(t, err)
	require.Len(t, sink.records, 2)
	assert.Equal(t, "left2", sink.records[1].ID)
}

type reports struct {
	mu   sync.Mutex
	list []FeatureReport
}

func (r *reports) ObserveFeature(rep FeatureReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, rep)
}

func TestObserver(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "count", "sum")
	obs := &reports{}
	p := NewProcessor(ops, WithObserver(obs))

	src := &sliceSource{features: []Feature{
		{ID: "a", Geometry: box(0.5, 0.5, 2.5, 2.5)},
		{ID: "b", Geometry: box(10, 10, 11, 11)},
	}}
	require.NoError(t, p.Run(context.Background(), src, &collectSink{}))

	require.Len(t, obs.list, 2)
	assert.Equal(t, "a", obs.list[0].ID)
	assert.Equal(t, 18, obs.list[0].Samples)
	assert.False(t, obs.list[0].Degenerate)
	assert.Equal(t, "b", obs.list[1].ID)
	assert.Zero(t, obs.list[1].Samples)
	assert.True(t, obs.list[1].Degenerate)
	assert.NoError(t, obs.list[1].Err)
}

// testFeatures returns a mix of boxes, triangles and holes on a 10×10 grid.
func testFeatures(n int) []Feature {
	var res []Feature
	for i := range n {
		x := float64(i%7) + 0.3*float64(i%3)
		y := float64(i%5) + 0.17*float64(i%4)
		var g geometry.Geometry
		switch i % 3 {
		case 0:
			g = box(x, y, x+2.4, y+3.1)
		case 1:
			g = geometry.Polygon{geometry.Ring{{X: x, Y: y}, {X: x + 4, Y: y + 0.5}, {X: x + 1, Y: y + 4.2}}}
		default:
			g = geometry.Polygon{
				geometry.Ring{{X: x, Y: y}, {X: x + 4, Y: y}, {X: x + 4, Y: y + 4}, {X: x, Y: y + 4}},
				geometry.Ring{{X: x + 1, Y: y + 1}, {X: x + 1, Y: y + 2.5}, {X: x + 2.5, Y: y + 2.5}, {X: x + 2.5, Y: y + 1}},
			}
		}
		res = append(res, Feature{
			ID:         fmt.Sprintf("f%d", i),
			Geometry:   g,
			Properties: map[string]any{"i": i},
		})
	}
	return res
}

func TestParallelMatchesSequential(t *testing.T) {
	values := ramp[float64](t, "v", 10, 10)
	weights := ramp[int32](t, "w", 10, 10)
	ops := operations(t, []raster.Source{values, weights},
		"count(v)", "sum(v,w)", "mean(v)", "stdev(v,w)", "quantile(v,q=0.3)",
		"frac(w)", "cell_id(v)", "values(w)", "weighted_frac(w,v)")
	p := NewProcessor(ops)

	seq := &collectSink{}
	require.NoError(t, p.Run(context.Background(), &sliceSource{features: testFeatures(60)}, seq))

	for _, workers := range []int{1, 4, 16} {
		par := &collectSink{}
		err := p.RunParallel(context.Background(), &sliceSource{features: testFeatures(60)}, par, workers)
		require.NoError(t, err)
		assert.True(t, par.finished)
		assert.Equal(t, seq.records, par.records, "%d workers", workers)
	}
}

func TestIdempotence(t *testing.T) {
	values := ramp[float64](t, "v", 10, 10)
	ops := operations(t, []raster.Source{values}, "sum", "variance", "median", "coverage")

	var runs [2][]Record
	for i := range runs {
		sink := &collectSink{}
		require.NoError(t, NewProcessor(ops).Run(context.Background(), &sliceSource{features: testFeatures(20)}, sink))
		runs[i] = sink.records
	}
	assert.Equal(t, runs[0], runs[1])
}

func TestCancel(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "count")
	p := NewProcessor(ops)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Run(ctx, &sliceSource{features: testFeatures(3)}, &collectSink{})
	assert.ErrorIs(t, err, context.Canceled)

	err = p.RunParallel(ctx, &sliceSource{features: testFeatures(3)}, &collectSink{}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSharedSource(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "count", "sum", "values")
	p := NewProcessor(ops)
	assert.Len(t, p.sources, 1)
	assert.Len(t, p.grids, 1)
}

func TestUnnest(t *testing.T) {
	values := nine(t)
	ops := operations(t, []raster.Source{values}, "cell_id", "coverage", "count")
	p := NewProcessor(ops, WithUnnest(true))

	schema := p.Schema()
	assert.Equal(t, "int64", schema[0].Type.GoType())
	assert.Equal(t, "float64", schema[1].Type.GoType())

	features := func() *sliceSource {
		return &sliceSource{features: []Feature{
			{ID: "sq", Geometry: box(0.5, 0.5, 2.5, 2.5), Properties: map[string]any{"k": 1}},
			{ID: "outside", Geometry: box(10, 10, 11, 11)},
			{ID: "corner", Geometry: box(0, 0, 1, 1)},
		}}
	}

	sink := &collectSink{}
	require.NoError(t, p.Run(context.Background(), features(), sink))
	require.Len(t, sink.records, 10)

	wantCoverage := []float64{0.25, 0.5, 0.25, 0.5, 1, 0.5, 0.25, 0.5, 0.25}
	for i, rec := range sink.records[:9] {
		assert.Equal(t, "sq", rec.ID)
		assert.Equal(t, int64(i), get(t, rec, "cell_id"))
		assert.InDelta(t, wantCoverage[i], get(t, rec, "coverage"), 1e-12)
		assert.InDelta(t, 4.0, get(t, rec, "count"), 1e-12)
		assert.Equal(t, 1, rec.Properties["k"])
	}
	corner := sink.records[9]
	assert.Equal(t, "corner", corner.ID)
	assert.Equal(t, int64(0), get(t, corner, "cell_id"))
	assert.InDelta(t, 1.0, get(t, corner, "count"), 1e-12)

	par := &collectSink{}
	require.NoError(t, p.RunParallel(context.Background(), features(), par, 3))
	assert.Equal(t, sink.records, par.records)
}

func TestUnnestLengthMismatch(t *testing.T) {
	values := nine(t)
	holes, err := raster.NewMem("holes", unitGrid(t, 3, 3), []int32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	holes.SetNodata(5)
	ops := operations(t, []raster.Source{values, holes}, "cell_id(nine)", "values(holes)")
	features := func() *sliceSource {
		return &sliceSource{features: []Feature{{ID: "sq", Geometry: box(0.5, 0.5, 2.5, 2.5)}}}
	}

	err = NewProcessor(ops, WithUnnest(true)).Run(context.Background(), features(), &collectSink{})
	require.ErrorIs(t, err, ErrArrayLength)
	var fErr *FeatureError
	require.True(t, errors.As(err, &fErr))
	assert.Equal(t, "sq", fErr.ID)

	sink := &collectSink{}
	p := NewProcessor(ops, WithUnnest(true), WithContinueOnError(true))
	require.NoError(t, p.Run(context.Background(), features(), sink))
	assert.Empty(t, sink.records)
	assert.True(t, sink.finished)

	// without unnesting, arrays of different lengths are fine
	rec := process(t, NewProcessor(ops), box(0.5, 0.5, 2.5, 2.5))
	assert.Len(t, get(t, rec, "nine_cell_id"), 9)
	assert.Len(t, get(t, rec, "holes_values"), 8)
}

// gate blocks all reads which include column 0 until release is closed.
type gate struct {
	*raster.Mem[int32]
	release chan struct{}
}

func (g *gate) Read(ctx context.Context, w grid.Window) (*raster.Window, error) {
	if w.Col == 0 {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.Mem.Read(ctx, w)
}

type countingSource struct {
	sliceSource
	reads atomic.Int32
}

func (s *countingSource) Next(ctx context.Context) (Feature, error) {
	s.reads.Add(1)
	return s.sliceSource.Next(ctx)
}

func TestParallelBacklog(t *testing.T) {
	const workers = 2
	src := &gate{Mem: ramp[int32](t, "v", 10, 10), release: make(chan struct{})}
	p := NewProcessor(operations(t, []raster.Source{src}, "sum"))

	features := &countingSource{}
	features.features = append(features.features, Feature{ID: "slow", Geometry: box(0, 0, 1, 1)})
	for i := range 100 {
		features.features = append(features.features,
			Feature{ID: fmt.Sprintf("f%d", i), Geometry: box(5, 5, 6, 6)})
	}

	sink := &collectSink{}
	done := make(chan error, 1)
	go func() {
		done <- p.RunParallel(context.Background(), features, sink, workers)
	}()

	// While the first feature is stuck, only a bounded number of later
	// features may be read ahead.
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, features.reads.Load(), int32(2*workers))

	close(src.release)
	require.NoError(t, <-done)
	require.Len(t, sink.records, 101)
	assert.Equal(t, "slow", sink.records[0].ID)
	assert.Equal(t, "f99", sink.records[100].ID)
}
