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
	"log/slog"
	"maps"
	"reflect"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"seehuhn.de/go/zonal/coverage"
	"seehuhn.de/go/zonal/grid"
	"seehuhn.de/go/zonal/raster"
	"seehuhn.de/go/zonal/stats"
)

// EmptyPolicy decides what happens to features which cover no cell.
type EmptyPolicy int

const (
	// EmptyEmit writes a record with empty and undefined results.
	EmptyEmit EmptyPolicy = iota

	// EmptySkip omits the feature from the output.
	EmptySkip
)

// FeatureReport summarises the processing of one feature.
type FeatureReport struct {
	ID string

	// Samples is the number of cells fed to accumulators, summed over all
	// operations.
	Samples int

	// Degenerate is set if the geometry covers no cell of any grid.
	Degenerate bool

	// Err is the error which stopped processing, if any.
	Err error

	Elapsed time.Duration
}

// Observer is informed about every processed feature.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveFeature(FeatureReport)
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger of the processor. Without this option the
// package logger is used, see SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// WithEmptyPolicy sets the treatment of features which cover no cell.
// The default is EmptyEmit.
func WithEmptyPolicy(policy EmptyPolicy) Option {
	return func(p *Processor) { p.empty = policy }
}

// WithLineStyle sets the buffer used for line geometries. Without this
// option lines cover no cells.
func WithLineStyle(s coverage.LineStyle) Option {
	return func(p *Processor) { p.lines = s }
}

// WithIncludeCols selects the feature properties copied to the output.
// Without this option all properties are copied.
func WithIncludeCols(cols ...string) Option {
	return func(p *Processor) {
		p.include = append([]string{}, cols...)
	}
}

// WithContinueOnError makes the processor log and skip features which
// fail, instead of aborting the run.
func WithContinueOnError(cont bool) Option {
	return func(p *Processor) { p.continueOnError = cont }
}

// WithUnnest makes Run and RunParallel write one record per array element
// instead of one record per feature. The i-th record holds the i-th element
// of every array result; all other results are repeated. The array results
// of a feature must have equal lengths, and a feature whose arrays are
// empty gives no records.
func WithUnnest(unnest bool) Option {
	return func(p *Processor) { p.unnest = unnest }
}

// Processor computes the operations for a stream of features.
// Run and RunParallel may not be used concurrently on the same Processor;
// Process may.
type Processor struct {
	ops []*Operation

	sources []raster.Source // distinct rasters
	grids   []grid.Grid     // distinct value grids
	valIdx  []int           // per operation, index into sources
	wIdx    []int           // per operation, index into sources or -1
	gridIdx []int           // per operation, index into grids

	logger          *slog.Logger
	observer        Observer
	empty           EmptyPolicy
	lines           coverage.LineStyle
	include         []string // nil means all
	continueOnError bool
	unnest          bool

	workers sync.Pool
}

// NewProcessor returns a processor for the given operations.
func NewProcessor(ops []*Operation, opts ...Option) *Processor {
	p := &Processor{ops: ops}
	for _, opt := range opts {
		opt(p)
	}

	for _, op := range ops {
		p.valIdx = append(p.valIdx, p.sourceIndex(op.Values))
		wi := -1
		if op.usesWeights() {
			wi = p.sourceIndex(op.Weights)
		}
		p.wIdx = append(p.wIdx, wi)

		g := op.Values.Grid()
		gi := -1
		for i, other := range p.grids {
			if g.Equal(other) {
				gi = i
				break
			}
		}
		if gi < 0 {
			gi = len(p.grids)
			p.grids = append(p.grids, g)
		}
		p.gridIdx = append(p.gridIdx, gi)
	}

	p.workers.New = func() any { return p.newWorker() }
	return p
}

// sourceIndex returns the index of src in p.sources, adding it if needed.
func (p *Processor) sourceIndex(src raster.Source) int {
	comparable := reflect.TypeOf(src).Comparable()
	for i, other := range p.sources {
		if comparable && reflect.TypeOf(other) == reflect.TypeOf(src) && other == src {
			return i
		}
	}
	p.sources = append(p.sources, src)
	return len(p.sources) - 1
}

// Schema returns the output fields, in operation order. With WithUnnest,
// array fields are reported with their element type.
func (p *Processor) Schema() []FieldSpec {
	res := make([]FieldSpec, len(p.ops))
	for i, op := range p.ops {
		t := op.Type()
		if p.unnest && t.Shape == stats.Array {
			t.Shape = stats.Scalar
		}
		res[i] = FieldSpec{Name: op.Name, Stat: op.Stat, Type: t}
	}
	return res
}

func (p *Processor) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return Logger()
}

// Run processes all features of src in order and writes the records to
// sink. At the end of the input, sink.Finish is called.
func (p *Processor) Run(ctx context.Context, src FeatureSource, sink Sink) error {
	start := time.Now()
	p.log().Info("run started", "operations", len(p.ops))

	w := p.newWorker()
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("zonal: reading features: %w", err)
		}

		recs, err := p.handle(ctx, w, f)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := sink.Write(ctx, rec); err != nil {
				return err
			}
		}
		n += len(recs)
	}

	if err := sink.Finish(ctx); err != nil {
		return err
	}
	p.log().Info("run finished", "records", n, "elapsed", time.Since(start))
	return nil
}

// RunParallel is like Run, but processes features on the given number of
// goroutines. Records are written in input order. If workers is less than
// one, GOMAXPROCS goroutines are used.
func (p *Processor) RunParallel(ctx context.Context, src FeatureSource, sink Sink, workers int) error {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	start := time.Now()
	p.log().Info("run started", "operations", len(p.ops), "workers", workers)

	type job struct {
		seq int
		f   Feature
	}
	type result struct {
		seq  int
		recs []Record
	}
	jobs := make(chan job, workers)
	results := make(chan result, workers)

	// Every feature holds a slot from when it is read until its records
	// are written. This bounds the results waiting for an earlier feature.
	slots := make(chan struct{}, 2*workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for seq := 0; ; seq++ {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			f, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("zonal: reading features: %w", err)
			}
			select {
			case jobs <- job{seq: seq, f: f}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			w := p.newWorker()
			for j := range jobs {
				recs, err := p.handle(gctx, w, j.f)
				if err != nil {
					return err
				}
				select {
				case results <- result{seq: j.seq, recs: recs}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	n := 0
	g.Go(func() error {
		pending := make(map[int][]Record)
		next := 0
		for r := range results {
			pending[r.seq] = r.recs
			for {
				recs, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				for _, rec := range recs {
					if err := sink.Write(gctx, rec); err != nil {
						return err
					}
				}
				n += len(recs)
				<-slots
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if err := sink.Finish(ctx); err != nil {
		return err
	}
	p.log().Info("run finished", "records", n, "elapsed", time.Since(start))
	return nil
}

// handle processes one feature inside a run, applying the empty, unnest
// and error policies. It returns the records to write.
func (p *Processor) handle(ctx context.Context, w *worker, f Feature) ([]Record, error) {
	rec, degenerate, err := p.processWith(ctx, w, f)
	var recs []Record
	switch {
	case err != nil:
	case degenerate && p.empty == EmptySkip:
		return nil, nil
	case p.unnest:
		recs, err = p.unnestRecord(rec)
		if err != nil {
			err = &FeatureError{ID: f.ID, Err: err}
		}
	default:
		recs = []Record{rec}
	}
	if err != nil {
		if p.continueOnError && ctx.Err() == nil {
			p.log().Warn("skipping feature", "feature", f.ID, "error", err)
			return nil, nil
		}
		return nil, err
	}
	return recs, nil
}

// unnestRecord splits rec into one record per array element.
func (p *Processor) unnestRecord(rec Record) ([]Record, error) {
	n := -1
	for _, field := range rec.Fields {
		if field.Type.Shape != stats.Array {
			continue
		}
		m := arrayLen(field.Value)
		if n < 0 {
			n = m
		} else if m != n {
			return nil, fmt.Errorf("%w: %q has %d elements, expected %d",
				ErrArrayLength, field.Name, m, n)
		}
	}
	if n < 0 {
		return []Record{rec}, nil
	}

	res := make([]Record, n)
	for i := range res {
		fields := make([]Field, len(rec.Fields))
		for j, field := range rec.Fields {
			if field.Type.Shape == stats.Array {
				field.Type.Shape = stats.Scalar
				field.Value = reflect.ValueOf(field.Value).Index(i).Interface()
			}
			fields[j] = field
		}
		res[i] = Record{
			ID:         rec.ID,
			Geometry:   rec.Geometry,
			Properties: rec.Properties,
			Fields:     fields,
		}
	}
	return res, nil
}

func arrayLen(v any) int {
	if v == nil {
		return 0
	}
	return reflect.ValueOf(v).Len()
}

// Process computes the operations for a single feature. The empty and
// unnest policies do not apply: features covering no cells give a record
// with empty and undefined results. Process is safe for concurrent use.
func (p *Processor) Process(ctx context.Context, f Feature) (Record, error) {
	w := p.workers.Get().(*worker)
	defer p.workers.Put(w)
	rec, _, err := p.processWith(ctx, w, f)
	return rec, err
}

func (p *Processor) processWith(ctx context.Context, w *worker, f Feature) (Record, bool, error) {
	start := time.Now()
	rec, samples, degenerate, err := w.process(ctx, f)
	if err != nil {
		err = &FeatureError{ID: f.ID, Err: err}
	}
	if p.observer != nil {
		p.observer.ObserveFeature(FeatureReport{
			ID:         f.ID,
			Samples:    samples,
			Degenerate: degenerate,
			Err:        err,
			Elapsed:    time.Since(start),
		})
	}
	return rec, degenerate, err
}

// properties returns the feature properties selected for output.
func (p *Processor) properties(f Feature) map[string]any {
	if p.include == nil {
		return maps.Clone(f.Properties)
	}
	res := make(map[string]any, len(p.include))
	for _, key := range p.include {
		if v, ok := f.Properties[key]; ok {
			res[key] = v
		}
	}
	return res
}

// worker holds the per-goroutine state of a processor.
type worker struct {
	p      *Processor
	engine *coverage.Engine
}

func (p *Processor) newWorker() *worker {
	e := coverage.NewEngine()
	e.Lines = p.lines
	return &worker{p: p, engine: e}
}

type windowKey struct {
	src int
	win grid.Window
}

// process computes all operations for f. All state is local to the call.
func (w *worker) process(ctx context.Context, f Feature) (rec Record, samples int, degenerate bool, err error) {
	p := w.p
	log := p.log()

	fracs := make([]*coverage.Fractions, len(p.grids))
	degenerate = true
	for i, g := range p.grids {
		frac, err := w.engine.Compute(g, f.Geometry)
		if err != nil && !errors.Is(err, coverage.ErrDegenerate) {
			return Record{}, 0, false, err
		}
		if err == nil {
			degenerate = false
		}
		fracs[i] = frac
	}
	if degenerate {
		log.Debug("feature covers no cells", "feature", f.ID)
	}

	windows := make(map[windowKey]*raster.Window)
	read := func(src int, win grid.Window) (*raster.Window, error) {
		key := windowKey{src: src, win: win}
		if rw, ok := windows[key]; ok {
			return rw, nil
		}
		rw, err := p.sources[src].Read(ctx, win)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", p.sources[src].Name(), err)
		}
		windows[key] = rw
		return rw, nil
	}

	accs := make([]stats.Accumulator, len(p.ops))
	for i, op := range p.ops {
		accs[i] = op.newAccumulator()

		frac := fracs[p.gridIdx[i]]
		if frac.Empty() {
			continue
		}
		values, err := read(p.valIdx[i], frac.Window)
		if err != nil {
			return Record{}, 0, degenerate, err
		}
		var weight weightFunc
		if p.wIdx[i] >= 0 {
			weight, err = weightLookup(read, p.wIdx[i], op.Values.Grid(), op.Weights.Grid(), frac.Window)
			if err != nil {
				return Record{}, 0, degenerate, err
			}
		}

		g := op.Values.Grid()
		acc := accs[i]
		frac.Each(func(col, row int, c float64) {
			v, ok := values.At(col, row)
			if !ok {
				return
			}
			centre := g.CellCenter(col, row)
			wt := 1.0
			if weight != nil {
				wt, ok = weight(col, row, centre.X, centre.Y)
				if !ok {
					return
				}
			}
			acc.Add(stats.Sample{
				Col:      col,
				Row:      row,
				ID:       g.CellID(col, row),
				X:        centre.X,
				Y:        centre.Y,
				Value:    v,
				Weight:   wt,
				Coverage: c,
			})
			samples++
		})
	}

	rec = Record{
		ID:         f.ID,
		Geometry:   f.Geometry,
		Properties: p.properties(f),
		Fields:     make([]Field, len(p.ops)),
	}
	for i, op := range p.ops {
		v, ok := accs[i].Result()
		rec.Fields[i] = Field{Name: op.Name, Type: op.Type(), Value: op.convert(v, ok)}
	}
	log.Debug("feature processed", "feature", f.ID, "samples", samples)
	return rec, samples, degenerate, nil
}

// weightFunc returns the weight for the value cell (col, row) with centre
// (x, y). The boolean result is false if no valid weight is available.
type weightFunc func(col, row int, x, y float64) (float64, bool)

// weightLookup reads the weights needed for the value window vw.
// Weights on a grid aligned with the value grid are matched cell by cell;
// otherwise they are sampled at the value cell centres.
func weightLookup(read func(int, grid.Window) (*raster.Window, error), src int, vg, wg grid.Grid, vw grid.Window) (weightFunc, error) {
	missing := func(int, int, float64, float64) (float64, bool) { return 0, false }

	if dCol, dRow, ok := vg.Aligned(wg); ok {
		ww := vw.Translate(-dCol, -dRow).Intersect(wg.Full())
		if ww.Empty() {
			return missing, nil
		}
		rw, err := read(src, ww)
		if err != nil {
			return nil, err
		}
		return func(col, row int, _, _ float64) (float64, bool) {
			return rw.At(col-dCol, row-dRow)
		}, nil
	}

	ww, ok := wg.WindowFor(vg.Sub(vw).Bounds())
	if !ok {
		return missing, nil
	}
	rw, err := read(src, ww)
	if err != nil {
		return nil, err
	}
	return func(_, _ int, x, y float64) (float64, bool) {
		return rw.AtPoint(x, y)
	}, nil
}
