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

// Command zonalstats computes zonal statistics for the features of a GeoJSON
// file.
//
// Example:
//
//	zonalstats -r pop=population.png -r landuse.tif -p fields.geojson \
//	    -s "sum(pop)" -s "frac(landuse)" -o result.geojson
//
// Results are written as GeoJSON, or to a PostgreSQL table if -db is given.
// Settings can also be given in the environment or in a .env file, see
// package internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/coverage"
	"seehuhn.de/go/zonal/featureio"
	"seehuhn.de/go/zonal/internal/config"
	"seehuhn.de/go/zonal/pgsink"
	"seehuhn.de/go/zonal/raster"
	"seehuhn.de/go/zonal/stats"
)

// listFlag collects the values of a repeated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, " ") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "zonalstats:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	flags := flag.NewFlagSet("zonalstats", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var rasterArgs, statArgs, nodataArgs listFlag
	flags.Var(&rasterArgs, "r", "raster as `name=path`, may be repeated")
	flags.Var(&statArgs, "s", "stat `descriptor`, may be repeated")
	flags.Var(&nodataArgs, "nodata", "nodata value as `name=value`, may be repeated")
	polygons := flags.String("p", "", "GeoJSON file with the features")
	output := flags.String("o", "-", "output GeoJSON file")
	idProperty := flags.String("id", "", "property holding the feature id")
	include := flags.String("include", "", "comma separated properties to copy to the output")
	dsn := flags.String("db", cfg.DatabaseURL, "write results to this PostgreSQL database")
	table := flags.String("table", cfg.Table, "output table for -db")
	workers := flags.Int("workers", cfg.Workers, "number of worker goroutines, 0 for one per CPU")
	lineWidth := flags.Float64("line-width", cfg.LineWidth, "buffer width for line features")
	skipEmpty := flags.Bool("skip-empty", false, "omit features which cover no cells")
	cont := flags.Bool("continue", false, "skip features which fail instead of aborting")
	unnest := flags.Bool("unnest", false, "write one record per cell for array statistics")
	list := flags.Bool("list", false, "list the available statistics and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *list {
		for _, k := range stats.Kinds() {
			info := k.Info()
			fmt.Fprintf(stdout, "%-26s weights %-8s %s\n", info.Name, info.Weights, info.Shape)
		}
		return nil
	}

	cfg.Workers = *workers
	cfg.LineWidth = *lineWidth
	for _, s := range rasterArgs {
		r, err := config.ParseRasterSpec(s)
		if err != nil {
			return err
		}
		cfg.Rasters = append(cfg.Rasters, r)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch {
	case len(cfg.Rasters) == 0:
		return errors.New("no rasters given")
	case len(statArgs) == 0:
		return errors.New("no statistics given")
	case *polygons == "":
		return errors.New("no feature file given")
	}

	runID := uuid.NewString()
	logger := cfg.NewLogger(stderr).With("run_id", runID)
	zonal.SetLogger(logger)
	defer zonal.SetLogger(nil)

	nodata, err := parseNodata(nodataArgs)
	if err != nil {
		return err
	}
	var sources []raster.Source
	for _, spec := range cfg.Rasters {
		img, err := raster.OpenImage(spec.Name, spec.Path)
		if err != nil {
			return err
		}
		if v, ok := nodata[spec.Name]; ok {
			img.SetNodata(v)
		}
		logger.Debug("raster opened", "name", spec.Name, "path", spec.Path, "grid", img.Grid(), "dtype", img.DType())
		sources = append(sources, img)
	}
	cat, err := zonal.NewCatalog(sources...)
	if err != nil {
		return err
	}
	ops, err := cat.Operations(statArgs...)
	if err != nil {
		return err
	}

	src, err := featureio.OpenGeoJSON(*polygons, *idProperty)
	if err != nil {
		return err
	}

	opts := []zonal.Option{
		zonal.WithLineStyle(coverage.LineStyle{Width: cfg.LineWidth}),
		zonal.WithContinueOnError(*cont),
		zonal.WithUnnest(*unnest),
	}
	if *skipEmpty {
		opts = append(opts, zonal.WithEmptyPolicy(zonal.EmptySkip))
	}
	if *include != "" {
		opts = append(opts, zonal.WithIncludeCols(strings.Split(*include, ",")...))
	}
	p := zonal.NewProcessor(ops, opts...)

	var sink zonal.Sink
	switch {
	case *dsn != "":
		db, err := pgsink.Open(ctx, *dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		pg, err := pgsink.New(db, *table, p.Schema(),
			pgsink.WithBatchSize(cfg.BatchSize), pgsink.WithLogger(logger))
		if err != nil {
			return err
		}
		if err := pg.CreateTable(ctx); err != nil {
			return err
		}
		sink = pg
	case *output == "-":
		sink = featureio.NewGeoJSONSink(stdout)
	default:
		fd, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer fd.Close()
		sink = featureio.NewGeoJSONSink(fd)
	}

	start := time.Now()
	logger.Info("processing features", "features", src.Len(), "operations", len(ops))
	if err := p.RunParallel(ctx, src, sink, cfg.Workers); err != nil {
		return err
	}
	logger.Info("done", "elapsed", time.Since(start))
	return nil
}

func parseNodata(args []string) (map[string]float64, error) {
	res := make(map[string]float64)
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid nodata %q", a)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid nodata %q: %w", a, err)
		}
		res[name] = v
	}
	return res, nil
}
