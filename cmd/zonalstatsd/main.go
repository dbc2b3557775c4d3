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

// Command zonalstatsd serves zonal statistics over HTTP.
//
// The rasters are given in ZONAL_RASTERS as comma separated name=path
// pairs; the remaining settings are described in package internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/coverage"
	"seehuhn.de/go/zonal/internal/config"
	"seehuhn.de/go/zonal/internal/metrics"
	"seehuhn.de/go/zonal/raster"
	"seehuhn.de/go/zonal/server"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stderr).With("instance", uuid.NewString())
	zonal.SetLogger(logger)

	if err := serve(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newHandler opens the configured rasters and builds the HTTP handler.
func newHandler(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	if len(cfg.Rasters) == 0 {
		return nil, errors.New("no rasters configured, set ZONAL_RASTERS")
	}
	var sources []raster.Source
	for _, spec := range cfg.Rasters {
		img, err := raster.OpenImage(spec.Name, spec.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("raster loaded", "name", spec.Name, "path", spec.Path, "grid", img.Grid())
		sources = append(sources, img)
	}
	cat, err := zonal.NewCatalog(sources...)
	if err != nil {
		return nil, err
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg, "zonal")

	return server.New(cat,
		server.WithLogger(logger),
		server.WithMetrics(m, reg),
		server.WithWorkers(cfg.Workers),
		server.WithLineStyle(coverage.LineStyle{Width: cfg.LineWidth}),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
	), nil
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	handler, err := newHandler(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
