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

// Package config reads the settings of the zonalstats binaries from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the command line tool and the daemon.
type Config struct {
	Addr      string     // ZONAL_ADDR
	LogLevel  slog.Level // ZONAL_LOG_LEVEL
	LogFormat string     // ZONAL_LOG_FORMAT, "text" or "json"

	Rasters   []RasterSpec // ZONAL_RASTERS, comma separated
	Workers   int          // ZONAL_WORKERS, 0 means one per CPU
	LineWidth float64      // ZONAL_LINE_WIDTH

	DatabaseURL string // ZONAL_DATABASE_URL
	Table       string // ZONAL_TABLE
	BatchSize   int    // ZONAL_BATCH_SIZE

	MaxBodyBytes int64 // ZONAL_MAX_BODY_BYTES
}

// RasterSpec names a raster file.
type RasterSpec struct {
	Name string
	Path string
}

// ParseRasterSpec parses "name=path". Without a name, the file name without
// extension is used.
func ParseRasterSpec(s string) (RasterSpec, error) {
	s = strings.TrimSpace(s)
	name, path, ok := strings.Cut(s, "=")
	if !ok {
		path = s
		name = strings.TrimSuffix(filepath.Base(s), filepath.Ext(s))
	}
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if name == "" || path == "" {
		return RasterSpec{}, fmt.Errorf("config: invalid raster %q", s)
	}
	return RasterSpec{Name: name, Path: path}, nil
}

func (r RasterSpec) String() string {
	return r.Name + "=" + r.Path
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Addr:         ":8080",
		LogLevel:     slog.LevelInfo,
		LogFormat:    "text",
		Table:        "zonal_stats",
		BatchSize:    500,
		MaxBodyBytes: 32 << 20,
	}
}

// Load reads the given .env files, if they exist, and then the process
// environment. Variables already set in the environment take precedence
// over the files.
func Load(envFiles ...string) (*Config, error) {
	for _, name := range envFiles {
		err := godotenv.Load(name)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a configuration from the variables returned by lookup.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	c := Default()
	var errs []error
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("ZONAL_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("ZONAL_LOG_LEVEL"); ok {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("ZONAL_LOG_LEVEL: %w", err))
		}
	}
	if v, ok := get("ZONAL_LOG_FORMAT"); ok {
		c.LogFormat = strings.ToLower(v)
	}
	if v, ok := get("ZONAL_RASTERS"); ok {
		for _, s := range strings.Split(v, ",") {
			r, err := ParseRasterSpec(s)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			c.Rasters = append(c.Rasters, r)
		}
	}
	if v, ok := get("ZONAL_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ZONAL_WORKERS: %w", err))
		}
		c.Workers = n
	}
	if v, ok := get("ZONAL_LINE_WIDTH"); ok {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ZONAL_LINE_WIDTH: %w", err))
		}
		c.LineWidth = w
	}
	if v, ok := get("ZONAL_DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := get("ZONAL_TABLE"); ok {
		c.Table = v
	}
	if v, ok := get("ZONAL_BATCH_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ZONAL_BATCH_SIZE: %w", err))
		}
		c.BatchSize = n
	}
	if v, ok := get("ZONAL_MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ZONAL_MAX_BODY_BYTES: %w", err))
		}
		c.MaxBodyBytes = n
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("negative number of workers %d", c.Workers))
	}
	if c.LineWidth < 0 {
		errs = append(errs, fmt.Errorf("negative line width %g", c.LineWidth))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size %d must be positive", c.BatchSize))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("body limit %d must be positive", c.MaxBodyBytes))
	}
	seen := make(map[string]bool)
	for _, r := range c.Rasters {
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("duplicate raster name %q", r.Name))
		}
		seen[r.Name] = true
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger returns a logger writing to w with the configured level and
// format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	var h slog.Handler
	if c.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
