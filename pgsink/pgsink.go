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

// Package pgsink writes zonal statistics to a PostgreSQL table.
//
// Every record becomes one row. Scalar results map to numeric columns,
// arrays to PostgreSQL arrays and maps to jsonb. Feature properties and
// the feature geometry (as GeoJSON) are stored in jsonb columns.
package pgsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb/geojson"

	"seehuhn.de/go/zonal"
	"seehuhn.de/go/zonal/geometry"
	"seehuhn.de/go/zonal/raster"
	"seehuhn.de/go/zonal/stats"
)

// DefaultBatchSize is the number of rows inserted per transaction.
const DefaultBatchSize = 500

// Open connects to the database given by dsn and checks the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgsink: failed to open database connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgsink: failed to ping database: %w", err)
	}
	return db, nil
}

// Sink inserts records into a table. It is not safe for concurrent use;
// zonal.Processor writes records from a single goroutine.
type Sink struct {
	db      *sqlx.DB
	table   string
	schema  []zonal.FieldSpec
	batch   int
	logger  *slog.Logger
	pending []zonal.Record
	rows    int
}

// Option configures a Sink.
type Option func(*Sink)

// WithBatchSize sets the number of rows per insert transaction.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithLogger sets the logger used to report flushed batches.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// New returns a sink writing to table, which may be schema qualified. The
// schema is normally obtained from zonal.Processor.Schema.
func New(db *sqlx.DB, table string, schema []zonal.FieldSpec, opts ...Option) (*Sink, error) {
	if table == "" {
		return nil, errors.New("pgsink: empty table name")
	}
	s := &Sink{
		db:     db,
		table:  quoteTable(table),
		schema: schema,
		batch:  DefaultBatchSize,
		logger: zonal.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTable creates the output table if it does not exist yet.
func (s *Sink) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.createSQL())
	if err != nil {
		return fmt.Errorf("pgsink: create table: %w", err)
	}
	return nil
}

// Write implements the zonal.Sink interface. Rows are inserted in batches.
func (s *Sink) Write(ctx context.Context, rec zonal.Record) error {
	s.pending = append(s.pending, rec)
	if len(s.pending) >= s.batch {
		return s.flush(ctx)
	}
	return nil
}

// Finish implements the zonal.Sink interface. It inserts the remaining
// rows.
func (s *Sink) Finish(ctx context.Context) error {
	if err := s.flush(ctx); err != nil {
		return err
	}
	s.logger.Info("pgsink finished", "table", s.table, "rows", s.rows)
	return nil
}

func (s *Sink) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgsink: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, s.insertSQL())
	if err != nil {
		return fmt.Errorf("pgsink: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range s.pending {
		args, err := s.args(rec)
		if err != nil {
			return fmt.Errorf("pgsink: feature %q: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("pgsink: feature %q: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgsink: commit: %w", err)
	}

	s.rows += len(s.pending)
	s.logger.Debug("pgsink batch inserted",
		"table", s.table, "rows", len(s.pending), "duration", time.Since(start))
	s.pending = s.pending[:0]
	return nil
}

func (s *Sink) createSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.table)
	b.WriteString("\tfeature_id text NOT NULL,\n")
	b.WriteString("\tproperties jsonb,\n")
	b.WriteString("\tgeometry jsonb")
	for _, f := range s.schema {
		fmt.Fprintf(&b, ",\n\t%s %s", pq.QuoteIdentifier(f.Name), columnType(f.Type))
	}
	b.WriteString("\n)")
	return b.String()
}

func (s *Sink) insertSQL() string {
	cols := []string{"feature_id", "properties", "geometry"}
	for _, f := range s.schema {
		cols = append(cols, pq.QuoteIdentifier(f.Name))
	}
	params := make([]string, len(cols))
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// args returns the insert parameters for rec, in the column order of
// insertSQL.
func (s *Sink) args(rec zonal.Record) ([]any, error) {
	props, err := json.Marshal(rec.Properties)
	if err != nil {
		return nil, err
	}
	var geom any
	if rec.Geometry != nil && !rec.Geometry.Empty() {
		data, err := json.Marshal(geojson.NewGeometry(geometry.ToOrb(rec.Geometry)))
		if err != nil {
			return nil, err
		}
		geom = string(data)
	}

	res := []any{rec.ID, string(props), geom}
	for _, f := range s.schema {
		v, _ := rec.Get(f.Name)
		arg, err := columnValue(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		res = append(res, arg)
	}
	return res, nil
}

// columnType returns the PostgreSQL type for results of type t.
func columnType(t zonal.FieldType) string {
	if t.Shape == stats.Map {
		return "jsonb"
	}
	var base string
	switch t.Elem {
	case raster.Uint8, raster.Int16:
		base = "smallint"
	case raster.Uint16, raster.Int32:
		base = "integer"
	case raster.Int64:
		base = "bigint"
	case raster.Float32:
		base = "real"
	default:
		base = "double precision"
	}
	if t.Shape == stats.Array {
		return base + "[]"
	}
	return base
}

// columnValue converts a result into a query parameter.
func columnValue(t zonal.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t.Shape {
	case stats.Map:
		m := make(map[string]float64)
		iter := reflect.ValueOf(v).MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Float()
		}
		data, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	case stats.Array:
		switch v := v.(type) {
		case []uint8:
			return pq.Array(widen(v)), nil
		case []uint16:
			return pq.Array(widen(v)), nil
		case []int16:
			return pq.Array(widen(v)), nil
		default:
			return pq.Array(v), nil
		}
	default:
		return v, nil
	}
}

func widen[T uint8 | uint16 | int16](xs []T) []int64 {
	res := make([]int64, len(xs))
	for i, x := range xs {
		res[i] = int64(x)
	}
	return res
}

// quoteTable quotes a possibly schema qualified table name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
