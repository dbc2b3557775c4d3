// Package zonal computes exact zonal statistics.
//
// For every feature polygon the fraction of each raster cell inside the
// polygon is determined exactly, using the coverage package. The cell
// values, optionally weighted by a second raster, are then reduced to the
// statistics requested by a list of Operations, and the results are
// written to a Sink as one Record per feature.
//
// A typical use looks like this:
//
//	cat, _ := zonal.NewCatalog(population, landuse)
//	ops, err := cat.Operations("sum(population)", "frac(landuse)")
//	...
//	p := zonal.NewProcessor(ops, zonal.WithIncludeCols("name"))
//	err = p.Run(ctx, features, sink)
package zonal

import (
	"errors"
	"fmt"
)

var (
	// ErrType is returned when a raster given to an operation cannot be
	// used as a raster source.
	ErrType = errors.New("zonal: invalid raster")

	// ErrValidation is returned when an operation is malformed, for
	// example because of an unknown statistic or a missing parameter.
	ErrValidation = errors.New("zonal: invalid operation")

	// ErrArrayLength is returned when a record cannot be unnested because
	// its array results differ in length.
	ErrArrayLength = errors.New("zonal: inconsistent array lengths")
)

// OperationError describes an invalid field of an operation.
// It matches either ErrType or ErrValidation.
type OperationError struct {
	// Field names the offending field, for example "stat", "weights" or "q".
	Field string

	// Reason describes the problem.
	Reason string

	// Err is ErrType or ErrValidation.
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Err, e.Field, e.Reason)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) error {
	return &OperationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: ErrValidation}
}

func badRaster(field, format string, args ...any) error {
	return &OperationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: ErrType}
}

// FeatureError reports a failure while processing a single feature.
type FeatureError struct {
	ID  string
	Err error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("zonal: feature %q: %v", e.ID, e.Err)
}

func (e *FeatureError) Unwrap() error {
	return e.Err
}
