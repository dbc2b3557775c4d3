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
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"seehuhn.de/go/zonal/raster"
)

// Descriptor is the parsed form of a textual operation description such as
// "pop_density=mean(population,area,q=0.5)".
type Descriptor struct {
	Name    string // output field name, may be empty
	Stat    string
	Values  string // name of the value raster, may be empty
	Weights string // name of the weight raster, may be empty
	Args    map[string]string
}

// ParseDescriptor parses a stat descriptor of the form
//
//	[name=]stat[(values[,weights][,key=value]...)]
//
// Positional arguments must come before keyword arguments. Whitespace
// around names and arguments is ignored.
func ParseDescriptor(s string) (Descriptor, error) {
	bad := func(reason string) (Descriptor, error) {
		return Descriptor{}, invalid("descriptor", "%q: %s", s, reason)
	}

	var d Descriptor
	rest := strings.TrimSpace(s)
	if eq, paren := strings.IndexByte(rest, '='), strings.IndexByte(rest, '('); eq >= 0 && (paren < 0 || eq < paren) {
		d.Name = strings.TrimSpace(rest[:eq])
		rest = strings.TrimSpace(rest[eq+1:])
		if !isIdent(d.Name) {
			return bad("invalid field name")
		}
	}

	var argList string
	if open := strings.IndexByte(rest, '('); open >= 0 {
		if !strings.HasSuffix(rest, ")") {
			return bad("missing closing parenthesis")
		}
		argList = rest[open+1 : len(rest)-1]
		rest = strings.TrimSpace(rest[:open])
		if strings.ContainsAny(argList, "()") {
			return bad("nested parentheses")
		}
	}
	d.Stat = rest
	if !isIdent(d.Stat) {
		return bad("invalid statistic name")
	}

	if argList == "" {
		return d, nil
	}
	var positional []string
	for _, arg := range strings.Split(argList, ",") {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return bad("empty argument")
		}
		key, value, isKW := strings.Cut(arg, "=")
		if !isKW {
			if d.Args != nil {
				return bad("positional argument after keyword argument")
			}
			positional = append(positional, arg)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !isIdent(key) || value == "" {
			return bad("malformed keyword argument")
		}
		if d.Args == nil {
			d.Args = make(map[string]string)
		}
		if _, dup := d.Args[key]; dup {
			return bad("repeated argument " + key)
		}
		d.Args[key] = value
	}
	switch len(positional) {
	case 2:
		d.Weights = positional[1]
		fallthrough
	case 1:
		d.Values = positional[0]
	case 0:
	default:
		return bad("too many rasters")
	}
	return d, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c == '_' || c == '.' || c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// FieldName returns the output field name. Descriptors without an explicit
// name use the statistic, prefixed by the raster name if one is given.
// Quantiles are named after their level, for example "q25".
func (d Descriptor) FieldName() string {
	if d.Name != "" {
		return d.Name
	}
	base := d.Stat
	if d.Stat == "quantile" {
		if q, err := strconv.ParseFloat(d.Args["q"], 64); err == nil {
			base = "q" + strconv.FormatFloat(100*q, 'g', 10, 64)
		}
	}
	if d.Values != "" {
		return d.Values + "_" + base
	}
	return base
}

func (d Descriptor) String() string {
	var b strings.Builder
	if d.Name != "" {
		b.WriteString(d.Name)
		b.WriteByte('=')
	}
	b.WriteString(d.Stat)

	var args []string
	if d.Values != "" {
		args = append(args, d.Values)
		if d.Weights != "" {
			args = append(args, d.Weights)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(d.Args)) {
		args = append(args, key+"="+d.Args[key])
	}
	if len(args) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(args, ","))
		b.WriteByte(')')
	}
	return b.String()
}

// Catalog resolves raster names in descriptors.
type Catalog struct {
	sources map[string]raster.Source
	names   []string
}

// NewCatalog returns a catalog of the given rasters. Raster names must be
// unique.
func NewCatalog(sources ...raster.Source) (*Catalog, error) {
	c := &Catalog{sources: make(map[string]raster.Source, len(sources))}
	for _, src := range sources {
		if err := checkSource("raster", src); err != nil {
			return nil, err
		}
		name := src.Name()
		if _, dup := c.sources[name]; dup {
			return nil, invalid("raster", "duplicate raster name %q", name)
		}
		c.sources[name] = src
		c.names = append(c.names, name)
	}
	return c, nil
}

// Names returns the raster names in the order given to NewCatalog.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Lookup returns the raster with the given name.
func (c *Catalog) Lookup(name string) (raster.Source, bool) {
	src, ok := c.sources[name]
	return src, ok
}

// Operation builds the operation described by d. If d names no value
// raster, the catalog must hold exactly one raster, which is used.
func (c *Catalog) Operation(d Descriptor) (*Operation, error) {
	var values raster.Source
	switch {
	case d.Values != "":
		src, ok := c.sources[d.Values]
		if !ok {
			return nil, badRaster("values", "unknown raster %q", d.Values)
		}
		values = src
	case len(c.names) == 1:
		values = c.sources[c.names[0]]
	default:
		return nil, invalid("values", "%s: no value raster given, %d available", d, len(c.names))
	}

	var weights raster.Source
	if d.Weights != "" {
		src, ok := c.sources[d.Weights]
		if !ok {
			return nil, badRaster("weights", "unknown raster %q", d.Weights)
		}
		weights = src
	}

	op, err := NewOperation(d.Stat, d.FieldName(), values, weights, d.Args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d, err)
	}
	return op, nil
}

// Operations parses the descriptors and builds the corresponding
// operations. Field names must be unique.
func (c *Catalog) Operations(descriptors ...string) ([]*Operation, error) {
	ops := make([]*Operation, 0, len(descriptors))
	seen := make(map[string]bool, len(descriptors))
	for _, s := range descriptors {
		d, err := ParseDescriptor(s)
		if err != nil {
			return nil, err
		}
		op, err := c.Operation(d)
		if err != nil {
			return nil, err
		}
		if seen[op.Name] {
			return nil, invalid("name", "duplicate field name %q", op.Name)
		}
		seen[op.Name] = true
		ops = append(ops, op)
	}
	return ops, nil
}
