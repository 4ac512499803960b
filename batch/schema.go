// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// ColumnType identifies the physical representation of a column.
type ColumnType uint8

// The available column types. These values are part of the segment format and
// should not be changed.
const (
	ColumnTypeInvalid ColumnType = 0
	ColumnTypeUint64  ColumnType = 1
	ColumnTypeInt64   ColumnType = 2
	ColumnTypeBytes   ColumnType = 3
)

// String implements fmt.Stringer.
func (t ColumnType) String() string {
	switch t {
	case ColumnTypeUint64:
		return "uint64"
	case ColumnTypeInt64:
		return "int64"
	case ColumnTypeBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// ParseColumnType parses the string form of a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint64", "u64":
		return ColumnTypeUint64, nil
	case "int64", "i64":
		return ColumnTypeInt64, nil
	case "bytes", "string":
		return ColumnTypeBytes, nil
	default:
		return ColumnTypeInvalid, errors.Newf("unknown column type %q", s)
	}
}

// ColumnDesc describes a single named column.
type ColumnDesc struct {
	Name string
	Type ColumnType
}

// Schema is the ordered set of named columns shared by every batch of a
// stream. A Schema is immutable once constructed.
type Schema struct {
	cols   []ColumnDesc
	byName *swiss.Map[string, int]
}

// NewSchema constructs a schema from the given columns. Column names must be
// non-empty and unique.
func NewSchema(cols ...ColumnDesc) (*Schema, error) {
	if len(cols) == 0 {
		return nil, errors.New("schema has no columns")
	}
	s := &Schema{
		cols:   append([]ColumnDesc(nil), cols...),
		byName: swiss.New[string, int](len(cols)),
	}
	for i, c := range s.cols {
		if c.Name == "" {
			return nil, errors.Newf("column %d has no name", errors.Safe(i))
		}
		if c.Type == ColumnTypeInvalid || c.Type > ColumnTypeBytes {
			return nil, errors.Newf("column %q has invalid type %d", c.Name, errors.Safe(c.Type))
		}
		if _, ok := s.byName.Get(c.Name); ok {
			return nil, errors.Newf("duplicate column %q", c.Name)
		}
		s.byName.Put(c.Name, i)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(cols ...ColumnDesc) *Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSchema parses a schema of the form "name:type,name:type,...".
func ParseSchema(s string) (*Schema, error) {
	var cols []ColumnDesc
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, typ, ok := strings.Cut(field, ":")
		if !ok {
			return nil, errors.Newf("invalid column %q: expected name:type", field)
		}
		t, err := ParseColumnType(typ)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		cols = append(cols, ColumnDesc{Name: strings.TrimSpace(name), Type: t})
	}
	return NewSchema(cols...)
}

// NumColumns returns the number of columns.
func (s *Schema) NumColumns() int {
	return len(s.cols)
}

// Column returns the i-th column description.
func (s *Schema) Column(i int) ColumnDesc {
	return s.cols[i]
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	return s.byName.Get(name)
}

// Indices resolves a list of column names to positions.
func (s *Schema) Indices(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, ok := s.byName.Get(name)
		if !ok {
			return nil, errors.Newf("unknown column %q (schema %s)", name, s)
		}
		idx[i] = j
	}
	return idx, nil
}

// Equal returns true if both schemas have the same column names and types in
// the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.cols) != len(o.cols) {
		return false
	}
	for i := range s.cols {
		if s.cols[i] != o.cols[i] {
			return false
		}
	}
	return true
}

// String returns the schema in the form accepted by ParseSchema.
func (s *Schema) String() string {
	var buf strings.Builder
	for i, c := range s.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(c.Name)
		buf.WriteByte(':')
		buf.WriteString(c.Type.String())
	}
	return buf.String()
}
