// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Builder accumulates rows into a new batch.
type Builder struct {
	schema *Schema
	cols   []ColumnBuilder
	rows   int
}

// NewBuilder returns a builder for batches with the given schema.
func NewBuilder(schema *Schema) *Builder {
	b := &Builder{schema: schema, cols: make([]ColumnBuilder, schema.NumColumns())}
	for i := range b.cols {
		b.cols[i] = NewColumnBuilder(schema.Column(i).Type)
	}
	return b
}

// Schema returns the schema of the batches being built.
func (b *Builder) Schema() *Schema {
	return b.schema
}

// NumRows returns the number of rows appended since the last Finish.
func (b *Builder) NumRows() int {
	return b.rows
}

// AppendRow copies every column value of row i of src. src must have the
// builder's schema.
func (b *Builder) AppendRow(src *Batch, i int) {
	for c, cb := range b.cols {
		cb.AppendFrom(src.Column(c), i)
	}
	b.rows++
}

// AppendRef copies the row referenced by r.
func (b *Builder) AppendRef(r *RowRef) {
	b.AppendRow(r.b, r.row)
}

// AppendStrings parses one value per column and appends the row. On error
// the builder is left unchanged.
func (b *Builder) AppendStrings(fields []string) error {
	if len(fields) != len(b.cols) {
		return errors.Newf("row has %d fields, schema has %d columns",
			errors.Safe(len(fields)), errors.Safe(len(b.cols)))
	}
	// Validate first so a bad field doesn't leave the columns ragged.
	scratch := NewBuilder(b.schema)
	for c, f := range fields {
		if err := scratch.cols[c].AppendString(f); err != nil {
			return errors.Wrapf(err, "column %q", b.schema.Column(c).Name)
		}
	}
	for c, cb := range b.cols {
		cb.AppendFrom(scratch.cols[c].Finish(), 0)
	}
	b.rows++
	return nil
}

// Finish returns the built batch, holding one reference owned by the caller,
// and resets the builder.
func (b *Builder) Finish() *Batch {
	cols := make([]Column, len(b.cols))
	for i, cb := range b.cols {
		cols[i] = cb.Finish()
	}
	out := &Batch{schema: b.schema, cols: cols, rows: b.rows}
	out.refs.init(1)
	b.rows = 0
	return out
}

// Parse builds a batch from text with one row per line and whitespace
// separated values. Blank lines are ignored.
func Parse(schema *Schema, input string) (*Batch, error) {
	b := NewBuilder(schema)
	for i, line := range strings.Split(input, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := b.AppendStrings(fields); err != nil {
			return nil, errors.Wrapf(err, "line %d", errors.Safe(i+1))
		}
	}
	return b.Finish(), nil
}

// MustParse is like Parse but panics on error.
func MustParse(schema *Schema, input string) *Batch {
	b, err := Parse(schema, input)
	if err != nil {
		panic(err)
	}
	return b
}
