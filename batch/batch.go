// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package batch implements immutable, reference-counted columnar table
// fragments.
//
// A Batch is created with a single reference owned by its creator. Anything
// that needs the batch to stay alive past the creator's use of it, such as a
// RowRef pointing at one of its rows, acquires another reference with Ref and
// drops it with Unref. When the last reference is dropped the batch's release
// hook, if any, runs; this is where a producer recycles buffers. In invariant
// builds any access to a released batch panics.
package batch

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/internal/invariants"
)

// Batch is an immutable, fixed-schema columnar table fragment.
type Batch struct {
	schema    *Schema
	cols      []Column
	rows      int
	refs      refcnt
	onRelease func(*Batch)
	closed    invariants.CloseChecker
}

// New returns a batch over the given columns. Every column must match the
// type of the corresponding schema column and all columns must have the same
// length.
func New(schema *Schema, cols []Column) (*Batch, error) {
	if len(cols) != schema.NumColumns() {
		return nil, errors.Newf("batch has %d columns, schema has %d",
			errors.Safe(len(cols)), errors.Safe(schema.NumColumns()))
	}
	rows := 0
	for i, c := range cols {
		if c.Type() != schema.Column(i).Type {
			return nil, errors.Newf("column %q: type %s does not match schema type %s",
				schema.Column(i).Name, c.Type(), schema.Column(i).Type)
		}
		if i == 0 {
			rows = c.Len()
		} else if c.Len() != rows {
			return nil, errors.Newf("column %q has %d rows, expected %d",
				schema.Column(i).Name, errors.Safe(c.Len()), errors.Safe(rows))
		}
	}
	b := &Batch{schema: schema, cols: cols, rows: rows}
	b.refs.init(1)
	return b, nil
}

// Schema returns the batch's schema.
func (b *Batch) Schema() *Schema {
	return b.schema
}

// NumRows returns the number of rows.
func (b *Batch) NumRows() int {
	return b.rows
}

// NumColumns returns the number of columns.
func (b *Batch) NumColumns() int {
	return len(b.cols)
}

// Column returns the i-th column.
func (b *Batch) Column(i int) Column {
	b.closed.AssertNotClosed()
	return b.cols[i]
}

// SetReleaseHook sets a function to be invoked once the last reference to the
// batch is dropped.
func (b *Batch) SetReleaseHook(fn func(*Batch)) {
	b.onRelease = fn
}

// Ref acquires a reference on the batch.
func (b *Batch) Ref() {
	b.closed.AssertNotClosed()
	b.refs.acquire()
}

// Unref drops a reference on the batch, running the release hook if it was
// the last one.
func (b *Batch) Unref() {
	if b.refs.release() {
		b.closed.Close()
		if b.onRelease != nil {
			b.onRelease(b)
		}
	}
}

// Refs returns the current reference count.
func (b *Batch) Refs() int32 {
	return b.refs.refs()
}

// CompareRows compares row i of b with row j of o on the given columns, in
// order. Both batches must share the same schema.
func (b *Batch) CompareRows(cols []int, i int, o *Batch, j int) int {
	invariants.CheckBounds(i, b.rows)
	invariants.CheckBounds(j, o.rows)
	for _, c := range cols {
		if v := b.Column(c).Compare(i, o.Column(c), j); v != 0 {
			return v
		}
	}
	return 0
}

// FormatRow returns the values of row i separated by spaces.
func (b *Batch) FormatRow(i int) string {
	var buf strings.Builder
	for c := range b.cols {
		if c > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(b.Column(c).Format(i))
	}
	return buf.String()
}

// String returns one line per row, as produced by FormatRow.
func (b *Batch) String() string {
	var buf strings.Builder
	for i := 0; i < b.rows; i++ {
		buf.WriteString(b.FormatRow(i))
		buf.WriteByte('\n')
	}
	return buf.String()
}
