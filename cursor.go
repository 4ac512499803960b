// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mergetree

import (
	"cmp"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/batch"
	"github.com/mergetree/mergetree/internal/invariants"
)

// Source is a stream of batches sorted ascending by primary key, both within
// each batch and across consecutive batches. The merge trusts this order and
// does not check it outside of invariant builds.
//
// NextBatch returns the next batch of the stream, transferring ownership of
// the batch's initial reference to the caller, or io.EOF once the stream is
// exhausted. Any other error is returned to the caller of the merge unchanged
// in identity. Empty batches are permitted and skipped.
type Source interface {
	NextBatch() (*batch.Batch, error)
}

// sourceCursor is the position of the merge within one source: the current
// batch (on which the cursor holds a reference) and the current row.
type sourceCursor struct {
	ordinal int
	src     Source
	schema  *batch.Schema
	keyCols []int
	b       *batch.Batch
	pos     int
	// last is the previously returned key, tracked in invariant builds only
	// to assert ascending order.
	last batch.RowRef
}

// refill releases the cursor's exhausted batch and loads the next non-empty
// batch from the source. It returns false once the source is exhausted.
func (c *sourceCursor) refill() (bool, error) {
	if c.b != nil {
		c.b.Unref()
		c.b = nil
	}
	for {
		b, err := c.src.NextBatch()
		if err == io.EOF {
			return false, nil
		} else if err != nil {
			return false, errors.Wrapf(err, "mergetree: source %d", errors.Safe(c.ordinal))
		}
		if b == nil {
			continue
		}
		if b.NumRows() == 0 {
			b.Unref()
			continue
		}
		if c.schema != nil && !b.Schema().Equal(c.schema) {
			b.Unref()
			return false, errors.Mark(errors.Newf(
				"mergetree: source %d: batch schema %s does not match %s",
				errors.Safe(c.ordinal), b.Schema(), c.schema), ErrInvalidOptions)
		}
		c.b, c.pos = b, 0
		c.checkOrder()
		return true, nil
	}
}

// isLast returns true if the cursor is at the last row of its batch.
func (c *sourceCursor) isLast() bool {
	return c.pos+1 >= c.b.NumRows()
}

// next advances to the next row of the current batch.
func (c *sourceCursor) next() {
	c.pos++
	invariants.CheckBounds(c.pos, c.b.NumRows())
	c.checkOrder()
}

func (c *sourceCursor) checkOrder() {
	if !invariants.Enabled || c.keyCols == nil {
		return
	}
	if !c.last.Empty() && c.last.Batch().CompareRows(c.keyCols, c.last.Row(), c.b, c.pos) > 0 {
		panic(errors.AssertionFailedf("mergetree: source %d: keys out of order: %s > %s",
			errors.Safe(c.ordinal), c.last.Batch().FormatRow(c.last.Row()), c.b.FormatRow(c.pos)))
	}
	c.last.Set(c.b, c.pos)
}

// version returns the value of the version column at the current row.
func (c *sourceCursor) version(col int) uint64 {
	return c.b.Column(col).(*batch.Uint64Column).At(c.pos)
}

// compare orders cursors by the key at their current rows, breaking ties by
// ascending source ordinal.
func (c *sourceCursor) compare(o *sourceCursor) int {
	if v := c.b.CompareRows(c.keyCols, c.pos, o.b, o.pos); v != 0 {
		return v
	}
	return cmp.Compare(c.ordinal, o.ordinal)
}

// close drops every reference held by the cursor.
func (c *sourceCursor) close() {
	if c.b != nil {
		c.b.Unref()
		c.b = nil
	}
	c.last.Reset()
}
