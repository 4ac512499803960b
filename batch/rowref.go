// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

// RowRef refers to a row of a batch without copying it. A non-empty RowRef
// holds a reference on its batch, so the batch cannot be released while the
// RowRef points into it. The zero value is empty.
type RowRef struct {
	b   *Batch
	row int
}

// Set points r at row of b. The reference on b is acquired before the
// reference on the previous batch is dropped, so re-pointing within the same
// batch never releases it.
func (r *RowRef) Set(b *Batch, row int) {
	b.Ref()
	if r.b != nil {
		r.b.Unref()
	}
	r.b, r.row = b, row
}

// Reset empties r, dropping its reference.
func (r *RowRef) Reset() {
	if r.b != nil {
		r.b.Unref()
	}
	*r = RowRef{}
}

// Swap exchanges the targets of r and o. No references change hands.
func (r *RowRef) Swap(o *RowRef) {
	*r, *o = *o, *r
}

// Empty returns true if r does not point at a row.
func (r *RowRef) Empty() bool {
	return r.b == nil
}

// Batch returns the referenced batch.
func (r *RowRef) Batch() *Batch {
	return r.b
}

// Row returns the referenced row index.
func (r *RowRef) Row() int {
	return r.row
}

// Equal returns true if the rows referenced by r and o are equal on cols.
// Both must be non-empty.
func (r *RowRef) Equal(cols []int, o *RowRef) bool {
	if r.b == o.b && r.row == o.row {
		return true
	}
	return r.b.CompareRows(cols, r.row, o.b, o.row) == 0
}
