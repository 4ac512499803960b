// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package provenance

import (
	"bufio"
	"io"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Writer appends records to a row-source stream. It buffers writes; call
// Flush once the merge is done. Writer is not safe for concurrent use.
type Writer struct {
	w     *bufio.Writer
	count int64
	err   error
}

// NewWriter returns a Writer appending to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends the records. Errors are sticky: once a write fails every
// later call returns the same error.
func (w *Writer) Write(recs []RowSource) error {
	if w.err != nil {
		return w.err
	}
	if len(recs) == 0 {
		return nil
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(recs))), len(recs))
	if _, err := w.w.Write(buf); err != nil {
		w.err = errors.Wrap(err, "provenance: write")
		return w.err
	}
	w.count += int64(len(recs))
	return nil
}

// Count returns the number of records accepted by Write.
func (w *Writer) Count() int64 {
	return w.count
}

// Flush writes any buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = errors.Wrap(err, "provenance: flush")
	}
	return w.err
}
