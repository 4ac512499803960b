// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package segment

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/batch"
	"github.com/mergetree/mergetree/internal/compression"
	"github.com/spf13/afero"
)

// WriterOptions holds the parameters used to write a segment.
type WriterOptions struct {
	// Compression is the codec applied to every block. Blocks that do not
	// shrink are stored uncompressed.
	Compression Compression
}

// WriterMetadata describes a finished segment.
type WriterMetadata struct {
	Rows   int64
	Blocks int
	// Size is the length of the file in bytes.
	Size int64
}

// Writer writes a segment. Batches are appended with Add; Close writes the
// end block and must be called for the segment to be readable.
type Writer struct {
	f          io.Closer
	sync       func() error
	w          *bufio.Writer
	schema     *batch.Schema
	compressor compression.Compressor
	hasher     *xxhash.Digest
	buf        []byte
	cbuf       []byte
	meta       WriterMetadata
	err        error
	closed     bool
}

// Create creates the segment file at path on fs, replacing any existing file,
// and returns a Writer for it.
func Create(fs afero.Fs, path string, schema *batch.Schema, opts WriterOptions) (*Writer, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "segment: creating %s", path)
	}
	w := NewWriter(f, schema, opts)
	w.f = f
	w.sync = f.Sync
	if w.err != nil {
		_ = f.Close()
		return nil, w.err
	}
	return w, nil
}

// NewWriter returns a Writer that writes a segment to w. Close does not close
// w.
func NewWriter(w io.Writer, schema *batch.Schema, opts WriterOptions) *Writer {
	sw := &Writer{
		w:          bufio.NewWriter(w),
		schema:     schema,
		compressor: compression.GetCompressor(opts.Compression),
		hasher:     xxhash.New(),
	}
	if _, err := sw.w.WriteString(Magic); err != nil {
		sw.err = err
		return sw
	}
	sw.meta.Size = int64(len(Magic))
	sw.buf = encodeSchema(sw.buf[:0], schema)
	sw.writeBlock(sw.buf)
	return sw
}

// Add appends b to the segment as one data block. The caller keeps its
// reference to b. Empty batches are ignored.
func (w *Writer) Add(b *batch.Batch) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errors.New("segment: writer is closed")
	}
	if !b.Schema().Equal(w.schema) {
		return errors.Newf("segment: batch schema %s does not match %s", b.Schema(), w.schema)
	}
	if b.NumRows() == 0 {
		return nil
	}
	w.buf = encodeData(w.buf[:0], b)
	w.writeBlock(w.buf)
	if w.err == nil {
		w.meta.Rows += int64(b.NumRows())
		w.meta.Blocks++
	}
	return w.err
}

// writeBlock compresses and writes one block. Failures are recorded in w.err.
func (w *Writer) writeBlock(payload []byte) {
	if w.err != nil {
		return
	}
	algo := w.compressor.Algorithm()
	stored := payload
	if algo != compression.NoCompression {
		w.cbuf = w.compressor.Compress(w.cbuf, payload)
		if len(w.cbuf) < len(payload) {
			stored = w.cbuf
		} else {
			algo = compression.NoCompression
		}
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(stored)))
	trailer := makeTrailer(byte(algo), checksum(w.hasher, stored, byte(algo)))
	for _, p := range [][]byte{lenBuf[:n], stored, trailer[:]} {
		if _, err := w.w.Write(p); err != nil {
			w.err = errors.Wrap(err, "segment: writing block")
			return
		}
	}
	w.meta.Size += int64(n + len(stored) + TrailerLen)
}

// Metadata returns the metadata of the finished segment. It is only valid
// after Close returned without error.
func (w *Writer) Metadata() WriterMetadata {
	return w.meta
}

// Close writes the end block, flushes and syncs the segment, and closes the
// file if the Writer was returned by Create.
func (w *Writer) Close() (err error) {
	if w.closed {
		return w.err
	}
	w.closed = true
	defer w.compressor.Close()
	if w.f != nil {
		defer func() {
			if cerr := w.f.Close(); err == nil {
				err = cerr
			}
		}()
	}
	if w.err != nil {
		return w.err
	}
	w.buf = encodeEnd(w.buf[:0], w.meta.Rows, w.meta.Blocks)
	w.writeBlock(w.buf)
	if w.err == nil {
		w.err = w.w.Flush()
	}
	if w.err == nil && w.sync != nil {
		w.err = w.sync()
	}
	return w.err
}
