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
	"github.com/mergetree/mergetree/internal/base"
	"github.com/mergetree/mergetree/internal/compression"
	"github.com/spf13/afero"
)

// Reader reads the batches of a segment in order. It implements
// mergetree.Source.
type Reader struct {
	f      io.Closer
	r      *bufio.Reader
	hasher *xxhash.Digest
	offset int64
	schema *batch.Schema
	rows   int64
	blocks int
	done   bool
	err    error
}

// Open opens the segment at path on fs and reads its schema.
func Open(fs afero.Fs, path string) (*Reader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "segment: opening %s", path)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "segment: %s", path)
	}
	r.f = f
	return r, nil
}

// NewReader returns a Reader over a segment read from r. Close does not close
// r.
func NewReader(r io.Reader) (*Reader, error) {
	sr := &Reader{r: bufio.NewReader(r), hasher: xxhash.New()}
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(sr.r, magic[:]); err != nil {
		return nil, base.CorruptionErrorf("segment: reading magic: %v", err)
	}
	if string(magic[:]) != Magic {
		return nil, base.CorruptionErrorf("segment: invalid magic %q", magic[:])
	}
	sr.offset = int64(len(Magic))
	kind, body, err := sr.readBlock()
	if err != nil {
		return nil, err
	}
	if kind != blockKindSchema {
		return nil, base.CorruptionErrorf("segment: expected schema block, found %s", kind)
	}
	if sr.schema, err = decodeSchema(body); err != nil {
		return nil, err
	}
	return sr, nil
}

// Schema returns the schema of the segment's batches.
func (r *Reader) Schema() *batch.Schema {
	return r.schema
}

// NextBatch returns the next batch of the segment, or io.EOF after the last
// one. Errors are sticky.
func (r *Reader) NextBatch() (*batch.Batch, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.done {
		return nil, io.EOF
	}
	b, err := r.next()
	if err != nil && err != io.EOF {
		r.err = err
	}
	return b, err
}

func (r *Reader) next() (*batch.Batch, error) {
	kind, body, err := r.readBlock()
	if err != nil {
		return nil, err
	}
	switch kind {
	case blockKindData:
		b, err := decodeData(body, r.schema)
		if err != nil {
			return nil, err
		}
		r.rows += int64(b.NumRows())
		r.blocks++
		return b, nil
	case blockKindEnd:
		rows, blocks, err := decodeEnd(body)
		if err != nil {
			return nil, err
		}
		if rows != r.rows || blocks != r.blocks {
			return nil, base.CorruptionErrorf("segment: end block records %d rows in %d blocks, read %d rows in %d blocks",
				errors.Safe(rows), errors.Safe(blocks), errors.Safe(r.rows), errors.Safe(r.blocks))
		}
		r.done = true
		return nil, io.EOF
	default:
		return nil, base.CorruptionErrorf("segment: unexpected %s block at offset %d",
			kind, errors.Safe(r.offset))
	}
}

// readBlock reads, verifies and decompresses the next block.
func (r *Reader) readBlock() (blockKind, []byte, error) {
	offset := r.offset
	n, err := binary.ReadUvarint(r.r)
	if err != nil {
		return 0, nil, r.truncated(offset, err)
	}
	if n > maxBlockLen {
		return 0, nil, base.CorruptionErrorf("segment: block at offset %d: length %d too large",
			errors.Safe(offset), errors.Safe(n))
	}
	stored := make([]byte, n)
	if _, err := io.ReadFull(r.r, stored); err != nil {
		return 0, nil, r.truncated(offset, err)
	}
	var trailer [TrailerLen]byte
	if _, err := io.ReadFull(r.r, trailer[:]); err != nil {
		return 0, nil, r.truncated(offset, err)
	}
	r.offset += int64(uvarintLen(n)) + int64(n) + TrailerLen
	if err := validateChecksum(r.hasher, offset, stored, trailer); err != nil {
		return 0, nil, err
	}
	payload := stored
	if algo := compression.Algorithm(trailer[0]); algo != compression.NoCompression {
		if payload, err = compression.Decompress(algo, stored); err != nil {
			return 0, nil, errors.Wrapf(err, "segment: block at offset %d", errors.Safe(offset))
		}
	}
	if len(payload) == 0 {
		return 0, nil, base.CorruptionErrorf("segment: empty block at offset %d", errors.Safe(offset))
	}
	return blockKind(payload[0]), payload[1:], nil
}

func (r *Reader) truncated(offset int64, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return base.CorruptionErrorf("segment: truncated at offset %d", errors.Safe(offset))
	}
	return errors.Wrapf(err, "segment: reading block at offset %d", errors.Safe(offset))
}

func uvarintLen(v uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], v)
}

// Close closes the segment file if the Reader was returned by Open.
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	f := r.f
	r.f = nil
	return f.Close()
}
