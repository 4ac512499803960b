// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package segment implements a file format holding a stream of batches that
// share one schema. A segment is written once, front to back, and read the
// same way; it is the unit that a merge reads from and writes to.
//
// The file layout is:
//
//	magic (8 bytes)
//	schema block
//	data block 0
//	...
//	data block n-1
//	end block
//
// Every block is encoded as:
//
//	+----------------+---------------------+------------------------+
//	| length uvarint | payload (length B)  | trailer (5 B)          |
//	+----------------+---------------------+------------------------+
//
// The trailer holds the compression algorithm of the payload (1 byte) and a
// little-endian uint32 checksum: the low 32 bits of the xxhash64 of the
// payload followed by the algorithm byte. Once decompressed, the first byte of
// a payload is the block kind.
//
// A schema block holds the column count followed by each column's name
// (uvarint length, bytes) and type (1 byte). A data block holds one batch:
// the row count followed by each column in schema order. Integer columns are
// stored as 8-byte little-endian values; bytes columns as one uvarint length
// per row followed by the concatenated values. The end block holds the total
// row count and the number of data blocks, which the reader verifies.
package segment

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/batch"
	"github.com/mergetree/mergetree/internal/base"
	"github.com/mergetree/mergetree/internal/compression"
)

// Magic identifies a segment file.
const Magic = "mtseg\x00\x01\x00"

// TrailerLen is the length of the trailer at the end of a block.
const TrailerLen = 5

// maxBlockLen bounds the stored length of a block.
const maxBlockLen = 1 << 30

type blockKind byte

const (
	blockKindSchema blockKind = 1
	blockKindData   blockKind = 2
	blockKindEnd    blockKind = 3
)

func (k blockKind) String() string {
	switch k {
	case blockKindSchema:
		return "schema"
	case blockKindData:
		return "data"
	case blockKindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Compression selects the codec used for the blocks of a segment.
type Compression = compression.Algorithm

// The available compressions.
const (
	NoCompression     = compression.NoCompression
	SnappyCompression = compression.Snappy
	ZstdCompression   = compression.Zstd
	MinLZCompression  = compression.MinLZ
)

// ParseCompression parses the string form of a Compression.
func ParseCompression(s string) (Compression, error) {
	return compression.ParseAlgorithm(s)
}

// checksum computes the trailer checksum over a stored payload and its
// compression byte.
func checksum(h *xxhash.Digest, payload []byte, algo byte) uint32 {
	h.Reset()
	_, _ = h.Write(payload)
	_, _ = h.Write([]byte{algo})
	return uint32(h.Sum64())
}

// makeTrailer constructs a trailer from a compression byte and a checksum.
func makeTrailer(algo byte, sum uint32) (t [TrailerLen]byte) {
	t[0] = algo
	binary.LittleEndian.PutUint32(t[1:5], sum)
	return t
}

// validateChecksum verifies the trailer of the block stored at offset.
func validateChecksum(h *xxhash.Digest, offset int64, payload []byte, trailer [TrailerLen]byte) error {
	expected := binary.LittleEndian.Uint32(trailer[1:])
	if computed := checksum(h, payload, trailer[0]); computed != expected {
		return base.CorruptionErrorf("segment: block at offset %d: checksum mismatch %x != %x",
			errors.Safe(offset), expected, computed)
	}
	return nil
}

func encodeSchema(dst []byte, s *batch.Schema) []byte {
	dst = append(dst, byte(blockKindSchema))
	dst = binary.AppendUvarint(dst, uint64(s.NumColumns()))
	for i := 0; i < s.NumColumns(); i++ {
		c := s.Column(i)
		dst = binary.AppendUvarint(dst, uint64(len(c.Name)))
		dst = append(dst, c.Name...)
		dst = append(dst, byte(c.Type))
	}
	return dst
}

// encodeData appends the data block encoding of b. b must have at least one
// row.
func encodeData(dst []byte, b *batch.Batch) []byte {
	dst = append(dst, byte(blockKindData))
	dst = binary.AppendUvarint(dst, uint64(b.NumRows()))
	for i := 0; i < b.NumColumns(); i++ {
		switch c := b.Column(i).(type) {
		case *batch.Uint64Column:
			for _, v := range c.Values() {
				dst = binary.LittleEndian.AppendUint64(dst, v)
			}
		case *batch.Int64Column:
			for _, v := range c.Values() {
				dst = binary.LittleEndian.AppendUint64(dst, uint64(v))
			}
		case *batch.BytesColumn:
			offsets, data := c.Parts()
			for r := 1; r < len(offsets); r++ {
				dst = binary.AppendUvarint(dst, uint64(offsets[r]-offsets[r-1]))
			}
			dst = append(dst, data[offsets[0]:offsets[len(offsets)-1]]...)
		default:
			panic(errors.AssertionFailedf("segment: unsupported column %T", c))
		}
	}
	return dst
}

func encodeEnd(dst []byte, rows int64, blocks int) []byte {
	dst = append(dst, byte(blockKindEnd))
	dst = binary.AppendUvarint(dst, uint64(rows))
	dst = binary.AppendUvarint(dst, uint64(blocks))
	return dst
}

// decoder reads the fields of a decompressed block. The first error sticks
// and is reported as corruption.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = base.CorruptionErrorf(format, args...)
	}
}

func (d *decoder) uvarint(what string) uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.fail("segment: invalid %s", errors.Safe(what))
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) bytes(n uint64, what string) []byte {
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.buf)) {
		d.fail("segment: %s overruns block: %d > %d", errors.Safe(what), errors.Safe(n), errors.Safe(len(d.buf)))
		return nil
	}
	b := d.buf[:n:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) done(kind blockKind) error {
	if d.err == nil && len(d.buf) != 0 {
		d.fail("segment: %d trailing bytes in %s block", errors.Safe(len(d.buf)), kind)
	}
	return d.err
}

func decodeSchema(body []byte) (*batch.Schema, error) {
	d := decoder{buf: body}
	n := d.uvarint("column count")
	if n > uint64(len(body)) {
		d.fail("segment: column count %d exceeds block", errors.Safe(n))
	}
	var cols []batch.ColumnDesc
	for i := uint64(0); i < n && d.err == nil; i++ {
		name := d.bytes(d.uvarint("column name length"), "column name")
		t := d.bytes(1, "column type")
		if d.err != nil {
			break
		}
		cols = append(cols, batch.ColumnDesc{Name: string(name), Type: batch.ColumnType(t[0])})
	}
	if err := d.done(blockKindSchema); err != nil {
		return nil, err
	}
	s, err := batch.NewSchema(cols...)
	if err != nil {
		return nil, base.MarkCorruptionError(errors.Wrap(err, "segment: invalid schema"))
	}
	return s, nil
}

func decodeData(body []byte, schema *batch.Schema) (*batch.Batch, error) {
	d := decoder{buf: body}
	rows := d.uvarint("row count")
	if d.err == nil && (rows == 0 || rows > uint64(len(body))) {
		d.fail("segment: invalid row count %d", errors.Safe(rows))
	}
	cols := make([]batch.Column, schema.NumColumns())
	for i := range cols {
		if d.err != nil {
			break
		}
		switch t := schema.Column(i).Type; t {
		case batch.ColumnTypeUint64, batch.ColumnTypeInt64:
			raw := d.bytes(rows*8, "integer column")
			if d.err != nil {
				break
			}
			if t == batch.ColumnTypeUint64 {
				vals := make([]uint64, rows)
				for r := range vals {
					vals[r] = binary.LittleEndian.Uint64(raw[r*8:])
				}
				cols[i] = batch.MakeUint64Column(vals)
			} else {
				vals := make([]int64, rows)
				for r := range vals {
					vals[r] = int64(binary.LittleEndian.Uint64(raw[r*8:]))
				}
				cols[i] = batch.MakeInt64Column(vals)
			}
		case batch.ColumnTypeBytes:
			offsets := make([]uint32, rows+1)
			for r := uint64(0); r < rows && d.err == nil; r++ {
				l := d.uvarint("value length")
				if uint64(offsets[r])+l > uint64(len(body)) {
					d.fail("segment: value length %d overruns block", errors.Safe(l))
					break
				}
				offsets[r+1] = offsets[r] + uint32(l)
			}
			data := d.bytes(uint64(offsets[rows]), "bytes column")
			if d.err != nil {
				break
			}
			c, err := batch.MakeBytesColumnFromParts(offsets, data)
			if err != nil {
				d.fail("segment: %v", err)
				break
			}
			cols[i] = c
		default:
			d.fail("segment: column %d has invalid type %d", errors.Safe(i), errors.Safe(t))
		}
	}
	if err := d.done(blockKindData); err != nil {
		return nil, err
	}
	return batch.New(schema, cols)
}

func decodeEnd(body []byte) (rows int64, blocks int, err error) {
	d := decoder{buf: body}
	rows = int64(d.uvarint("row count"))
	blocks = int(d.uvarint("block count"))
	return rows, blocks, d.done(blockKindEnd)
}
