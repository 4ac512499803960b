// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compression implements the block codecs of the segment format.
package compression

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/internal/base"
)

// Algorithm identifies a block codec. The values are stored in block trailers
// and must not be changed.
type Algorithm uint8

const (
	NoCompression Algorithm = iota
	Snappy
	Zstd
	MinLZ
	// NumAlgorithms is the number of known algorithms.
	NumAlgorithms
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case NoCompression:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	case MinLZ:
		return "minlz"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses the string form of an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a := NoCompression; a < NumAlgorithms; a++ {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, errors.Newf("unknown compression %q", s)
}

// Compressor compresses blocks.
type Compressor interface {
	Algorithm() Algorithm
	// Compress appends the compressed form of src to dst[:0], reusing dst's
	// storage if possible.
	Compress(dst, src []byte) []byte
	// Close must be called when the Compressor is no longer needed.
	Close()
}

// Decompressor decompresses blocks.
type Decompressor interface {
	// DecompressedLen returns the length of the decompressed form of b.
	DecompressedLen(b []byte) (decompressedLen int, err error)
	// DecompressInto decompresses compressed into buf, which must have exactly
	// the length returned by DecompressedLen.
	DecompressInto(buf, compressed []byte) error
	// Close must be called when the Decompressor is no longer needed.
	Close()
}

// GetCompressor returns a Compressor for the given algorithm.
func GetCompressor(a Algorithm) Compressor {
	switch a {
	case NoCompression:
		return noopCompressor{}
	case Snappy:
		return snappyCompressor{}
	case Zstd:
		return getZstdCompressor(defaultZstdLevel)
	case MinLZ:
		return getMinlzCompressor(minlzLevelBalanced)
	default:
		panic(errors.AssertionFailedf("unknown compression algorithm %d", errors.Safe(a)))
	}
}

// GetDecompressor returns a Decompressor for the given algorithm. An unknown
// algorithm is reported as corruption, since the value was read from a block
// trailer.
func GetDecompressor(a Algorithm) (Decompressor, error) {
	switch a {
	case NoCompression:
		return noopDecompressor{}, nil
	case Snappy:
		return snappyDecompressor{}, nil
	case Zstd:
		return zstdDecompressor{}, nil
	case MinLZ:
		return minlzDecompressor{}, nil
	default:
		return nil, base.CorruptionErrorf("mergetree: unknown compression algorithm %d", errors.Safe(a))
	}
}

// maxDecompressedLen bounds the decompressed length claimed by a block.
const maxDecompressedLen = 1 << 30

// Decompress is a convenience wrapper that decompresses b into a newly
// allocated buffer.
func Decompress(a Algorithm, b []byte) ([]byte, error) {
	d, err := GetDecompressor(a)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	n, err := d.DecompressedLen(b)
	if err != nil {
		return nil, base.MarkCorruptionError(err)
	}
	if n < 0 || n > maxDecompressedLen {
		return nil, base.CorruptionErrorf("mergetree: invalid decompressed length %d", errors.Safe(n))
	}
	buf := make([]byte, n)
	if err := d.DecompressInto(buf, b); err != nil {
		return nil, base.MarkCorruptionError(err)
	}
	return buf, nil
}
