// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/mergetree/mergetree/internal/base"
)

const defaultZstdLevel = 3

type zstdCompressor struct {
	enc *zstd.Encoder
}

var _ Compressor = (*zstdCompressor)(nil)

func getZstdCompressor(level int) *zstdCompressor {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		panic(errors.Wrap(err, "zstd encoder"))
	}
	return &zstdCompressor{enc: enc}
}

func (z *zstdCompressor) Algorithm() Algorithm { return Zstd }

// Compress prefixes the zstd frame with a uvarint holding the length of src,
// so that DecompressedLen need not parse the frame header.
func (z *zstdCompressor) Compress(dst, src []byte) []byte {
	dst = binary.AppendUvarint(dst[:0], uint64(len(src)))
	return z.enc.EncodeAll(src, dst)
}

func (z *zstdCompressor) Close() {
	if err := z.enc.Close(); err != nil {
		panic(err)
	}
}

// zstdDecoder is shared by all decompressors. DecodeAll may be called
// concurrently.
var zstdDecoder = sync.OnceValue(func() *zstd.Decoder {
	d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic(errors.Wrap(err, "zstd decoder"))
	}
	return d
})

type zstdDecompressor struct{}

var _ Decompressor = zstdDecompressor{}

func (zstdDecompressor) DecompressInto(dst, src []byte) error {
	// The payload is prefixed with a varint encoding the length of
	// the decompressed block.
	_, prefixLen := binary.Uvarint(src)
	if prefixLen <= 0 {
		return base.CorruptionErrorf("mergetree: zstd block has invalid length")
	}
	result, err := zstdDecoder().DecodeAll(src[prefixLen:], dst[:0])
	if err != nil {
		return err
	}
	if len(result) != len(dst) || (len(result) > 0 && &result[0] != &dst[0]) {
		return base.CorruptionErrorf("mergetree: decompressed into unexpected buffer: %p != %p",
			errors.Safe(result), errors.Safe(dst))
	}
	return nil
}

func (zstdDecompressor) DecompressedLen(b []byte) (decompressedLen int, err error) {
	decodedLenU64, varIntLen := binary.Uvarint(b)
	if varIntLen <= 0 {
		return 0, base.CorruptionErrorf("mergetree: compression block has invalid length")
	}
	return int(decodedLenU64), nil
}

func (zstdDecompressor) Close() {}
