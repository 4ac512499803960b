// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/mergetree/mergetree/internal/base"
	"github.com/stretchr/testify/require"
)

func TestCompressionRoundtrip(t *testing.T) {

	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewPCG(0, seed))

	for a := NoCompression; a < NumAlgorithms; a++ {
		t.Run(a.String(), func(t *testing.T) {
			// Half random bytes, half a repeated pattern, so that every codec
			// actually has something to compress.
			n := 1 + rng.IntN(10<<10 /* 10 KiB */)
			payload := make([]byte, 0, n)
			for len(payload) < n/2 {
				payload = append(payload, byte(rng.Uint32()))
			}
			for len(payload) < n {
				payload = append(payload, "abcdefgh"[len(payload)%8])
			}
			// Create a randomly-sized buffer to house the compressed output. If it's
			// not sufficient, Compress should allocate one that is.
			compressedBuf := make([]byte, 1+rng.IntN(1<<10 /* 1 KiB */))
			compressor := GetCompressor(a)
			defer compressor.Close()
			require.Equal(t, a, compressor.Algorithm())
			compressed := compressor.Compress(compressedBuf, payload)
			got, err := Decompress(a, compressed)
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}
}

func TestCompressionShrinks(t *testing.T) {
	payload := bytes.Repeat([]byte("mergetree "), 1000)
	for _, a := range []Algorithm{Snappy, Zstd, MinLZ} {
		c := GetCompressor(a)
		out := c.Compress(nil, payload)
		c.Close()
		require.Less(t, len(out), len(payload)/4, "%s", a)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for a := NoCompression; a < NumAlgorithms; a++ {
		got, err := ParseAlgorithm(a.String())
		require.NoError(t, err)
		require.Equal(t, a, got)
	}
	got, err := ParseAlgorithm("ZSTD")
	require.NoError(t, err)
	require.Equal(t, Zstd, got)
	_, err = ParseAlgorithm("lz4")
	require.Error(t, err)
}

// TestDecompressionError tests that a decompressing a value that does not
// decompress returns a corruption error.
func TestDecompressionError(t *testing.T) {
	rng := rand.New(rand.NewPCG(0, 1 /* fixed seed */))

	// Create a buffer to represent a faux zstd compressed block. It's prefixed
	// with a uvarint of the appropriate length, followed by garbage.
	fauxCompressed := make([]byte, 64+rng.IntN(10<<10 /* 10 KiB */))
	compressedPayloadLen := len(fauxCompressed) - binary.MaxVarintLen64
	n := binary.PutUvarint(fauxCompressed, uint64(compressedPayloadLen))
	fauxCompressed = fauxCompressed[:n+compressedPayloadLen]
	for i := range fauxCompressed[n:] {
		fauxCompressed[n+i] = byte(rng.Uint32())
	}

	v, err := Decompress(Zstd, fauxCompressed)
	t.Log(err)
	require.Error(t, err)
	require.True(t, base.IsCorruptionError(err))
	require.Nil(t, v)

	_, err = Decompress(Algorithm(42), []byte("x"))
	require.True(t, base.IsCorruptionError(err))
}
