// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package provenance

import (
	"bytes"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestRowSource(t *testing.T) {
	r := MakeRowSource(5, true)
	require.Equal(t, RowSource(0x85), r)
	require.Equal(t, 5, r.Source())
	require.True(t, r.Skipped())
	require.Equal(t, "5:skip", r.String())

	r = r.WithSkip(false)
	require.Equal(t, RowSource(5), r)
	require.False(t, r.Skipped())
	require.Equal(t, "5:keep", r.String())
	require.Equal(t, r, r.WithSkip(false))

	last := MakeRowSource(MaxSources-1, false)
	require.Equal(t, RowSource(0x7f), last)
	require.Equal(t, MaxSources-1, last.WithSkip(true).Source())

	require.Panics(t, func() { MakeRowSource(MaxSources, false) })
	require.Panics(t, func() { MakeRowSource(-1, false) })
}

func TestWriterReader(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	var want []RowSource
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 50; i++ {
		recs := make([]RowSource, rng.IntN(200))
		for j := range recs {
			recs[j] = MakeRowSource(rng.IntN(MaxSources), rng.IntN(2) == 0)
		}
		require.NoError(t, w.Write(recs))
		want = append(want, recs...)
	}
	require.NoError(t, w.Write(nil))
	require.EqualValues(t, len(want), w.Count())
	require.NoError(t, w.Flush())
	require.Equal(t, len(want), buf.Len())

	rd := NewReader(bytes.NewReader(buf.Bytes()))
	for i := range want {
		rec, err := rd.Next()
		require.NoError(t, err)
		require.Equal(t, want[i], rec, "record %d", i)
	}
	_, err := rd.Next()
	require.Equal(t, io.EOF, err)

	got, err := ReadAll(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterErrorIsSticky(t *testing.T) {
	w := NewWriter(failingWriter{})
	require.NoError(t, w.Write([]RowSource{1, 2}))
	err := w.Flush()
	require.ErrorContains(t, err, "provenance: flush: disk full")
	require.Equal(t, err, w.Write([]RowSource{3}))
	require.Equal(t, err, w.Flush())
}

func TestSummarize(t *testing.T) {
	recs := []RowSource{
		MakeRowSource(0, true), MakeRowSource(1, false),
		MakeRowSource(0, false), MakeRowSource(1, false),
		MakeRowSource(2, true),
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(recs))
	require.NoError(t, w.Flush())

	s, err := Summarize(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 5, s.Records)
	require.EqualValues(t, 3, s.Kept)
	require.EqualValues(t, [3]int64{2, 2, 1}, [3]int64(s.PerSource[:3]))
	require.EqualValues(t, [3]int64{1, 2, 0}, [3]int64(s.KeptPerSource[:3]))
}
