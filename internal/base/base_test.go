// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestInMemLogger(t *testing.T) {
	var l InMemLogger
	l.Infof("hello %d", 1)
	l.Errorf("trailing newline\n")
	l.Infof("")
	require.Equal(t, "hello 1\ntrailing newline\n\n", l.String())
	require.PanicsWithValue(t, "fatal x", func() { l.Fatalf("fatal %s", "x") })
	require.Contains(t, l.String(), "fatal x\n")
	l.Reset()
	require.Empty(t, l.String())
}

func TestNoopLogger(t *testing.T) {
	var l NoopLogger
	l.Infof("ignored")
	l.Errorf("ignored")
	require.PanicsWithValue(t, "boom 2", func() { l.Fatalf("boom %d", 2) })
}

func TestCorruptionError(t *testing.T) {
	err := CorruptionErrorf("block %d is bad", errors.Safe(3))
	require.EqualError(t, err, "block 3 is bad")
	require.True(t, IsCorruptionError(err))
	require.True(t, IsCorruptionError(errors.Wrap(err, "reading")))

	plain := errors.New("plain")
	require.False(t, IsCorruptionError(plain))
	marked := MarkCorruptionError(plain)
	require.True(t, IsCorruptionError(marked))
	require.Equal(t, "plain", marked.Error())
	require.Same(t, marked, MarkCorruptionError(marked))
}
