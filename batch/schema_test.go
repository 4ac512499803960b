// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema("k:uint64, v:u64,name:string,delta:i64")
	require.NoError(t, err)
	require.Equal(t, 4, s.NumColumns())
	require.Equal(t, "k:uint64,v:uint64,name:bytes,delta:int64", s.String())
	require.Equal(t, ColumnDesc{Name: "name", Type: ColumnTypeBytes}, s.Column(2))

	i, ok := s.Index("delta")
	require.True(t, ok)
	require.Equal(t, 3, i)
	_, ok = s.Index("missing")
	require.False(t, ok)

	idx, err := s.Indices([]string{"name", "k"})
	require.NoError(t, err)
	require.Equal(t, []int{2, 0}, idx)
	_, err = s.Indices([]string{"k", "nope"})
	require.ErrorContains(t, err, `unknown column "nope"`)

	s2, err := ParseSchema(s.String())
	require.NoError(t, err)
	require.True(t, s.Equal(s2))
	require.False(t, s.Equal(MustSchema(ColumnDesc{Name: "k", Type: ColumnTypeUint64})))
	require.False(t, s.Equal(nil))
}

func TestParseSchemaErrors(t *testing.T) {
	for _, tc := range []struct {
		in  string
		err string
	}{
		{"", "schema has no columns"},
		{"k", `expected name:type`},
		{"k:float", `unknown column type "float"`},
		{"k:uint64,k:bytes", `duplicate column "k"`},
		{":uint64", "column 0 has no name"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			_, err := ParseSchema(tc.in)
			require.ErrorContains(t, err, tc.err)
		})
	}
}

func TestColumnTypeString(t *testing.T) {
	for _, typ := range []ColumnType{ColumnTypeUint64, ColumnTypeInt64, ColumnTypeBytes} {
		parsed, err := ParseColumnType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}
	require.Equal(t, "invalid", ColumnTypeInvalid.String())
}
