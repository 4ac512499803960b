// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

var testSchema = MustSchema(
	ColumnDesc{Name: "k", Type: ColumnTypeUint64},
	ColumnDesc{Name: "d", Type: ColumnTypeInt64},
	ColumnDesc{Name: "s", Type: ColumnTypeBytes},
)

func argVals(t *testing.T, d *datadriven.TestData, key string) []string {
	for _, arg := range d.CmdArgs {
		if arg.Key == key {
			return arg.Vals
		}
	}
	t.Fatalf("%s: missing argument %q", d.Pos, key)
	return nil
}

func TestBatchDataDriven(t *testing.T) {
	var b *Batch
	defer func() {
		if b != nil {
			b.Unref()
		}
	}()
	datadriven.RunTest(t, "testdata/batch", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "build":
			schema, err := ParseSchema(strings.Join(argVals(t, d, "schema"), ","))
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			if b != nil {
				b.Unref()
				b = nil
			}
			b, err = Parse(schema, d.Input)
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			return fmt.Sprintf("%d rows, %d columns\n%s", b.NumRows(), b.NumColumns(), b)

		case "compare":
			var i, j int
			d.ScanArgs(t, "i", &i)
			d.ScanArgs(t, "j", &j)
			cols, err := b.Schema().Indices(argVals(t, d, "key"))
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			return fmt.Sprint(b.CompareRows(cols, i, b, j))

		default:
			return fmt.Sprintf("unknown command: %s", d.Cmd)
		}
	})
}

func TestNewBatchValidation(t *testing.T) {
	_, err := New(testSchema, []Column{MakeUint64Column([]uint64{1})})
	require.ErrorContains(t, err, "batch has 1 columns, schema has 3")

	_, err = New(testSchema, []Column{
		MakeUint64Column([]uint64{1}),
		MakeUint64Column([]uint64{2}),
		MakeBytesColumn([]byte("a")),
	})
	require.ErrorContains(t, err, `column "d": type uint64 does not match schema type int64`)

	_, err = New(testSchema, []Column{
		MakeUint64Column([]uint64{1, 2}),
		MakeInt64Column([]int64{-1}),
		MakeBytesColumn([]byte("a"), []byte("b")),
	})
	require.ErrorContains(t, err, `column "d" has 1 rows, expected 2`)

	b, err := New(testSchema, []Column{
		MakeUint64Column([]uint64{1, 2}),
		MakeInt64Column([]int64{-1, 7}),
		MakeBytesColumn([]byte("a"), []byte("bc")),
	})
	require.NoError(t, err)
	require.Equal(t, "1 -1 a\n2 7 bc\n", b.String())
	require.Equal(t, int64(7), b.Column(1).(*Int64Column).At(1))
	require.Equal(t, []byte("bc"), b.Column(2).(*BytesColumn).At(1))
	b.Unref()
}

func TestBytesColumnFromParts(t *testing.T) {
	c, err := MakeBytesColumnFromParts([]uint32{0, 2, 2, 5}, []byte("abcde"))
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	require.Equal(t, "ab", c.Format(0))
	require.Equal(t, "", c.Format(1))
	require.Equal(t, "cde", c.Format(2))
	offsets, data := c.Parts()
	require.Equal(t, []uint32{0, 2, 2, 5}, offsets)
	require.Equal(t, []byte("abcde"), data)

	_, err = MakeBytesColumnFromParts(nil, nil)
	require.ErrorContains(t, err, "must start at 0")
	_, err = MakeBytesColumnFromParts([]uint32{0, 3, 2}, []byte("abc"))
	require.ErrorContains(t, err, "offsets decrease at row 1")
	_, err = MakeBytesColumnFromParts([]uint32{0, 2}, []byte("abc"))
	require.ErrorContains(t, err, "offsets end at 2, data has 3 bytes")

	// Appending to a value must not clobber its neighbour.
	v := c.At(0)
	_ = append(v, 'z')
	require.Equal(t, "cde", c.Format(2))
}

func TestBytesOffsetLimit(t *testing.T) {
	require.Equal(t, uint32(MaxBytesColumnLen), bytesOffset(MaxBytesColumnLen))
	require.Equal(t, uint32(7), bytesOffset(7))
	require.PanicsWithError(t,
		"bytes column data of 4294967296 bytes exceeds the 4294967295 byte limit",
		func() { bytesOffset(MaxBytesColumnLen + 1) })
}

func TestBuilder(t *testing.T) {
	src := MustParse(testSchema, "1 -1 a\n2 -2 b\n3 -3 c")
	defer src.Unref()

	bld := NewBuilder(testSchema)
	require.Same(t, testSchema, bld.Schema())
	bld.AppendRow(src, 2)
	var r RowRef
	r.Set(src, 0)
	bld.AppendRef(&r)
	r.Reset()
	require.Equal(t, 2, bld.NumRows())

	// A malformed row leaves the builder untouched.
	require.ErrorContains(t, bld.AppendStrings([]string{"4", "x", "d"}), `column "d"`)
	require.ErrorContains(t, bld.AppendStrings([]string{"4"}), "row has 1 fields, schema has 3 columns")
	require.Equal(t, 2, bld.NumRows())

	out := bld.Finish()
	require.Equal(t, "3 -3 c\n1 -1 a\n", out.String())
	out.Unref()

	// The builder is reusable after Finish.
	require.Zero(t, bld.NumRows())
	empty := bld.Finish()
	require.Zero(t, empty.NumRows())
	require.Equal(t, 0, empty.Column(2).Len())
	empty.Unref()
}

func TestRefCounting(t *testing.T) {
	b := MustParse(testSchema, "1 1 a")
	var released int
	b.SetReleaseHook(func(*Batch) { released++ })
	require.EqualValues(t, 1, b.Refs())

	var r1, r2 RowRef
	require.True(t, r1.Empty())
	r1.Set(b, 0)
	r2.Set(b, 0)
	require.EqualValues(t, 3, b.Refs())
	require.True(t, r1.Equal([]int{0}, &r2))

	// Re-setting a ref to the same batch must not drop it to zero.
	b.Unref()
	r1.Set(b, 0)
	require.EqualValues(t, 2, b.Refs())
	require.Zero(t, released)

	r1.Swap(&r2)
	require.Same(t, b, r1.Batch())
	require.Zero(t, r1.Row())

	r1.Reset()
	require.True(t, r1.Empty())
	require.Zero(t, released)
	r2.Reset()
	require.Equal(t, 1, released)
	require.EqualValues(t, 0, b.Refs())

	require.Panics(t, func() { b.Unref() })
}

func TestRowRefEqual(t *testing.T) {
	a := MustParse(testSchema, "1 1 a\n2 1 a")
	b := MustParse(testSchema, "1 9 z")
	defer a.Unref()
	defer b.Unref()

	var r1, r2 RowRef
	defer r1.Reset()
	defer r2.Reset()
	r1.Set(a, 0)
	r2.Set(b, 0)
	require.True(t, r1.Equal([]int{0}, &r2))
	require.False(t, r1.Equal([]int{0, 1}, &r2))
	r2.Set(a, 1)
	require.False(t, r1.Equal([]int{0}, &r2))
	require.True(t, r1.Equal([]int{1, 2}, &r2))
}

func TestSliceSource(t *testing.T) {
	b1 := MustParse(testSchema, "1 1 a")
	b2 := MustParse(testSchema, "")
	s := NewSliceSource(b1, b2)
	require.Equal(t, 2, s.Remaining())
	got, err := s.NextBatch()
	require.NoError(t, err)
	require.Same(t, b1, got)
	got.Unref()
	got, err = s.NextBatch()
	require.NoError(t, err)
	require.Zero(t, got.NumRows())
	got.Unref()
	require.Zero(t, s.Remaining())
	_, err = s.NextBatch()
	require.Equal(t, io.EOF, err)
}
