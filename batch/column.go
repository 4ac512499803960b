// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"bytes"
	"cmp"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// Column is a read-only column of a batch. Rows are addressed by index in
// [0, Len()).
type Column interface {
	// Type returns the physical type of the column.
	Type() ColumnType
	// Len returns the number of rows in the column.
	Len() int
	// Compare compares row i of this column with row j of o using the
	// natural ordering of the column type. The two columns must be of the
	// same type.
	Compare(i int, o Column, j int) int
	// Format returns the textual form of row i.
	Format(i int) string
}

// NumericColumn is a column of fixed-width integers.
type NumericColumn[T constraints.Integer] struct {
	typ  ColumnType
	vals []T
}

// Uint64Column holds unsigned 64-bit integers. It is the only column type
// accepted as a version column.
type Uint64Column = NumericColumn[uint64]

// Int64Column holds signed 64-bit integers.
type Int64Column = NumericColumn[int64]

// MakeUint64Column returns a column over vals. The column takes ownership of
// the slice.
func MakeUint64Column(vals []uint64) *Uint64Column {
	return &Uint64Column{typ: ColumnTypeUint64, vals: vals}
}

// MakeInt64Column returns a column over vals. The column takes ownership of
// the slice.
func MakeInt64Column(vals []int64) *Int64Column {
	return &Int64Column{typ: ColumnTypeInt64, vals: vals}
}

var _ Column = (*Uint64Column)(nil)
var _ Column = (*Int64Column)(nil)

// Type implements Column.
func (c *NumericColumn[T]) Type() ColumnType { return c.typ }

// Len implements Column.
func (c *NumericColumn[T]) Len() int { return len(c.vals) }

// At returns the value at row i.
func (c *NumericColumn[T]) At(i int) T { return c.vals[i] }

// Values returns the underlying values. The caller must not modify them.
func (c *NumericColumn[T]) Values() []T { return c.vals }

// Compare implements Column.
func (c *NumericColumn[T]) Compare(i int, o Column, j int) int {
	return cmp.Compare(c.vals[i], o.(*NumericColumn[T]).vals[j])
}

// Format implements Column.
func (c *NumericColumn[T]) Format(i int) string {
	if c.typ == ColumnTypeInt64 {
		return strconv.FormatInt(int64(c.vals[i]), 10)
	}
	return strconv.FormatUint(uint64(c.vals[i]), 10)
}

// BytesColumn holds variable-length byte strings. Row i is
// data[offsets[i]:offsets[i+1]].
type BytesColumn struct {
	offsets []uint32
	data    []byte
}

// MaxBytesColumnLen is the largest total length, in bytes, of the values of a
// BytesColumn. Offsets are 32 bits wide.
const MaxBytesColumnLen = math.MaxUint32

// bytesOffset converts the length of a bytes column's data to an offset. It
// panics if the data has outgrown 32-bit offsets.
func bytesOffset(n int64) uint32 {
	if n < 0 || n > MaxBytesColumnLen {
		panic(errors.AssertionFailedf("bytes column data of %d bytes exceeds the %d byte limit",
			errors.Safe(n), errors.Safe(int64(MaxBytesColumnLen))))
	}
	return uint32(n)
}

var _ Column = (*BytesColumn)(nil)

// MakeBytesColumn returns a column holding copies of vals.
func MakeBytesColumn(vals ...[]byte) *BytesColumn {
	c := &BytesColumn{offsets: make([]uint32, 1, len(vals)+1)}
	for _, v := range vals {
		off := bytesOffset(int64(len(c.data)) + int64(len(v)))
		c.data = append(c.data, v...)
		c.offsets = append(c.offsets, off)
	}
	return c
}

// MakeBytesColumnFromParts returns a column over an offsets array of length
// rows+1 and the concatenated data. The column takes ownership of both slices.
func MakeBytesColumnFromParts(offsets []uint32, data []byte) (*BytesColumn, error) {
	if len(offsets) == 0 || offsets[0] != 0 {
		return nil, errors.New("bytes column offsets must start at 0")
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, errors.Newf("bytes column offsets decrease at row %d", errors.Safe(i-1))
		}
	}
	if int(offsets[len(offsets)-1]) != len(data) {
		return nil, errors.Newf("bytes column offsets end at %d, data has %d bytes",
			errors.Safe(offsets[len(offsets)-1]), errors.Safe(len(data)))
	}
	return &BytesColumn{offsets: offsets, data: data}, nil
}

// Type implements Column.
func (c *BytesColumn) Type() ColumnType { return ColumnTypeBytes }

// Len implements Column.
func (c *BytesColumn) Len() int { return len(c.offsets) - 1 }

// At returns the value at row i. The returned slice aliases the column's
// storage and must not be modified.
func (c *BytesColumn) At(i int) []byte {
	return c.data[c.offsets[i]:c.offsets[i+1]:c.offsets[i+1]]
}

// Parts returns the offsets and data backing the column. The caller must not
// modify them.
func (c *BytesColumn) Parts() (offsets []uint32, data []byte) {
	return c.offsets, c.data
}

// Compare implements Column.
func (c *BytesColumn) Compare(i int, o Column, j int) int {
	return bytes.Compare(c.At(i), o.(*BytesColumn).At(j))
}

// Format implements Column.
func (c *BytesColumn) Format(i int) string {
	return string(c.At(i))
}

// ColumnBuilder accumulates the values of one column of an output batch.
type ColumnBuilder interface {
	// AppendFrom appends row i of src, which must be of the builder's type.
	AppendFrom(src Column, i int)
	// AppendString parses s according to the column type and appends it.
	AppendString(s string) error
	// Len returns the number of values appended since the last Finish.
	Len() int
	// Finish returns the built column and resets the builder.
	Finish() Column
}

// NewColumnBuilder returns a builder for columns of type t.
func NewColumnBuilder(t ColumnType) ColumnBuilder {
	switch t {
	case ColumnTypeUint64:
		return &numericBuilder[uint64]{typ: t, parse: func(s string) (uint64, error) {
			return strconv.ParseUint(s, 10, 64)
		}}
	case ColumnTypeInt64:
		return &numericBuilder[int64]{typ: t, parse: func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		}}
	case ColumnTypeBytes:
		return &bytesBuilder{}
	default:
		panic(errors.AssertionFailedf("unknown column type %d", errors.Safe(t)))
	}
}

type numericBuilder[T constraints.Integer] struct {
	typ   ColumnType
	vals  []T
	parse func(string) (T, error)
}

func (b *numericBuilder[T]) AppendFrom(src Column, i int) {
	b.vals = append(b.vals, src.(*NumericColumn[T]).vals[i])
}

func (b *numericBuilder[T]) AppendString(s string) error {
	v, err := b.parse(s)
	if err != nil {
		return errors.Wrapf(err, "parsing %s value", errors.Safe(b.typ))
	}
	b.vals = append(b.vals, v)
	return nil
}

func (b *numericBuilder[T]) Len() int { return len(b.vals) }

func (b *numericBuilder[T]) Finish() Column {
	c := &NumericColumn[T]{typ: b.typ, vals: b.vals}
	b.vals = nil
	return c
}

type bytesBuilder struct {
	col BytesColumn
}

func (b *bytesBuilder) append(v []byte) {
	if len(b.col.offsets) == 0 {
		b.col.offsets = append(b.col.offsets, 0)
	}
	off := bytesOffset(int64(len(b.col.data)) + int64(len(v)))
	b.col.data = append(b.col.data, v...)
	b.col.offsets = append(b.col.offsets, off)
}

func (b *bytesBuilder) AppendFrom(src Column, i int) {
	b.append(src.(*BytesColumn).At(i))
}

func (b *bytesBuilder) AppendString(s string) error {
	b.append([]byte(s))
	return nil
}

func (b *bytesBuilder) Len() int {
	if len(b.col.offsets) == 0 {
		return 0
	}
	return len(b.col.offsets) - 1
}

func (b *bytesBuilder) Finish() Column {
	if len(b.col.offsets) == 0 {
		b.col.offsets = append(b.col.offsets, 0)
	}
	c := &BytesColumn{offsets: b.col.offsets, data: b.col.data}
	b.col = BytesColumn{}
	return c
}
