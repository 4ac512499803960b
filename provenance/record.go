// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package provenance reads and writes the row-source stream emitted by a
// multi-source merge.
//
// The stream is a flat sequence of one-byte records, one per input row
// consumed by the merge, in the order the merge consumed them:
//
//	+------+--------------------+
//	| skip |   source ordinal   |
//	| (1b) |       (7b)         |
//	+------+--------------------+
//
// The low seven bits hold the ordinal of the source the row came from, so a
// merge that records provenance supports at most MaxSources sources. The high
// bit is set if the row was superseded by another row with the same key. For
// every key group exactly one record has the bit clear: the row that was
// written to the output. Records are never rewritten once written.
package provenance

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// MaxSources is the number of distinct source ordinals a record can hold.
const MaxSources = 1 << 7

const (
	sourceMask = MaxSources - 1
	skipFlag   = 0x80
)

// RowSource is a single provenance record.
type RowSource uint8

// MakeRowSource returns the record for a row read from the given source.
func MakeRowSource(source int, skip bool) RowSource {
	if source < 0 || source >= MaxSources {
		panic(errors.AssertionFailedf("row source ordinal %d out of range", errors.Safe(source)))
	}
	r := RowSource(source)
	if skip {
		r |= skipFlag
	}
	return r
}

// Source returns the ordinal of the source the row came from.
func (r RowSource) Source() int {
	return int(r & sourceMask)
}

// Skipped returns true if the row was superseded.
func (r RowSource) Skipped() bool {
	return r&skipFlag != 0
}

// WithSkip returns a copy of r with the skip flag set as given.
func (r RowSource) WithSkip(skip bool) RowSource {
	if skip {
		return r | skipFlag
	}
	return r &^ skipFlag
}

// String implements fmt.Stringer.
func (r RowSource) String() string {
	if r.Skipped() {
		return fmt.Sprintf("%d:skip", r.Source())
	}
	return fmt.Sprintf("%d:keep", r.Source())
}
