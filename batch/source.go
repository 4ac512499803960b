// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import "io"

// SliceSource yields a fixed list of in-memory batches in order and then
// io.EOF. Ownership of each batch's initial reference passes to the caller of
// NextBatch.
type SliceSource struct {
	batches []*Batch
	pos     int
}

// NewSliceSource returns a source over the given batches.
func NewSliceSource(batches ...*Batch) *SliceSource {
	return &SliceSource{batches: batches}
}

// NextBatch returns the next batch, or io.EOF once all batches were returned.
func (s *SliceSource) NextBatch() (*Batch, error) {
	if s.pos >= len(s.batches) {
		return nil, io.EOF
	}
	b := s.batches[s.pos]
	s.batches[s.pos] = nil
	s.pos++
	return b, nil
}

// Remaining returns the number of batches not yet returned.
func (s *SliceSource) Remaining() int {
	return len(s.batches) - s.pos
}
