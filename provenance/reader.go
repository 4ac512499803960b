// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package provenance

import (
	"bufio"
	"io"
)

// Reader decodes a row-source stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (RowSource, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	return RowSource(b), nil
}

// ReadAll decodes every record of the stream.
func ReadAll(r io.Reader) ([]RowSource, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	recs := make([]RowSource, len(b))
	for i := range b {
		recs[i] = RowSource(b[i])
	}
	return recs, nil
}

// Summary describes a row-source stream.
type Summary struct {
	// Records is the total number of records.
	Records int64
	// Kept is the number of records with the skip flag clear, i.e. the
	// number of rows the merge produced.
	Kept int64
	// PerSource counts records by source ordinal.
	PerSource [MaxSources]int64
	// KeptPerSource counts records with the skip flag clear by source
	// ordinal.
	KeptPerSource [MaxSources]int64
}

// Add counts rec.
func (s *Summary) Add(rec RowSource) {
	s.Records++
	s.PerSource[rec.Source()]++
	if !rec.Skipped() {
		s.Kept++
		s.KeptPerSource[rec.Source()]++
	}
}

// Summarize reads the whole stream and counts its records.
func Summarize(r io.Reader) (Summary, error) {
	var s Summary
	rd := NewReader(r)
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return s, nil
		} else if err != nil {
			return s, err
		}
		s.Add(rec)
	}
}
