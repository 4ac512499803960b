// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package provenance

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/batch"
	"github.com/mergetree/mergetree/internal/base"
)

// BatchSource is a stream of batches, returning io.EOF once exhausted. It has
// the same shape as mergetree.Source.
type BatchSource interface {
	NextBatch() (*batch.Batch, error)
}

// Gatherer assembles one column of a merge's output from the merge's inputs
// and its row-source stream, without comparing keys again. The sources must
// yield the same rows, in the same order, as the sources of the merge that
// wrote the stream; only the gathered column is read from them.
//
// With a single source there is no stream (a single-source merge writes none)
// and the column is forwarded unchanged.
type Gatherer struct {
	rd      *Reader
	sources []gatherSource
	column  string
	typ     batch.ColumnType
	maxRows int
	out     batch.ColumnBuilder
	done    bool
	err     error
}

type gatherSource struct {
	src BatchSource
	b   *batch.Batch
	col int
	pos int
}

// NewGatherer returns a Gatherer for the named column. Each call to Next
// returns at most maxRows values. rowSources is ignored if there is a single
// source.
func NewGatherer(
	rowSources io.Reader, sources []BatchSource, column string, maxRows int,
) *Gatherer {
	if maxRows <= 0 {
		maxRows = 8192
	}
	g := &Gatherer{
		sources: make([]gatherSource, len(sources)),
		column:  column,
		maxRows: maxRows,
	}
	for i := range sources {
		g.sources[i].src = sources[i]
	}
	if len(sources) > 1 {
		g.rd = NewReader(rowSources)
	}
	return g
}

// Next returns the next chunk of the gathered column, or io.EOF once the
// output is complete. Errors are sticky. A stream that references a source
// ordinal out of range, or more rows of a source than it holds, is reported
// as corruption.
func (g *Gatherer) Next() (batch.Column, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.done {
		return nil, io.EOF
	}
	var col batch.Column
	var err error
	switch len(g.sources) {
	case 0:
		err = io.EOF
	case 1:
		col, err = g.nextPassThrough()
	default:
		col, err = g.gather()
	}
	if err == io.EOF {
		g.done = true
		g.Close()
		return nil, io.EOF
	} else if err != nil {
		g.err = err
		g.Close()
		return nil, err
	}
	return col, nil
}

// Close releases the batches held by the Gatherer.
func (g *Gatherer) Close() {
	for i := range g.sources {
		if b := g.sources[i].b; b != nil {
			b.Unref()
			g.sources[i].b = nil
		}
	}
}

func (g *Gatherer) nextPassThrough() (batch.Column, error) {
	s := &g.sources[0]
	for {
		b, err := s.src.NextBatch()
		if err != nil {
			return nil, err
		}
		if b == nil {
			continue
		}
		if b.NumRows() == 0 {
			b.Unref()
			continue
		}
		i, err := g.columnIndex(0, b)
		if err != nil {
			b.Unref()
			return nil, err
		}
		// Copy the column out, since dropping the reference may recycle the
		// batch's buffers.
		src := b.Column(i)
		for r := 0; r < src.Len(); r++ {
			g.out.AppendFrom(src, r)
		}
		b.Unref()
		return g.out.Finish(), nil
	}
}

func (g *Gatherer) gather() (batch.Column, error) {
	for g.out == nil || g.out.Len() < g.maxRows {
		rec, err := g.rd.Next()
		if err == io.EOF {
			if err := g.checkExhausted(); err != nil {
				return nil, err
			}
			if g.out == nil || g.out.Len() == 0 {
				return nil, io.EOF
			}
			return g.out.Finish(), nil
		} else if err != nil {
			return nil, errors.Wrap(err, "provenance: reading row sources")
		}
		ord := rec.Source()
		if ord >= len(g.sources) {
			return nil, base.CorruptionErrorf("provenance: record %s references source %d of %d",
				rec, errors.Safe(ord), errors.Safe(len(g.sources)))
		}
		s := &g.sources[ord]
		if s.b == nil || s.pos >= s.b.NumRows() {
			if err := g.load(ord); err != nil {
				return nil, err
			}
		}
		if !rec.Skipped() {
			g.out.AppendFrom(s.b.Column(s.col), s.pos)
		}
		s.pos++
	}
	return g.out.Finish(), nil
}

// load replaces the exhausted batch of source ord with its next non-empty
// batch.
func (g *Gatherer) load(ord int) error {
	s := &g.sources[ord]
	if s.b != nil {
		s.b.Unref()
		s.b = nil
	}
	for {
		b, err := s.src.NextBatch()
		if err == io.EOF {
			return base.CorruptionErrorf("provenance: row sources reference more rows than source %d holds",
				errors.Safe(ord))
		} else if err != nil {
			return errors.Wrapf(err, "provenance: source %d", errors.Safe(ord))
		}
		if b == nil {
			continue
		}
		if b.NumRows() == 0 {
			b.Unref()
			continue
		}
		col, err := g.columnIndex(ord, b)
		if err != nil {
			b.Unref()
			return err
		}
		s.b, s.col, s.pos = b, col, 0
		return nil
	}
}

// columnIndex resolves the gathered column in b. The first batch seen fixes
// the column type.
func (g *Gatherer) columnIndex(ord int, b *batch.Batch) (int, error) {
	i, ok := b.Schema().Index(g.column)
	if !ok {
		return 0, errors.Newf("provenance: source %d has no column %q (schema %s)",
			errors.Safe(ord), g.column, b.Schema())
	}
	t := b.Schema().Column(i).Type
	if g.typ == batch.ColumnTypeInvalid {
		g.typ = t
		g.out = batch.NewColumnBuilder(t)
	} else if t != g.typ {
		return 0, errors.Newf("provenance: source %d: column %q has type %s, expected %s",
			errors.Safe(ord), g.column, t, g.typ)
	}
	return i, nil
}

// checkExhausted verifies that the stream accounted for every row of the
// batches currently loaded.
func (g *Gatherer) checkExhausted() error {
	for i := range g.sources {
		s := &g.sources[i]
		if s.b != nil && s.pos < s.b.NumRows() {
			return base.CorruptionErrorf("provenance: %d rows of source %d not covered by row sources",
				errors.Safe(s.b.NumRows()-s.pos), errors.Safe(i))
		}
	}
	return nil
}
