// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mergetree

import (
	"io"
	"strings"

	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/batch"
	"github.com/mergetree/mergetree/internal/invariants"
	"github.com/mergetree/mergetree/provenance"
)

// ReplacingMerger merges N key-sorted sources into a single key-sorted stream
// in which every primary key appears once. Of all the rows sharing a key, the
// one with the largest version survives; among rows with equal versions the
// one merged last survives, where rows with equal keys are merged in
// ascending source order. For example, with sources
//
//	0: (k=1 v=1 "a") (k=2 v=1 "x")
//	1: (k=1 v=2 "b") (k=3 v=1 "y")
//
// the output is (k=1 "b") (k=2 "x") (k=3 "y").
//
// Output is produced in batches by repeated calls to Next. Each call consumes
// input until the output batch holds Options.MaxBatchRows rows and the next
// input row starts a new key, so a key group is never split across calls; the
// open group, its current winner and its pending provenance records carry
// over to the next call.
//
// A merge configured with exactly one source forwards that source's batches
// unchanged and writes no provenance records: with nothing to merge against
// there is nothing to replace. Sources are expected to be free of duplicate
// keys internally.
//
// ReplacingMerger is not safe for concurrent use.
type ReplacingMerger struct {
	opts    *Options
	sources []Source
	cursors []sourceCursor

	frontier   mergeFrontier
	schema     *batch.Schema
	keyCols    []int
	versionCol int

	initialized bool
	passThrough bool
	finished    bool
	closed      bool
	err         error

	// currentKey references the first row of the open key group. nextKey
	// references the row at the top of the frontier while it is compared
	// against currentKey.
	currentKey batch.RowRef
	nextKey    batch.RowRef
	// selected references the winning row of the open group. It is empty
	// between groups.
	selected   batch.RowRef
	maxVersion uint64
	groupRows  int64

	// rowSources holds the provenance records of the open group, all with the
	// skip flag set except while being written. selectedSource is the index
	// of the winner's record.
	rowSources     []provenance.RowSource
	selectedSource int
	rowSourcesW    *provenance.Writer

	out     *batch.Builder
	start   crtime.Mono
	metrics Metrics
}

// NewReplacingMerger returns a merger over the given sources. The ordinal of a
// source is its index in the slice. Options are validated on the first call
// to Next.
func NewReplacingMerger(sources []Source, opts *Options) *ReplacingMerger {
	opts = opts.Clone()
	opts.EnsureDefaults()
	m := &ReplacingMerger{
		opts:       opts,
		sources:    sources,
		versionCol: -1,
	}
	m.metrics.Sources = len(sources)
	return m
}

// Next returns the next batch of merged rows. It returns io.EOF once every
// source is exhausted and the last key group was returned; calling Next again
// keeps returning io.EOF. Any other error is sticky. The caller owns the
// returned batch's reference.
func (m *ReplacingMerger) Next() (*batch.Batch, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.closed {
		return nil, errors.New("mergetree: merger is closed")
	}
	if m.finished {
		return nil, io.EOF
	}
	if !m.initialized {
		m.initialized = true
		m.start = crtime.NowMono()
		if err := m.init(); err != nil {
			return nil, m.fail(err)
		}
		if m.finished {
			return nil, io.EOF
		}
	}

	var b *batch.Batch
	var err error
	if m.passThrough {
		b, err = m.nextPassThrough()
	} else {
		b, err = m.merge()
	}
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, m.fail(err)
	}
	m.emitted(b)
	return b, nil
}

// Finished returns true once the merge has consumed all its sources and
// returned all its output.
func (m *ReplacingMerger) Finished() bool {
	return m.finished
}

// Metrics returns the merge's counters so far.
func (m *ReplacingMerger) Metrics() Metrics {
	mt := m.metrics
	if !m.finished && m.initialized {
		mt.Duration = m.start.Elapsed()
	}
	return mt
}

// Close releases every batch reference held by the merge and flushes the
// provenance stream. A merge may be closed before it finished. Close does not
// close the sources.
//
// Provenance records of a key group still open are dropped, so the stream
// written so far ends on a key group boundary and describes exactly the rows
// returned.
func (m *ReplacingMerger) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.release()
	if m.rowSourcesW != nil {
		if err := m.rowSourcesW.Flush(); err != nil && m.err == nil {
			return err
		}
	}
	return nil
}

func (m *ReplacingMerger) init() error {
	if err := m.opts.Validate(); err != nil {
		return err
	}
	switch len(m.sources) {
	case 0:
		m.opts.EventListener.MergeBegin(m.beginInfo())
		m.finish()
		return nil
	case 1:
		m.passThrough = true
		m.metrics.PassThrough = true
		m.opts.Logger.Infof("mergetree: single source, passing batches through")
		m.opts.EventListener.MergeBegin(m.beginInfo())
		return nil
	}
	if m.opts.RowSources != nil {
		if len(m.sources) > provenance.MaxSources {
			return errors.Mark(errors.Newf(
				"mergetree: %d sources exceed the %d supported when recording row sources",
				errors.Safe(len(m.sources)), errors.Safe(provenance.MaxSources)), ErrInvalidOptions)
		}
		m.rowSourcesW = provenance.NewWriter(m.opts.RowSources)
	}

	m.cursors = make([]sourceCursor, len(m.sources))
	for i := range m.cursors {
		c := &m.cursors[i]
		c.ordinal, c.src = i, m.sources[i]
		ok, err := c.refill()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if m.schema == nil {
			m.schema = c.b.Schema()
		} else if !c.b.Schema().Equal(m.schema) {
			return errors.Mark(errors.Newf(
				"mergetree: source %d: schema %s does not match %s",
				errors.Safe(i), c.b.Schema(), m.schema), ErrInvalidOptions)
		}
		m.frontier.items = append(m.frontier.items, frontierItem{sourceCursor: c})
	}
	if m.schema == nil {
		// Every source was empty.
		m.opts.EventListener.MergeBegin(m.beginInfo())
		m.finish()
		return nil
	}
	if err := m.resolveColumns(m.schema); err != nil {
		return err
	}
	for i := range m.cursors {
		m.cursors[i].schema = m.schema
		m.cursors[i].keyCols = m.keyCols
	}
	m.frontier.init()
	m.out = batch.NewBuilder(m.schema)
	m.opts.Logger.Infof("mergetree: merging %d sources (%d non-empty) on key %s",
		len(m.sources), m.frontier.len(), strings.Join(m.opts.PrimaryKey, ","))
	m.opts.EventListener.MergeBegin(m.beginInfo())
	return nil
}

func (m *ReplacingMerger) beginInfo() MergeBeginInfo {
	return MergeBeginInfo{
		Sources:       len(m.sources),
		PassThrough:   m.passThrough,
		PrimaryKey:    m.opts.PrimaryKey,
		VersionColumn: m.opts.VersionColumn,
	}
}

// resolveColumns maps the key and version column names to positions in
// schema.
func (m *ReplacingMerger) resolveColumns(schema *batch.Schema) error {
	keyCols, err := schema.Indices(m.opts.PrimaryKey)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "mergetree: primary key"), ErrInvalidOptions)
	}
	m.keyCols = keyCols
	if m.opts.VersionColumn == "" {
		return nil
	}
	col, ok := schema.Index(m.opts.VersionColumn)
	if !ok {
		return errors.Mark(errors.Newf("mergetree: unknown version column %q (schema %s)",
			m.opts.VersionColumn, schema), ErrInvalidOptions)
	}
	if t := schema.Column(col).Type; t != batch.ColumnTypeUint64 {
		return errors.Mark(errors.Newf("mergetree: version column %q has type %s, expected %s",
			m.opts.VersionColumn, t, batch.ColumnTypeUint64), ErrInvalidOptions)
	}
	m.versionCol = col
	return nil
}

// nextPassThrough forwards the next non-empty batch of the only source.
func (m *ReplacingMerger) nextPassThrough() (*batch.Batch, error) {
	for {
		b, err := m.sources[0].NextBatch()
		if err == io.EOF {
			m.finish()
			return nil, io.EOF
		} else if err != nil {
			return nil, errors.Wrap(err, "mergetree: source 0")
		}
		if b == nil || b.NumRows() == 0 {
			if b != nil {
				b.Unref()
			}
			continue
		}
		if m.schema == nil {
			if err := m.resolveColumns(b.Schema()); err != nil {
				b.Unref()
				return nil, err
			}
			m.schema = b.Schema()
		}
		m.metrics.RowsRead += int64(b.NumRows())
		return b, nil
	}
}

// merge produces the next output batch of a multi-source merge.
func (m *ReplacingMerger) merge() (*batch.Batch, error) {
	for m.frontier.len() > 0 {
		cur := m.frontier.top()
		if m.currentKey.Empty() {
			m.currentKey.Set(cur.b, cur.pos)
		}

		var version uint64
		if m.versionCol >= 0 {
			version = cur.version(m.versionCol)
		}

		m.nextKey.Set(cur.b, cur.pos)
		keyDiffers := !m.nextKey.Equal(m.keyCols, &m.currentKey)

		// Return once the batch is full and the open group is complete. The
		// open group stays pending for the next call.
		if keyDiffers && m.out.NumRows() >= m.opts.MaxBatchRows {
			return m.out.Finish(), nil
		}

		if keyDiffers {
			m.maxVersion = 0
			if err := m.insertRow(); err != nil {
				return nil, err
			}
			m.currentKey.Swap(&m.nextKey)
		}

		// Every row starts out skipped; insertRow unskips the winner.
		if m.rowSourcesW != nil {
			m.rowSources = append(m.rowSources, provenance.MakeRowSource(cur.ordinal, true))
		}

		// A non-strict comparison, so that the last row merged wins among
		// rows with equal versions.
		if version >= m.maxVersion {
			m.maxVersion = version
			m.selected.Set(cur.b, cur.pos)
			m.selectedSource = len(m.rowSources) - 1
		}
		m.groupRows++
		m.metrics.RowsRead++

		if !cur.isLast() {
			cur.next()
			m.frontier.fixTop()
			continue
		}
		ok, err := cur.refill()
		if err != nil {
			return nil, err
		}
		if ok {
			m.frontier.fixTop()
		} else {
			m.frontier.pop()
		}
	}

	// Write the last key group. The merge is finished on the following call,
	// once the final batch has been returned and accounted for.
	if err := m.insertRow(); err != nil {
		return nil, err
	}
	if m.out.NumRows() > 0 {
		return m.out.Finish(), nil
	}
	m.finish()
	if m.err != nil {
		return nil, m.err
	}
	return nil, io.EOF
}

// insertRow closes the open key group: it copies the winning row to the
// output and writes the group's provenance records with the winner unskipped.
// It is a no-op if no group is open.
func (m *ReplacingMerger) insertRow() error {
	if m.selected.Empty() {
		return nil
	}
	if m.rowSourcesW != nil {
		m.rowSources[m.selectedSource] = m.rowSources[m.selectedSource].WithSkip(false)
		if err := m.rowSourcesW.Write(m.rowSources); err != nil {
			return err
		}
		m.metrics.RowSources += int64(len(m.rowSources))
		m.rowSources = m.rowSources[:0]
	}
	m.out.AppendRef(&m.selected)
	m.selected.Reset()
	m.metrics.recordGroup(m.groupRows)
	m.metrics.Superseded += m.groupRows - 1
	m.groupRows = 0
	return nil
}

func (m *ReplacingMerger) emitted(b *batch.Batch) {
	info := BatchInfo{
		Index:       int(m.metrics.Batches),
		Rows:        b.NumRows(),
		PassThrough: m.passThrough,
	}
	m.metrics.Batches++
	m.metrics.RowsWritten += int64(b.NumRows())
	if h := m.opts.OutputRowsHistogram; h != nil {
		h.Observe(float64(b.NumRows()))
	}
	m.opts.EventListener.BatchEmitted(info)
}

// finish marks the merge done, drops every batch reference and flushes the
// provenance stream. A flush failure is recorded in m.err.
func (m *ReplacingMerger) finish() {
	m.finished = true
	m.metrics.Duration = m.start.Elapsed()
	if invariants.Enabled {
		if n := invariants.SafeSub(m.metrics.RowsRead, m.metrics.RowsWritten); n != m.metrics.Superseded {
			panic(errors.AssertionFailedf("mergetree: %d rows superseded, expected %d",
				errors.Safe(m.metrics.Superseded), errors.Safe(n)))
		}
	}
	m.release()
	if m.rowSourcesW != nil {
		if err := m.rowSourcesW.Flush(); err != nil {
			m.err = err
		}
	}
	if m.err == nil {
		m.opts.Logger.Infof("mergetree: merge finished\n%s", &m.metrics)
	}
	m.opts.EventListener.MergeEnd(MergeEndInfo{Metrics: m.metrics, Err: m.err})
}

// fail records a sticky error.
func (m *ReplacingMerger) fail(err error) error {
	m.err = err
	m.release()
	if !m.finished {
		m.metrics.Duration = m.start.Elapsed()
		m.opts.EventListener.MergeEnd(MergeEndInfo{Metrics: m.metrics, Err: err})
	}
	return err
}

func (m *ReplacingMerger) release() {
	m.currentKey.Reset()
	m.nextKey.Reset()
	m.selected.Reset()
	for i := range m.cursors {
		m.cursors[i].close()
	}
	m.frontier.clear()
}
