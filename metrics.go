// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mergetree

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/redact"
)

// maxTrackedGroupSize bounds the group-size histogram. Larger groups are
// recorded as this value.
const maxTrackedGroupSize = 1 << 20

// Metrics holds counters describing a merge.
type Metrics struct {
	// Sources is the number of sources configured for the merge.
	Sources int
	// PassThrough is true if the single source was forwarded unchanged.
	PassThrough bool
	// RowsRead is the number of input rows consumed.
	RowsRead int64
	// RowsWritten is the number of rows in the returned batches.
	RowsWritten int64
	// Superseded is the number of input rows dropped from committed key
	// groups because another row with the same key won. Rows of the group
	// still open are not counted.
	Superseded int64
	// RowSources is the number of provenance records written.
	RowSources int64
	// Batches is the number of batches returned.
	Batches int64
	// Duration is the wall time from the first call to Next until the merge
	// finished.
	Duration time.Duration
	// GroupSizes is the distribution of the number of input rows per key
	// group. It is empty for pass-through merges.
	GroupSizes *hdrhistogram.Histogram
}

func newGroupSizeHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, maxTrackedGroupSize, 2)
}

func (m *Metrics) recordGroup(rows int64) {
	if m.GroupSizes == nil {
		m.GroupSizes = newGroupSizeHistogram()
	}
	_ = m.GroupSizes.RecordValue(min(rows, maxTrackedGroupSize))
}

// RowsSuperseded returns the number of input rows that were dropped because a
// row with the same key won.
func (m *Metrics) RowsSuperseded() int64 {
	return m.Superseded
}

// String pretty-prints the metrics.
func (m *Metrics) String() string {
	return redact.StringWithoutMarkers(m)
}

var _ redact.SafeFormatter = &Metrics{}

// SafeFormat implements redact.SafeFormatter.
func (m *Metrics) SafeFormat(w redact.SafePrinter, _ rune) {
	mode := redact.SafeString("replacing")
	if m.PassThrough {
		mode = "pass-through"
	}
	w.Printf("sources: %d (%s)\n", redact.Safe(m.Sources), mode)
	w.Printf("rows: read %d written %d superseded %d\n",
		redact.Safe(m.RowsRead), redact.Safe(m.RowsWritten), redact.Safe(m.RowsSuperseded()))
	w.Printf("batches: %d row-sources: %d\n", redact.Safe(m.Batches), redact.Safe(m.RowSources))
	if h := m.GroupSizes; h != nil && h.TotalCount() > 0 {
		w.Printf("group sizes: mean %.2f p50 %d p99 %d max %d\n",
			redact.Safe(h.Mean()), redact.Safe(h.ValueAtQuantile(50)),
			redact.Safe(h.ValueAtQuantile(99)), redact.Safe(h.Max()))
	}
	w.Printf("duration: %s\n", redact.Safe(m.Duration))
}
