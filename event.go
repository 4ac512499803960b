// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mergetree

import (
	"strings"

	"github.com/cockroachdb/redact"
)

// MergeBeginInfo contains the info for a merge begin event.
type MergeBeginInfo struct {
	// Sources is the number of sources configured for the merge.
	Sources int
	// PassThrough is true if the merge forwards a single source unchanged.
	PassThrough bool
	// PrimaryKey and VersionColumn echo the merge options.
	PrimaryKey    []string
	VersionColumn string
}

// String implements fmt.Stringer.
func (i MergeBeginInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i MergeBeginInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	mode := "replacing"
	if i.PassThrough {
		mode = "pass-through"
	}
	w.Printf("[JOB] merging %d sources (%s) on key (%s)",
		redact.Safe(i.Sources), redact.SafeString(mode), redact.SafeString(strings.Join(i.PrimaryKey, ",")))
	if i.VersionColumn != "" {
		w.Printf(" version %s", redact.SafeString(i.VersionColumn))
	}
}

// BatchInfo contains the info for a batch emitted event.
type BatchInfo struct {
	// Index is the zero-based position of the batch in the merge output.
	Index int
	// Rows is the number of rows in the batch.
	Rows int
	// PassThrough is true if the batch was forwarded unchanged from the only
	// source.
	PassThrough bool
}

// String implements fmt.Stringer.
func (i BatchInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i BatchInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("[JOB] batch %d: %d rows", redact.Safe(i.Index), redact.Safe(i.Rows))
	if i.PassThrough {
		w.SafeString(" (pass-through)")
	}
}

// MergeEndInfo contains the info for a merge end event.
type MergeEndInfo struct {
	Metrics Metrics
	Err     error
}

// String implements fmt.Stringer.
func (i MergeEndInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i MergeEndInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	if i.Err != nil {
		w.Printf("[JOB] merge error: %s", i.Err)
		return
	}
	w.Printf("[JOB] merged %d rows into %d rows in %d batches (%s)",
		redact.Safe(i.Metrics.RowsRead), redact.Safe(i.Metrics.RowsWritten),
		redact.Safe(i.Metrics.Batches), redact.Safe(i.Metrics.Duration))
}

// EventListener contains a set of functions that will be invoked when various
// significant merge events occur. Note that the functions should not run for
// an excessive amount of time as they are invoked synchronously by the merge.
type EventListener struct {
	// MergeBegin is invoked once the merge has validated its options and
	// opened its sources, before any output is produced.
	MergeBegin func(MergeBeginInfo)

	// BatchEmitted is invoked for every batch returned by the merge.
	BatchEmitted func(BatchInfo)

	// MergeEnd is invoked when the merge finishes or fails.
	MergeEnd func(MergeEndInfo)
}

// EnsureDefaults ensures that background error events are logged to the
// specified logger if a handler for those events hasn't been otherwise
// specified. Ensure all handlers are non-nil so that we don't have to check
// for nil-ness before invoking.
func (l *EventListener) EnsureDefaults(logger Logger) {
	if l.MergeBegin == nil {
		l.MergeBegin = func(info MergeBeginInfo) {}
	}
	if l.BatchEmitted == nil {
		l.BatchEmitted = func(info BatchInfo) {}
	}
	if l.MergeEnd == nil {
		if logger != nil {
			l.MergeEnd = func(info MergeEndInfo) {
				if info.Err != nil {
					logger.Errorf("%s", info)
				}
			}
		} else {
			l.MergeEnd = func(info MergeEndInfo) {}
		}
	}
}

// MakeLoggingEventListener creates an EventListener that logs all events to the
// specified logger.
func MakeLoggingEventListener(logger Logger) EventListener {
	if logger == nil {
		logger = DefaultLogger
	}

	return EventListener{
		MergeBegin: func(info MergeBeginInfo) {
			logger.Infof("%s", info)
		},
		BatchEmitted: func(info BatchInfo) {
			logger.Infof("%s", info)
		},
		MergeEnd: func(info MergeEndInfo) {
			if info.Err != nil {
				logger.Errorf("%s", info)
				return
			}
			logger.Infof("%s", info)
		},
	}
}
