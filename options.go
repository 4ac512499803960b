// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mergetree

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/internal/base"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxBatchRows is the default value of Options.MaxBatchRows.
const DefaultMaxBatchRows = 8192

// Logger exports the base.Logger type.
type Logger = base.Logger

// DefaultLogger exports the base.DefaultLogger value.
var DefaultLogger = base.DefaultLogger

// ErrInvalidOptions marks errors caused by a configuration that the merge
// cannot honor. These are caller contract violations and are never retried.
var ErrInvalidOptions = errors.New("mergetree: invalid options")

// ErrCollationUnsupported is returned (marked with ErrInvalidOptions as well)
// when a collation is configured for any column. The replacing merge only
// orders keys by their natural value.
var ErrCollationUnsupported = errors.New("mergetree: collations are not supported by the replacing merge")

// Options holds the configuration of a ReplacingMerger.
type Options struct {
	// PrimaryKey lists the columns, in order, that rows are sorted and grouped
	// by. Required.
	PrimaryKey []string

	// VersionColumn names the uint64 column used to pick the surviving row of
	// a key group: the row with the largest version wins, and among equal
	// versions the one merged last wins. If empty every row has version 0, so
	// the last row merged for a key wins.
	VersionColumn string

	// MaxBatchRows is the number of rows at which an output batch is returned.
	// The threshold is only checked between key groups.
	//
	// The default value is 8192.
	MaxBatchRows int

	// RowSources, if set, receives the provenance stream: one byte per input
	// row consumed by the merge recording its source ordinal and whether the
	// row was superseded. See package provenance.
	RowSources io.Writer

	// Collations maps column names to collation names. The replacing merge
	// does not support collations and fails on the first call to Next if any
	// are configured.
	Collations map[string]string

	// Logger used to write log messages.
	//
	// The default logger uses the Go standard library log package.
	Logger Logger

	// EventListener provides hooks to listening to significant merge events.
	// By default no hooks are set.
	EventListener *EventListener

	// OutputRowsHistogram, if set, observes the row count of every batch
	// returned by the merge.
	OutputRowsHistogram prometheus.Histogram
}

// Clone creates a shallow-copy of the supplied options.
func (o *Options) Clone() *Options {
	n := &Options{}
	if o != nil {
		*n = *o
		n.PrimaryKey = append([]string(nil), o.PrimaryKey...)
		if o.Collations != nil {
			n.Collations = make(map[string]string, len(o.Collations))
			for k, v := range o.Collations {
				n.Collations[k] = v
			}
		}
	}
	return n
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified.
func (o *Options) EnsureDefaults() {
	if o.MaxBatchRows <= 0 {
		o.MaxBatchRows = DefaultMaxBatchRows
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	if o.EventListener == nil {
		o.EventListener = &EventListener{}
	}
	o.EventListener.EnsureDefaults(o.Logger)
}

// Validate verifies that the options are mutually consistent. It presumes
// EnsureDefaults has been called. The returned error is marked with
// ErrInvalidOptions, and additionally with ErrCollationUnsupported if a
// collation is configured.
func (o *Options) Validate() error {
	if len(o.Collations) > 0 {
		cols := make([]string, 0, len(o.Collations))
		for c := range o.Collations {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		err := errors.Newf("mergetree: collation configured for column(s) %s",
			strings.Join(cols, ", "))
		return errors.Mark(errors.Mark(err, ErrCollationUnsupported), ErrInvalidOptions)
	}

	var buf strings.Builder
	if len(o.PrimaryKey) == 0 {
		fmt.Fprintf(&buf, "PrimaryKey must name at least one column\n")
	}
	seen := make(map[string]bool, len(o.PrimaryKey))
	for _, c := range o.PrimaryKey {
		if c == "" {
			fmt.Fprintf(&buf, "PrimaryKey contains an empty column name\n")
		} else if seen[c] {
			fmt.Fprintf(&buf, "PrimaryKey lists column %q twice\n", c)
		}
		seen[c] = true
	}
	if o.VersionColumn != "" && seen[o.VersionColumn] {
		fmt.Fprintf(&buf, "VersionColumn %q is part of the PrimaryKey\n", o.VersionColumn)
	}
	if o.MaxBatchRows < 1 {
		fmt.Fprintf(&buf, "MaxBatchRows (%d) must be >= 1\n", o.MaxBatchRows)
	}
	if buf.Len() == 0 {
		return nil
	}
	return errors.Mark(errors.New(strings.TrimSuffix(buf.String(), "\n")), ErrInvalidOptions)
}

// String implements fmt.Stringer. The output can be parsed by Options.Parse.
// Only the serializable fields are included.
func (o *Options) String() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[Version]\n")
	fmt.Fprintf(&buf, "  mergetree_version=0.1\n")
	fmt.Fprintf(&buf, "\n")
	fmt.Fprintf(&buf, "[Options]\n")
	fmt.Fprintf(&buf, "  max_batch_rows=%d\n", o.MaxBatchRows)
	fmt.Fprintf(&buf, "  primary_key=%s\n", strings.Join(o.PrimaryKey, ","))
	fmt.Fprintf(&buf, "  version_column=%s\n", o.VersionColumn)

	if len(o.Collations) > 0 {
		cols := make([]string, 0, len(o.Collations))
		for c := range o.Collations {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		fmt.Fprintf(&buf, "\n")
		fmt.Fprintf(&buf, "[Collations]\n")
		for _, c := range cols {
			fmt.Fprintf(&buf, "  %s=%s\n", c, o.Collations[c])
		}
	}
	return buf.String()
}

// ParseHooks contains callbacks for option keys the parser does not know.
type ParseHooks struct {
	SkipUnknown func(name, value string) bool
}

// Parse parses the options from the specified string, in the format produced
// by Options.String. Lines starting with ';' or '#' are comments.
func (o *Options) Parse(s string, hooks *ParseHooks) error {
	var section string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' || line[0] == '#' {
			continue
		}
		n := len(line)
		if line[0] == '[' && line[n-1] == ']' {
			section = line[1 : n-1]
			continue
		}

		pos := strings.Index(line, "=")
		if pos < 0 {
			const maxLen = 50
			if len(line) > maxLen {
				line = line[:maxLen-3] + "..."
			}
			return base.CorruptionErrorf("invalid key=value syntax: %q", errors.Safe(line))
		}
		key := strings.TrimSpace(line[:pos])
		value := strings.TrimSpace(line[pos+1:])

		var err error
		switch section {
		case "Version":
			switch key {
			case "mergetree_version":
			default:
				err = o.unknownOption(hooks, section, key, value)
			}
		case "Options":
			switch key {
			case "max_batch_rows":
				o.MaxBatchRows, err = strconv.Atoi(value)
			case "primary_key":
				o.PrimaryKey = o.PrimaryKey[:0]
				for _, c := range strings.Split(value, ",") {
					if c = strings.TrimSpace(c); c != "" {
						o.PrimaryKey = append(o.PrimaryKey, c)
					}
				}
			case "version_column":
				o.VersionColumn = value
			default:
				err = o.unknownOption(hooks, section, key, value)
			}
		case "Collations":
			if o.Collations == nil {
				o.Collations = make(map[string]string)
			}
			o.Collations[key] = value
		default:
			err = o.unknownOption(hooks, section, key, value)
		}
		if err != nil {
			return errors.Wrapf(err, "mergetree: parsing %s.%s", errors.Safe(section), errors.Safe(key))
		}
	}
	return nil
}

func (o *Options) unknownOption(hooks *ParseHooks, section, key, value string) error {
	if hooks != nil && hooks.SkipUnknown != nil && hooks.SkipUnknown(section+"."+key, value) {
		return nil
	}
	return errors.Errorf("mergetree: unknown option: %s.%s",
		errors.Safe(section), errors.Safe(key))
}
