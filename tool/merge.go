// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree"
	"github.com/mergetree/mergetree/internal/base"
	"github.com/mergetree/mergetree/segment"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// mergeT implements the merge tool.
type mergeT struct {
	Root *cobra.Command

	t           *T
	key         string
	version     string
	maxRows     int
	rowSources  string
	optionsPath string
	compression string
	stats       bool
	verbose     bool
}

func newMerge(t *T) *mergeT {
	m := &mergeT{t: t}
	m.Root = &cobra.Command{
		Use:   "merge <out-segment> <in-segments>...",
		Short: "replacing merge of sorted segments",
		Long: `
Merge segments sorted by --key into a single segment holding one row per key.
Of the rows sharing a key, the row with the largest --version wins; among
equal versions the row from the later segment wins. With a single input the
segment is copied unchanged.
`,
		Args: cobra.MinimumNArgs(2),
		Run:  m.run,
	}
	m.Root.Flags().StringVar(
		&m.key, "key", "", "comma separated primary key columns")
	m.Root.Flags().StringVar(
		&m.version, "version", "", "uint64 version column (default: last row wins)")
	m.Root.Flags().IntVar(
		&m.maxRows, "max-rows", 0, "maximum rows per output block")
	m.Root.Flags().StringVar(
		&m.rowSources, "row-sources", "", "write the row-source stream to this file")
	m.Root.Flags().StringVar(
		&m.optionsPath, "options", "", "read merge options from this file; flags override it")
	m.Root.Flags().StringVar(
		&m.compression, "compression", "snappy", "output block compression (none, snappy, zstd, minlz)")
	m.Root.Flags().BoolVar(
		&m.stats, "stats", false, "print merge metrics")
	m.Root.Flags().BoolVarP(
		&m.verbose, "verbose", "v", false, "log merge events")
	return m
}

func (m *mergeT) run(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	metrics, meta, err := m.runMerge(args[0], args[1:])
	if err != nil {
		errorf(stderr, "%s", err)
		return
	}
	fmt.Fprintf(stdout, "%s: merged %d rows from %d segments into %d rows in %d blocks\n",
		args[0], metrics.RowsRead, len(args)-1, meta.Rows, meta.Blocks)
	if m.stats {
		fmt.Fprintf(stdout, "%s", &metrics)
	}
}

func (m *mergeT) options() (*mergetree.Options, error) {
	opts := &mergetree.Options{}
	if m.optionsPath != "" {
		data, err := afero.ReadFile(m.t.fs, m.optionsPath)
		if err != nil {
			return nil, err
		}
		if err := opts.Parse(string(data), nil); err != nil {
			return nil, err
		}
	}
	if m.key != "" {
		opts.PrimaryKey = splitList(m.key)
	}
	if m.version != "" {
		opts.VersionColumn = m.version
	}
	if m.maxRows > 0 {
		opts.MaxBatchRows = m.maxRows
	}
	opts.Logger = base.NoopLogger{}
	if m.verbose {
		opts.Logger = m.t.logger
		el := mergetree.MakeLoggingEventListener(m.t.logger)
		opts.EventListener = &el
	}
	return opts, nil
}

// openAll opens the input segments concurrently.
func (m *mergeT) openAll(paths []string) ([]*segment.Reader, error) {
	readers := make([]*segment.Reader, len(paths))
	var g errgroup.Group
	for i := range paths {
		g.Go(func() error {
			r, err := segment.Open(m.t.fs, paths[i])
			readers[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, r := range readers {
			if r != nil {
				_ = r.Close()
			}
		}
		return nil, err
	}
	return readers, nil
}

func (m *mergeT) runMerge(
	out string, in []string,
) (_ mergetree.Metrics, _ segment.WriterMetadata, err error) {
	var metrics mergetree.Metrics
	var meta segment.WriterMetadata
	opts, err := m.options()
	if err != nil {
		return metrics, meta, err
	}
	c, err := segment.ParseCompression(m.compression)
	if err != nil {
		return metrics, meta, err
	}

	readers, err := m.openAll(in)
	if err != nil {
		return metrics, meta, err
	}
	sources := make([]mergetree.Source, len(readers))
	for i, r := range readers {
		sources[i] = r
		defer r.Close()
	}

	if m.rowSources != "" {
		f, err := m.t.fs.Create(m.rowSources)
		if err != nil {
			return metrics, meta, err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		opts.RowSources = f
	}

	merger := mergetree.NewReplacingMerger(sources, opts)
	defer merger.Close()

	w, err := segment.Create(m.t.fs, out, readers[0].Schema(), segment.WriterOptions{Compression: c})
	if err != nil {
		return metrics, meta, err
	}
	for {
		b, err := merger.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			_ = w.Close()
			return metrics, meta, errors.Wrapf(err, "merging into %s", out)
		}
		err = w.Add(b)
		b.Unref()
		if err != nil {
			_ = w.Close()
			return metrics, meta, err
		}
	}
	if err := merger.Close(); err != nil {
		_ = w.Close()
		return metrics, meta, err
	}
	if err := w.Close(); err != nil {
		return metrics, meta, err
	}
	return merger.Metrics(), w.Metadata(), nil
}
