// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"io"

	"github.com/mergetree/mergetree/segment"
	"github.com/spf13/cobra"
)

// dumpT implements the dump tool.
type dumpT struct {
	Root *cobra.Command

	t     *T
	limit int
}

func newDump(t *T) *dumpT {
	d := &dumpT{t: t}
	d.Root = &cobra.Command{
		Use:   "dump <segment>",
		Short: "print the rows of a segment",
		Args:  cobra.ExactArgs(1),
		Run:   d.run,
	}
	d.Root.Flags().IntVar(
		&d.limit, "limit", 0, "maximum number of rows to print (0 prints all)")
	return d
}

func (d *dumpT) run(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	r, err := segment.Open(d.t.fs, args[0])
	if err != nil {
		errorf(stderr, "%s", err)
		return
	}
	defer r.Close()

	fmt.Fprintf(stdout, "schema: %s\n", r.Schema())
	tbl := newTable(stdout, columnNames(r.Schema())...)
	var rows, printed, batches int
	for {
		b, err := r.NextBatch()
		if err == io.EOF {
			break
		} else if err != nil {
			tbl.Render()
			errorf(stderr, "%s", err)
			return
		}
		n := b.NumRows()
		if d.limit > 0 {
			n = min(n, d.limit-printed)
		}
		appendRows(tbl, b, n)
		printed += n
		rows += b.NumRows()
		batches++
		b.Unref()
	}
	tbl.Render()
	fmt.Fprintf(stdout, "%d rows in %d batches\n", rows, batches)
}
