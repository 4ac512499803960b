// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"io"
	"strings"

	"github.com/mergetree/mergetree/batch"
	"github.com/olekukonko/tablewriter"
)

// splitList splits a comma separated flag value, dropping empty elements.
func splitList(s string) []string {
	var res []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			res = append(res, f)
		}
	}
	return res
}

// newTable returns a table writer with the formatting shared by all tools.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader(header)
	tbl.SetAutoFormatHeaders(false)
	tbl.SetAutoWrapText(false)
	return tbl
}

// columnNames returns the names of the columns of s.
func columnNames(s *batch.Schema) []string {
	names := make([]string, s.NumColumns())
	for i := range names {
		names[i] = s.Column(i).Name
	}
	return names
}

// appendRows appends rows [0, n) of b to tbl.
func appendRows(tbl *tablewriter.Table, b *batch.Batch, n int) {
	row := make([]string, b.NumColumns())
	for i := 0; i < n; i++ {
		for c := range row {
			row[c] = b.Column(c).Format(i)
		}
		tbl.Append(row)
	}
}

func errorf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}
