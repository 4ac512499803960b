// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/mergetree/mergetree/batch"
	"github.com/mergetree/mergetree/segment"
	"github.com/spf13/cobra"
)

// importT implements the import tool.
type importT struct {
	Root *cobra.Command

	t            *T
	schema       string
	rowsPerBatch int
	compression  string
}

func newImport(t *T) *importT {
	i := &importT{t: t}
	i.Root = &cobra.Command{
		Use:   "import <csv> <segment>",
		Short: "convert a CSV file into a segment",
		Long: `
Convert a CSV file into a segment. The first line of the CSV file must name
the columns of --schema, in order. Rows must already be sorted by the key the
segment will be merged on.
`,
		Args: cobra.ExactArgs(2),
		Run:  i.run,
	}
	i.Root.Flags().StringVar(
		&i.schema, "schema", "", "columns as name:type,... (types: uint64, int64, bytes)")
	i.Root.Flags().IntVar(
		&i.rowsPerBatch, "rows-per-batch", 1024, "number of rows per data block")
	i.Root.Flags().StringVar(
		&i.compression, "compression", "snappy", "block compression (none, snappy, zstd, minlz)")
	return i
}

func (i *importT) run(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	meta, err := i.runImport(args[0], args[1])
	if err != nil {
		errorf(stderr, "%s", err)
		return
	}
	fmt.Fprintf(stdout, "%s: %d rows in %d blocks, %d bytes\n",
		args[1], meta.Rows, meta.Blocks, meta.Size)
}

func (i *importT) runImport(in, out string) (segment.WriterMetadata, error) {
	var meta segment.WriterMetadata
	if i.schema == "" {
		return meta, errors.New("import: --schema is required")
	}
	schema, err := batch.ParseSchema(i.schema)
	if err != nil {
		return meta, err
	}
	c, err := segment.ParseCompression(i.compression)
	if err != nil {
		return meta, err
	}
	if i.rowsPerBatch < 1 {
		return meta, errors.Newf("import: --rows-per-batch must be >= 1")
	}

	f, err := i.t.fs.Open(in)
	if err != nil {
		return meta, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = schema.NumColumns()
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return meta, errors.Wrapf(err, "%s: reading header", in)
	}
	for c, name := range header {
		if want := schema.Column(c).Name; name != want {
			return meta, errors.Newf("%s: column %d is %q, schema names %q", in, c, name, want)
		}
	}

	w, err := segment.Create(i.t.fs, out, schema, segment.WriterOptions{Compression: c})
	if err != nil {
		return meta, err
	}
	bld := batch.NewBuilder(schema)
	flush := func() error {
		b := bld.Finish()
		defer b.Unref()
		return w.Add(b)
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			_ = w.Close()
			return meta, errors.Wrapf(err, "%s", in)
		}
		if err := bld.AppendStrings(rec); err != nil {
			line, _ := r.FieldPos(0)
			_ = w.Close()
			return meta, errors.Wrapf(err, "%s:%d", in, line)
		}
		if bld.NumRows() >= i.rowsPerBatch {
			if err := flush(); err != nil {
				_ = w.Close()
				return meta, err
			}
		}
	}
	if err := flush(); err != nil {
		_ = w.Close()
		return meta, err
	}
	if err := w.Close(); err != nil {
		return meta, err
	}
	return w.Metadata(), nil
}
