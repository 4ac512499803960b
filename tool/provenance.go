// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mergetree/mergetree/provenance"
	"github.com/spf13/cobra"
)

// provenanceT implements the provenance tool.
type provenanceT struct {
	Root *cobra.Command

	t       *T
	verbose bool
}

func newProvenance(t *T) *provenanceT {
	p := &provenanceT{t: t}
	p.Root = &cobra.Command{
		Use:   "provenance <row-sources>",
		Short: "print a row-source stream written by merge",
		Long: `
Print a summary of a row-source stream: the number of input rows consumed per
source and how many of them were written to the output. With --verbose every
record is printed as <source>:<keep|skip>.
`,
		Args: cobra.ExactArgs(1),
		Run:  p.run,
	}
	p.Root.Flags().BoolVarP(
		&p.verbose, "verbose", "v", false, "print every record")
	return p
}

func (p *provenanceT) run(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	f, err := p.t.fs.Open(args[0])
	if err != nil {
		errorf(stderr, "%s", err)
		return
	}
	defer f.Close()

	var s provenance.Summary
	rd := provenance.NewReader(f)
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			errorf(stderr, "%s", err)
			return
		}
		if p.verbose {
			fmt.Fprintf(stdout, "%d: %s\n", s.Records, rec)
		}
		s.Add(rec)
	}

	tbl := newTable(stdout, "source", "rows", "kept")
	for i, n := range s.PerSource {
		if n == 0 {
			continue
		}
		tbl.Append([]string{strconv.Itoa(i), strconv.FormatInt(n, 10), strconv.FormatInt(s.KeptPerSource[i], 10)})
	}
	tbl.Render()
	fmt.Fprintf(stdout, "%d records, %d kept, %d skipped\n", s.Records, s.Kept, s.Records-s.Kept)
}
