// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mergetree/mergetree/internal/base"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// runTool runs a single tool command line against fs and returns its combined
// output. Every invocation gets fresh flag state.
func runTool(t *testing.T, fs afero.Fs, logger *base.InMemLogger, cmdline string) string {
	t.Helper()
	opts := []Option{FS(fs)}
	if logger != nil {
		opts = append(opts, Logger(logger))
	}
	c := &cobra.Command{Use: "mergetree"}
	c.AddCommand(New(opts...).Commands...)
	var buf bytes.Buffer
	c.SetArgs(strings.Fields(cmdline))
	c.SetOut(&buf)
	c.SetErr(&buf)
	require.NoError(t, c.Execute())
	return buf.String()
}

func writeFile(t *testing.T, fs afero.Fs, name, contents string) {
	require.NoError(t, afero.WriteFile(fs, name, []byte(contents), 0644))
}

const testSchemaFlag = "--schema=k:uint64,v:uint64,s:bytes"

func TestImportMergeDump(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "a.csv", "k,v,s\n1,1,a\n2,1,b\n")
	writeFile(t, fs, "b.csv", "k,v,s\n1,2,c\n3,1,d\n")

	out := runTool(t, fs, nil, "import a.csv a.seg --compression=none "+testSchemaFlag)
	require.Equal(t, "a.seg: 2 rows in 1 blocks, 78 bytes\n", out)
	out = runTool(t, fs, nil, "import b.csv b.seg --rows-per-batch=1 "+testSchemaFlag)
	require.Contains(t, out, "b.seg: 2 rows in 2 blocks, ")

	out = runTool(t, fs, nil, "merge out.seg a.seg b.seg --key=k --version=v --row-sources=out.rs --stats")
	require.Contains(t, out, "out.seg: merged 4 rows from 2 segments into 3 rows in 1 blocks\n")
	require.Contains(t, out, "sources: 2 (replacing)\n")
	require.Contains(t, out, "rows: read 4 written 3 superseded 1\n")

	out = runTool(t, fs, nil, "dump out.seg")
	require.Equal(t, `schema: k:uint64,v:uint64,s:bytes
+---+---+---+
| k | v | s |
+---+---+---+
| 1 | 2 | c |
| 2 | 1 | b |
| 3 | 1 | d |
+---+---+---+
3 rows in 1 batches
`, out)

	out = runTool(t, fs, nil, "dump out.seg --limit=1")
	require.Contains(t, out, "| 1 | 2 | c |\n+---+")
	require.NotContains(t, out, "| 2 | 1 | b |")
	require.Contains(t, out, "3 rows in 1 batches\n")

	out = runTool(t, fs, nil, "provenance out.rs -v")
	require.True(t, strings.HasPrefix(out, "0: 0:skip\n1: 1:keep\n2: 0:keep\n3: 1:keep\n"), out)
	require.Regexp(t, `\|\s*0\s*\|\s*2\s*\|\s*1\s*\|`, out)
	require.Regexp(t, `\|\s*1\s*\|\s*2\s*\|\s*2\s*\|`, out)
	require.Contains(t, out, "4 records, 3 kept, 1 skipped\n")
}

func TestMergeOptionsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "a.csv", "k,v,s\n1,1,a\n2,1,b\n3,1,c\n")
	writeFile(t, fs, "b.csv", "k,v,s\n2,0,x\n")
	runTool(t, fs, nil, "import a.csv a.seg "+testSchemaFlag)
	runTool(t, fs, nil, "import b.csv b.seg "+testSchemaFlag)
	writeFile(t, fs, "OPTIONS", `
[Options]
  max_batch_rows=1
  primary_key=k
  version_column=v
`)

	var log base.InMemLogger
	out := runTool(t, fs, &log, "merge out.seg a.seg b.seg --options=OPTIONS --compression=zstd -v")
	require.Contains(t, out, "out.seg: merged 4 rows from 2 segments into 3 rows in 2 blocks\n")
	require.Contains(t, log.String(), "[JOB] merging 2 sources (replacing) on key (k) version v")
	require.Contains(t, log.String(), "[JOB] batch 1: 2 rows")

	// The version wins over segment order: b's row for k=2 is older.
	out = runTool(t, fs, nil, "dump out.seg")
	require.Contains(t, out, "| 2 | 1 | b |")

	// Flags override the options file.
	out = runTool(t, fs, nil, "merge out2.seg a.seg b.seg --options=OPTIONS --max-rows=10")
	require.Contains(t, out, "into 3 rows in 1 blocks")
}

func TestMergeSingleSegment(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "a.csv", "k,v,s\n1,1,a\n1,2,b\n")
	runTool(t, fs, nil, "import a.csv a.seg "+testSchemaFlag)
	out := runTool(t, fs, nil, "merge out.seg a.seg --key=k --stats")
	require.Contains(t, out, "merged 2 rows from 1 segments into 2 rows in 1 blocks\n")
	require.Contains(t, out, "sources: 1 (pass-through)\n")
}

func TestToolErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "a.csv", "k,v,s\n1,1,a\n")
	writeFile(t, fs, "bad-header.csv", "k,x,s\n1,1,a\n")
	writeFile(t, fs, "bad-row.csv", "k,v,s\n1,1,a\nz,1,b\n")
	runTool(t, fs, nil, "import a.csv a.seg "+testSchemaFlag)
	writeFile(t, fs, "junk.seg", "not a segment at all")

	for _, tc := range []struct {
		cmdline string
		want    string
	}{
		{"import a.csv x.seg", "import: --schema is required"},
		{"import bad-header.csv x.seg " + testSchemaFlag, `column 1 is "x", schema names "v"`},
		{"import bad-row.csv x.seg " + testSchemaFlag, `bad-row.csv:3: column "k"`},
		{"import a.csv x.seg --compression=lz4 " + testSchemaFlag, `unknown compression "lz4"`},
		{"merge out.seg a.seg a.seg", "PrimaryKey must name at least one column"},
		{"merge out.seg a.seg missing.seg --key=k", "segment: opening missing.seg"},
		{"merge out.seg a.seg junk.seg --key=k", "invalid magic"},
		{"merge out.seg a.seg a.seg --key=k --version=s", `version column "s"`},
		{"dump junk.seg", "invalid magic"},
		{"provenance missing.rs", "missing.rs"},
	} {
		t.Run(tc.cmdline, func(t *testing.T) {
			require.Contains(t, runTool(t, fs, nil, tc.cmdline), tc.want)
		})
	}
}
