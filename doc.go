// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package mergetree implements the replacing merge of a merge-tree storage
// engine: N streams of key-sorted columnar batches are combined into one
// key-sorted stream in which each primary key appears once, keeping the row
// with the highest version.
//
// Inputs are Sources yielding *batch.Batch values. Output is pulled from a
// ReplacingMerger one batch at a time:
//
//	m := mergetree.NewReplacingMerger(sources, &mergetree.Options{
//		PrimaryKey:    []string{"id"},
//		VersionColumn: "ver",
//	})
//	defer m.Close()
//	for {
//		b, err := m.Next()
//		if err == io.EOF {
//			break
//		} else if err != nil {
//			return err
//		}
//		consume(b)
//		b.Unref()
//	}
//
// When Options.RowSources is set, the merge also writes a row-source stream
// recording, for every input row consumed, the source it came from and whether
// it was superseded. Package provenance decodes that stream and can use it to
// assemble further columns of the output without comparing keys again.
//
// Package segment stores batch streams in files, and package tool exposes
// import, merge and inspection commands.
package mergetree
