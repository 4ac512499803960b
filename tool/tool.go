// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package tool implements the mergetree command line tools: importing CSV
// into segments, merging segments, and inspecting segments and row-source
// streams.
package tool

import (
	"github.com/mergetree/mergetree"
	"github.com/mergetree/mergetree/internal/base"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// T is the container for all of the tools.
type T struct {
	Commands []*cobra.Command

	fs     afero.Fs
	logger mergetree.Logger

	importer   *importT
	merge      *mergeT
	dump       *dumpT
	provenance *provenanceT
}

// An Option configures T.
type Option func(*T)

// FS sets the file system the tools read and write. The default is the
// operating system's file system.
func FS(fs afero.Fs) Option {
	return func(t *T) {
		t.fs = fs
	}
}

// Logger sets the logger used by merges run with --verbose.
func Logger(logger mergetree.Logger) Option {
	return func(t *T) {
		t.logger = logger
	}
}

// New creates a new set of tools.
func New(opts ...Option) *T {
	t := &T{
		fs:     afero.NewOsFs(),
		logger: base.DefaultLogger,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.importer = newImport(t)
	t.merge = newMerge(t)
	t.dump = newDump(t)
	t.provenance = newProvenance(t)
	t.Commands = []*cobra.Command{
		t.importer.Root,
		t.merge.Root,
		t.dump.Root,
		t.provenance.Root,
	}
	return t
}
