// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compdb reads a build-generated compilation database.
//
// A compilation database is the compile_commands.json a build generator
// writes into its output directory: one entry per translation unit,
// recording the working directory, the source file and the exact
// compiler invocation.
// https://clang.llvm.org/docs/JSONCompilationDatabase.html
//
// Chromium-size databases run to hundreds of megabytes of JSON, so a
// zstd-compressed compile_commands.json.zst is accepted in place of the
// plain file, and command strings are split across CPUs at load time.
package compdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/infra/build/ideflags/runtimex"
	"go.chromium.org/infra/build/ideflags/toolsupport/shutil"
)

const dbFilename = "compile_commands.json"

// Entry is one record of a compilation database.
type Entry struct {
	// Directory is the working directory of the compile step.
	// Relative paths in the entry are relative to it.
	Directory string `json:"directory"`
	// File is the main translation unit of the step.
	File string `json:"file"`
	// Command is the compiler invocation as a shell line.
	// One of Command or Arguments is set.
	Command string `json:"command,omitempty"`
	// Arguments is the compiler invocation as an argument vector.
	Arguments []string `json:"arguments,omitempty"`
	// Output is the file the step produces, if the generator records it.
	Output string `json:"output,omitempty"`
}

// CompileInfo is the compiler invocation recorded for one file.
type CompileInfo struct {
	// Flags is the full argument vector, compiler included.
	Flags []string
	// Directory is the working directory the flags are relative to.
	Directory string
}

// Stats describes what Load accepted and rejected.
type Stats struct {
	// Records is the number of usable records.
	Records int
	// Skipped is the number of entries dropped: no file, no command,
	// or a command string that doesn't split.
	Skipped int
	// Duplicates is the number of entries whose file was already
	// claimed by an earlier entry.
	Duplicates int
}

// DB is an in-memory index of a compilation database, keyed by the
// cleaned absolute path of each entry's file.
type DB struct {
	infos map[string]CompileInfo
	stats Stats
}

// Load reads the compilation database in dir.
//
// A missing database returns an error wrapping fs.ErrNotExist; callers
// treat that as "the build hasn't generated one", not as a failure.
func Load(ctx context.Context, dir string) (*DB, error) {
	started := time.Now()
	fname, r, err := open(dir)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	entries, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", fname, err)
	}
	db, err := index(ctx, entries)
	if err != nil {
		return nil, err
	}
	log.Infof("compdb: %d records (%d skipped, %d duplicates) from %s in %s",
		db.stats.Records, db.stats.Skipped, db.stats.Duplicates, fname, time.Since(started))
	return db, nil
}

// open opens the database file in dir, preferring the plain file and
// falling back to the zstd-compressed one.
func open(dir string) (string, io.ReadCloser, error) {
	fname := filepath.Join(dir, dbFilename)
	f, err := os.Open(fname)
	if err == nil {
		return fname, f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", nil, err
	}
	zname := fname + ".zst"
	zf, zerr := os.Open(zname)
	if zerr != nil {
		// report the plain filename; that's the one callers look for.
		return "", nil, err
	}
	zr, zerr := zstd.NewReader(zf)
	if zerr != nil {
		zf.Close()
		return "", nil, fmt.Errorf("open %s: %w", zname, zerr)
	}
	return zname, &zstReadCloser{ReadCloser: zr.IOReadCloser(), f: zf}, nil
}

type zstReadCloser struct {
	io.ReadCloser
	f *os.File
}

func (r *zstReadCloser) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// decode parses the JSON entry array one entry at a time, so a big
// database never lives in memory twice.
func decode(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("not a compilation database: starts with %v", tok)
	}
	var entries []Entry
	for dec.More() {
		var ent Entry
		err := dec.Decode(&ent)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", len(entries), err)
		}
		entries = append(entries, ent)
	}
	_, err = dec.Token()
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// index builds the lookup map for entries. Splitting command strings
// is the expensive part, so it's chunked across CPUs; the first-wins
// duplicate rule needs the ordered pass after.
func index(ctx context.Context, entries []Entry) (*DB, error) {
	keys := make([]string, len(entries))
	infos := make([]CompileInfo, len(entries))
	eg, gctx := errgroup.WithContext(ctx)
	n := max(runtimex.NumCPU(), 1)
	chunk := (len(entries) + n - 1) / n
	for start := 0; start < len(entries); start += chunk {
		end := min(start+chunk, len(entries))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				keys[i], infos[i] = convert(entries[i])
			}
			return nil
		})
	}
	err := eg.Wait()
	if err != nil {
		return nil, err
	}
	db := &DB{infos: make(map[string]CompileInfo, len(entries))}
	for i, key := range keys {
		if key == "" {
			db.stats.Skipped++
			continue
		}
		if _, found := db.infos[key]; found {
			db.stats.Duplicates++
			continue
		}
		db.infos[key] = infos[i]
	}
	db.stats.Records = len(db.infos)
	return db, nil
}

// convert turns one entry into its index key and info.
// An empty key marks the entry unusable.
func convert(ent Entry) (string, CompileInfo) {
	if ent.File == "" {
		return "", CompileInfo{}
	}
	flags := ent.Arguments
	if len(flags) == 0 {
		if ent.Command == "" {
			return "", CompileInfo{}
		}
		var err error
		flags, err = shutil.Split(ent.Command)
		if err != nil {
			log.Warnf("compdb: %s: %v", ent.File, err)
			return "", CompileInfo{}
		}
		if len(flags) == 0 {
			return "", CompileInfo{}
		}
	}
	fname := ent.File
	if !filepath.IsAbs(fname) {
		fname = filepath.Join(ent.Directory, fname)
	}
	return filepath.Clean(fname), CompileInfo{Flags: flags, Directory: ent.Directory}
}

// CompileInfo returns the recorded invocation for fname, or a zero
// CompileInfo when the database has no record of it.
func (db *DB) CompileInfo(fname string) CompileInfo {
	if db == nil {
		return CompileInfo{}
	}
	return db.infos[filepath.Clean(fname)]
}

// Stats reports what Load accepted and rejected.
func (db *DB) Stats() Stats {
	if db == nil {
		return Stats{}
	}
	return db.stats
}

// Files returns the recorded file paths, sorted.
func (db *DB) Files() []string {
	if db == nil {
		return nil
	}
	files := make([]string, 0, len(db.infos))
	for f := range db.infos {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}
