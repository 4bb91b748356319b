// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package resolve computes compiler flags for editor semantic analysis.
//
// Given a file path, it looks up the compilation database record for the
// file and rewrites relative include/sysroot paths against the record's
// working directory, so the flags stay usable from whatever directory
// the editor host happens to run in.
//
// Headers have no records of their own in a compilation database, so the
// resolver probes sibling sources (foo.h -> foo.cpp, foo.cxx, ...) and
// borrows the flags of the first match. The borrowed flags are an
// approximation: a header included only from other directories may be
// compiled with different flags than its sibling. There is no better
// answer available from the database, so the resolver doesn't try.
//
// A file unknown to the build gets the most recently resolved flag list
// instead of nothing, so a newly added file still completes reasonably
// until the build graph is regenerated.
package resolve

import (
	"path/filepath"
	"slices"
	"strings"

	"go.chromium.org/infra/build/ideflags/compdb"
)

// headerExts are extensions treated as C/C++/Objective-C headers.
var headerExts = []string{".h", ".hxx", ".hpp", ".hh"}

// sourceExts are extensions probed for a header's sibling source,
// in priority order.
var sourceExts = []string{".cpp", ".cxx", ".cc", ".c", ".m", ".mm"}

// pathFlags are flag spellings whose argument names a filesystem path.
// An exact match takes the path as the next element; a prefix match
// embeds the path after the spelling.
var pathFlags = []string{"-isystem", "-I", "-iquote", "--sysroot="}

// Database is the compilation record lookup the resolver consults.
// A result with no flags means the file has no usable record.
type Database interface {
	CompileInfo(fname string) compdb.CompileInfo
}

// Resolver resolves compiler flags for files.
//
// It is not safe for concurrent use. Editor hosts request flags for one
// file at a time, and the fallback state below relies on that.
type Resolver struct {
	db Database

	// lastFlags is the most recently resolved flag list, already
	// normalized. It is the answer for files the database has never
	// heard of.
	lastFlags []string
}

// New creates a Resolver over db.
// A nil db means the compilation database failed to load; every file
// then resolves to empty flags.
func New(db Database) *Resolver {
	return &Resolver{
		db:        db,
		lastFlags: []string{},
	}
}

// Response is the resolver's answer for one file.
type Response struct {
	// Flags is the compiler argument list to use for the file.
	Flags []string `json:"flags"`
	// DoCache reports whether the host may cache Flags for this file
	// without asking again.
	DoCache bool `json:"do_cache"`
}

// IsHeader reports whether fname names a header file.
func IsHeader(fname string) bool {
	return slices.Contains(headerExts, filepath.Ext(fname))
}

// FlagsForFile resolves the compiler flags to use for fname.
//
// Every answer is cacheable: resolution is deterministic for a given
// database, and hosts re-resolve when the database is regenerated.
// There is no error result; a file the resolver can't answer well gets
// the best-effort fallback, never a failure.
func (r *Resolver) FlagsForFile(fname string) Response {
	if r.db == nil {
		return Response{Flags: []string{}, DoCache: true}
	}
	info, ok := r.lookup(fname)
	if !ok {
		return Response{Flags: r.lastFlags, DoCache: true}
	}
	flags := NormalizeFlags(info.Flags, info.Directory)
	// Keep a copy. The caller owns the returned slice and may rewrite
	// it in place, and that must not reach later fallback answers.
	r.lastFlags = slices.Clone(flags)
	return Response{Flags: flags, DoCache: true}
}

// lookup locates the compilation record for fname.
// Sources are looked up directly. Headers borrow the record of the
// first sibling source that has flags.
func (r *Resolver) lookup(fname string) (compdb.CompileInfo, bool) {
	if IsHeader(fname) {
		base := strings.TrimSuffix(fname, filepath.Ext(fname))
		for _, ext := range sourceExts {
			info := r.db.CompileInfo(base + ext)
			if len(info.Flags) > 0 {
				return info, true
			}
		}
		return compdb.CompileInfo{}, false
	}
	info := r.db.CompileInfo(fname)
	return info, len(info.Flags) > 0
}

// NormalizeFlags rewrites relative paths in flags to absolute paths
// anchored at workDir and returns the rewritten list.
//
// Path flags are recognized by exact match (path in the next element)
// or prefix match (path embedded after the spelling, e.g. -Igen or
// --sysroot=dir). Absolute paths are left alone. An empty element where
// a path was expected is dropped from the output; editor hosts rely on
// this. An empty workDir makes this a copy.
func NormalizeFlags(flags []string, workDir string) []string {
	if workDir == "" {
		return slices.Clone(flags)
	}
	normalized := make([]string, 0, len(flags))
	pathPending := false
	for _, flag := range flags {
		newFlag := flag
		if pathPending {
			pathPending = false
			if flag == "" {
				continue
			}
			newFlag = absJoin(workDir, flag)
		}
		for _, pf := range pathFlags {
			if flag == pf {
				pathPending = true
				break
			}
			if strings.HasPrefix(flag, pf) {
				newFlag = pf + absJoin(workDir, flag[len(pf):])
				break
			}
		}
		normalized = append(normalized, newFlag)
	}
	return normalized
}

// absJoin joins dir and path unless path is already absolute.
func absJoin(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
