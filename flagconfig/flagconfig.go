// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package flagconfig loads the per-project config for `ideflags`.
//
// The config is a Starlark file, .ideflags.star, kept in the project
// root. It must define init(ctx), which returns a module describing
// where the compilation database lives and what to append to every
// resolved command line:
//
//	def init(ctx):
//	    return module(
//	        "config",
//	        database_dir = "out/Default",
//	        extra_flags = ["-Wno-unknown-warning-option"],
//	    )
//
// ctx.flags exposes values given via -f key=value and ctx.metadata
// exposes host metadata, so a config can pick a different database per
// platform or per invocation.
package flagconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"go.chromium.org/infra/build/ideflags/metadata"
)

const configEntryPoint = "init"

// DefaultFilename is the config filename looked up in the project root.
const DefaultFilename = ".ideflags.star"

// Config is a loaded project config.
type Config struct {
	// DatabaseDir is the directory holding compile_commands.json.
	// Empty when the config doesn't set it.
	DatabaseDir string

	// ExtraFlags are appended to every resolved command line.
	ExtraFlags []string
}

// Load reads the config file fname and runs its init function.
// flags are the command line flag values exposed as ctx.flags.
//
// A missing config file returns an error wrapping fs.ErrNotExist;
// callers treat that as "the project has no config".
func Load(fname string, flags map[string]string, md metadata.Metadata) (*Config, error) {
	buf, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", fname, err)
	}
	resolve.AllowRecursion = true
	thread := &starlark.Thread{
		Name: "load",
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
		Load: func(*starlark.Thread, string) (starlark.StringDict, error) {
			return nil, errors.New("load is not allowed in config")
		},
	}
	globals, err := starlark.ExecFile(thread, fname, buf, builtinModule())
	if err != nil {
		var eerr *starlark.EvalError
		if errors.As(err, &eerr) {
			log.Warnf("stacktrace:\n%s", eerr.Backtrace())
		}
		return nil, fmt.Errorf("failed to exec %s: %w", fname, err)
	}
	v, ok := globals[configEntryPoint]
	if !ok {
		return nil, fmt.Errorf("%s is not defined in %s", configEntryPoint, fname)
	}
	fun, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s %s is not callable in %s", configEntryPoint, v.Type(), fname)
	}
	initThread := &starlark.Thread{
		Name: configEntryPoint,
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
		Load: func(*starlark.Thread, string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load is not allowed in %s", configEntryPoint)
		},
	}
	hctx := starlarkstruct.FromStringDict(starlark.String("ctx"), map[string]starlark.Value{
		"flags":    starFlags(flags),
		"metadata": starMetadata(md),
	})
	ret, err := starlark.Call(initThread, fun, []starlark.Value{hctx}, nil)
	if err != nil {
		var eerr *starlark.EvalError
		if errors.As(err, &eerr) {
			log.Warnf("stacktrace:\n%s", eerr.Backtrace())
		}
		return nil, fmt.Errorf("failed to run %s: %w", configEntryPoint, err)
	}
	m, ok := ret.(*starlarkstruct.Module)
	if !ok {
		return nil, fmt.Errorf("%s returned %s, want module", configEntryPoint, ret.Type())
	}
	cfg := &Config{}
	v, err = m.Attr("database_dir")
	if err != nil {
		return nil, fmt.Errorf("bad database_dir in %v: %w", ret, err)
	}
	if v != nil && v != starlark.None {
		s, ok := starlark.AsString(v)
		if !ok {
			return nil, fmt.Errorf("database_dir %s, want string", v.Type())
		}
		if !filepath.IsAbs(s) {
			s = filepath.Join(filepath.Dir(fname), s)
		}
		cfg.DatabaseDir = s
	}
	v, err = m.Attr("extra_flags")
	if err != nil {
		return nil, fmt.Errorf("bad extra_flags in %v: %w", ret, err)
	}
	if v != nil && v != starlark.None {
		cfg.ExtraFlags, err = unpackList(v)
		if err != nil {
			return nil, fmt.Errorf("bad extra_flags: %w", err)
		}
	}
	return cfg, nil
}
