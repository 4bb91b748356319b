// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package flags

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/ideflags/compdb"
	"go.chromium.org/infra/build/ideflags/flagconfig"
)

func writeDB(t *testing.T, dir string, entries []compdb.Entry) {
	t.Helper()
	buf, err := json.Marshal(entries)
	if err != nil {
		t.Fatal(err)
	}
	fname := filepath.Join(dir, "compile_commands.json")
	err = os.WriteFile(fname, buf, 0644)
	if err != nil {
		t.Fatalf("write %s: %v", fname, err)
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	fname := filepath.Join(dir, flagconfig.DefaultFilename)
	err := os.WriteFile(fname, []byte(content), 0644)
	if err != nil {
		t.Fatalf("write %s: %v", fname, err)
	}
	return fname
}

// writeProject builds a tree with one foo.cc record under out/Default
// and a config adding one extra flag. It returns the root and the
// config filename.
func writeProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out", "Default")
	err := os.MkdirAll(outDir, 0755)
	if err != nil {
		t.Fatal(err)
	}
	writeDB(t, outDir, []compdb.Entry{
		{
			Directory: outDir,
			File:      filepath.Join(dir, "src", "foo.cc"),
			Arguments: []string{"clang++", "-Iinc", "-c", "../../src/foo.cc"},
		},
	})
	confFile := writeConfig(t, dir, `
def init(ctx):
    return module(
        "config",
        database_dir = "out/Default",
        extra_flags = ["-Wno-unknown-warning-option"],
    )
`)
	return dir, confFile
}

func TestFlags(t *testing.T) {
	dir, confFile := writeProject(t)
	inc := filepath.Join(dir, "out", "Default", "inc")
	fooCC := filepath.Join(dir, "src", "foo.cc")
	fooH := filepath.Join(dir, "src", "foo.h")
	newCC := filepath.Join(dir, "src", "new.cc")
	var buf bytes.Buffer
	c := &flagsRun{w: &buf}
	c.init()
	err := c.Flags.Parse([]string{"-conf", confFile, fooCC, fooH, newCC})
	if err != nil {
		t.Fatal(err)
	}
	err = c.run(context.Background(), c.Flags.Args())
	if err != nil {
		t.Fatal(err)
	}
	// foo.h borrows foo.cc's record and new.cc reuses the fallback.
	// The extra flag shows up once per file: extras are appended after
	// resolution and never enter the fallback.
	want := fmt.Sprintf(`%s:
clang++
-I%s
-c
../../src/foo.cc
-Wno-unknown-warning-option

%s:
clang++
-I%s
-c
../../src/foo.cc
-Wno-unknown-warning-option

%s:
clang++
-I%s
-c
../../src/foo.cc
-Wno-unknown-warning-option
`, fooCC, inc, fooH, inc, newCC, inc)
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("flags output; diff -want +got:\n%s", diff)
	}
}

func TestFlags_JSON(t *testing.T) {
	dir, confFile := writeProject(t)
	fooCC := filepath.Join(dir, "src", "foo.cc")
	var buf bytes.Buffer
	c := &flagsRun{w: &buf}
	c.init()
	err := c.Flags.Parse([]string{"-format", "json", "-conf", confFile, fooCC})
	if err != nil {
		t.Fatal(err)
	}
	err = c.run(context.Background(), c.Flags.Args())
	if err != nil {
		t.Fatal(err)
	}
	var got []result
	err = json.Unmarshal(buf.Bytes(), &got)
	if err != nil {
		t.Fatalf("unmarshal results: %v", err)
	}
	want := []result{
		{
			File: fooCC,
			Flags: []string{
				"clang++",
				"-I" + filepath.Join(dir, "out", "Default", "inc"),
				"-c",
				"../../src/foo.cc",
				"-Wno-unknown-warning-option",
			},
			DoCache: true,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flags -format json; diff -want +got:\n%s", diff)
	}
}

func TestFlags_Shell(t *testing.T) {
	dir, confFile := writeProject(t)
	fooCC := filepath.Join(dir, "src", "foo.cc")
	var buf bytes.Buffer
	c := &flagsRun{w: &buf}
	c.init()
	err := c.Flags.Parse([]string{"-format", "shell", "-conf", confFile, fooCC})
	if err != nil {
		t.Fatal(err)
	}
	err = c.run(context.Background(), c.Flags.Args())
	if err != nil {
		t.Fatal(err)
	}
	inc := filepath.Join(dir, "out", "Default", "inc")
	want := "clang++ -I" + inc + " -c ../../src/foo.cc -Wno-unknown-warning-option\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("flags -format shell; diff -want +got:\n%s", diff)
	}
}

func TestFlags_DatabaseDir(t *testing.T) {
	dir := t.TempDir()
	aCC := filepath.Join(dir, "src", "a.cc")
	for _, sub := range []struct {
		out    string
		define string
	}{
		{out: "flagout", define: "-DFLAG"},
		{out: "cfgout", define: "-DCFG"},
	} {
		out := filepath.Join(dir, sub.out)
		err := os.MkdirAll(out, 0755)
		if err != nil {
			t.Fatal(err)
		}
		writeDB(t, out, []compdb.Entry{
			{Directory: out, File: aCC, Arguments: []string{"clang++", sub.define}},
		})
	}
	confFile := writeConfig(t, dir, `
def init(ctx):
    return module("config", database_dir = "cfgout")
`)
	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{
			// -C wins over the config's database_dir.
			name: "flag",
			args: []string{"-conf", confFile, "-C", filepath.Join(dir, "flagout"), aCC},
			want: "clang++\n-DFLAG\n",
		},
		{
			name: "config",
			args: []string{"-conf", confFile, aCC},
			want: "clang++\n-DCFG\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := &flagsRun{w: &buf}
			c.init()
			err := c.Flags.Parse(tc.args)
			if err != nil {
				t.Fatal(err)
			}
			err = c.run(context.Background(), c.Flags.Args())
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
				t.Errorf("flags %q; diff -want +got:\n%s", tc.args, diff)
			}
		})
	}
	t.Run("default", func(t *testing.T) {
		// No -C and no config: the database is looked up in the
		// current directory.
		dir := t.TempDir()
		aCC := filepath.Join(dir, "src", "a.cc")
		writeDB(t, dir, []compdb.Entry{
			{Directory: dir, File: aCC, Arguments: []string{"clang++", "-DDOT"}},
		})
		t.Chdir(dir)
		var buf bytes.Buffer
		c := &flagsRun{w: &buf}
		c.init()
		err := c.run(context.Background(), []string{aCC})
		if err != nil {
			t.Fatal(err)
		}
		want := "clang++\n-DDOT\n"
		if diff := cmp.Diff(want, buf.String()); diff != "" {
			t.Errorf("flags %q; diff -want +got:\n%s", aCC, diff)
		}
	})
}

func TestFlags_NoDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	aCC := filepath.Join(dir, "a.cc")
	var buf bytes.Buffer
	c := &flagsRun{w: &buf}
	c.init()
	err := c.Flags.Parse([]string{"-format", "json", aCC})
	if err != nil {
		t.Fatal(err)
	}
	err = c.run(context.Background(), c.Flags.Args())
	if err != nil {
		t.Fatal(err)
	}
	var got []result
	err = json.Unmarshal(buf.Bytes(), &got)
	if err != nil {
		t.Fatalf("unmarshal results: %v", err)
	}
	// No config and no database: empty flags, still cacheable.
	want := []result{{File: aCC, Flags: []string{}, DoCache: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flags with no database; diff -want +got:\n%s", diff)
	}
}

func TestFlags_BrokenConfig(t *testing.T) {
	dir := t.TempDir()
	confFile := writeConfig(t, dir, `init = 1`)
	aCC := filepath.Join(dir, "a.cc")
	writeDB(t, dir, []compdb.Entry{
		{Directory: dir, File: aCC, Arguments: []string{"clang", "-DX"}},
	})
	// A config given on the command line must load.
	var buf bytes.Buffer
	c := &flagsRun{w: &buf}
	c.init()
	err := c.Flags.Parse([]string{"-conf", confFile, aCC})
	if err != nil {
		t.Fatal(err)
	}
	err = c.run(context.Background(), c.Flags.Args())
	if err == nil || errors.Is(err, flag.ErrHelp) {
		t.Errorf("flags -conf %s=%v; want a config load error", confFile, err)
	}
	// The same config picked up implicitly degrades to none.
	t.Chdir(dir)
	buf.Reset()
	c = &flagsRun{w: &buf}
	c.init()
	err = c.run(context.Background(), []string{aCC})
	if err != nil {
		t.Fatal(err)
	}
	want := "clang\n-DX\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("flags %q; diff -want +got:\n%s", aCC, diff)
	}
}

func TestFlags_Errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{name: "no files", args: nil},
		{name: "bad format", args: []string{"-format", "yaml", "a.cc"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := &flagsRun{w: &buf}
			c.init()
			err := c.Flags.Parse(tc.args)
			if err != nil {
				t.Fatal(err)
			}
			err = c.run(context.Background(), c.Flags.Args())
			if !errors.Is(err, flag.ErrHelp) {
				t.Errorf("flags %q=%v; want %v", tc.args, err, flag.ErrHelp)
			}
		})
	}
}
