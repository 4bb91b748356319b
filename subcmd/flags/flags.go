// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package flags provides flags subcommand to resolve compiler flags.
package flags

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/ideflags/compdb"
	"go.chromium.org/infra/build/ideflags/flagconfig"
	"go.chromium.org/infra/build/ideflags/metadata"
	"go.chromium.org/infra/build/ideflags/resolve"
	"go.chromium.org/infra/build/ideflags/toolsupport/shutil"
	"go.chromium.org/infra/build/ideflags/ui"
)

const flagsUsage = `resolve compiler flags for source files.

 $ ideflags flags -C <dir> [-format <format>] <file>...

Looks up each file in the compilation database (compile_commands.json,
or compile_commands.json.zst) in <dir> and prints the flags a semantic
completion engine should use for it. A header borrows the flags of a
sibling source file, and a file without any record reuses the flags of
the previously resolved file.

format: text, json or shell
`

func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "flags [-C <dir>] [-format <format>] <file>...",
		ShortDesc: "resolve compiler flags for source files",
		LongDesc:  flagsUsage,
		CommandRun: func() subcommands.CommandRun {
			c := &flagsRun{w: os.Stdout}
			c.init()
			return c
		},
	}
}

type flagsRun struct {
	subcommands.CommandRunBase
	w io.Writer

	dir      string
	confFile string
	format   string
}

func (c *flagsRun) init() {
	c.Flags.StringVar(&c.dir, "C", "", "directory to find compile_commands.json (overrides the config's database_dir)")
	c.Flags.StringVar(&c.confFile, "conf", "", `config filename (default "`+flagconfig.DefaultFilename+`" in the current directory)`)
	c.Flags.StringVar(&c.format, "format", "text", `output format. "text", "json" or "shell"`)
}

func (c *flagsRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, flagsUsage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

type result struct {
	File    string   `json:"file"`
	Flags   []string `json:"flags"`
	DoCache bool     `json:"do_cache"`
}

func (c *flagsRun) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()
	switch c.format {
	case "text", "json", "shell":
	default:
		return fmt.Errorf(`unknown format %q: "text", "json" or "shell": %w`, c.format, flag.ErrHelp)
	}
	if len(args) == 0 {
		return fmt.Errorf("no files given: %w", flag.ErrHelp)
	}
	cfg, err := c.loadConfig(args)
	if err != nil {
		return err
	}
	db := c.loadDB(ctx, cfg)
	r := resolve.New(db)
	results := make([]result, 0, len(args))
	for _, arg := range args {
		fname, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		res := r.FlagsForFile(fname)
		flags := res.Flags
		if len(cfg.ExtraFlags) > 0 {
			flags = slices.Concat(flags, cfg.ExtraFlags)
		}
		results = append(results, result{File: fname, Flags: flags, DoCache: res.DoCache})
	}
	return c.print(results)
}

// loadConfig loads the project config. A missing or broken default
// config degrades to an empty one, but a config given via -conf must
// load.
func (c *flagsRun) loadConfig(args []string) (*flagconfig.Config, error) {
	fname := c.confFile
	if fname == "" {
		fname = flagconfig.DefaultFilename
	}
	cfg, err := flagconfig.Load(fname, c.initFlags(args), metadata.New())
	switch {
	case err == nil:
		return cfg, nil
	case c.confFile != "":
		return nil, err
	case errors.Is(err, fs.ErrNotExist):
		log.Infof("no %s", fname)
	default:
		log.Warnf("failed to load config: %v", err)
	}
	return &flagconfig.Config{}, nil
}

func (c *flagsRun) initFlags(files []string) map[string]string {
	flags := make(map[string]string)
	c.Flags.Visit(func(f *flag.Flag) {
		name := f.Name
		if name == "C" {
			name = "dir"
		}
		flags[name] = f.Value.String()
	})
	flags["files"] = strings.Join(files, " ")
	return flags
}

// loadDB loads the compilation database. -C takes precedence over the
// config's database_dir. A missing or broken database resolves every
// file to empty flags rather than failing the command.
func (c *flagsRun) loadDB(ctx context.Context, cfg *flagconfig.Config) *compdb.DB {
	dir := c.dir
	if dir == "" {
		dir = cfg.DatabaseDir
	}
	if dir == "" {
		dir = "."
	}
	db, err := compdb.Load(ctx, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Infof("no compilation database in %s", dir)
		} else {
			log.Warnf("failed to load compilation database: %v", err)
		}
		return nil
	}
	return db
}

func (c *flagsRun) print(results []result) error {
	switch c.format {
	case "json":
		buf, err := json.MarshalIndent(results, "", " ")
		if err != nil {
			return err
		}
		fmt.Fprintf(c.w, "%s\n", buf)
	case "shell":
		for _, res := range results {
			fmt.Fprintln(c.w, shutil.Join(res.Flags))
		}
	case "text":
		for i, res := range results {
			if len(results) > 1 {
				if i > 0 {
					fmt.Fprintln(c.w)
				}
				header := res.File + ":"
				if ui.IsTerminal() {
					header = ui.SGR(ui.Bold, header)
				}
				fmt.Fprintln(c.w, header)
			}
			for _, f := range res.Flags {
				fmt.Fprintln(c.w, f)
			}
		}
	}
	return nil
}
