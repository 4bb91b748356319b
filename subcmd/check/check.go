// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package check provides check subcommand to diagnose the resolver setup.
package check

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
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/ideflags/compdb"
	"go.chromium.org/infra/build/ideflags/flagconfig"
	"go.chromium.org/infra/build/ideflags/metadata"
	"go.chromium.org/infra/build/ideflags/ui"
)

const checkUsage = `check the flag resolution setup.

 $ ideflags check [-C <dir>] [-format <format>]

Loads the project config and the compilation database the way the
flags subcommand would, and reports what it found: record counts,
records per file extension, extra flags and host metadata. Use it to
see why a file resolves to empty flags.

format: text or json
`

func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "check [-C <dir>] [-format <format>]",
		ShortDesc: "check the flag resolution setup",
		LongDesc:  checkUsage,
		CommandRun: func() subcommands.CommandRun {
			c := &checkRun{w: os.Stdout}
			c.init()
			return c
		},
	}
}

type checkRun struct {
	subcommands.CommandRunBase
	w io.Writer

	dir          string
	confFile     string
	format       string
	invocationID string
}

func (c *checkRun) init() {
	c.Flags.StringVar(&c.dir, "C", "", "directory to find compile_commands.json (overrides the config's database_dir)")
	c.Flags.StringVar(&c.confFile, "conf", "", `config filename (default "`+flagconfig.DefaultFilename+`" in the current directory)`)
	c.Flags.StringVar(&c.format, "format", "text", `output format. "text" or "json"`)
	c.Flags.StringVar(&c.invocationID, "invocation_id", uuid.New().String(), "ID of this check, for correlating reports.")
}

func (c *checkRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, checkUsage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

const (
	statusOK      = "ok"
	statusMissing = "missing"
	statusFailed  = "failed"
)

type report struct {
	InvocationID string            `json:"invocation_id"`
	ConfigFile   string            `json:"config_file"`
	Config       string            `json:"config"`
	Dir          string            `json:"dir"`
	Database     string            `json:"database"`
	Records      int               `json:"records"`
	Skipped      int               `json:"skipped"`
	Duplicates   int               `json:"duplicates"`
	Extensions   map[string]int    `json:"extensions,omitempty"`
	ExtraFlags   []string          `json:"extra_flags,omitempty"`
	Metadata     map[string]string `json:"metadata"`
	Duration     string            `json:"duration"`
}

func (c *checkRun) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()
	switch c.format {
	case "text", "json":
	default:
		return fmt.Errorf(`unknown format %q: "text" or "json": %w`, c.format, flag.ErrHelp)
	}
	if len(args) != 0 {
		return fmt.Errorf("position arguments not expected: %w", flag.ErrHelp)
	}
	started := time.Now()
	md := metadata.New()
	r := report{
		InvocationID: c.invocationID,
		Metadata:     make(map[string]string),
	}
	for _, k := range md.SortedKeys() {
		r.Metadata[k] = md.Get(k)
	}
	cfg := c.loadConfig(md, &r)
	r.ExtraFlags = cfg.ExtraFlags
	r.Dir = c.dir
	if r.Dir == "" {
		r.Dir = cfg.DatabaseDir
	}
	if r.Dir == "" {
		r.Dir = "."
	}
	db, err := compdb.Load(ctx, r.Dir)
	switch {
	case err == nil:
		r.Database = statusOK
		stats := db.Stats()
		r.Records = stats.Records
		r.Skipped = stats.Skipped
		r.Duplicates = stats.Duplicates
		r.Extensions = make(map[string]int)
		for _, fname := range db.Files() {
			r.Extensions[filepath.Ext(fname)]++
		}
	case errors.Is(err, fs.ErrNotExist):
		r.Database = statusMissing
	default:
		log.Warnf("failed to load compilation database: %v", err)
		r.Database = statusFailed
	}
	r.Duration = ui.FormatDuration(time.Since(started))
	return c.print(r)
}

// loadConfig loads the project config and records the outcome in r.
// check never fails on a broken config; reporting it is its job.
func (c *checkRun) loadConfig(md metadata.Metadata, r *report) *flagconfig.Config {
	fname := c.confFile
	if fname == "" {
		fname = flagconfig.DefaultFilename
	}
	r.ConfigFile = fname
	flags := make(map[string]string)
	c.Flags.Visit(func(f *flag.Flag) {
		name := f.Name
		if name == "C" {
			name = "dir"
		}
		flags[name] = f.Value.String()
	})
	cfg, err := flagconfig.Load(fname, flags, md)
	switch {
	case err == nil:
		r.Config = statusOK
		return cfg
	case errors.Is(err, fs.ErrNotExist):
		r.Config = statusMissing
	default:
		log.Warnf("failed to load config: %v", err)
		r.Config = statusFailed
	}
	return &flagconfig.Config{}
}

func (c *checkRun) print(r report) error {
	if c.format == "json" {
		buf, err := json.MarshalIndent(r, "", " ")
		if err != nil {
			return err
		}
		fmt.Fprintf(c.w, "%s\n", buf)
		return nil
	}
	fmt.Fprintf(c.w, "invocation_id: %s\n", r.InvocationID)
	fmt.Fprintf(c.w, "config:        %s (%s)\n", statusLine(r.Config), r.ConfigFile)
	fmt.Fprintf(c.w, "dir:           %s\n", r.Dir)
	fmt.Fprintf(c.w, "database:      %s\n", statusLine(r.Database))
	if r.Database == statusOK {
		fmt.Fprintf(c.w, "records:       %d (%d skipped, %d duplicates)\n", r.Records, r.Skipped, r.Duplicates)
		for _, ext := range sortedKeys(r.Extensions) {
			fmt.Fprintf(c.w, "  %-12s %d\n", ext, r.Extensions[ext])
		}
	}
	if len(r.ExtraFlags) > 0 {
		fmt.Fprintf(c.w, "extra_flags:   %q\n", r.ExtraFlags)
	}
	fmt.Fprintf(c.w, "metadata:\n")
	for _, k := range sortedKeys(r.Metadata) {
		fmt.Fprintf(c.w, "  %-12s %s\n", k, r.Metadata[k])
	}
	fmt.Fprintf(c.w, "duration:      %s\n", r.Duration)
	return nil
}

func statusLine(status string) string {
	var out string
	switch status {
	case statusOK:
		out = ui.SGR(ui.Green, status)
	case statusMissing:
		out = ui.SGR(ui.Yellow, status)
	default:
		out = ui.SGR(ui.Red, status)
	}
	if !ui.IsTerminal() {
		out = ui.StripANSIEscapeCodes(out)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
