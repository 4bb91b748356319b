// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command ideflags resolves compiler flags for editor semantic completion.
//
// It reads the compilation database a build writes into its output
// directory and answers, for any file in a project, the compiler
// command line a completion engine should parse that file with.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/infra/build/ideflags/subcmd/check"
	"go.chromium.org/infra/build/ideflags/subcmd/flags"
	"go.chromium.org/infra/build/ideflags/subcmd/version"
	"go.chromium.org/infra/build/ideflags/ui"
)

// versionStr is the version of `ideflags`, updated by the release script.
const versionStr = "0.9.0"

func getApplication() *subcommands.DefaultApplication {
	return &subcommands.DefaultApplication{
		Name:  "ideflags",
		Title: fmt.Sprintf("ideflags %s, compiler flag resolver for editors", versionStr),
		Commands: []*subcommands.Command{
			flags.Cmd(),
			check.Cmd(),
			version.Cmd(versionStr),
			subcommands.CmdHelp,
		},
	}
}

func main() {
	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			fmt.Fprintf(os.Stderr, "%s\n", ui.SGR(ui.Red, fmt.Sprintf("ideflags panic: %v", r)))
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()
	os.Exit(subcommands.Run(getApplication(), nil))
}
