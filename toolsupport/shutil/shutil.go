// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides shell command line utilities.
package shutil

import (
	"fmt"
	"strings"
)

// Split splits a shell command line into an argument vector.
//
// It understands double quotes, single quotes and backslash escapes,
// which is as much shell as build generators put into a compilation
// database command. Command lines that use shell metacharacters
// (pipes, redirection, substitution) outside quotes are rejected, as
// are command lines that start with an environment assignment; both
// would need a real shell to interpret.
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	inArg := false
	i := 0
	for i < len(cmdline) {
		switch ch := cmdline[i]; ch {
		case ' ', '\t':
			if inArg {
				args = append(args, sb.String())
				sb.Reset()
				inArg = false
			}
			i++
		case '\\':
			if i+1 >= len(cmdline) {
				return nil, fmt.Errorf("failed to split: trailing backslash")
			}
			sb.WriteByte(cmdline[i+1])
			inArg = true
			i += 2
		case '"':
			inArg = true
			i++
			for {
				if i >= len(cmdline) {
					return nil, fmt.Errorf("failed to split: unterminated double quote")
				}
				c := cmdline[i]
				if c == '"' {
					i++
					break
				}
				if c == '\\' {
					if i+1 >= len(cmdline) {
						return nil, fmt.Errorf("failed to split: trailing backslash in double quote")
					}
					sb.WriteByte(cmdline[i+1])
					i += 2
					continue
				}
				sb.WriteByte(c)
				i++
			}
		case '\'':
			inArg = true
			i++
			j := strings.IndexByte(cmdline[i:], '\'')
			if j < 0 {
				return nil, fmt.Errorf("failed to split: unterminated single quote")
			}
			sb.WriteString(cmdline[i : i+j])
			i += j + 1
		case ';', '&', '|', '<', '>', '$', '#', '`':
			return nil, fmt.Errorf("failed to split: cmdline contains shell metachar %q", ch)
		default:
			sb.WriteByte(ch)
			inArg = true
			i++
		}
	}
	if inArg {
		args = append(args, sb.String())
	}
	if len(args) >= 1 && strings.Contains(args[0], "=") {
		// e.g. `CCACHE_DIR=/dir ccache clang++ ...`. setting env vars
		// is the shell's job, not ours.
		return nil, fmt.Errorf("failed to split: argv[0] is env set %q", args[0])
	}
	return args, nil
}

// Join renders an argument vector as a single shell command line
// that Split would split back into the same vector.
func Join(args []string) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(quote(arg))
	}
	return sb.String()
}

func quote(arg string) string {
	if arg == "" {
		return `''`
	}
	if !strings.ContainsAny(arg, " \t\"'\\;&|<>$#`(){}*?~") {
		return arg
	}
	// single quotes pass everything but the quote itself.
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
