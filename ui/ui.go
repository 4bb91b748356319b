// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ui provides user interface functionalities.
package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

var isTerminal = term.IsTerminal(int(os.Stdout.Fd()))

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return isTerminal
}

// SGRCode is a select graphic rendition code.
// https://en.wikipedia.org/wiki/ANSI_escape_code#SGR_(Select_Graphic_Rendition)_parameters
type SGRCode int

const (
	Reset SGRCode = iota
	Bold
	Red
	Green
	Yellow
	BackgroundRed
)

var sgrEscSeq = [...]string{
	Reset:         "\033[0m",
	Bold:          "\033[1m",
	Red:           "\033[31;1m",
	Green:         "\033[32m",
	Yellow:        "\033[33m",
	BackgroundRed: "\033[41;37m",
}

func (s SGRCode) String() string {
	return sgrEscSeq[s]
}

// SGR formats s in SGR (select graphic rendition).
func SGR(n SGRCode, s string) string {
	return n.String() + s + Reset.String()
}

// StripANSIEscapeCodes strips CSI escape sequences from s.
// A lone escape byte is dropped; any other byte after an escape is kept.
func StripANSIEscapeCodes(s string) string {
	var sb strings.Builder
	for {
		esc := strings.IndexByte(s, '\033')
		if esc < 0 {
			if sb.Len() == 0 {
				return s
			}
			sb.WriteString(s)
			return sb.String()
		}
		sb.WriteString(s[:esc])
		s = s[esc+1:]
		if len(s) == 0 || s[0] != '[' {
			continue
		}
		// A CSI runs through parameter and intermediate bytes up to
		// and including one final alphabetic byte.
		end := strings.IndexFunc(s[1:], func(r rune) bool {
			return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		})
		if end < 0 {
			return sb.String()
		}
		s = s[1+end+1:]
	}
}
