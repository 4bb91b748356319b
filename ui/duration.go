// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"time"
)

// FormatDuration formats duration in "X.XXs", "XmXX.XXs" or "XhXmXX.XXs".
func FormatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	hours := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	secs := (d % time.Minute).Seconds()
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%05.2fs", hours, mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm%05.2fs", mins, secs)
	}
	return fmt.Sprintf("%.2fs", secs)
}
