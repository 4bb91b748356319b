// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package metadata

import (
	"runtime"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	md := New()
	want := []string{"cpu", "goarch", "goos", "num_cpu"}
	if diff := cmp.Diff(want, md.SortedKeys()); diff != "" {
		t.Errorf("SortedKeys(); diff -want +got:\n%s", diff)
	}
	n, err := strconv.Atoi(md.Get("num_cpu"))
	if err != nil || n < 1 {
		t.Errorf("Get(num_cpu)=%q; want a positive number", md.Get("num_cpu"))
	}
	if got := md.Get("goos"); got != runtime.GOOS {
		t.Errorf("Get(goos)=%q; want %q", got, runtime.GOOS)
	}
	if got := md.Get("goarch"); got != runtime.GOARCH {
		t.Errorf("Get(goarch)=%q; want %q", got, runtime.GOARCH)
	}
}

func TestSet(t *testing.T) {
	md := New()
	err := md.Set("project", "chromium")
	if err != nil {
		t.Fatalf(`Set("project", "chromium")=%v; want nil error`, err)
	}
	if got := md.Get("project"); got != "chromium" {
		t.Errorf("Get(project)=%q; want %q", got, "chromium")
	}
	if got := md.Size(); got != 5 {
		t.Errorf("Size()=%d; want 5", got)
	}
	err = md.Set("project", "v8")
	if err != nil {
		t.Fatalf(`Set("project", "v8")=%v; want nil error`, err)
	}
	if got := md.Get("project"); got != "v8" {
		t.Errorf("Get(project)=%q; want %q", got, "v8")
	}
}

func TestSet_WellKnown(t *testing.T) {
	md := New()
	for _, key := range []string{"num_cpu", "goos", "goarch", "cpu"} {
		err := md.Set(key, "override")
		if err == nil {
			t.Errorf("Set(%q, ...)=nil; want err", key)
		}
	}
}
