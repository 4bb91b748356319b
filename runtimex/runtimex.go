// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runtimex provides runtime information the standard runtime
// package gets wrong for confined processes.
package runtimex

import "runtime"

var ncpu = numCPU()

func numCPU() int {
	if n := getproccount(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// NumCPU returns the number of logical CPUs usable by the current
// process. On Linux it asks the kernel for the current affinity mask,
// so it reflects the cpuset an editor host or container confined us
// to; runtime.NumCPU caches the mask of the starting thread and never
// sees later changes. Elsewhere it falls back to runtime.NumCPU.
func NumCPU() int {
	return ncpu
}
