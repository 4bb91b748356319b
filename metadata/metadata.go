// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package metadata provides a data structure to hold host metadata.
package metadata

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strconv"

	"github.com/klauspost/cpuid/v2"

	"go.chromium.org/infra/build/ideflags/runtimex"
)

// Metadata contains structured metadata about the host.
// It can hold arbitrary key-value pairs, but some keys are well-known:
//   - num_cpu: number of usable CPUs (see runtimex.NumCPU)
//   - goos: the value of Go's GOOS constant
//   - goarch: the value of Go's GOARCH constant
//   - cpu: the CPU brand string
type Metadata struct {
	entries map[string]string
}

// New returns a Metadata preseeded with the well-known keys.
func New() Metadata {
	return Metadata{
		entries: map[string]string{
			"num_cpu": strconv.Itoa(runtimex.NumCPU()),
			"goos":    runtime.GOOS,
			"goarch":  runtime.GOARCH,
			"cpu":     cpuid.CPU.BrandName,
		},
	}
}

// Keys returns all available keys in the metadata.
func (md Metadata) Keys() []string {
	return slices.Collect(maps.Keys(md.entries))
}

// SortedKeys returns all available keys in the metadata, sorted.
func (md Metadata) SortedKeys() []string {
	return slices.Sorted(maps.Keys(md.entries))
}

// Set sets a key-value pair in the metadata.
// The well-known keys cannot be overridden.
func (md Metadata) Set(key, value string) error {
	switch key {
	case "num_cpu", "goos", "goarch", "cpu":
		return fmt.Errorf("cannot override well-known key %q in metadata", key)
	}
	md.entries[key] = value
	return nil
}

// Get returns the value for the given key, or the empty string when
// the key is not set.
func (md Metadata) Get(key string) string {
	return md.entries[key]
}

// Size returns the number of key-value pairs in the metadata.
func (md Metadata) Size() int {
	return len(md.entries)
}
