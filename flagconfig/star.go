// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package flagconfig

import (
	"fmt"
	"runtime"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"go.chromium.org/infra/build/ideflags/metadata"
	"go.chromium.org/infra/build/ideflags/runtimex"
)

// builtinModule returns the values predeclared for the config file.
func builtinModule() starlark.StringDict {
	runtimeModule := &starlarkstruct.Module{
		Name: "runtime",
		Members: map[string]starlark.Value{
			"num_cpu": starlark.MakeInt(runtimex.NumCPU()),
			"os":      starlark.String(runtime.GOOS),
			"arch":    starlark.String(runtime.GOARCH),
		},
	}
	runtimeModule.Freeze()
	return starlark.StringDict{
		"runtime": runtimeModule,
		"struct":  starlark.NewBuiltin("struct", starlarkstruct.Make),
		"module":  starlark.NewBuiltin("module", starlarkstruct.MakeModule),
	}
}

// Starlark value to access metadata.
func starMetadata(md metadata.Metadata) starlark.Value {
	dict := starlark.NewDict(md.Size())
	// Starlark dictionaries preserve insertion order, so we iterate over the
	// sorted keys to ensure a deterministic order.
	for _, k := range md.SortedKeys() {
		dict.SetKey(starlark.String(k), starlark.String(md.Get(k)))
	}
	return dict
}

// Starlark value to access flags.
func starFlags(flags map[string]string) starlark.Value {
	dict := starlark.NewDict(len(flags))
	for k, v := range flags {
		dict.SetKey(starlark.String(k), starlark.String(v))
	}
	return dict
}

func unpackList(v starlark.Value) ([]string, error) {
	iterator := starlark.Iterate(v)
	if iterator == nil {
		return nil, fmt.Errorf("got %v; want iterator", v.Type())
	}
	defer iterator.Done()
	var elem starlark.Value
	var list []string
	for iterator.Next(&elem) {
		s, ok := starlark.AsString(elem)
		if !ok {
			return nil, fmt.Errorf("got %v in %v; want string", elem.Type(), v.Type())
		}
		list = append(list, s)
	}
	return list, nil
}
