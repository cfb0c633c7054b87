// Copyright 2024 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package script

import (
	"context"
	"reflect"

	"go.starlark.net/starlark"

	"github.com/rulebuild/cmdline/artifact"
)

// reflectIdentity returns a stable identity for a starlark.Callable, used
// as the "identity(callable)" half of the map-each adaptor cache key.
// *starlark.Function values are themselves pointers, so their
// reflect.Value pointer is a valid identity; Builtins wrap a Go function
// value, whose code pointer is likewise stable for the process lifetime.
func reflectIdentity(fn starlark.Callable) uintptr {
	v := reflect.ValueOf(fn)
	switch v.Kind() {
	case reflect.Ptr:
		return v.Pointer()
	case reflect.Func:
		return v.Pointer()
	default:
		// Fall back to the address of a copy; two distinct non-pointer
		// Callables will never compare equal under this scheme, which is
		// safe (it just forgoes cache sharing) rather than incorrect.
		return reflect.ValueOf(&fn).Pointer()
	}
}

// DirectoryExpander is the second positional argument a map-each callable
// may opt into by declaring two parameters. It exposes the same "list the
// contained files of a tree artifact, or this file by itself" operation
// the host's full expander and noop expander both implement, just gated by
// whether an execution-time artifact.Expander is actually available.
type DirectoryExpander interface {
	List(ctx context.Context, f *artifact.File) ([]*artifact.File, error)
}

// FullExpander is the execution-time DirectoryExpander: given a tree
// artifact, lists its contained files; given a non-tree file, returns
// [file] unchanged.
type FullExpander struct {
	Expander artifact.Expander
}

func (e FullExpander) List(ctx context.Context, f *artifact.File) ([]*artifact.File, error) {
	if f.IsTreeArtifact() {
		return e.Expander.ExpandTree(ctx, f)
	}
	return []*artifact.File{f}, nil
}

// NoopExpander is the analysis-time DirectoryExpander: it always returns
// [file], since no live execution-time expander is available yet.
type NoopExpander struct{}

func (NoopExpander) List(_ context.Context, f *artifact.File) ([]*artifact.File, error) {
	return []*artifact.File{f}, nil
}

// expanderValue is the starlark.Value surface for a DirectoryExpander,
// exposing a single callable attribute: expander.list(v) -> list of file
// values for the file v (or, called with no argument, for the value being
// mapped), so a callable can do `[f.path for f in expander.list(v)]`.
type expanderValue struct {
	exp   DirectoryExpander
	value any
}

func newExpanderValue(exp DirectoryExpander, value any) starlark.Value {
	return &expanderValue{exp: exp, value: value}
}

func (e *expanderValue) String() string        { return "<directory_expander>" }
func (e *expanderValue) Type() string          { return "directory_expander" }
func (e *expanderValue) Freeze()               {}
func (e *expanderValue) Truth() starlark.Bool  { return starlark.True }
func (e *expanderValue) Hash() (uint32, error) { return 0, nil }

func (e *expanderValue) Attr(name string) (starlark.Value, error) {
	if name != "list" {
		return nil, nil
	}
	return starlark.NewBuiltin("list", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		ctx, _ := thread.Local("context").(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		var f *artifact.File
		if len(args) > 0 {
			if fv, ok := args[0].(*fileValue); ok {
				f = fv.f
			}
		} else {
			f, _ = e.value.(*artifact.File)
		}
		if f == nil {
			return starlark.NewList(nil), nil
		}
		files, err := e.exp.List(ctx, f)
		if err != nil {
			return nil, err
		}
		elems := make([]starlark.Value, len(files))
		for i, file := range files {
			elems[i] = &fileValue{f: file}
		}
		return starlark.NewList(elems), nil
	}), nil
}

func (e *expanderValue) AttrNames() []string { return []string{"list"} }

var (
	_ starlark.Value    = (*expanderValue)(nil)
	_ starlark.HasAttrs = (*expanderValue)(nil)
)
