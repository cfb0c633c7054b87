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

// Package script adapts the embedded scripting runtime's callables to the
// per-element map-each contract. It wraps go.starlark.net/starlark — the
// Go Starlark interpreter also used by this retrieval pack's
// starlark-go-bazel ctx.go reference — as the concrete callable
// implementation for this edition.
package script

import (
	"context"
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/rulebuild/cmdline/artifact"
)

// Location is a source location attached to a map-each invocation, used to
// prefix wrapped evaluation errors.
type Location struct {
	File string
	Line int
	Col  int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Semantics is an opaque handle describing host-specific map-each evaluation
// rules (e.g. which dialect of the scripting language is in effect). The
// core never inspects it; it is only threaded through for the host's
// benefit.
type Semantics struct {
	Name string
}

// Callable is the map-each contract: invoke once per value, optionally
// passing a DirectoryExpander handle as a second argument when the
// callable declares it wants one.
type Callable struct {
	fn         starlark.Callable
	paramCount int
}

// NewCallable wraps a starlark.Callable as a Callable, pre-computing its
// declared parameter count for the "wants a directory expander" test:
// detect whether the callable wants a second parameter via its declared
// parameter count being at least two.
func NewCallable(fn starlark.Callable) *Callable {
	return &Callable{fn: fn, paramCount: parameterCount(fn)}
}

// arityReporter lets a host-defined starlark.Builtin self-report its
// declared arity, since starlark.Builtin itself exposes no such
// introspection (unlike *starlark.Function.NumParams).
type arityReporter interface {
	Arity() int
}

func parameterCount(fn starlark.Callable) int {
	switch f := fn.(type) {
	case *starlark.Function:
		return f.NumParams()
	case arityReporter:
		return f.Arity()
	default:
		// Conservatively assume single-argument arity for opaque builtins;
		// hosts that need the DirectoryExpander parameter must wrap their
		// builtin in an arityReporter.
		return 1
	}
}

// Identity returns a value unique to the wrapped callable's identity, used
// as the map-each adaptor cache key component: identity of the callable,
// not the callable's own hash value.
func (c *Callable) Identity() uintptr {
	return reflectIdentity(c.fn)
}

// WantsExpander reports whether this callable's declared arity is ≥ 2, i.e.
// it wants a DirectoryExpander handle as its second argument.
func (c *Callable) WantsExpander() bool {
	return c.paramCount >= 2
}

// CommandLineExpansionError is the recoverable error kind produced for
// malformed format strings, map-each wrong-return-type, missing fileset
// expansion, or a wrapped scripting evaluation error. It mirrors the
// teacher's own concrete error type convention (android/paths.go's
// missingDependencyError).
type CommandLineExpansionError struct {
	msg string
}

func (e *CommandLineExpansionError) Error() string { return e.msg }

// NewCommandLineExpansionError builds a CommandLineExpansionError from a
// plain message.
func NewCommandLineExpansionError(format string, args ...any) *CommandLineExpansionError {
	return &CommandLineExpansionError{msg: fmt.Sprintf(format, args...)}
}

// WrapEvalError wraps a scripting evaluation error into a
// CommandLineExpansionError, formatted as:
//
//	"\n" + "<location>: <message-with-stack>" + optional cause-message
//
// The cause message is omitted if its text is already a substring of the
// main message.
func WrapEvalError(loc Location, err error) *CommandLineExpansionError {
	mainMsg := err.Error()
	if evalErr, ok := err.(*starlark.EvalError); ok {
		mainMsg = evalErr.Backtrace()
	}

	msg := "\n" + loc.String() + ": " + mainMsg

	if cause := errorsUnwrap(err); cause != nil {
		causeMsg := cause.Error()
		if !strings.Contains(mainMsg, causeMsg) {
			msg += ": " + causeMsg
		}
	}

	return &CommandLineExpansionError{msg: msg}
}

func errorsUnwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}

// Result is the decoded return value of a single map-each invocation: zero
// or more strings to forward to the output sink, matching the accepted
// "string / None / list of strings" contract.
type Result struct {
	Strings []string
	Skipped bool // true for the scripting "none" sentinel
}

// DecodeReturn validates a starlark.Value returned from a map-each call
// against the accepted return shapes, producing a
// CommandLineExpansionError on any other shape.
func DecodeReturn(v starlark.Value) (Result, error) {
	switch val := v.(type) {
	case starlark.String:
		return Result{Strings: []string{string(val)}}, nil
	case starlark.NoneType:
		return Result{Skipped: true}, nil
	case *starlark.List:
		out := make([]string, 0, val.Len())
		iter := val.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			s, ok := item.(starlark.String)
			if !ok {
				return Result{}, NewCommandLineExpansionError(
					"Expected map_each to return string, None, or list of strings, found list containing %s", item.Type())
			}
			out = append(out, string(s))
		}
		return Result{Strings: out}, nil
	default:
		return Result{}, NewCommandLineExpansionError(
			"Expected map_each to return string, None, or list of strings, found %s", v.Type())
	}
}

// Apply invokes the wrapped callable once per value, in order, forwarding
// each decoded return to sink. It establishes a single starlark.Thread for
// the whole invocation (cheap to reuse, scoped to this call), and — when
// the callable wants one — passes a DirectoryExpander handle as a second
// positional argument.
func Apply(ctx context.Context, callable *Callable, values []any, loc Location, sem Semantics, expander DirectoryExpander, sink func(string)) error {
	thread := &starlark.Thread{
		Name: sem.Name,
	}
	thread.SetLocal("context", ctx)

	wantsExpander := callable.WantsExpander()

	for _, value := range values {
		arg, err := toStarlarkValue(value)
		if err != nil {
			return err
		}

		args := starlark.Tuple{arg}
		if wantsExpander {
			args = append(args, newExpanderValue(expander, value))
		}

		result, err := starlark.Call(thread, callable.fn, args, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return WrapEvalError(loc, err)
		}

		decoded, err := DecodeReturn(result)
		if err != nil {
			return err
		}
		if decoded.Skipped {
			continue
		}
		for _, s := range decoded.Strings {
			sink(s)
		}
	}
	return nil
}

func toStarlarkValue(value any) (starlark.Value, error) {
	switch v := value.(type) {
	case string:
		return starlark.String(v), nil
	case *artifact.File:
		return &fileValue{f: v}, nil
	default:
		return starlark.String(artifact.Coerce(value)), nil
	}
}

// fileValue is a minimal starlark.Value wrapper around an *artifact.File so
// that map-each callables written in Starlark can read the exec path of
// the values they receive via the "path" attribute. Everything else about
// the scripting runtime's File type is an external collaborator and out of
// scope for this core.
type fileValue struct {
	f *artifact.File
}

func (fv *fileValue) String() string        { return fv.f.ExecPath() }
func (fv *fileValue) Type() string          { return "file" }
func (fv *fileValue) Freeze()               {}
func (fv *fileValue) Truth() starlark.Bool  { return starlark.Bool(fv.f.ExecPath() != "") }
func (fv *fileValue) Hash() (uint32, error) { return starlark.String(fv.f.ExecPath()).Hash() }

func (fv *fileValue) Attr(name string) (starlark.Value, error) {
	if name != "path" {
		return nil, nil
	}
	return starlark.String(fv.f.ExecPath()), nil
}

func (fv *fileValue) AttrNames() []string { return []string{"path"} }

var (
	_ starlark.Value    = (*fileValue)(nil)
	_ starlark.HasAttrs = (*fileValue)(nil)
)
