package script

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"go.starlark.net/starlark"

	"github.com/rulebuild/cmdline/artifact"
)

func TestDecodeReturnString(t *testing.T) {
	got, err := DecodeReturn(starlark.String("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, Result{Strings: []string{"x"}}) {
		t.Errorf("DecodeReturn(string) = %+v", got)
	}
}

func TestDecodeReturnNoneIsSkipped(t *testing.T) {
	got, err := DecodeReturn(starlark.None)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Skipped {
		t.Errorf("DecodeReturn(None) should be Skipped, got %+v", got)
	}
}

func TestDecodeReturnListOfStrings(t *testing.T) {
	list := starlark.NewList([]starlark.Value{starlark.String("a"), starlark.String("b")})
	got, err := DecodeReturn(list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.Strings, []string{"a", "b"}) {
		t.Errorf("DecodeReturn(list) = %v", got.Strings)
	}
}

func TestDecodeReturnRejectsListOfNonStrings(t *testing.T) {
	list := starlark.NewList([]starlark.Value{starlark.MakeInt(1)})
	_, err := DecodeReturn(list)
	if err == nil {
		t.Fatal("expected CommandLineExpansionError for a list containing a non-string")
	}
}

func TestDecodeReturnRejectsOtherTypes(t *testing.T) {
	_, err := DecodeReturn(starlark.MakeInt(1))
	if err == nil {
		t.Fatal("expected CommandLineExpansionError for a non string/None/list return")
	}
}

func builtinCallable(name string, fn func(path string) starlark.Value) *Callable {
	b := starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		fv := args[0].(*fileValue)
		return fn(fv.f.ExecPath()), nil
	})
	return NewCallable(b)
}

func TestCallableWantsExpanderDefaultsToFalseForBuiltins(t *testing.T) {
	c := builtinCallable("f", func(p string) starlark.Value { return starlark.String(p) })
	if c.WantsExpander() {
		t.Error("a bare starlark.Builtin should conservatively report WantsExpander() == false")
	}
}

func TestApplyInvokesCallablePerValueInOrder(t *testing.T) {
	c := builtinCallable("include_each", func(p string) starlark.Value {
		return starlark.String("-I" + p)
	})

	values := []any{artifact.NewSourceFile("a"), artifact.NewSourceFile("b")}
	var got []string
	err := Apply(context.Background(), c, values, Location{File: "BUILD", Line: 1, Col: 1}, Semantics{Name: "t"}, NoopExpander{}, func(s string) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"-Ia", "-Ib"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() sink received %v, want %v", got, want)
	}
}

func TestApplySkipsNoneReturns(t *testing.T) {
	c := NewCallable(starlark.NewBuiltin("maybe", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		fv := args[0].(*fileValue)
		if fv.f.ExecPath() == "skip" {
			return starlark.None, nil
		}
		return starlark.String(fv.f.ExecPath()), nil
	}))

	values := []any{artifact.NewSourceFile("skip"), artifact.NewSourceFile("keep")}
	var got []string
	err := Apply(context.Background(), c, values, Location{}, Semantics{}, NoopExpander{}, func(s string) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"keep"}) {
		t.Errorf("Apply() = %v, want only the non-skipped value", got)
	}
}

func TestApplyWrapsEvalErrorWithLocation(t *testing.T) {
	c := NewCallable(starlark.NewBuiltin("boom", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return nil, &starlark.EvalError{Msg: "boom"}
	}))

	err := Apply(context.Background(), c, []any{artifact.NewSourceFile("a")}, Location{File: "BUILD", Line: 3, Col: 4}, Semantics{}, NoopExpander{}, func(string) {})
	if err == nil {
		t.Fatal("expected a wrapped CommandLineExpansionError")
	}
	if _, ok := err.(*CommandLineExpansionError); !ok {
		t.Errorf("expected *CommandLineExpansionError, got %T", err)
	}
	if !strings.Contains(err.Error(), "BUILD:3:4") {
		t.Errorf("wrapped error %q does not name the call location BUILD:3:4", err.Error())
	}
}

func TestFileValueExposesPathAttr(t *testing.T) {
	fv := &fileValue{f: artifact.NewSourceFile("src/a.c")}
	v, err := fv.Attr("path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := v.(starlark.String); !ok || string(s) != "src/a.c" {
		t.Errorf("Attr(path) = %v, want src/a.c", v)
	}
}
