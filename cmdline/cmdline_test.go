package cmdline

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.starlark.net/starlark"

	"github.com/rulebuild/cmdline/artifact"
	"github.com/rulebuild/cmdline/lazyset"
	"github.com/rulebuild/cmdline/script"
)

func buildArgs(t *testing.T, cl *CommandLine) []string {
	t.Helper()
	args, err := cl.Arguments(context.Background())
	if err != nil {
		t.Fatalf("Arguments() error: %v", err)
	}
	return args
}

func TestPlainAndArgNamePrefixedVector(t *testing.T) {
	b := NewBuilder()
	b.Add("gcc")
	b.AddVector(NewVectorBuilder("a.c", "b.c").WithArgName("-I"))

	got := buildArgs(t, b.Build(false))
	want := []string{"gcc", "-I", "a.c", "b.c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Arguments() mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinWithFormatJoinedAndOmitIfEmpty(t *testing.T) {
	b := NewBuilder()
	b.AddVector(NewVectorBuilder("a", "b").WithJoinWith(",").WithFormatJoined("-D%s").WithOmitIfEmpty())
	got := buildArgs(t, b.Build(false))
	want := []string{"-Da,b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v", got, want)
	}

	b2 := NewBuilder()
	b2.AddVector(NewVectorBuilder().WithJoinWith(",").WithFormatJoined("-D%s").WithOmitIfEmpty())
	got2 := buildArgs(t, b2.Build(false))
	if len(got2) != 0 {
		t.Errorf("empty joined vector with OmitIfEmpty should vanish, got %v", got2)
	}
}

func TestUniquifyPreservesFirstOccurrenceOrder(t *testing.T) {
	b := NewBuilder()
	b.AddVector(NewVectorBuilder("b", "a", "b", "c", "a").WithUniquify())
	got := buildArgs(t, b.Build(false))
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v", got, want)
	}
}

func TestMapEachWithDirectoryExpansion(t *testing.T) {
	tree := artifact.NewTreeArtifact("out/gen")
	set := lazyset.NewBuilder[any](lazyset.Preorder).Direct(tree).Build()

	mapEach := script.NewCallable(starlark.NewBuiltin("exec_path", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		s, ok := args[0].(starlarkStringer)
		if !ok {
			return nil, nil
		}
		return starlark.String("-I" + s.String()), nil
	}))

	b := NewBuilder()
	b.AddVector(NewVectorBuilderFromSet(set).
		WithExpandDirectories().
		WithMapEach(mapEach, script.Location{}, script.Semantics{}))

	expander := &stubExpander{tree: map[string][]*artifact.File{
		"out/gen": {artifact.NewDerivedFile("out/gen/a.h"), artifact.NewDerivedFile("out/gen/b.h")},
	}}

	got, err := b.Build(false).ArgumentsWith(context.Background(), expander, artifact.NoopRemapper)
	if err != nil {
		t.Fatalf("ArgumentsWith() error: %v", err)
	}
	want := []string{"-Iout/gen/a.h", "-Iout/gen/b.h"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v", got, want)
	}
}

type starlarkStringer interface{ String() string }

type stubExpander struct {
	tree map[string][]*artifact.File
}

func (e *stubExpander) ExpandTree(_ context.Context, f *artifact.File) ([]*artifact.File, error) {
	return e.tree[f.ExecPath()], nil
}

func (e *stubExpander) Fileset(_ context.Context, f *artifact.File) (*artifact.FilesetManifest, error) {
	return nil, &artifact.ErrMissingExpansion{Fileset: f.ExecPath()}
}

func TestFlagPerLineCoalescesRecordedGroups(t *testing.T) {
	b := NewBuilder()
	b.RecordArgStart()
	b.Add("-o")
	b.Add("out/bin/app")

	b.RecordArgStart()
	b.AddVector(NewVectorBuilder("DEBUG", "VERSION=2").WithArgName("-D"))

	got := buildArgs(t, b.Build(true))
	want := []string{"-o=out/bin/app", "-D=DEBUG VERSION=2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Arguments() mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagPerLineSingleTokenGroupPassesThrough(t *testing.T) {
	b := NewBuilder()
	b.RecordArgStart()
	b.Add("--verbose")

	got := buildArgs(t, b.Build(true))
	want := []string{"--verbose"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v", got, want)
	}
}

func TestFlagPerLineOmitsBareEqualsWhenFirstTokenIsEmpty(t *testing.T) {
	b := NewBuilder()
	b.RecordArgStart()
	b.AddVector(NewVectorBuilder("", "v1", "v2"))

	b.RecordArgStart()
	b.Add("standalone")

	got := buildArgs(t, b.Build(true))
	want := []string{"v1 v2", "standalone"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v (empty first token must not produce a leading \"=\")", got, want)
	}
}

func TestFingerprintStableUnderRemapping(t *testing.T) {
	build := func() *CommandLine {
		b := NewBuilder()
		b.Add(artifact.NewDerivedFile("out/bin/app"))
		b.AddVector(NewVectorBuilder("a", "b").WithArgName("-I"))
		return b.Build(false)
	}

	cl1 := build()
	cl2 := build()

	sink1 := NewFingerprintSink()
	if err := cl1.AddToFingerprint(context.Background(), nil, sink1, lazyset.NewFingerprintCache()); err != nil {
		t.Fatalf("AddToFingerprint() error: %v", err)
	}

	sink2 := NewFingerprintSink()
	if err := cl2.AddToFingerprint(context.Background(), nil, sink2, lazyset.NewFingerprintCache()); err != nil {
		t.Fatalf("AddToFingerprint() error: %v", err)
	}

	if sink1.Sum64() != sink2.Sum64() {
		t.Errorf("two structurally identical command lines fingerprinted differently: %x != %x", sink1.Sum64(), sink2.Sum64())
	}

	args1, err := cl1.ArgumentsWith(context.Background(), nil, artifact.Remapper{Map: func(p string) string { return "sandbox/" + p }})
	if err != nil {
		t.Fatalf("ArgumentsWith() error: %v", err)
	}
	if args1[0] != "sandbox/out/bin/app" {
		t.Errorf("remapped derived file = %q, want sandbox/out/bin/app", args1[0])
	}
}

func TestFingerprintDiffersWhenValuesDiffer(t *testing.T) {
	build := func(v string) *CommandLine {
		b := NewBuilder()
		b.AddVector(NewVectorBuilder(v).WithArgName("-I"))
		return b.Build(false)
	}

	sinkA := NewFingerprintSink()
	if err := build("a").AddToFingerprint(context.Background(), nil, sinkA, nil); err != nil {
		t.Fatalf("AddToFingerprint() error: %v", err)
	}
	sinkB := NewFingerprintSink()
	if err := build("b").AddToFingerprint(context.Background(), nil, sinkB, nil); err != nil {
		t.Fatalf("AddToFingerprint() error: %v", err)
	}

	if sinkA.Sum64() == sinkB.Sum64() {
		t.Errorf("expected different fingerprints for different vector contents")
	}
}

func TestFormattedArgDirective(t *testing.T) {
	b := NewBuilder()
	b.AddFormatted("foo", "-D%s")
	got := buildArgs(t, b.Build(false))
	want := []string{"-Dfoo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v", got, want)
	}
}

func TestBeforeEachInterleavesSeparator(t *testing.T) {
	b := NewBuilder()
	b.AddVector(NewVectorBuilder("a", "b").WithBeforeEach("-I"))
	got := buildArgs(t, b.Build(false))
	want := []string{"-I", "a", "-I", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v", got, want)
	}
}

func TestBeforeEachAndJoinWithTogetherPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic combining WithBeforeEach and WithJoinWith")
		}
	}()
	NewBuilder().AddVector(NewVectorBuilder("a").WithBeforeEach("-I").WithJoinWith(","))
}

func TestFormatJoinedWithoutJoinWithPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic using WithFormatJoined without WithJoinWith")
		}
	}()
	NewBuilder().AddVector(NewVectorBuilder("a").WithFormatJoined("-D%s"))
}

func TestEmptyCommandLineIsEmpty(t *testing.T) {
	cl := NewBuilder().Build(false)
	if !cl.IsEmpty() {
		t.Error("a Builder with nothing added should produce an empty CommandLine")
	}
	args, err := cl.Arguments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("Arguments() on empty CommandLine = %v, want none", args)
	}
}

func TestFeaturesAreInternedByBitPattern(t *testing.T) {
	a := NewVectorBuilder("x").WithArgName("-I")
	b := NewVectorBuilder("y").WithArgName("-D")

	fa := a.features()
	fb := b.features()
	if fa != fb {
		t.Error("two VectorBuilders with the same feature bits should intern to the same *Features")
	}
}
