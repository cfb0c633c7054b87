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

// Package artifact models the file/value object model that the command-line
// builder in package cmdline consumes as an external collaborator. It is
// adapted from the Path/WritablePath hierarchy in the teacher's
// android/paths.go, trimmed to the handful of concepts the builder actually
// needs: a plain value, a file (plain/tree/fileset), a remapper, and a
// directory expander.
package artifact

import "fmt"

// Kind distinguishes the three flavors of file-like artifact.
type Kind int

const (
	// Plain is an ordinary single file.
	Plain Kind = iota
	// Tree is a tree artifact: a directory of outputs whose member files are
	// only known by expanding it through an Expander.
	Tree
	// Fileset is a symlink-tree manifest whose members are resolved through
	// an Expander's fileset manifest.
	Fileset
)

// File is a file-like artifact: a plain file, a tree artifact, or a
// fileset.
type File struct {
	execPath string
	kind     Kind
	source   bool // true if this is a source artifact, false if derived (output-tree)

	// fileset is non-nil only for entries synthesized by NewFilesetEntry
	// (whose kind is Plain), and names the owner fileset they were expanded
	// from. A fileset itself has kind == Fileset and a nil fileset field.
	fileset *File

	// preRemapped is true for entries synthesized during directory
	// expansion whose execPath was already built against the remapped
	// exec-path space (see NewFilesetEntry). It keeps ExpandToCommandLine
	// from applying a remapper a second time to a path that has already
	// been through one.
	preRemapped bool
}

// NewSourceFile returns a File for a source-tree plain file. Source paths
// are stable and never subject to remapping.
func NewSourceFile(execPath string) *File {
	return &File{execPath: execPath, kind: Plain, source: true}
}

// NewDerivedFile returns a File for an output-tree plain file. Its exec path
// is subject to remapping.
func NewDerivedFile(execPath string) *File {
	return &File{execPath: execPath, kind: Plain}
}

// NewTreeArtifact returns a derived File representing a directory of
// outputs, expanded via Expander.ExpandTree.
func NewTreeArtifact(execPath string) *File {
	return &File{execPath: execPath, kind: Tree}
}

// NewFileset returns a derived File representing a symlink-tree manifest,
// expanded via Expander.Fileset.
func NewFileset(execPath string) *File {
	return &File{execPath: execPath, kind: Fileset}
}

// NewFilesetEntry synthesizes the file-like entity produced for a single
// fileset manifest entry: not a directory, not a source artifact, owned by
// the fileset it was expanded from. execPath is expected to already be
// built against the remapped exec-path space, so it is marked preRemapped
// to keep later coercion from remapping it again.
func NewFilesetEntry(execPath string, owner *File) *File {
	return &File{execPath: execPath, kind: Plain, fileset: owner, preRemapped: true}
}

// ExecPath returns the file's raw exec path, before any remapping.
func (f *File) ExecPath() string { return f.execPath }

// IsSourceArtifact reports whether this is a stable source-tree path. A
// fileset-synthesized entry always reports false.
func (f *File) IsSourceArtifact() bool { return f.source }

// IsDirectory reports whether this file must be expanded before it can
// appear on a command line. A fileset-synthesized entry always reports
// false.
func (f *File) IsDirectory() bool {
	return f.kind == Tree || (f.kind == Fileset && f.fileset == nil)
}

// IsTreeArtifact reports whether this is a tree artifact.
func (f *File) IsTreeArtifact() bool { return f.kind == Tree }

// IsFileset reports whether this is a fileset (not a fileset-synthesized
// entry — those report Plain).
func (f *File) IsFileset() bool { return f.kind == Fileset && f.fileset == nil }

// Owner returns the fileset this entry was synthesized from, or nil if this
// File was not produced by fileset expansion.
func (f *File) Owner() *File { return f.fileset }

// Remapper is a pure function over exec paths implementing the build's
// output-path-mapping policy. It is applied only to derived (output-tree)
// artifacts; source paths bypass it entirely.
type Remapper struct {
	Map func(execPath string) string

	// MapCustomStarlarkArgs rewrites the fully decoded argument vector as a
	// post-processing pass. A nil func is treated as the identity function.
	MapCustomStarlarkArgs func(args []string) []string
}

// NoopRemapper is the distinguished identity Remapper: Map and
// MapCustomStarlarkArgs both act as identity functions. Fingerprinting
// always uses NoopRemapper.
var NoopRemapper = Remapper{}

// apply returns remapper.Map(execPath), or execPath unchanged if remapper
// has no Map function.
func (r Remapper) apply(execPath string) string {
	if r.Map == nil {
		return execPath
	}
	return r.Map(execPath)
}

// mapArgs returns remapper.MapCustomStarlarkArgs(args), or args unchanged.
func (r Remapper) mapArgs(args []string) []string {
	if r.MapCustomStarlarkArgs == nil {
		return args
	}
	return r.MapCustomStarlarkArgs(args)
}

// ExpandToCommandLine implements the coercion rule for a decoded value:
//
//	If value is a derived artifact (output-tree file) whose path has not
//	already been remapped, return remapper(value.execPath).
//	Otherwise return the host-provided expandToCommandLine(value): for a
//	File this is its raw exec path; for a plain string it passes through
//	unchanged.
func ExpandToCommandLine(value any, remapper Remapper) string {
	switch v := value.(type) {
	case *File:
		if v.IsSourceArtifact() || v.preRemapped {
			return v.execPath
		}
		return remapper.apply(v.execPath)
	case string:
		return v
	default:
		return Coerce(value)
	}
}

// MapArgs runs the remapper's post-decoding hook over a fully decoded
// argument vector.
func MapArgs(remapper Remapper, args []string) []string {
	return remapper.mapArgs(args)
}

// Coerce converts a host scalar value to its command-line string form. It
// is the fallback used by ExpandToCommandLine for values that are neither a
// *File nor already a string — e.g. host-boxed integers or booleans
// produced by the embedded scripting runtime.
func Coerce(value any) string {
	switch v := value.(type) {
	case *File:
		return v.execPath
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
