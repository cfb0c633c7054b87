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

package cmdline

import (
	"fmt"

	"github.com/rulebuild/cmdline/lazyset"
	"github.com/rulebuild/cmdline/script"
)

// VectorBuilder accumulates the optional fields of a pending vector
// argument before it is pushed onto a Builder's instruction stream. Each
// With* method mutates and returns the VectorBuilder so calls can be
// chained, matching the teacher's RuleBuilderCommand chaining convention
// (rule_builder.go).
type VectorBuilder struct {
	values []any
	set    *lazyset.Set[any]

	mapEach   *script.Callable
	location  script.Location
	semantics script.Semantics
	hasMapEach bool

	expandDirectories bool
	uniquify          bool
	omitIfEmpty       bool

	argName       string
	hasArgName    bool
	formatEach    string
	hasFormatEach bool
	beforeEach    string
	hasBeforeEach bool
	joinWith      string
	hasJoinWith   bool
	formatJoined  string
	hasFormatJoined bool
	terminateWith string
	hasTerminateWith bool
}

// NewVectorBuilder returns a VectorBuilder over a plain list of values.
func NewVectorBuilder(values ...any) *VectorBuilder {
	return &VectorBuilder{values: values}
}

// NewVectorBuilderFromSet returns a VectorBuilder over a lazily-flattened
// set.
func NewVectorBuilderFromSet(set *lazyset.Set[any]) *VectorBuilder {
	return &VectorBuilder{set: set}
}

// WithMapEach attaches a per-element scripting callable. A source location
// is always required when a map-each is attached, since it is cheap to
// carry unconditionally and priceless when a callable raises an error.
func (b *VectorBuilder) WithMapEach(callable *script.Callable, loc script.Location, sem script.Semantics) *VectorBuilder {
	if callable == nil {
		panic(fmt.Errorf("WithMapEach: callable must not be nil"))
	}
	b.mapEach = callable
	b.location = loc
	b.semantics = sem
	b.hasMapEach = true
	return b
}

// WithExpandDirectories sets EXPAND_DIRECTORIES.
func (b *VectorBuilder) WithExpandDirectories() *VectorBuilder {
	b.expandDirectories = true
	return b
}

// WithUniquify sets UNIQUIFY.
func (b *VectorBuilder) WithUniquify() *VectorBuilder {
	b.uniquify = true
	return b
}

// WithOmitIfEmpty sets OMIT_IF_EMPTY.
func (b *VectorBuilder) WithOmitIfEmpty() *VectorBuilder {
	b.omitIfEmpty = true
	return b
}

// WithArgName sets HAS_ARG_NAME.
func (b *VectorBuilder) WithArgName(name string) *VectorBuilder {
	b.argName = name
	b.hasArgName = true
	return b
}

// WithFormatEach sets HAS_FORMAT_EACH.
func (b *VectorBuilder) WithFormatEach(format string) *VectorBuilder {
	b.formatEach = format
	b.hasFormatEach = true
	return b
}

// WithBeforeEach sets HAS_BEFORE_EACH. Mutually exclusive with
// WithJoinWith; combining both panics when the vector is passed to
// Builder.AddVector.
func (b *VectorBuilder) WithBeforeEach(sep string) *VectorBuilder {
	b.beforeEach = sep
	b.hasBeforeEach = true
	return b
}

// WithJoinWith sets HAS_JOIN_WITH. Mutually exclusive with WithBeforeEach.
func (b *VectorBuilder) WithJoinWith(delim string) *VectorBuilder {
	b.joinWith = delim
	b.hasJoinWith = true
	return b
}

// WithFormatJoined sets HAS_FORMAT_JOINED. Requires WithJoinWith; checked
// in Builder.AddVector.
func (b *VectorBuilder) WithFormatJoined(format string) *VectorBuilder {
	b.formatJoined = format
	b.hasFormatJoined = true
	return b
}

// WithTerminateWith sets HAS_TERMINATE_WITH.
func (b *VectorBuilder) WithTerminateWith(terminator string) *VectorBuilder {
	b.terminateWith = terminator
	b.hasTerminateWith = true
	return b
}

// features computes the interned feature word for this VectorBuilder,
// validating two invariants:
//   - HAS_BEFORE_EACH and HAS_JOIN_WITH are mutually exclusive.
//   - HAS_FORMAT_JOINED requires HAS_JOIN_WITH.
func (b *VectorBuilder) features() *Features {
	if b.hasBeforeEach && b.hasJoinWith {
		panic(fmt.Errorf("cmdline: before_each and join_with may not both be set on the same vector argument"))
	}
	if b.hasFormatJoined && !b.hasJoinWith {
		panic(fmt.Errorf("cmdline: format_joined requires join_with"))
	}

	var bits Feature
	if b.hasMapEach {
		bits |= HasMapEach
	}
	if b.set != nil {
		bits |= IsNestedSet
	}
	if b.expandDirectories {
		bits |= ExpandDirectories
	}
	if b.uniquify {
		bits |= Uniquify
	}
	if b.omitIfEmpty {
		bits |= OmitIfEmpty
	}
	if b.hasArgName {
		bits |= HasArgName
	}
	if b.hasFormatEach {
		bits |= HasFormatEach
	}
	if b.hasBeforeEach {
		bits |= HasBeforeEach
	}
	if b.hasJoinWith {
		bits |= HasJoinWith
	}
	if b.hasFormatJoined {
		bits |= HasFormatJoined
	}
	if b.hasTerminateWith {
		bits |= HasTerminateWith
	}
	return Intern(bits)
}
