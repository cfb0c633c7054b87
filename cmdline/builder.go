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

// Builder is the append-only instruction stream writer. It has no
// concurrency control: like the teacher's RuleBuilder, a single Builder is
// meant to be used from one goroutine at a time.
type Builder struct {
	buf         buffer
	groupStarts []int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// RecordArgStart appends the current buffer length to the group-start
// list, used by flag-per-line mode to regroup the output into one logical
// flag per recorded group.
func (b *Builder) RecordArgStart() {
	b.groupStarts = append(b.groupStarts, len(b.buf))
}

// Add appends a single plain-value slot.
func (b *Builder) Add(value any) *Builder {
	b.buf = append(b.buf, slot{tag: tagValue, val: value})
	return b
}

// AddFormatted appends the single-formatted-arg marker followed by
// (value, format).
func (b *Builder) AddFormatted(value any, format string) *Builder {
	b.buf = append(b.buf, slot{tag: tagFormattedMarker})
	b.buf = append(b.buf, slot{tag: tagValue, val: value})
	b.buf = append(b.buf, slot{tag: tagValue, val: format})
	return b
}

// AddVector validates and serializes a pending VectorBuilder into the
// buffer, in the mandatory payload order:
//  1. map-each triple, if HAS_MAP_EACH
//  2. set handle, or count + values, depending on IS_NESTED_SET
//  3. arg-name / format-each / before-each / join-with / format-joined /
//     terminate-with, each only when its bit is set
func (b *Builder) AddVector(vb *VectorBuilder) *Builder {
	features := vb.features()
	b.buf = append(b.buf, slot{tag: tagVectorFeatures, val: features})

	if features.Has(HasMapEach) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.mapEach})
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.location})
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.semantics})
	}

	if features.Has(IsNestedSet) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.set})
	} else {
		b.buf = append(b.buf, slot{tag: tagValue, val: len(vb.values)})
		for _, v := range vb.values {
			b.buf = append(b.buf, slot{tag: tagValue, val: v})
		}
	}

	if features.Has(HasArgName) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.argName})
	}
	if features.Has(HasFormatEach) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.formatEach})
	}
	if features.Has(HasBeforeEach) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.beforeEach})
	}
	if features.Has(HasJoinWith) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.joinWith})
	}
	if features.Has(HasFormatJoined) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.formatJoined})
	}
	if features.Has(HasTerminateWith) {
		b.buf = append(b.buf, slot{tag: tagValue, val: vb.terminateWith})
	}

	return b
}

// Build returns an empty CommandLine if nothing was ever added; otherwise
// a plain or group-indexed CommandLine, per flagPerLine. The instruction
// stream is immutable from this point on.
func (b *Builder) Build(flagPerLine bool) *CommandLine {
	if len(b.buf) == 0 {
		return &CommandLine{}
	}

	buf := make(buffer, len(b.buf))
	copy(buf, b.buf)

	cl := &CommandLine{buf: buf}
	if flagPerLine {
		groupStarts := make([]int, len(b.groupStarts))
		copy(groupStarts, b.groupStarts)
		cl.groupStarts = groupStarts
		cl.flagPerLine = true
	}
	return cl
}
