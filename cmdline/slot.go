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

// slotTag discriminates the tagged-variant slots that make up the flat
// instruction buffer. The decoder is a single pattern-match loop over this
// tag rather than a type switch on interface{}, so advancing the cursor
// never needs a type assertion just to know how far to skip.
type slotTag uint8

const (
	// tagValue holds a plain value: a string, an *artifact.File, or any
	// other host scalar. It also carries the individual payload fields of
	// a vector directive and the two slots following a tagFormattedMarker.
	tagValue slotTag = iota
	// tagFormattedMarker marks the start of a single-formatted-arg
	// directive; the next two slots are (value, format-string).
	tagFormattedMarker
	// tagVectorFeatures marks the start of a vector directive; its val is
	// the interned *Features word, and the payload it describes follows
	// immediately.
	tagVectorFeatures
)

// slot is one entry of the instruction stream.
type slot struct {
	tag slotTag
	val any
}

// buffer is the append-only flat instruction stream. It is immutable once
// handed to a CommandLine.
type buffer []slot
