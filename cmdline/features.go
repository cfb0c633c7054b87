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

// Package cmdline implements the deferred command-line builder: an
// append-only instruction stream of scalar, formatted, and vector
// directives, a Builder to write it, two CommandLine decoding frontends
// (plain and flag-per-line), and a Fingerprinter that mirrors evaluation
// into a hash sink without requiring trees to be expanded.
package cmdline

import "sync"

// Feature is one bit of a VectorArg's feature set.
type Feature uint16

const (
	HasMapEach Feature = 1 << iota
	IsNestedSet
	ExpandDirectories
	Uniquify
	OmitIfEmpty
	HasArgName
	HasFormatEach
	HasBeforeEach
	HasJoinWith
	HasFormatJoined
	HasTerminateWith

	allFeatures = HasMapEach | IsNestedSet | ExpandDirectories | Uniquify | OmitIfEmpty |
		HasArgName | HasFormatEach | HasBeforeEach | HasJoinWith | HasFormatJoined | HasTerminateWith
)

// orderedFeatureBits lists every bit that carries a fingerprint tag
// (all bits except HasMapEach and IsNestedSet) in the fixed order the
// fingerprint tag sequence is defined in. Builder.AddVector encodes the
// optional scalar payload fields in the same relative order.
var orderedFeatureBits = []Feature{
	ExpandDirectories,
	Uniquify,
	OmitIfEmpty,
	HasArgName,
	HasFormatEach,
	HasBeforeEach,
	HasJoinWith,
	HasFormatJoined,
	HasTerminateWith,
}

// Features is an interned, value-canonical VectorArg feature word. Equal
// bit patterns always yield the same *Features instance, so callers may
// compare *Features with ==.
type Features struct {
	bits Feature
}

var (
	internMu    sync.Mutex
	internTable = map[Feature]*Features{}
)

// Intern returns the canonical *Features for the given bit pattern,
// creating it on first use. The interner is process-wide and
// immutable-after-insert.
func Intern(bits Feature) *Features {
	internMu.Lock()
	defer internMu.Unlock()
	if f, ok := internTable[bits]; ok {
		return f
	}
	f := &Features{bits: bits}
	internTable[bits] = f
	return f
}

// Has reports whether bit is set.
func (f *Features) Has(bit Feature) bool { return f.bits&bit != 0 }

// Bits returns the raw feature word.
func (f *Features) Bits() Feature { return f.bits }
