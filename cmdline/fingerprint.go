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
	"context"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/rulebuild/cmdline/artifact"
	"github.com/rulebuild/cmdline/lazyset"
)

// FingerprintSink accumulates a stable digest of a CommandLine without
// rendering it to a full argv. It wraps xxhash.Digest, length-prefixing
// every write so that adjacent AddString/AddUUID calls can never be
// confused with each other (e.g. the two-call sequence AddString("ab"),
// AddString("c") must hash differently from the one-call sequence
// AddString("abc")).
type FingerprintSink struct {
	h *xxhash.Digest
}

// NewFingerprintSink returns an empty FingerprintSink.
func NewFingerprintSink() *FingerprintSink {
	return &FingerprintSink{h: xxhash.New()}
}

func (s *FingerprintSink) writeLengthPrefixed(b []byte) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	s.h.Write(lenBuf[:])
	s.h.Write(b)
}

// AddString folds a length-prefixed string into the digest.
func (s *FingerprintSink) AddString(str string) {
	s.writeLengthPrefixed([]byte(str))
}

// AddUUID folds a length-prefixed 16-byte UUID into the digest, used for
// the stable per-directive and per-feature tags below.
func (s *FingerprintSink) AddUUID(id uuid.UUID) {
	b := id
	s.writeLengthPrefixed(b[:])
}

// AddBytes folds a length-prefixed opaque digest (e.g. a cached nested-set
// contribution) into the sink.
func (s *FingerprintSink) AddBytes(b []byte) {
	s.writeLengthPrefixed(b)
}

// Sum64 returns the current 64-bit digest.
func (s *FingerprintSink) Sum64() uint64 { return s.h.Sum64() }

// Stable per-directive and per-feature tags. These are fixed, arbitrary
// UUIDs: their only job is to be distinct from one another and never
// change between runs of this program.
var (
	tagPlainValue   = uuid.MustParse("5b1f6e2a-0001-4000-8000-000000000001")
	tagFormattedArg = uuid.MustParse("5b1f6e2a-0002-4000-8000-000000000002")
	tagVectorArg    = uuid.MustParse("5b1f6e2a-0003-4000-8000-000000000003")

	featureTag = map[Feature]uuid.UUID{
		ExpandDirectories: uuid.MustParse("5b1f6e2a-0030-4000-8000-000000000030"),
		Uniquify:          uuid.MustParse("5b1f6e2a-0040-4000-8000-000000000040"),
		OmitIfEmpty:       uuid.MustParse("5b1f6e2a-0050-4000-8000-000000000050"),
		HasArgName:        uuid.MustParse("5b1f6e2a-0060-4000-8000-000000000060"),
		HasFormatEach:     uuid.MustParse("5b1f6e2a-0070-4000-8000-000000000070"),
		HasBeforeEach:     uuid.MustParse("5b1f6e2a-0080-4000-8000-000000000080"),
		HasJoinWith:       uuid.MustParse("5b1f6e2a-0090-4000-8000-000000000090"),
		HasFormatJoined:   uuid.MustParse("5b1f6e2a-00a0-4000-8000-0000000000a0"),
		HasTerminateWith:  uuid.MustParse("5b1f6e2a-00b0-4000-8000-0000000000b0"),
	}
)

// mapEachCacheKey is the lazyset.FingerprintCache key for a nested set
// fingerprinted through a map-each: identity(callable) plus whether a live
// artifact.Expander was available, since a tree artifact may expand
// differently (or not at all) depending on that.
type mapEachCacheKey struct {
	callable    uintptr
	hasExpander bool
}

// AddToFingerprint folds this command line into sink, mirroring evaluation
// without requiring directory expansion to be available. remapper is
// always treated as identity for fingerprinting purposes.
//
// A nested set reached through a map-each is fingerprinted through cache,
// keyed on the set's own identity plus mapEachCacheKey — so a tree shared by
// many command lines is only ever run through its map-each once per
// (callable, expander-presence) combination, rather than once per command
// line that references it. The cache lookup's compute closure captures
// expander only for the duration of that single call; nothing retains it
// afterward.
func (cl *CommandLine) AddToFingerprint(ctx context.Context, expander artifact.Expander, sink *FingerprintSink, cache *lazyset.FingerprintCache) error {
	if cl.IsEmpty() {
		return nil
	}

	buf := cl.buf
	i := 0
	for i < len(buf) {
		s := buf[i]
		switch s.tag {
		case tagValue:
			sink.AddUUID(tagPlainValue)
			sink.AddString(artifact.ExpandToCommandLine(s.val, artifact.NoopRemapper))
			i++

		case tagFormattedMarker:
			value := buf[i+1].val
			formatStr := buf[i+2].val.(string)
			sink.AddUUID(tagFormattedArg)
			base := artifact.ExpandToCommandLine(value, artifact.NoopRemapper)
			formatted, err := formatHelper.Format(formatStr, base)
			if err != nil {
				return err
			}
			sink.AddString(formatted)
			i += 3

		case tagVectorFeatures:
			f := s.val.(*Features)
			payload, next := decodeVectorPayload(buf, i+1, f)
			if err := fingerprintVector(ctx, f, payload, expander, sink, cache); err != nil {
				return err
			}
			i = next
		}
	}
	return nil
}

// fingerprintVector folds one vector directive into sink: the directive
// tag, then the value payload (either the cached or direct contribution of
// its elements), and only after that the per-feature tags and their
// associated scalars — so two vectors whose values agree but whose
// feature words differ still diverge deterministically, without the
// feature tags standing in front of the value contribution itself.
func fingerprintVector(ctx context.Context, f *Features, p vectorPayload, expander artifact.Expander, sink *FingerprintSink, cache *lazyset.FingerprintCache) error {
	sink.AddUUID(tagVectorArg)

	if f.Has(IsNestedSet) && p.hasMapEach && cache != nil {
		key := mapEachCacheKey{
			callable:    p.mapEach.Identity(),
			hasExpander: expander != nil,
		}
		var computeErr error
		digest := cache.Once(p.set, key, func() []byte {
			strs, err := mapElements(ctx, f, p, expander, artifact.NoopRemapper)
			if err != nil {
				computeErr = err
				return nil
			}
			sub := NewFingerprintSink()
			for _, str := range strs {
				sub.AddString(str)
			}
			var out [8]byte
			binary.LittleEndian.PutUint64(out[:], sub.Sum64())
			return out[:]
		})
		if computeErr != nil {
			return computeErr
		}
		sink.AddBytes(digest)
	} else {
		strs, err := mapElements(ctx, f, p, expander, artifact.NoopRemapper)
		if err != nil {
			return err
		}
		for _, str := range strs {
			sink.AddString(str)
		}
	}

	for _, bit := range orderedFeatureBits {
		if !f.Has(bit) {
			continue
		}
		sink.AddUUID(featureTag[bit])
		switch bit {
		case HasArgName:
			sink.AddString(p.argName)
		case HasFormatEach:
			sink.AddString(p.formatEach)
		case HasBeforeEach:
			sink.AddString(p.beforeEach)
		case HasJoinWith:
			sink.AddString(p.joinWith)
		case HasFormatJoined:
			sink.AddString(p.formatJoined)
		case HasTerminateWith:
			sink.AddString(p.terminateWith)
		}
	}

	return nil
}
