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
	"strings"

	"github.com/rulebuild/cmdline/artifact"
	"github.com/rulebuild/cmdline/format"
	"github.com/rulebuild/cmdline/lazyset"
	"github.com/rulebuild/cmdline/script"
)

var formatHelper = format.Helper{}

// vectorPayload is the decoded form of a vector directive's payload. The
// decoder always consumes every slot its feature bits announce, even when
// the result will later be suppressed by OMIT_IF_EMPTY — this keeps index
// advancement a pure function of the feature word.
type vectorPayload struct {
	hasMapEach bool
	mapEach    *script.Callable
	location   script.Location
	semantics  script.Semantics

	isSet  bool
	set    *lazyset.Set[any]
	values []any

	argName       string
	formatEach    string
	beforeEach    string
	joinWith      string
	formatJoined  string
	terminateWith string
}

// decodeVectorPayload reads a vector directive's payload starting at
// cursor (the slot immediately after the tagVectorFeatures slot) and
// returns the decoded payload plus the index of the next directive.
func decodeVectorPayload(buf buffer, cursor int, f *Features) (vectorPayload, int) {
	var p vectorPayload

	if f.Has(HasMapEach) {
		p.hasMapEach = true
		p.mapEach = buf[cursor].val.(*script.Callable)
		cursor++
		p.location = buf[cursor].val.(script.Location)
		cursor++
		p.semantics = buf[cursor].val.(script.Semantics)
		cursor++
	}

	if f.Has(IsNestedSet) {
		p.isSet = true
		p.set, _ = buf[cursor].val.(*lazyset.Set[any])
		cursor++
	} else {
		count := buf[cursor].val.(int)
		cursor++
		p.values = make([]any, count)
		for i := 0; i < count; i++ {
			p.values[i] = buf[cursor].val
			cursor++
		}
	}

	if f.Has(HasArgName) {
		p.argName = buf[cursor].val.(string)
		cursor++
	}
	if f.Has(HasFormatEach) {
		p.formatEach = buf[cursor].val.(string)
		cursor++
	}
	if f.Has(HasBeforeEach) {
		p.beforeEach = buf[cursor].val.(string)
		cursor++
	}
	if f.Has(HasJoinWith) {
		p.joinWith = buf[cursor].val.(string)
		cursor++
	}
	if f.Has(HasFormatJoined) {
		p.formatJoined = buf[cursor].val.(string)
		cursor++
	}
	if f.Has(HasTerminateWith) {
		p.terminateWith = buf[cursor].val.(string)
		cursor++
	}

	return p, cursor
}

// valuesList returns the vector's element list, flattening a lazy set if
// IS_NESTED_SET is set.
func (p vectorPayload) valuesList() []any {
	if p.isSet {
		if p.set == nil {
			return nil
		}
		return p.set.ToList()
	}
	return p.values
}

// mapElements runs directory expansion followed by either map-each
// evaluation or a plain per-element coercion, and returns the raw mapped
// string sequence, before uniquify/arg-name/join post-processing. It is
// shared by evalVector and by the fingerprinter's cached and uncached
// value-contribution paths, since both need exactly this and nothing more
// to decide whether two command lines can diverge.
func mapElements(ctx context.Context, f *Features, p vectorPayload, expander artifact.Expander, remapper artifact.Remapper) ([]string, error) {
	values := p.valuesList()

	if f.Has(ExpandDirectories) {
		expanded, err := artifact.ExpandDirectories(ctx, values, expander, remapper)
		if err != nil {
			if missing, ok := err.(*artifact.ErrMissingExpansion); ok {
				return nil, script.NewCommandLineExpansionError("%s", missing.Error())
			}
			return nil, err
		}
		values = expanded
	}

	if !p.hasMapEach {
		strs := make([]string, len(values))
		for i, v := range values {
			strs[i] = artifact.ExpandToCommandLine(v, remapper)
		}
		return strs, nil
	}

	var dirExpander script.DirectoryExpander = script.NoopExpander{}
	if expander != nil {
		dirExpander = script.FullExpander{Expander: expander}
	}
	var strs []string
	if err := script.Apply(ctx, p.mapEach, values, p.location, p.semantics, dirExpander, func(s string) {
		strs = append(strs, s)
	}); err != nil {
		return nil, err
	}
	return strs, nil
}

// evalVector runs the full evaluation pipeline for one vector directive —
// directory expansion, mapping, uniquify, arg-name/format/before-each/
// join-with/format-joined, and terminate-with — and returns the tokens it
// emits.
func evalVector(ctx context.Context, f *Features, p vectorPayload, expander artifact.Expander, remapper artifact.Remapper) ([]string, error) {
	strs, err := mapElements(ctx, f, p, expander, remapper)
	if err != nil {
		return nil, err
	}

	if f.Has(Uniquify) {
		strs = uniquifyStrings(strs)
	}

	isEmptyAndShouldOmit := len(strs) == 0 && f.Has(OmitIfEmpty)

	var out []string
	if f.Has(HasArgName) && !isEmptyAndShouldOmit {
		out = append(out, p.argName)
	}

	if f.Has(HasFormatEach) {
		for i := range strs {
			formatted, err := formatHelper.Format(p.formatEach, strs[i])
			if err != nil {
				return nil, err
			}
			strs[i] = formatted
		}
	}

	switch {
	case f.Has(HasBeforeEach):
		for _, s := range strs {
			out = append(out, p.beforeEach, s)
		}
	case f.Has(HasJoinWith):
		if !isEmptyAndShouldOmit {
			joined := strings.Join(strs, p.joinWith)
			if f.Has(HasFormatJoined) {
				var err error
				joined, err = formatHelper.Format(p.formatJoined, joined)
				if err != nil {
					return nil, err
				}
			}
			out = append(out, joined)
		}
	default:
		out = append(out, strs...)
	}

	if f.Has(HasTerminateWith) && !isEmptyAndShouldOmit {
		out = append(out, p.terminateWith)
	}

	return out, nil
}

// uniquifyStrings retains the first occurrence of each string, preserving
// order: |out| <= |in|, and applying uniquify twice is idempotent.
func uniquifyStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
