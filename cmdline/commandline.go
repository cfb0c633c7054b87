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
)

// CommandLine is the immutable, evaluatable result of Builder.Build. Its
// buffer is never mutated after construction, so a CommandLine may be
// evaluated repeatedly, and safely from multiple goroutines at once, as
// long as the Expander and Remapper passed to each call are themselves
// safe for concurrent use.
type CommandLine struct {
	buf         buffer
	groupStarts []int
	flagPerLine bool
}

// IsEmpty reports whether the command line has no directives at all.
func (cl *CommandLine) IsEmpty() bool {
	return cl == nil || len(cl.buf) == 0
}

// Arguments evaluates the command line at analysis time: no execution-time
// Expander is available (tree artifacts and filesets are left unexpanded)
// and the identity Remapper is used.
func (cl *CommandLine) Arguments(ctx context.Context) ([]string, error) {
	return cl.ArgumentsWith(ctx, nil, artifact.NoopRemapper)
}

// ArgumentsWith evaluates the command line at execution time, with a live
// directory Expander and the build's output-path Remapper. This is the
// full decode entry point.
func (cl *CommandLine) ArgumentsWith(ctx context.Context, expander artifact.Expander, remapper artifact.Remapper) ([]string, error) {
	if cl.IsEmpty() {
		return nil, nil
	}

	tokens, boundaries, err := cl.decode(ctx, expander, remapper)
	if err != nil {
		return nil, err
	}

	if cl.flagPerLine {
		tokens = coalesceGroups(tokens, boundaries)
	}

	return artifact.MapArgs(remapper, tokens), nil
}

// decode walks the flat instruction buffer once, producing the fully
// evaluated token sequence (each vector directive runs its full evaluation
// pipeline as it's reached) and, when flagPerLine is set, the output-index
// boundary at which each recorded RecordArgStart group begins.
func (cl *CommandLine) decode(ctx context.Context, expander artifact.Expander, remapper artifact.Remapper) ([]string, []int, error) {
	var tokens []string
	var boundaries []int
	gi := 0

	buf := cl.buf
	i := 0
	for i < len(buf) {
		if cl.flagPerLine {
			for gi < len(cl.groupStarts) && cl.groupStarts[gi] <= i {
				boundaries = append(boundaries, len(tokens))
				gi++
			}
		}

		s := buf[i]
		switch s.tag {
		case tagValue:
			tokens = append(tokens, artifact.ExpandToCommandLine(s.val, remapper))
			i++

		case tagFormattedMarker:
			value := buf[i+1].val
			formatStr := buf[i+2].val.(string)
			base := artifact.ExpandToCommandLine(value, remapper)
			formatted, err := formatHelper.Format(formatStr, base)
			if err != nil {
				return nil, nil, err
			}
			tokens = append(tokens, formatted)
			i += 3

		case tagVectorFeatures:
			f := s.val.(*Features)
			payload, next := decodeVectorPayload(buf, i+1, f)
			out, err := evalVector(ctx, f, payload, expander, remapper)
			if err != nil {
				return nil, nil, err
			}
			tokens = append(tokens, out...)
			i = next
		}
	}

	if cl.flagPerLine {
		for gi < len(cl.groupStarts) {
			boundaries = append(boundaries, len(tokens))
			gi++
		}
	}

	return tokens, boundaries, nil
}

// coalesceGroups regroups a flat token sequence into one logical flag per
// recorded RecordArgStart group (flag-per-line mode): a group of zero or
// one tokens passes through unchanged; a group of two or more becomes
// "first" + "=" + the remaining tokens joined with a space — unless
// "first" is itself empty, in which case only the joined rest is emitted.
func coalesceGroups(tokens []string, boundaries []int) []string {
	edges := make([]int, 0, len(boundaries)+2)
	edges = append(edges, 0)
	for _, b := range boundaries {
		if b != edges[len(edges)-1] {
			edges = append(edges, b)
		}
	}
	if edges[len(edges)-1] != len(tokens) {
		edges = append(edges, len(tokens))
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(edges)-1; i++ {
		seg := tokens[edges[i]:edges[i+1]]
		switch {
		case len(seg) == 0:
		case len(seg) == 1:
			out = append(out, seg[0])
		case seg[0] == "":
			out = append(out, strings.Join(seg[1:], " "))
		default:
			out = append(out, seg[0]+"="+strings.Join(seg[1:], " "))
		}
	}
	return out
}
