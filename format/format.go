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

// Package format implements the format-helper collaborator: validating and
// applying a "%s"-style single-placeholder template, used both for
// per-element/joined formatting of a vector argument and for the
// single-formatted-arg directive.
package format

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// exactlyOnePlaceholder matches a template containing exactly one
// unescaped "%s" and no other unescaped "%": any run of non-"%" bytes and
// "%%" escapes, the placeholder, then another such run. The pattern uses
// only alternation and repetition, no lookaround.
var exactlyOnePlaceholder = regexp2.MustCompile(`^(?:[^%]|%%)*%s(?:[^%]|%%)*$`, regexp2.None)

// Helper validates and applies format templates. It has no state; it
// exists as a type so callers can mock FormatHelper in tests without a
// package-level function value.
type Helper struct{}

// Format validates that format contains exactly one %s-equivalent
// placeholder (and any number of literal "%%" escapes), then substitutes
// arg for it. A malformed template raises a *MalformedFormatError.
func (Helper) Format(format string, arg string) (string, error) {
	ok, err := exactlyOnePlaceholder.MatchString(format)
	if err != nil {
		return "", &MalformedFormatError{Format: format, Reason: err.Error()}
	}
	if !ok {
		return "", &MalformedFormatError{Format: format, Reason: "expected exactly one %s placeholder"}
	}

	return substitute(format, arg), nil
}

// substitute walks format left to right, unescaping "%%" to a literal "%"
// and replacing the one unescaped "%s" with arg. It is a scanning
// substitution rather than a strings.Replace(format, "%s", arg, 1) on the
// raw text, since the first literal "%s" substring in format is not
// necessarily the actual placeholder once "%%" escapes are taken into
// account (e.g. "%%s%s" has its real placeholder second).
func substitute(format, arg string) string {
	var b strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '%' && i+1 < len(format) {
			switch format[i+1] {
			case '%':
				b.WriteByte('%')
				i += 2
				continue
			case 's':
				b.WriteString(arg)
				i += 2
				continue
			}
		}
		b.WriteByte(format[i])
		i++
	}
	return b.String()
}

// MalformedFormatError is raised when a format template does not contain
// exactly one %s-equivalent placeholder.
type MalformedFormatError struct {
	Format string
	Reason string
}

func (e *MalformedFormatError) Error() string {
	return fmt.Sprintf("invalid format string %q: %s", e.Format, e.Reason)
}
