// Copyright 2021 Google Inc. All rights reserved.
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

// Package response reads and writes shell-quoted response files: the
// conventional overflow mechanism for command lines too long for the
// host's argv limit, where the decoded argument vector is written to a
// file and the actual invocation is replaced with a single @file token.
package response

import (
	"io"
	"strings"
)

// ReadRspFile parses the shell-quoted contents of a response file into an
// argument vector. Single-quoted regions are copied byte-for-byte with no
// escape processing; double-quoted regions treat only \\ and \" as escapes;
// outside of quotes, a backslash escapes the single character that follows
// it. Adjacent quoted and unquoted runs concatenate into one argument, so
// the classic 'foo'\''bar' idiom for embedding a literal quote decodes to
// foo'bar.
func ReadRspFile(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return splitRspTokens(string(data)), nil
}

func splitRspTokens(s string) []string {
	var args []string
	var cur strings.Builder
	started := false
	n := len(s)

	for i := 0; i < n; {
		c := s[i]
		switch c {
		case '\'':
			started = true
			i++
			for i < n && s[i] != '\'' {
				cur.WriteByte(s[i])
				i++
			}
			if i < n {
				i++
			}
		case '"':
			started = true
			i++
			for i < n && s[i] != '"' {
				if s[i] == '\\' && i+1 < n && (s[i+1] == '"' || s[i+1] == '\\') {
					cur.WriteByte(s[i+1])
					i += 2
					continue
				}
				cur.WriteByte(s[i])
				i++
			}
			if i < n {
				i++
			}
		case '\\':
			started = true
			i++
			if i < n {
				cur.WriteByte(s[i])
				i++
			}
		case ' ', '\t', '\n', '\r':
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
			i++
		default:
			started = true
			cur.WriteByte(c)
			i++
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}

// WriteRspFile writes args as a shell-quoted response file: an argument
// passes through unquoted if it consists only of "safe" characters,
// otherwise it is single-quoted with the POSIX 'close, escape, reopen'
// trick for any embedded single quote.
func WriteRspFile(w io.Writer, args []string) error {
	for i, arg := range args {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		tok := arg
		if needsRspQuoting(arg) {
			tok = quoteRspToken(arg)
		}
		if _, err := io.WriteString(w, tok); err != nil {
			return err
		}
	}
	return nil
}

func needsRspQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if !isSafeRspChar(r) {
			return true
		}
	}
	return false
}

func isSafeRspChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '/' || r == '_' || r == '-' || r == '+' || r == ':' || r == ',':
		return true
	default:
		return false
	}
}

func quoteRspToken(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
