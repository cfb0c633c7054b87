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

// Package shared holds a small standalone path helper. No other package in
// this module imports it.
package shared

import "path"

// JoinPath joins paths left to right like path.Join, except that any
// absolute element resets the result rather than being appended under it —
// so a later absolute override (e.g. a sandboxed output root) always wins
// over an earlier relative prefix.
func JoinPath(paths ...string) string {
	result := ""
	for _, p := range paths {
		switch {
		case path.IsAbs(p):
			result = p
		case result == "":
			result = p
		default:
			result = path.Join(result, p)
		}
	}
	return result
}
