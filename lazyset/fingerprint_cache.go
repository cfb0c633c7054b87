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

package lazyset

import "sync"

// FingerprintCache memoizes a per-Set, per-key fingerprint contribution so
// that a nested set shared across many command lines is only ever hashed
// once for a given key. It mirrors the teacher's android.OncePer
// (onceper.go), specialized to the single use this package needs instead of
// the teacher's fully generic interface{} key.
//
// A real nested-set fingerprint cache tied to a live build's action cache
// is external to this core; FingerprintCache is the concrete stand-in used
// by this edition so the fingerprinter in package cmdline is testable
// without that dependency.
type FingerprintCache struct {
	mu      sync.Mutex
	entries map[cacheEntry][]byte
}

type cacheEntry struct {
	set any
	key any
}

// NewFingerprintCache returns an empty FingerprintCache.
func NewFingerprintCache() *FingerprintCache {
	return &FingerprintCache{entries: make(map[cacheEntry][]byte)}
}

// Once returns the cached digest for (set, key) if present, otherwise calls
// compute, stores the result, and returns it. set is typically a *Set[T]
// pointer used only for its identity; key must be comparable (the
// map-each adaptor identity — identity(callable) plus the
// hasArtifactExpander bit — is exactly such a value).
func (c *FingerprintCache) Once(set any, key any, compute func() []byte) []byte {
	entry := cacheEntry{set: set, key: key}

	c.mu.Lock()
	if v, ok := c.entries[entry]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v := compute()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[entry]; ok {
		return existing
	}
	c.entries[entry] = v
	return v
}
