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

package artifact

import (
	"context"
	"fmt"
	"path"
)

// Expander is the runtime oracle that materialises tree artifacts and
// filesets into concrete file lists. It is supplied by the
// action-execution machinery at command-line-expansion time and is absent
// at analysis time.
type Expander interface {
	// ExpandTree returns the File's contained file values, in the tree's
	// defined order.
	ExpandTree(ctx context.Context, tree *File) ([]*File, error)

	// Fileset returns the symlink manifest for a fileset artifact, or
	// ErrMissingExpansion if the fileset was not registered as an input of
	// the action.
	Fileset(ctx context.Context, fileset *File) (*FilesetManifest, error)
}

// ErrMissingExpansion is returned by Expander.Fileset when the fileset was
// never registered as an input of the action.
type ErrMissingExpansion struct {
	Fileset string
}

func (e *ErrMissingExpansion) Error() string {
	return fmt.Sprintf("Could not expand fileset: %s. Did you forget to add it as an input of the action?", e.Fileset)
}

// FilesetManifestEntry is one member of a FilesetManifest: a
// manifest-relative path resolved (by the manifest construction policy) to
// a concrete origin path.
type FilesetManifestEntry struct {
	RelativePath string
	OriginPath   string
}

// FilesetManifest is an ordered, de-duplicated set of fileset entries. It is
// constructed with an "ignore relative symlinks without error" policy:
// entries whose relative-symlink resolution fails are silently dropped
// rather than raising an error.
type FilesetManifest struct {
	Entries []FilesetManifestEntry
}

// ConstructFilesetManifest builds a FilesetManifest from raw entries,
// applying the "ignore relative symlinks without error" policy: an entry
// whose resolve func returns ok=false is dropped rather than erroring. Only
// the first entry for each relative path is kept.
func ConstructFilesetManifest(rawEntries []FilesetManifestEntry, resolve func(FilesetManifestEntry) (FilesetManifestEntry, bool)) *FilesetManifest {
	m := &FilesetManifest{}
	seen := make(map[string]bool, len(rawEntries))
	for _, e := range rawEntries {
		if resolve != nil {
			resolved, ok := resolve(e)
			if !ok {
				continue
			}
			e = resolved
		}
		if seen[e.RelativePath] {
			continue
		}
		seen[e.RelativePath] = true
		m.Entries = append(m.Entries, e)
	}
	return m
}

// ExpandDirectories replaces tree-artifact and fileset values in values
// with their contained file values, using expander. If expander is nil, or
// none of values is a directory, values is returned unchanged (no copy).
//
// A fileset-symlink entry derives its exec path from
// remapper(manifest-relative-path) joined with the fileset's own (already
// remapped) exec-path origin. The resulting entry is marked as already
// remapped by NewFilesetEntry, so later coercion does not remap it a
// second time.
func ExpandDirectories(ctx context.Context, values []any, expander Expander, remapper Remapper) ([]any, error) {
	if expander == nil {
		return values, nil
	}

	anyDirectory := false
	for _, v := range values {
		if f, ok := v.(*File); ok && f.IsDirectory() {
			anyDirectory = true
			break
		}
	}
	if !anyDirectory {
		return values, nil
	}

	out := make([]any, 0, len(values))
	for _, v := range values {
		f, ok := v.(*File)
		if !ok || !f.IsDirectory() {
			out = append(out, v)
			continue
		}

		switch {
		case f.IsTreeArtifact():
			files, err := expander.ExpandTree(ctx, f)
			if err != nil {
				return nil, err
			}
			for _, file := range files {
				out = append(out, file)
			}
		case f.IsFileset():
			manifest, err := expander.Fileset(ctx, f)
			if err != nil {
				return nil, err
			}
			origin := remapper.apply(f.execPath)
			for _, entry := range manifest.Entries {
				execPath := path.Join(origin, remapper.apply(entry.RelativePath))
				out = append(out, NewFilesetEntry(execPath, f))
			}
		default:
			panic(fmt.Errorf("unknown directory kind for %q", f.execPath))
		}
	}
	return out, nil
}
