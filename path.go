// Copyright 2015 Google Inc. All Rights Reserved.
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

package vfs

import "strings"

// normalizePath resolves path (absolute-looking, tilde-rooted, relative,
// or carrying the historical "~/~/" Emscripten prefix) against cwd into a
// normalized, slash-separated, parent-relative form with no leading or
// trailing slash. It never walks above the root.
func normalizePath(cwd, path string) (string, Errno) {
	for strings.HasPrefix(path, "~/~/") {
		path = path[4:]
	}

	var base string
	if !strings.HasPrefix(path, "~") {
		base = cwd
	}

	var resolved []string
	for _, comp := range strings.Split(base+"/"+path, "/") {
		switch {
		case comp == "..":
			if len(resolved) == 0 {
				return "", ErrnoNotcapable
			}
			resolved = resolved[:len(resolved)-1]
		case comp == "" || comp == "." || comp == "~":
			// Skip.
		default:
			resolved = append(resolved, comp)
		}
	}

	return strings.Join(resolved, "/"), ErrnoSuccess
}

// resolvedEntry is the result of walking a normalized path's components
// against a directory's children. It never reports an error; callers
// decide NOENT/EXIST/ISDIR for themselves from which fields are nil.
type resolvedEntry struct {
	// parent is the entries bucket that the leaf component (name) lives,
	// or would live, in. It is nil only when an intermediate component
	// failed to resolve to a directory.
	parent *EntriesKey

	// entry is the leaf component's entry, or nil if it does not exist.
	entry *DirEntry

	// name is the leaf component's name.
	name string
}

// resolveEntry walks the normalized, slash-separated path starting from
// root's own bucket (root.entriesKey), the way resolve_entry does in the
// reference implementation. SHARED_LOCKS_REQUIRED(t.mu)
func resolveEntry(t *entryTable, root *Dir, path string) resolvedEntry {
	var ret resolvedEntry

	comps := strings.Split(path, "/")
	if !strings.Contains(path, "/") {
		key := root.entriesKey
		ret.parent = &key
	}

	bucket := root.entriesKey
	var entry *DirEntry
	for i, comp := range comps {
		if entry == nil {
			entry = findEntry(t.buckets[bucket], comp)
		} else if entry.IsDir() {
			bucket = *entry.EntriesKey
			entry = findEntry(t.buckets[bucket], comp)
		} else {
			entry = nil
		}

		if i == len(comps)-2 {
			if entry != nil && entry.EntriesKey != nil {
				key := *entry.EntriesKey
				ret.parent = &key
			}
		} else if i == len(comps)-1 {
			ret.entry = entry
			ret.name = comp
		}

		if entry == nil {
			break
		}
	}

	return ret
}

func findEntry(bucket []*DirEntry, name string) *DirEntry {
	for _, e := range bucket {
		if e.Name == name {
			return e
		}
	}
	return nil
}
