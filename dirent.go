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

import "github.com/jacobsa/syncutil"

// DirEntry names one child of a directory. It is process-wide state
// living in the entry table, not inside the owning Dir, so that rename and
// rmdir can rearrange entries across directories without touching the Dir
// node itself.
type DirEntry struct {
	Name       string
	File       File
	Filetype   Filetype
	EntriesKey *EntriesKey // non-nil iff File is a Dir
	Cookie     Cookie
}

func (e *DirEntry) IsDir() bool { return e.Filetype == FiletypeDirectory }

// entryTable is the process-wide mapping from directory-content key to the
// ordered list of that directory's children. GUARDED_BY(mu)
type entryTable struct {
	mu      syncutil.InvariantMutex
	buckets map[EntriesKey][]*DirEntry
}

func newEntryTable() *entryTable {
	t := &entryTable{buckets: map[EntriesKey][]*DirEntry{RootEntriesKey: {}}}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *entryTable) checkInvariants() {
	if _, ok := t.buckets[RootEntriesKey]; !ok {
		panic("vfs: entry table missing root bucket")
	}
}

// newBucket allocates an empty bucket at key. EXCLUSIVE_LOCKS_REQUIRED(t.mu)
func (t *entryTable) newBucket(key EntriesKey) {
	t.buckets[key] = nil
}

// removeBucketRecursive deletes key's bucket and, for every descendant
// directory entry still in it, its bucket too.
// EXCLUSIVE_LOCKS_REQUIRED(t.mu)
func (t *entryTable) removeBucketRecursive(key EntriesKey) {
	children, ok := t.buckets[key]
	if !ok {
		return
	}
	delete(t.buckets, key)
	for _, child := range children {
		if child.EntriesKey != nil {
			t.removeBucketRecursive(*child.EntriesKey)
		}
	}
}

// findByName returns the index of the entry named name within bucket key,
// or -1. SHARED_LOCKS_REQUIRED(t.mu)
func (t *entryTable) findByName(key EntriesKey, name string) int {
	for i, e := range t.buckets[key] {
		if e.Name == name {
			return i
		}
	}
	return -1
}
