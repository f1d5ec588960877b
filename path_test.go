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

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		cwd, path, want string
		errno           Errno
	}{
		{"", "foo", "foo", ErrnoSuccess},
		{"", "foo/bar", "foo/bar", ErrnoSuccess},
		{"dir", "foo", "dir/foo", ErrnoSuccess},
		{"", "./foo", "foo", ErrnoSuccess},
		{"", "~/foo", "foo", ErrnoSuccess},
		{"dir", "~/foo", "foo", ErrnoSuccess},
		{"", "~/~/foo", "foo", ErrnoSuccess},
		{"a/b", "../c", "a/c", ErrnoSuccess},
		{"", "..", "", ErrnoNotcapable},
		{"", "", "", ErrnoSuccess},
		{"", ".", "", ErrnoSuccess},
	}

	for _, c := range cases {
		got, errno := normalizePath(c.cwd, c.path)
		if errno != c.errno {
			t.Errorf("normalizePath(%q, %q): errno = %v, want %v", c.cwd, c.path, errno, c.errno)
			continue
		}
		if errno == ErrnoSuccess && got != c.want {
			t.Errorf("normalizePath(%q, %q) = %q, want %q", c.cwd, c.path, got, c.want)
		}
	}
}

func TestResolveEntryRootChild(t *testing.T) {
	ents := newEntryTable()
	root := newDir(RootEntriesKey, true)
	ents.buckets[RootEntriesKey] = []*DirEntry{
		{Name: "a", File: NewRegularFile(), Filetype: FiletypeRegular},
	}

	res := resolveEntry(ents, root, "a")
	if res.entry == nil {
		t.Fatal("expected to find entry \"a\"")
	}
	if res.parent == nil || *res.parent != RootEntriesKey {
		t.Fatalf("expected parent to be root bucket, got %v", res.parent)
	}
}

func TestResolveEntryNested(t *testing.T) {
	ents := newEntryTable()
	root := newDir(RootEntriesKey, true)
	childKey := EntriesKey(1)
	ents.newBucket(childKey)
	ents.buckets[RootEntriesKey] = []*DirEntry{
		{Name: "d", File: newDir(childKey, false), Filetype: FiletypeDirectory, EntriesKey: &childKey},
	}
	ents.buckets[childKey] = []*DirEntry{
		{Name: "f", File: NewRegularFile(), Filetype: FiletypeRegular},
	}

	res := resolveEntry(ents, root, "d/f")
	if res.entry == nil {
		t.Fatal("expected to find entry \"d/f\"")
	}
	if res.name != "f" {
		t.Fatalf("expected leaf name \"f\", got %q", res.name)
	}
	if res.parent == nil || *res.parent != childKey {
		t.Fatalf("expected parent to be child bucket %v, got %v", childKey, res.parent)
	}
}

func TestResolveEntryMissingIntermediate(t *testing.T) {
	ents := newEntryTable()
	root := newDir(RootEntriesKey, true)

	res := resolveEntry(ents, root, "missing/f")
	if res.entry != nil {
		t.Fatal("expected no entry for a path through a missing directory")
	}
	if res.parent != nil {
		t.Fatal("expected no parent for a path through a missing directory")
	}
}
