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

import "sync"

// Context is one guest's whole filesystem state: its entry table, its
// descriptor table, its root directory handle, its working directory,
// and the monotonic counters that mint fresh keys. Its fields are each
// independently guarded, and Dispatch acquires them in a fixed order —
// entries, then fds, then root, then an individual file body, then a
// counter — to rule out deadlock between concurrent requests.
type Context struct {
	Host HostIO

	entries *entryTable
	fds     *fdTable

	// rootMu guards root itself (not root's children, which live in
	// entries); nothing ever replaces the root directory today, but the
	// lock documents the acquisition-order slot the design reserves for
	// it.
	rootMu sync.RWMutex
	root   *Dir

	cwdMu  sync.RWMutex
	cwdVal string

	entriesKeyMu  sync.Mutex
	nextEntriesKeyVal EntriesKey

	cookieMu  sync.Mutex
	nextCookieVal Cookie
}

// NewContext builds a fresh guest filesystem state: an empty root
// directory, an entry table seeded with the root's (empty) bucket, and a
// descriptor table with stdin/stdout/stderr and the root preopen
// occupying fds 0-3, exactly as FDTable::init does in the reference
// implementation.
func NewContext(host HostIO) *Context {
	ctx := &Context{
		Host:              host,
		entries:           newEntryTable(),
		cwdVal:            "",
		nextEntriesKeyVal: RootEntriesKey + 1,
		nextCookieVal:     0,
	}
	ctx.root = newDir(RootEntriesKey, true)
	ctx.fds = newFDTable(ctx.root)
	return ctx
}

func (c *Context) cwd() string {
	c.cwdMu.RLock()
	defer c.cwdMu.RUnlock()
	return c.cwdVal
}

func (c *Context) setCwd(path string) {
	c.cwdMu.Lock()
	defer c.cwdMu.Unlock()
	c.cwdVal = path
}

func (c *Context) nextEntriesKey() EntriesKey {
	c.entriesKeyMu.Lock()
	defer c.entriesKeyMu.Unlock()
	k := c.nextEntriesKeyVal
	c.nextEntriesKeyVal++
	return k
}

func (c *Context) nextCookie() Cookie {
	c.cookieMu.Lock()
	defer c.cookieMu.Unlock()
	ck := c.nextCookieVal
	c.nextCookieVal++
	return ck
}

// rootEntry synthesizes a DirEntry for the root directory itself, used
// when Lookup's path normalizes to the empty string.
func (c *Context) rootEntry() *DirEntry {
	key := c.root.entriesKey
	return &DirEntry{
		Name:       "",
		File:       c.root,
		Filetype:   FiletypeDirectory,
		EntriesKey: &key,
	}
}

// Root returns the root directory handle under rootMu, per the fixed
// lock-acquisition order entries -> fds -> root -> file body -> counters.
func (c *Context) Root() *Dir {
	c.rootMu.RLock()
	defer c.rootMu.RUnlock()
	return c.root
}
