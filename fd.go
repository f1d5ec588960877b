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

// FD names a slot in a Context's descriptor table.
type FD uint32

// FileDesc is one open handle: a shared reference to a File plus private
// cursor state. Multiple FileDescs may point at the same File (e.g. via
// repeated Open on the same path), but each tracks its own
// position independently, matching the reference implementation's
// Arc<RwLock<FileDesc>> per-fd granularity.
//
// GUARDED_BY(mu)
type FileDesc struct {
	mu      sync.Mutex
	file    File
	pos     uint64
	preopen *string // non-nil name iff this fd is a preopen
}

func newFileDesc(file File) *FileDesc {
	return &FileDesc{file: file}
}

func (fd *FileDesc) File() File {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.file
}

func (fd *FileDesc) Pos() uint64 {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.pos
}

func (fd *FileDesc) SetPos(pos uint64) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.pos = pos
}

func (fd *FileDesc) Preopen() (string, bool) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.preopen == nil {
		return "", false
	}
	return *fd.preopen, true
}

// Seek advances the descriptor's cursor per whence and returns the new
// absolute position. Like the reference implementation, this treats the
// result as an unsigned word; an offset/whence combination that would
// carry below zero or above the uint64 range reports INVAL rather than
// silently wrapping. WhenceEnd bases the seek on the file's current size,
// matching the reference implementation's file_desc.rs, which reads
// self.file.read().as_regular_file()?.size() for this case.
func (fd *FileDesc) Seek(offset int64, whence Whence, host HostIO) (uint64, Errno) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	var base uint64
	switch whence {
	case WhenceSet:
		base = 0
	case WhenceCur:
		base = fd.pos
	case WhenceEnd:
		size, errno := fd.file.Size(host)
		if errno != ErrnoSuccess {
			return 0, errno
		}
		base = size
	default:
		return 0, ErrnoInval
	}

	next, ok := addSignedOverflows(base, offset)
	if !ok {
		return 0, ErrnoInval
	}

	fd.pos = next
	return next, ErrnoSuccess
}

// addSignedOverflows adds a signed offset to an unsigned base, reporting
// false if the result would be negative or would overflow uint64.
func addSignedOverflows(base uint64, offset int64) (uint64, bool) {
	if offset >= 0 {
		sum := base + uint64(offset)
		if sum < base {
			return 0, false
		}
		return sum, true
	}
	neg := uint64(-offset)
	if neg > base {
		return 0, false
	}
	return base - neg, true
}

// fdTable is the process-wide descriptor table. GUARDED_BY(mu)
type fdTable struct {
	mu      sync.RWMutex
	entries map[FD]*FileDesc
	next    FD
}

// The three pseudo-fds every guest inherits, matching the reference
// implementation's FDTable::init: stdin, stdout, stderr, each an empty
// buffer-backed regular file, followed by the root preopen at fd 3.
const (
	fdStdin  FD = 0
	fdStdout FD = 1
	fdStderr FD = 2
	fdRoot   FD = 3
)

func newFDTable(root *Dir) *fdTable {
	t := &fdTable{entries: make(map[FD]*FileDesc)}
	for fd := fdStdin; fd <= fdStderr; fd++ {
		t.entries[fd] = newFileDesc(NewRegularFile())
	}
	name := "/"
	t.entries[fdRoot] = &FileDesc{file: root, preopen: &name}
	t.next = fdRoot + 1
	return t
}

// Get returns the descriptor at fd. SHARED_LOCKS_REQUIRED(t.mu) is not
// required by callers: Get takes its own lock.
func (t *fdTable) Get(fd FD) (*FileDesc, Errno) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	d, ok := t.entries[fd]
	if !ok {
		return nil, ErrnoBadF
	}
	return d, ErrnoSuccess
}

// Open allocates a new fd for file. If fdflags requests append mode, the
// cursor starts at the file's current size; otherwise at zero.
func (t *fdTable) Open(file File, fdflags Fdflags, host HostIO) (FD, Errno) {
	var pos uint64
	if fdflags&FdflagsAppend != 0 {
		size, errno := file.Size(host)
		if errno != ErrnoSuccess {
			return 0, errno
		}
		pos = size
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fd := t.next
	t.next++
	t.entries[fd] = &FileDesc{file: file, pos: pos}
	return fd, ErrnoSuccess
}

// Preopen installs file at a fresh fd as a named preopen. Bootstrap
// (newFDTable) installs the root preopen directly and does not call it.
func (t *fdTable) Preopen(file File, name string) FD {
	t.mu.Lock()
	defer t.mu.Unlock()

	fd := t.next
	t.next++
	t.entries[fd] = &FileDesc{file: file, preopen: &name}
	return fd
}

// Close removes fd from the table.
func (t *fdTable) Close(fd FD) Errno {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[fd]; !ok {
		return ErrnoBadF
	}
	delete(t.entries, fd)
	return ErrnoSuccess
}

// Renumber swaps the bindings of from and to. If to is unbound, from's
// binding moves to to and from is removed. Either fd naming a preopen is
// rejected, since preopens are capabilities a guest must not be able to
// relocate.
func (t *fdTable) Renumber(from, to FD) Errno {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.entries[from]
	if !ok {
		return ErrnoBadF
	}
	if f.preopen != nil {
		return ErrnoBadF
	}
	existing, hasTo := t.entries[to]
	if hasTo && existing.preopen != nil {
		return ErrnoBadF
	}

	t.entries[to] = f
	if hasTo {
		t.entries[from] = existing
	} else {
		delete(t.entries, from)
	}
	return ErrnoSuccess
}
