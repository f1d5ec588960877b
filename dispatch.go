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

import (
	"fmt"
	"strconv"
	"strings"
)

// Request identifies one of the 22 operations a guest may issue across
// the dispatch boundary.
type Request uint32

const (
	ReadSync Request = iota
	WriteSync
	FstatSync
	OpenSync
	CloseSync
	ReaddirSync
	RmdirSync
	RenameSync
	MkdirSync
	ReadFile
	FallocateSync
	FtruncateSync
	PrestatDirNameSync
	RenumberSync
	SeekSync
	FreaddirSync
	UnlinkSync
	WriteFileSync
	TruncateSync
	LstatSync
	Mount
	Chdir
)

var requestNames = [...]string{
	"ReadSync", "WriteSync", "FstatSync", "OpenSync", "CloseSync",
	"ReaddirSync", "RmdirSync", "RenameSync", "MkdirSync", "ReadFile",
	"FallocateSync", "FtruncateSync", "PrestatDirNameSync", "RenumberSync",
	"SeekSync", "FreaddirSync", "UnlinkSync", "WriteFileSync",
	"TruncateSync", "LstatSync", "Mount", "Chdir",
}

func (r Request) String() string {
	if int(r) < len(requestNames) {
		return requestNames[r]
	}
	return fmt.Sprintf("Request(%d)", uint32(r))
}

// Dispatch executes one request against ctx and returns the string the
// guest reads back via Out, if any, plus the resulting errno. It is the
// sole entry point a guest program calls across the narrow ABI boundary;
// everything else in this package is reachable only through it.
func Dispatch(ctx *Context, req Request, args []Arg) (string, Errno) {
	out, errno := dispatch(ctx, req, args)
	if errno == ErrnoSuccess && out != "" {
		ctx.Host.Out(out)
	}
	return out, errno
}

func dispatch(ctx *Context, req Request, args []Arg) (string, Errno) {
	switch req {
	case ReadSync:
		return dispatchReadSync(ctx, args)
	case WriteSync:
		return dispatchWriteSync(ctx, args)
	case FstatSync:
		return dispatchFstatSync(ctx, args)
	case OpenSync:
		return dispatchOpenSync(ctx, args)
	case CloseSync:
		return "", dispatchCloseSync(ctx, args)
	case ReaddirSync:
		return dispatchReaddirSync(ctx, args)
	case RmdirSync:
		return "", dispatchRmdirSync(ctx, args)
	case RenameSync:
		return "", dispatchRenameSync(ctx, args)
	case MkdirSync:
		return "", dispatchMkdirSync(ctx, args)
	case ReadFile:
		return "", dispatchReadFile(ctx, args)
	case FallocateSync:
		return "", dispatchFallocateSync(ctx, args)
	case FtruncateSync:
		return "", dispatchFtruncateSync(ctx, args)
	case PrestatDirNameSync:
		return dispatchPrestatDirNameSync(ctx, args)
	case RenumberSync:
		return "", dispatchRenumberSync(ctx, args)
	case SeekSync:
		return dispatchSeekSync(ctx, args)
	case FreaddirSync:
		return dispatchFreaddirSync(ctx, args)
	case UnlinkSync:
		return "", dispatchUnlinkSync(ctx, args)
	case WriteFileSync:
		return "", dispatchWriteFileSync(ctx, args)
	case TruncateSync:
		return "", dispatchTruncateSync(ctx, args)
	case LstatSync:
		return dispatchLstatSync(ctx, args)
	case Mount:
		return "", dispatchMount(ctx, args)
	case Chdir:
		return "", dispatchChdir(ctx, args)
	default:
		return "", ErrnoInval
	}
}

// ReadSync: fd, optional pos. LOCKS: fds (shared) -> fd (exclusive, for
// the cursor advance) -> file body (shared, inside RegularFile.Read).
func dispatchReadSync(ctx *Context, args []Arg) (string, Errno) {
	fd := FD(args[0].AsU32())
	pos, explicit := args[1].AsOptU64()

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return "", errno
	}

	desc.mu.Lock()
	defer desc.mu.Unlock()

	rf, ok := desc.file.(*RegularFile)
	if !ok {
		return "", ErrnoIsdir
	}

	at := desc.pos
	if explicit {
		at = pos
	}
	nread, errno := rf.Read(ctx.Host, at)
	if errno != ErrnoSuccess {
		return "", errno
	}
	if !explicit {
		desc.pos += nread
	}
	return strconv.FormatUint(nread, 10), ErrnoSuccess
}

// WriteSync: fd, len, optional pos.
func dispatchWriteSync(ctx *Context, args []Arg) (string, Errno) {
	fd := FD(args[0].AsU32())
	length := args[1].AsU64()
	pos, explicit := args[2].AsOptU64()

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return "", errno
	}

	desc.mu.Lock()
	defer desc.mu.Unlock()

	rf, ok := desc.file.(*RegularFile)
	if !ok {
		return "", ErrnoIsdir
	}

	at := desc.pos
	if explicit {
		at = pos
	}
	nwritten, errno := rf.Write(ctx.Host, length, at)
	if errno != ErrnoSuccess {
		return "", errno
	}
	if !explicit {
		desc.pos += nwritten
	}
	return strconv.FormatUint(nwritten, 10), ErrnoSuccess
}

// FstatSync: fd.
func dispatchFstatSync(ctx *Context, args []Arg) (string, Errno) {
	fd := FD(args[0].AsU32())

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return "", errno
	}

	return serStats(ctx, desc.File())
}

// OpenSync: path, oflags, fdflags. LOCKS: entries (exclusive, held
// throughout); root (shared, released as soon as the handle is read);
// then fds (exclusive, inside fdTable.Open).
func dispatchOpenSync(ctx *Context, args []Arg) (string, Errno) {
	path := args[0].AsString()
	oflags := Oflags(args[1].AsU32())
	fdflags := Fdflags(args[2].AsU32())

	ctx.entries.mu.Lock()
	defer ctx.entries.mu.Unlock()
	root := ctx.Root()

	file, isRoot, errno := root.Open(ctx, path, oflags)
	if errno != ErrnoSuccess {
		return "", errno
	}
	if isRoot {
		file = root
	}

	fd, errno := ctx.fds.Open(file, fdflags, ctx.Host)
	if errno != ErrnoSuccess {
		return "", errno
	}
	return strconv.FormatUint(uint64(fd), 10), ErrnoSuccess
}

// CloseSync: fd.
func dispatchCloseSync(ctx *Context, args []Arg) Errno {
	fd := FD(args[0].AsU32())
	return ctx.fds.Close(fd)
}

// ReaddirSync: path, with_file_types.
func dispatchReaddirSync(ctx *Context, args []Arg) (string, Errno) {
	path := args[0].AsString()
	withFileTypes := args[1].AsBool()

	ctx.entries.mu.RLock()
	defer ctx.entries.mu.RUnlock()
	root := ctx.Root()

	entry, errno := root.Lookup(ctx, path)
	if errno != ErrnoSuccess {
		return "", errno
	}
	dir, ok := entry.File.(*Dir)
	if !ok {
		return "", ErrnoNotdir
	}
	return serDirents(dir.Entries(ctx), withFileTypes, nil), ErrnoSuccess
}

// RmdirSync: path, recursive.
func dispatchRmdirSync(ctx *Context, args []Arg) Errno {
	path := args[0].AsString()
	recursive := args[1].AsBool()

	ctx.entries.mu.Lock()
	defer ctx.entries.mu.Unlock()
	root := ctx.Root()

	return root.Rmdir(ctx, path, recursive)
}

// UnlinkSync: path.
func dispatchUnlinkSync(ctx *Context, args []Arg) Errno {
	path := args[0].AsString()

	ctx.entries.mu.Lock()
	defer ctx.entries.mu.Unlock()
	root := ctx.Root()

	return root.Unlink(ctx, path)
}

// RenameSync: old_path, new_path.
func dispatchRenameSync(ctx *Context, args []Arg) Errno {
	oldPath := args[0].AsString()
	newPath := args[1].AsString()

	ctx.entries.mu.Lock()
	defer ctx.entries.mu.Unlock()
	root := ctx.Root()

	return root.Rename(ctx, oldPath, newPath)
}

// WriteFileSync: path, buf_len, optional url.
func dispatchWriteFileSync(ctx *Context, args []Arg) Errno {
	path := args[0].AsString()
	bufLen := int(args[1].AsU32())
	url, hasURL := args[2].AsOptString()

	ctx.entries.mu.Lock()
	defer ctx.entries.mu.Unlock()
	root := ctx.Root()

	return root.WriteFile(ctx, path, bufLen, url, hasURL)
}

// MkdirSync: path.
func dispatchMkdirSync(ctx *Context, args []Arg) Errno {
	path := args[0].AsString()

	ctx.entries.mu.Lock()
	defer ctx.entries.mu.Unlock()
	root := ctx.Root()

	return root.Mkdir(ctx, path)
}

// TruncateSync: path, size.
func dispatchTruncateSync(ctx *Context, args []Arg) Errno {
	path := args[0].AsString()
	size := args[1].AsU64()

	ctx.entries.mu.RLock()
	defer ctx.entries.mu.RUnlock()

	entry, errno := ctx.Root().Lookup(ctx, path)
	if errno != ErrnoSuccess {
		return errno
	}

	rf, ok := entry.File.(*RegularFile)
	if !ok {
		return ErrnoIsdir
	}
	return rf.Truncate(ctx.Host, size)
}

// LstatSync: path.
func dispatchLstatSync(ctx *Context, args []Arg) (string, Errno) {
	path := args[0].AsString()

	ctx.entries.mu.RLock()
	defer ctx.entries.mu.RUnlock()

	entry, errno := ctx.Root().Lookup(ctx, path)
	if errno != ErrnoSuccess {
		return "", errno
	}
	return serStats(ctx, entry.File)
}

// ReadFile: path. Queries the file's length and relays it to the host
// via SetBuf before the read, so the host can size its receive buffer;
// this length query happens naturally within the same shared lock as
// the read that follows, just as it does in the reference implementation.
func dispatchReadFile(ctx *Context, args []Arg) Errno {
	path := args[0].AsString()

	ctx.entries.mu.RLock()
	defer ctx.entries.mu.RUnlock()

	entry, errno := ctx.Root().Lookup(ctx, path)
	if errno != ErrnoSuccess {
		return errno
	}
	rf, ok := entry.File.(*RegularFile)
	if !ok {
		return ErrnoIsdir
	}

	size, errno := rf.Size(ctx.Host)
	if errno != ErrnoSuccess {
		return errno
	}
	ctx.Host.SetBuf(size)

	_, errno = rf.Read(ctx.Host, 0)
	return errno
}

// FallocateSync: fd, offset, size.
func dispatchFallocateSync(ctx *Context, args []Arg) Errno {
	fd := FD(args[0].AsU32())
	offset := args[1].AsU64()
	size := args[2].AsU64()

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	rf, ok := desc.File().(*RegularFile)
	if !ok {
		return ErrnoIsdir
	}
	return rf.Allocate(ctx.Host, offset, size)
}

// FtruncateSync: fd, size.
func dispatchFtruncateSync(ctx *Context, args []Arg) Errno {
	fd := FD(args[0].AsU32())
	size := args[1].AsU64()

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	rf, ok := desc.File().(*RegularFile)
	if !ok {
		return ErrnoIsdir
	}
	return rf.Truncate(ctx.Host, size)
}

// PrestatDirNameSync: fd.
func dispatchPrestatDirNameSync(ctx *Context, args []Arg) (string, Errno) {
	fd := FD(args[0].AsU32())

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return "", errno
	}
	name, ok := desc.Preopen()
	if !ok {
		return "", ErrnoBadF
	}
	return strconv.Quote(name), ErrnoSuccess
}

// RenumberSync: from, to.
func dispatchRenumberSync(ctx *Context, args []Arg) Errno {
	from := FD(args[0].AsU32())
	to := FD(args[1].AsU32())
	return ctx.fds.Renumber(from, to)
}

// SeekSync: fd, offset, whence.
func dispatchSeekSync(ctx *Context, args []Arg) (string, Errno) {
	fd := FD(args[0].AsU32())
	offset := args[1].AsU64()
	whence := Whence(args[2].AsU32())
	if whence != WhenceSet && whence != WhenceCur && whence != WhenceEnd {
		return "", ErrnoInval
	}

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return "", errno
	}

	newOffset, errno := desc.Seek(int64(offset), whence, ctx.Host)
	if errno != ErrnoSuccess {
		return "", errno
	}
	return strconv.FormatUint(newOffset, 10), ErrnoSuccess
}

// FreaddirSync: fd, cookie. Unlike ReaddirSync, always reports file
// types and always filters by cookie, matching the reference
// implementation's two call sites into ser_dirents.
func dispatchFreaddirSync(ctx *Context, args []Arg) (string, Errno) {
	fd := FD(args[0].AsU32())
	cookie := Cookie(args[1].AsU64())

	desc, errno := ctx.fds.Get(fd)
	if errno != ErrnoSuccess {
		return "", errno
	}

	ctx.entries.mu.RLock()
	defer ctx.entries.mu.RUnlock()

	dir, ok := desc.File().(*Dir)
	if !ok {
		return "", ErrnoNotdir
	}
	return serDirents(dir.Entries(ctx), true, &cookie), ErrnoSuccess
}

// Mount: is_node, newline-delimited (src, path) pairs.
func dispatchMount(ctx *Context, args []Arg) Errno {
	isNode := args[0].AsBool()
	s := args[1].AsString()

	ctx.entries.mu.Lock()
	defer ctx.entries.mu.Unlock()
	root := ctx.Root()

	lines := strings.Split(s, "\n")
	for i := 0; i+1 < len(lines); i += 2 {
		if errno := root.Mount(ctx, isNode, lines[i], lines[i+1]); errno != ErrnoSuccess {
			return errno
		}
	}
	return ErrnoSuccess
}

// Chdir: dir.
func dispatchChdir(ctx *Context, args []Arg) Errno {
	ctx.setCwd(args[0].AsString())
	return ErrnoSuccess
}

// serStats renders an fstat/lstat-style response.
func serStats(ctx *Context, file File) (string, Errno) {
	size, errno := file.Size(ctx.Host)
	if errno != ErrnoSuccess {
		return "", errno
	}
	return fmt.Sprintf(`{"size":%d,"filetype":%d}`, size, file.Filetype()), ErrnoSuccess
}

// serDirents renders a readdir/freaddir-style response. When cookie is
// non-nil, entries whose own cookie exceeds it are skipped, matching the
// reference implementation's "cookie < ent.cookie" skip test exactly
// (so callers get every entry minted at or before the given cookie, not
// a "resume after" cursor).
func serDirents(entries []*DirEntry, withFileTypes bool, cookie *Cookie) string {
	var parts []string
	for _, e := range entries {
		if cookie != nil && *cookie < e.Cookie {
			continue
		}
		if withFileTypes {
			parts = append(parts, fmt.Sprintf(`{"name":%s,"type":%d,"cookie":%d}`,
				strconv.Quote(e.Name), e.Filetype, e.Cookie))
		} else {
			parts = append(parts, strconv.Quote(e.Name))
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
