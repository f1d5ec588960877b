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

package vfs_test

import (
	"strconv"
	"testing"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"

	"github.com/sandboxrt/vfs"
)

func TestVFS(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Fake host
////////////////////////////////////////////////////////////////////////

// fakeHost is an in-memory vfs.HostIO with no real network or disk
// traffic, for exercising the dispatcher in isolation.
type fakeHost struct {
	stage   []byte
	urls    map[string][]byte
	dirs    map[string][]string
	lastOut string
}

func newFakeHost() *fakeHost {
	return &fakeHost{urls: map[string][]byte{}, dirs: map[string][]string{}}
}

func (h *fakeHost) Read(src []byte, pos uint64) (uint64, error) {
	if pos > uint64(len(src)) {
		return 0, nil
	}
	return uint64(copy(h.stage, src[pos:])), nil
}

func (h *fakeHost) Write(dst []byte) error {
	copy(dst, h.stage[:len(dst)])
	return nil
}

func (h *fakeHost) URLRead(url string, pos uint64, want uint64) (uint64, error) {
	data := h.urls[url]
	if pos > uint64(len(data)) {
		return 0, nil
	}
	end := pos + want
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return uint64(copy(h.stage, data[pos:end])), nil
}

func (h *fakeHost) URLBuf(url string) ([]byte, error) {
	return append([]byte(nil), h.urls[url]...), nil
}

func (h *fakeHost) URLLen(url string) (uint64, error) {
	return uint64(len(h.urls[url])), nil
}

func (h *fakeHost) URLFree(string) {}

func (h *fakeHost) NodeReaddir(path string) ([]string, error) {
	return h.dirs[path], nil
}

func (h *fakeHost) SetBuf(size uint64) { h.stage = make([]byte, size) }
func (h *fakeHost) Out(s string)       { h.lastOut = s }
func (h *fakeHost) Println(string)     {}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func strArg(s string) vfs.Arg { return vfs.NewStringArg(s) }
func u32Arg(v uint32) vfs.Arg { return vfs.NewU32Arg(v) }
func u64Arg(v uint64) vfs.Arg { return vfs.NewU64Arg(v) }
func boolArg(v bool) vfs.Arg  { return vfs.NewBoolArg(v) }
func nullArg() vfs.Arg        { return vfs.NewNullArg() }

// fdArg turns an fd string, as returned by OpenSync's out string, back
// into the U32 argument later requests expect.
func fdArg(s string) vfs.Arg {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		panic(err)
	}
	return u32Arg(uint32(v))
}

////////////////////////////////////////////////////////////////////////
// VFSTest
////////////////////////////////////////////////////////////////////////

type VFSTest struct {
	host *fakeHost
	ctx  *vfs.Context
}

func init() { RegisterTestSuite(&VFSTest{}) }

func (t *VFSTest) SetUp(*TestInfo) {
	t.host = newFakeHost()
	t.ctx = vfs.NewContext(t.host)
}

func (t *VFSTest) req(req vfs.Request, args ...vfs.Arg) (string, vfs.Errno) {
	return vfs.Dispatch(t.ctx, req, args)
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *VFSTest) EmptyFilesystemHasOnlyRoot() {
	out, errno := t.req(vfs.ReaddirSync, strArg("."), boolArg(false))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectEq(`[]`, out)
}

func (t *VFSTest) MkdirThenReaddirSeesIt() {
	_, errno := t.req(vfs.MkdirSync, strArg("foo"))
	AssertEq(vfs.ErrnoSuccess, errno)

	out, errno := t.req(vfs.ReaddirSync, strArg("."), boolArg(true))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectThat(out, HasSubstr(`"name":"foo"`))
	ExpectThat(out, HasSubstr(`"type":3`))
}

func (t *VFSTest) MkdirTwiceFails() {
	_, errno := t.req(vfs.MkdirSync, strArg("foo"))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.MkdirSync, strArg("foo"))
	ExpectEq(vfs.ErrnoExist, errno)
}

func (t *VFSTest) MkdirIntermediateMissingIsNoent() {
	_, errno := t.req(vfs.MkdirSync, strArg("a/b"))
	ExpectEq(vfs.ErrnoNoent, errno)
}

func (t *VFSTest) OpenCreateWriteReadRoundTrips() {
	out, errno := t.req(vfs.OpenSync, strArg("greeting.txt"), u32Arg(uint32(vfs.OflagsCreat)), u32Arg(0))
	AssertEq(vfs.ErrnoSuccess, errno)
	fd := out

	t.host.stage = []byte("hello")
	_, errno = t.req(vfs.WriteSync, fdArg(fd), u64Arg(5), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.SeekSync, fdArg(fd), u64Arg(0), u32Arg(0))
	AssertEq(vfs.ErrnoSuccess, errno)

	t.host.stage = make([]byte, 5)
	nread, errno := t.req(vfs.ReadSync, fdArg(fd), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectEq("5", nread)
	ExpectEq("hello", string(t.host.stage))
}

func (t *VFSTest) OpenWithoutCreatOnMissingFileIsNoent() {
	_, errno := t.req(vfs.OpenSync, strArg("missing.txt"), u32Arg(0), u32Arg(0))
	ExpectEq(vfs.ErrnoNoent, errno)
}

func (t *VFSTest) OpenExclWhenFileExistsFails() {
	_, errno := t.req(vfs.WriteFileSync, strArg("f"), u32Arg(0), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)

	oflags := uint32(vfs.OflagsCreat | vfs.OflagsExcl)
	_, errno = t.req(vfs.OpenSync, strArg("f"), u32Arg(oflags), u32Arg(0))
	ExpectEq(vfs.ErrnoExist, errno)
}

func (t *VFSTest) UnlinkRemovesFile() {
	_, errno := t.req(vfs.WriteFileSync, strArg("f"), u32Arg(0), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.UnlinkSync, strArg("f"))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.LstatSync, strArg("f"))
	ExpectEq(vfs.ErrnoNoent, errno)
}

func (t *VFSTest) UnlinkOnDirectoryIsIsdir() {
	_, errno := t.req(vfs.MkdirSync, strArg("d"))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.UnlinkSync, strArg("d"))
	ExpectEq(vfs.ErrnoIsdir, errno)
}

func (t *VFSTest) WriteFileOntoDirectoryReplacesIt() {
	_, errno := t.req(vfs.MkdirSync, strArg("d"))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.WriteFileSync, strArg("d"), u32Arg(0), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)

	out, errno := t.req(vfs.LstatSync, strArg("d"))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectThat(out, HasSubstr("\"filetype\":4"))
}

func (t *VFSTest) RmdirNonEmptyWithoutRecursiveFails() {
	_, errno := t.req(vfs.MkdirSync, strArg("d"))
	AssertEq(vfs.ErrnoSuccess, errno)
	_, errno = t.req(vfs.MkdirSync, strArg("d/child"))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.RmdirSync, strArg("d"), boolArg(false))
	ExpectEq(vfs.ErrnoNotempty, errno)

	_, errno = t.req(vfs.RmdirSync, strArg("d"), boolArg(true))
	ExpectEq(vfs.ErrnoSuccess, errno)
}

func (t *VFSTest) RenameReplacesExistingDestination() {
	_, errno := t.req(vfs.WriteFileSync, strArg("a"), u32Arg(0), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)
	_, errno = t.req(vfs.WriteFileSync, strArg("b"), u32Arg(0), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.RenameSync, strArg("a"), strArg("b"))
	AssertEq(vfs.ErrnoSuccess, errno)

	out, errno := t.req(vfs.ReaddirSync, strArg("."), boolArg(false))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectEq(`["b"]`, out)
}

func (t *VFSTest) ChdirAffectsSubsequentRelativePaths() {
	_, errno := t.req(vfs.MkdirSync, strArg("d"))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.Chdir, strArg("d"))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.WriteFileSync, strArg("f"), u32Arg(0), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.Chdir, strArg(""))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.LstatSync, strArg("d/f"))
	ExpectEq(vfs.ErrnoSuccess, errno)
}

func (t *VFSTest) URLBackedFileReadsThenPromotesOnWrite() {
	t.host.urls["http://example.com/x"] = []byte("remote contents")

	_, errno := t.req(vfs.WriteFileSync, strArg("x"), u32Arg(0), strArg("http://example.com/x"))
	AssertEq(vfs.ErrnoSuccess, errno)

	out, errno := t.req(vfs.OpenSync, strArg("x"), u32Arg(0), u32Arg(0))
	AssertEq(vfs.ErrnoSuccess, errno)
	fd := out

	t.host.stage = make([]byte, len("remote contents"))
	_, errno = t.req(vfs.ReadSync, fdArg(fd), u64Arg(0))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectEq("remote contents", string(t.host.stage))

	t.host.stage = []byte("L")
	_, errno = t.req(vfs.WriteSync, fdArg(fd), u64Arg(1), u64Arg(0))
	AssertEq(vfs.ErrnoSuccess, errno)

	out, errno = t.req(vfs.LstatSync, strArg("x"))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectThat(out, HasSubstr(`"size":15`))
}

func (t *VFSTest) MountHostDirectoryMirrorsTree() {
	t.host.dirs["/srv"] = []string{"/srv/a.txt", "a.txt"}

	_, errno := t.req(vfs.Mount, boolArg(true), strArg("/srv\n."))
	AssertEq(vfs.ErrnoSuccess, errno)

	out, errno := t.req(vfs.ReaddirSync, strArg("."), boolArg(false))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectEq(`["a.txt"]`, out)
}

func (t *VFSTest) PrestatDirNameOnStandardDescriptorIsBadf() {
	_, errno := t.req(vfs.PrestatDirNameSync, u32Arg(0))
	ExpectEq(vfs.ErrnoBadF, errno)
}

func (t *VFSTest) PrestatDirNameOnRootPreopenSucceeds() {
	out, errno := t.req(vfs.PrestatDirNameSync, u32Arg(3))
	AssertEq(vfs.ErrnoSuccess, errno)
	ExpectEq(`"/"`, out)
}

func (t *VFSTest) RenumberSwapsDescriptor() {
	_, errno := t.req(vfs.WriteFileSync, strArg("f"), u32Arg(0), nullArg())
	AssertEq(vfs.ErrnoSuccess, errno)

	fdOut, errno := t.req(vfs.OpenSync, strArg("f"), u32Arg(0), u32Arg(0))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.RenumberSync, fdArg(fdOut), u32Arg(50))
	AssertEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.FstatSync, u32Arg(50))
	ExpectEq(vfs.ErrnoSuccess, errno)

	_, errno = t.req(vfs.FstatSync, fdArg(fdOut))
	ExpectEq(vfs.ErrnoBadF, errno)
}

func (t *VFSTest) RenumberOfPreopenFails() {
	_, errno := t.req(vfs.RenumberSync, u32Arg(3), u32Arg(100))
	ExpectEq(vfs.ErrnoBadF, errno)
}
