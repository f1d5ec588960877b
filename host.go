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

// HostIO is the set of primitives an embedder must supply. Every method
// here corresponds to one host-imported function in the C ABI described by
// the request dispatcher's design: read/write move bytes between a
// RegularFile's inline buffer and the host side, the url_* family work
// against a URL-backed body, node_readdir enumerates a real host
// directory, and SetBuf/Out/Println are the response-side primitives.
//
// These are the only points at which a handler can block on external work;
// embedders should treat every method here as nonblocking or cooperatively
// short, since the caller holds whatever locks it acquired for the
// duration of the call.
type HostIO interface {
	// Read copies up to len(src) bytes of src, an inline file body,
	// starting at pos, to the host side. It reports how many bytes were
	// actually transferred.
	Read(src []byte, pos uint64) (nread uint64, err error)

	// Write fills dst, a region of an inline file body, with bytes staged
	// on the host side. The number of bytes to write is len(dst).
	Write(dst []byte) error

	// URLRead copies up to want bytes from url, starting at pos, to the
	// host side.
	URLRead(url string, pos uint64, want uint64) (nread uint64, err error)

	// URLBuf fetches the entire contents of url and returns them as a
	// freshly read buffer. The caller takes ownership of the result.
	URLBuf(url string) ([]byte, error)

	// URLLen returns the byte length of url without fetching its body.
	URLLen(url string) (uint64, error)

	// URLFree releases any host-side resources associated with url. It is
	// called once, after a URL-backed body has been promoted to a buffer,
	// and never fails. It is not called when a URL-backed body is dropped
	// or replaced without promotion.
	URLFree(url string)

	// NodeReaddir enumerates a host directory at path, returning
	// alternating (childSrc, childName) pairs for use by Dir.Mount.
	NodeReaddir(path string) ([]string, error)

	// SetBuf tells the host how many bytes the next Read will transfer, so
	// it can size its receive buffer before the call.
	SetBuf(size uint64)

	// Out emits a response string to the guest.
	Out(s string)

	// Println emits a debug line. Implementations may discard it.
	Println(s string)
}
