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

// Package vfshost provides a concrete vfs.HostIO backed by a real
// filesystem, HTTP client and staging buffer, for driving the dispatcher
// outside of tests: a CLI, a fuzzer, or an actual sandboxed guest
// runtime.
package vfshost

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/detailyang/go-fallocate"
)

// Host implements vfs.HostIO. The zero value is not usable; construct
// with New.
type Host struct {
	client *http.Client

	// spillDir holds scratch files used to stage large URL downloads
	// before they are read fully into memory, so a big transfer grows
	// disk space once via fallocate rather than via repeated buffer
	// reallocation.
	spillDir       string
	spillThreshold int64

	stageMu sync.Mutex
	stage   []byte // the guest's pending Read/Write staging area

	outMu    sync.Mutex
	lastOut  string
	debugLog []string
}

// New returns a Host whose scratch files live under spillDir (created if
// necessary) and that spills URL downloads larger than spillThreshold
// bytes through a preallocated scratch file instead of growing an
// in-memory buffer incrementally.
func New(spillDir string, spillThreshold int64) (*Host, error) {
	if err := os.MkdirAll(spillDir, 0o755); err != nil {
		return nil, fmt.Errorf("vfshost: create spill dir: %w", err)
	}
	return &Host{
		client:         &http.Client{Timeout: 30 * time.Second},
		spillDir:       spillDir,
		spillThreshold: spillThreshold,
	}, nil
}

// Read copies up to len(src) bytes of src, starting at pos, into the
// host's staging buffer.
func (h *Host) Read(src []byte, pos uint64) (uint64, error) {
	if pos > uint64(len(src)) {
		return 0, nil
	}
	h.stageMu.Lock()
	defer h.stageMu.Unlock()

	n := copy(h.stage, src[pos:])
	return uint64(n), nil
}

// Write fills dst with bytes from the host's staging buffer.
func (h *Host) Write(dst []byte) error {
	h.stageMu.Lock()
	defer h.stageMu.Unlock()

	if len(h.stage) < len(dst) {
		return errors.New("vfshost: staging buffer shorter than requested write")
	}
	copy(dst, h.stage[:len(dst)])
	return nil
}

// SetBuf resizes the staging buffer that subsequent Read/Write calls
// transfer through.
func (h *Host) SetBuf(size uint64) {
	h.stageMu.Lock()
	defer h.stageMu.Unlock()
	h.stage = make([]byte, size)
}

// Stage returns a copy of the current staging buffer, for embedders
// that need to inspect what a guest last staged for writing.
func (h *Host) Stage() []byte {
	h.stageMu.Lock()
	defer h.stageMu.Unlock()
	out := make([]byte, len(h.stage))
	copy(out, h.stage)
	return out
}

// StageBytes loads data into the staging buffer, for embedders driving
// a write on the guest's behalf.
func (h *Host) StageBytes(data []byte) {
	h.stageMu.Lock()
	defer h.stageMu.Unlock()
	h.stage = append([]byte(nil), data...)
}

// URLRead fetches want bytes of url starting at pos via an HTTP Range
// request and copies them into the staging buffer.
func (h *Host) URLRead(url string, pos uint64, want uint64) (uint64, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", pos, pos+want-1))

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := h.downloadBody(resp, int64(want))
	if err != nil {
		return 0, err
	}

	h.stageMu.Lock()
	defer h.stageMu.Unlock()
	return uint64(copy(h.stage, body)), nil
}

// URLBuf fetches the entirety of url's contents.
func (h *Host) URLBuf(url string) ([]byte, error) {
	resp, err := h.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return h.downloadBody(resp, resp.ContentLength)
}

// URLLen issues a HEAD request to learn url's length without fetching
// its body.
func (h *Host) URLLen(url string) (uint64, error) {
	resp, err := h.client.Head(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("vfshost: %s did not report Content-Length", url)
	}
	return uint64(resp.ContentLength), nil
}

// URLFree is a no-op: the host holds no per-URL resources once a
// download completes.
func (h *Host) URLFree(string) {}

// downloadBody reads resp.Body to completion. When contentLength exceeds
// spillThreshold, it stages the transfer through a preallocated scratch
// file instead of growing an in-memory buffer incrementally, using
// go-fallocate to reserve the disk space up front.
func (h *Host) downloadBody(resp *http.Response, contentLength int64) ([]byte, error) {
	if contentLength <= 0 || contentLength <= h.spillThreshold {
		return io.ReadAll(resp.Body)
	}

	f, err := os.CreateTemp(h.spillDir, "vfshost-spill-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := fallocate.Fallocate(f, 0, contentLength); err != nil {
		return nil, fmt.Errorf("vfshost: fallocate scratch file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

// NodeReaddir enumerates path's immediate children, returning alternating
// (childSrc, childName) pairs as vfs.Dir.Mount expects.
func (h *Host) NodeReaddir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		out = append(out, filepath.Join(path, e.Name()), e.Name())
	}
	return out, nil
}

// Out records the guest-visible response string. Embedders drain it
// with LastOut after each Dispatch call.
func (h *Host) Out(s string) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	h.lastOut = s
}

// LastOut returns the string most recently passed to Out.
func (h *Host) LastOut() string {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	return h.lastOut
}

// Println records a debug line rather than writing to a terminal, so
// callers running many guests concurrently can inspect each one's log
// independently.
func (h *Host) Println(s string) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	h.debugLog = append(h.debugLog, s)
}

// DebugLog returns every line recorded via Println so far.
func (h *Host) DebugLog() []string {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	return append([]string(nil), h.debugLog...)
}
