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

// Package vfs implements an in-memory virtual file system for a guest
// program running inside a sandboxed execution environment.
//
// The primary elements of interest are:
//
//   - Context, which holds the directory tree, the file descriptor table,
//     and the counters a running guest shares across requests.
//
//   - Dispatch, the single entry point that applies a request code and its
//     already-decoded argument vector (see DecodeArgs) to a Context.
//
//   - HostIO, the interface a guest's embedder implements to supply byte
//     transfer, URL fetch, and host directory enumeration primitives.
//
// Nothing in this package talks to a kernel or a real filesystem; package
// vfshost provides one concrete, OS-backed implementation of HostIO for
// tests and for the cmd/vfsnode demo binary.
package vfs
