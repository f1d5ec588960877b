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

// Filetype is the small tag reported in Fstat/Lstat/Readdir responses.
type Filetype uint32

const (
	FiletypeUnknown   Filetype = 0
	FiletypeDirectory Filetype = 3
	FiletypeRegular   Filetype = 4
)

// Oflags are the bits accepted by OpenSync.
type Oflags uint32

const (
	OflagsCreat     Oflags = 1 << 0
	OflagsDirectory Oflags = 1 << 1
	OflagsExcl      Oflags = 1 << 2
	OflagsTrunc     Oflags = 1 << 3
)

// Fdflags are the bits accepted by OpenSync alongside Oflags.
type Fdflags uint32

const (
	FdflagsAppend Fdflags = 1 << 0
)

// Whence selects the base position for SeekSync.
type Whence uint32

const (
	WhenceSet Whence = 0
	WhenceCur Whence = 1
	WhenceEnd Whence = 2
)

// EntriesKey names a bucket in the entry table. Key 0 is always the root
// directory's children.
type EntriesKey uint32

// RootEntriesKey is the bucket reserved for the root directory's children.
const RootEntriesKey EntriesKey = 0

// Cookie is a monotonic stamp assigned to a DirEntry on insertion or
// rename, used to support resumable directory reads.
type Cookie uint64
