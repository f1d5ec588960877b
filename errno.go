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

// Errno is the numeric status code returned across the request dispatch
// boundary. Zero always means success.
type Errno uint16

// Errors corresponding to the POSIX-like codes listed in the request
// dispatcher's error taxonomy. These are not kernel errno values; they are
// this system's own small, closed set.
const (
	ErrnoSuccess Errno = iota
	ErrnoBadF
	ErrnoNoent
	ErrnoExist
	ErrnoIsdir
	ErrnoNotdir
	ErrnoNotempty
	ErrnoNotcapable
	ErrnoIO
	ErrnoNomem
	ErrnoInval
)

func (e Errno) String() string {
	switch e {
	case ErrnoSuccess:
		return "SUCCESS"
	case ErrnoBadF:
		return "BADF"
	case ErrnoNoent:
		return "NOENT"
	case ErrnoExist:
		return "EXIST"
	case ErrnoIsdir:
		return "ISDIR"
	case ErrnoNotdir:
		return "NOTDIR"
	case ErrnoNotempty:
		return "NOTEMPTY"
	case ErrnoNotcapable:
		return "NOTCAPABLE"
	case ErrnoIO:
		return "IO"
	case ErrnoNomem:
		return "NOMEM"
	case ErrnoInval:
		return "INVAL"
	default:
		return "UNKNOWN"
	}
}

// Error lets an Errno satisfy the error interface, so it can be returned
// from the lower-level helpers (path resolution, host I/O) and threaded
// through like any other Go error.
func (e Errno) Error() string {
	return "vfs: " + e.String()
}
