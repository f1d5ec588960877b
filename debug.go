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
	"flag"
	"io"
	"io/ioutil"
	"log"
	"os"
	"sync"
)

var fEnableDebug = flag.Bool(
	"vfs.debug",
	false,
	"Write request dispatch debugging messages to stderr.")

var gLogger *log.Logger
var gLoggerOnce sync.Once
var gSeq uint64
var gSeqMu sync.Mutex

func initLogger() {
	if !flag.Parsed() {
		panic("initLogger called before flags available.")
	}

	var writer io.Writer = ioutil.Discard
	if *fEnableDebug {
		writer = os.Stderr
	}

	const flags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	gLogger = log.New(writer, "vfs: ", flags)
}

func getLogger() *log.Logger {
	gLoggerOnce.Do(initLogger)
	return gLogger
}

// nextDebugSeq mints a monotonic sequence number for correlating a
// request's entry and exit log lines.
func nextDebugSeq() uint64 {
	gSeqMu.Lock()
	defer gSeqMu.Unlock()
	gSeq++
	return gSeq
}

// DispatchDebug wraps Dispatch with entry/exit logging, gated by the
// vfs.debug flag. Use this instead of Dispatch directly when -vfs.debug
// tracing is wanted.
func DispatchDebug(ctx *Context, req Request, args []Arg) (string, Errno) {
	seq := nextDebugSeq()
	getLogger().Printf("(%d) <- %v %v", seq, req, args)
	out, errno := Dispatch(ctx, req, args)
	getLogger().Printf("(%d) -> %q %v", seq, out, errno)
	return out, errno
}
