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

// Command vfsnode drives a single in-memory guest filesystem from the
// command line: it mounts a host directory, then runs a scripted
// sequence of requests against it while exporting Prometheus metrics
// for each dispatch.
package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sandboxrt/vfs"
	"github.com/sandboxrt/vfs/vfshost"
)

var (
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vfsnode",
		Name:      "request_duration_seconds",
		Help:      "Time spent executing one dispatched request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"request", "errno"})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfsnode",
		Name:      "requests_total",
		Help:      "Requests dispatched, by request name and errno.",
	}, []string{"request", "errno"})
)

func init() {
	prometheus.MustRegister(requestDuration, requestsTotal)
}

func main() {
	sessionID := uuid.New()

	root := &cobra.Command{
		Use:   "vfsnode",
		Short: "Run a scripted session against an in-memory guest filesystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(sessionID)
		},
	}

	flags := root.Flags()
	flags.String("mount", "", "host directory to mount at the guest root")
	flags.String("script", "", "path to a newline-delimited request script (blank for an empty session)")
	flags.String("metrics-addr", ":9400", "address to serve Prometheus metrics on")
	flags.Int64("spill-threshold", 8<<20, "URL downloads larger than this many bytes spill to a scratch file")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	viper.SetEnvPrefix("VFSNODE")
	viper.AutomaticEnv()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(sessionID uuid.UUID) error {
	spillDir, err := os.MkdirTemp("", "vfsnode-spill-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(spillDir)

	host, err := vfshost.New(spillDir, viper.GetInt64("spill-threshold"))
	if err != nil {
		return err
	}
	ctx := vfs.NewContext(host)

	go serveMetrics(viper.GetString("metrics-addr"))

	if mount := viper.GetString("mount"); mount != "" {
		if errno := mountHostDir(ctx, host, mount); errno != vfs.ErrnoSuccess {
			return fmt.Errorf("mount %s: %s", mount, errno)
		}
	}

	scriptPath := viper.GetString("script")
	if scriptPath == "" {
		fmt.Printf("session %s ready with no script; exiting\n", sessionID)
		return nil
	}
	return runScript(ctx, host, scriptPath, sessionID)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	_ = http.ListenAndServe(addr, mux)
}

// mountHostDir wires a single Mount request for a real host directory
// onto the guest root, the way a production embedder bootstraps a
// sandboxed program's view of the world.
func mountHostDir(ctx *vfs.Context, host *vfshost.Host, dir string) vfs.Errno {
	args := []vfs.Arg{boolArg(true), stringArg(dir + "\n.")}
	_, errno := instrument(ctx, vfs.Mount, args)
	return errno
}

// runScript executes one request per non-empty, non-comment line of a
// script file. Each line is "request_name arg0 arg1 ..." (whitespace
// separated) where args are typed with a one-letter prefix: s for string,
// u for u32, U for u64, b for bool, n for null.
func runScript(ctx *vfs.Context, host *vfshost.Host, path string, sessionID uuid.UUID) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, args, err := parseLine(line)
		if err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}

		out, errno := instrument(ctx, req, args)
		if errno != vfs.ErrnoSuccess {
			fmt.Printf("%v -> errno %s\n", req, errno)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
	return scanner.Err()
}

func instrument(ctx *vfs.Context, req vfs.Request, args []vfs.Arg) (string, vfs.Errno) {
	start := time.Now()
	out, errno := vfs.Dispatch(ctx, req, args)

	labels := prometheus.Labels{"request": req.String(), "errno": errno.String()}
	requestDuration.With(labels).Observe(time.Since(start).Seconds())
	requestsTotal.With(labels).Inc()

	return out, errno
}

func parseLine(line string) (vfs.Request, []vfs.Arg, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, fmt.Errorf("empty script line")
	}

	req, ok := requestsByName[fields[0]]
	if !ok {
		return 0, nil, fmt.Errorf("unknown request %q", fields[0])
	}

	var args []vfs.Arg
	for _, raw := range fields[1:] {
		arg, err := parseArg(raw)
		if err != nil {
			return 0, nil, err
		}
		args = append(args, arg)
	}
	return req, args, nil
}

func parseArg(raw string) (vfs.Arg, error) {
	if len(raw) < 1 {
		return vfs.Arg{}, fmt.Errorf("empty argument")
	}
	kind, rest := raw[0], raw[1:]
	switch kind {
	case 's':
		return stringArg(rest), nil
	case 'b':
		return boolArg(rest == "true"), nil
	case 'n':
		return vfs.NewNullArg(), nil
	case 'u':
		v, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return vfs.Arg{}, err
		}
		return vfs.NewU32Arg(uint32(v)), nil
	case 'U':
		v, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return vfs.Arg{}, err
		}
		return vfs.NewU64Arg(v), nil
	default:
		return vfs.Arg{}, fmt.Errorf("unsupported argument prefix %q", string(kind))
	}
}

func stringArg(s string) vfs.Arg { return vfs.NewStringArg(s) }
func boolArg(b bool) vfs.Arg     { return vfs.NewBoolArg(b) }

var requestsByName = map[string]vfs.Request{
	"read_sync":             vfs.ReadSync,
	"write_sync":            vfs.WriteSync,
	"fstat_sync":            vfs.FstatSync,
	"open_sync":             vfs.OpenSync,
	"close_sync":            vfs.CloseSync,
	"readdir_sync":          vfs.ReaddirSync,
	"rmdir_sync":            vfs.RmdirSync,
	"rename_sync":           vfs.RenameSync,
	"mkdir_sync":            vfs.MkdirSync,
	"read_file":             vfs.ReadFile,
	"fallocate_sync":        vfs.FallocateSync,
	"ftruncate_sync":        vfs.FtruncateSync,
	"prestat_dir_name_sync": vfs.PrestatDirNameSync,
	"renumber_sync":         vfs.RenumberSync,
	"seek_sync":             vfs.SeekSync,
	"freaddir_sync":         vfs.FreaddirSync,
	"unlink_sync":           vfs.UnlinkSync,
	"write_file_sync":       vfs.WriteFileSync,
	"truncate_sync":         vfs.TruncateSync,
	"lstat_sync":            vfs.LstatSync,
	"mount":                 vfs.Mount,
	"chdir":                 vfs.Chdir,
}
