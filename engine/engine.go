// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// Package engine runs the packet desync engine in the current process.
//
// The engine is normally linked in through cgo (build tags nfqws and
// nfqws2), in which case its main function is registered at init time and
// called directly. Without a native entry the process image is replaced by
// an engine binary from the module's bin directory or $PATH.
package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/zaprett/zaprett/system"
	"github.com/zaprett/zaprett/types"
	"golang.org/x/sys/unix"
)

// Entry is a C-style engine main: it receives a full argv, including the
// program name, and returns the exit status.
type Entry func(argv []string) int

// Engine versions, set at build time via ldflags.
var (
	NfqwsVersion  = "unknown"
	Nfqws2Version = "unknown"
)

// ExitExecFailed is returned by Run when no engine could be started.
const ExitExecFailed = 127

var (
	mu      sync.RWMutex
	entries = make(map[types.EngineVariant]Entry)
)

// Register installs the native entry for a variant, replacing any previous one.
func Register(v types.EngineVariant, e Entry) {
	mu.Lock()
	defer mu.Unlock()
	entries[v] = e
}

// Unregister removes the native entry for a variant.
func Unregister(v types.EngineVariant) {
	mu.Lock()
	defer mu.Unlock()
	delete(entries, v)
}

// Lookup returns the native entry for a variant.
func Lookup(v types.EngineVariant) (Entry, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := entries[v]
	return e, ok
}

// BinaryPath finds the executable for a variant, preferring binDir over $PATH.
func BinaryPath(v types.EngineVariant, binDir string) (string, error) {
	if binDir != "" {
		path := filepath.Join(binDir, string(v))
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
			return path, nil
		}
	}
	return exec.LookPath(string(v))
}

// Available reports whether the variant can be run, natively or as a binary.
func Available(v types.EngineVariant, binDir string) bool {
	if _, ok := Lookup(v); ok {
		return true
	}
	_, err := BinaryPath(v, binDir)
	return err == nil
}

// BuildArgv returns the engine command line for args. The engine always runs
// as root on the given queue; an empty args string only turns on verbose
// output.
func BuildArgv(v types.EngineVariant, args string, queueNum int) []string {
	argv := []string{string(v), "--uid=0:0", "--qnum=" + strconv.Itoa(queueNum)}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return append(argv, "-v")
	}
	return append(argv, fields...)
}

// Run executes the engine with argv and returns its exit status. When the
// binary fallback is used and exec succeeds, Run does not return.
func Run(v types.EngineVariant, argv []string, binDir string) (int, error) {
	if e, ok := Lookup(v); ok {
		return e(argv), nil
	}

	path, err := BinaryPath(v, binDir)
	if err != nil {
		return ExitExecFailed, fmt.Errorf("%s is not available: %w", v, err)
	}
	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		return ExitExecFailed, fmt.Errorf("exec %s: %w", path, err)
	}
	return 0, nil
}

// Version returns the build-time version of a variant.
func Version(v types.EngineVariant) string {
	if v == types.EngineNfqws2 {
		return Nfqws2Version
	}
	return NfqwsVersion
}

var versionRe = regexp.MustCompile(`version (v[0-9][0-9.]*)`)

// BinaryVersion returns the engine version. Without a build-time version the
// engine binary is asked with --version.
func BinaryVersion(runner system.CommandRunner, v types.EngineVariant, binDir string) (string, error) {
	if ver := Version(v); ver != "unknown" && ver != "" {
		return ver, nil
	}

	path, err := BinaryPath(v, binDir)
	if err != nil {
		return "", fmt.Errorf("%s is not available: %w", v, err)
	}
	// nfqws prints its banner and exits non-zero on --version.
	out, runErr := runner.Run(path, "--version")
	if m := versionRe.FindSubmatch(out); m != nil {
		return string(m[1]), nil
	}
	if runErr != nil {
		return "", fmt.Errorf("failed to run %s --version: %w", path, runErr)
	}
	return "", fmt.Errorf("no version in %s --version output", path)
}
