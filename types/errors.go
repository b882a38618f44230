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

package types

import "strings"

// Compile-time check that ErrorKind implements the error interface.
var _ error = ErrorKind("")

// ErrorKind is an immutable error category backed by a string constant.
// Use errors.Is(err, types.ErrConflict) to classify any error returned by
// the service, whether it is the bare kind or a wrapping *Error.
type ErrorKind string

func (k ErrorKind) Error() string {
	return string(k)
}

const (
	// ErrPermission: the service was invoked without root.
	ErrPermission = ErrorKind("permission denied")

	// ErrConflict: start while running, or the configured engine is not available.
	ErrConflict = ErrorKind("conflict")

	// ErrConfig: the persisted config exists but cannot be parsed.
	ErrConfig = ErrorKind("invalid config")

	// ErrIO: a workspace, list or template file operation failed.
	ErrIO = ErrorKind("i/o error")

	// ErrOS: a kernel rule, sysctl or signal operation failed.
	ErrOS = ErrorKind("os error")
)

// Error carries the kind of failure together with the operation and, for
// file operations, the offending path.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(": ")
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// NewPermissionError reports that op needs root.
func NewPermissionError(op string) error {
	return &Error{Kind: ErrPermission, Op: op}
}

// NewIOError wraps a file operation failure on path.
func NewIOError(op, path string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Path: path, Err: err}
}

// NewOSError wraps a kernel or process operation failure.
func NewOSError(op string, err error) error {
	return &Error{Kind: ErrOS, Op: op, Err: err}
}

// NewConfigError wraps a parse failure of the config at path.
func NewConfigError(path string, err error) error {
	return &Error{Kind: ErrConfig, Op: "parse config", Path: path, Err: err}
}

// NewConflictError reports a state conflict with a human readable reason.
func NewConflictError(op, reason string) error {
	return &Error{Kind: ErrConflict, Op: op, Err: conflictReason(reason)}
}

type conflictReason string

func (r conflictReason) Error() string { return string(r) }
