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

package validation

import (
	"errors"
	"fmt"
)

// ErrorCollector accumulates validation errors so that one run reports
// every problem instead of the first.
type ErrorCollector struct {
	errs []error
	ctx  string // prefix such as a file path
	max  int
}

// NewCollector creates a new error collector. A positive max caps the
// number of errors kept; Truncated reports whether more were dropped.
func NewCollector(max int) *ErrorCollector {
	return &ErrorCollector{max: max}
}

// WithContext sets a context prefix that will be prepended to all subsequent errors.
func (ec *ErrorCollector) WithContext(ctx string) *ErrorCollector {
	ec.ctx = ctx
	return ec
}

// Check collects err if it is not nil.
func (ec *ErrorCollector) Check(err error) {
	if err == nil {
		return
	}
	if ec.ctx != "" {
		err = fmt.Errorf("%s: %w", ec.ctx, err)
	}
	ec.errs = append(ec.errs, err)
}

// CheckMsg collects err, if not nil, with msg between the context and err.
func (ec *ErrorCollector) CheckMsg(err error, msg string) {
	if err == nil {
		return
	}
	ec.Check(fmt.Errorf("%s: %w", msg, err))
}

// Len returns the number of collected errors.
func (ec *ErrorCollector) Len() int {
	return len(ec.errs)
}

// Truncated reports whether more errors were collected than are returned.
func (ec *ErrorCollector) Truncated() bool {
	return ec.max > 0 && len(ec.errs) > ec.max
}

// Error returns the collected errors joined, or nil if there were none.
func (ec *ErrorCollector) Error() error {
	if ec.Truncated() {
		errs := append(ec.errs[:ec.max:ec.max], fmt.Errorf("and %d more", len(ec.errs)-ec.max))
		return errors.Join(errs...)
	}
	return errors.Join(ec.errs...)
}
