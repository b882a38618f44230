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

package strategy

import (
	"os"
	"regexp"

	"github.com/zaprett/zaprett/types"
)

// Placeholder names recognized in strategy templates, written either bare
// ($hostlist) or braced (${hostlist}).
const (
	PlaceholderHostlist   = "hostlist"
	PlaceholderIPSet      = "ipset"
	PlaceholderZaprettDir = "zaprettdir"
	PlaceholderLibsDir    = "libsdir"
)

// Bindings maps placeholder names to their substituted values.
type Bindings map[string]string

// The braced form is tried first so "${x}" never leaves a stray brace.
var placeholderRe = regexp.MustCompile(`\$\{(hostlist|ipset|zaprettdir|libsdir)\}|\$(hostlist|ipset|zaprettdir|libsdir)`)

// Resolve returns the strategy text for the configured engine: the user's
// strategy file if it can be read, otherwise the built-in default. It never
// fails.
func Resolve(cfg *types.Config) string {
	if path := cfg.VariantStrategyPath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	return Default(cfg.Variant())
}

// Substitute replaces every bare and braced occurrence of a bound
// placeholder. Placeholders without a binding are left as written.
func Substitute(template string, b Bindings) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if v, ok := b[name]; ok {
			return v
		}
		return m
	})
}
