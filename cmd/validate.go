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

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/validation"
)

var errValidationFailed = errors.New("validation failed - please fix the errors above")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check config.json, the active lists and the strategy without starting",
	Long: `Parses config.json and checks every input the next start would use:
each hostlist entry must be a domain, each ipset entry an address or subnet,
and the strategy's --filter-tcp/--filter-udp ports must be valid.`,
	Args: cobra.NoArgs,
	Run:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		return executeValidate(cmd.OutOrStdout(), configuredPaths())
	})
}

func executeValidate(w io.Writer, p *state.Paths) error {
	fmt.Fprintf(w, "Validating %s...\n\n", p.ConfigFile())

	cfg, err := state.LoadServiceConfig(p)
	if err != nil {
		fmt.Fprintf(w, "❌ config.json: %v\n", err)
		return errValidationFailed
	}
	fmt.Fprintf(w, "✓ config.json: valid (%s, %s)\n", cfg.Variant(), cfg.Mode())

	failed := false
	for _, r := range validation.ValidateConfig(cfg) {
		if r.OK() {
			fmt.Fprintf(w, "✓ %s %s: valid\n", r.Kind, r.Name)
			continue
		}
		failed = true
		fmt.Fprintf(w, "❌ %s %s:\n", r.Kind, r.Name)
		for _, line := range strings.Split(r.Err.Error(), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintln(w)
	if failed {
		return errValidationFailed
	}
	fmt.Fprintln(w, "✓ All inputs are valid")
	return nil
}
