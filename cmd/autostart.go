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
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zaprett/zaprett/state"
)

var setAutostartCmd = &cobra.Command{
	Use:   "set-autostart <true|false>",
	Short: "Enable or disable starting zaprett at boot",
	Args:  cobra.ExactArgs(1),
	Run:   runSetAutostart,
}

var getAutostartCmd = &cobra.Command{
	Use:   "get-autostart",
	Short: "Print whether zaprett starts at boot",
	Args:  cobra.NoArgs,
	Run:   runGetAutostart,
}

func init() {
	rootCmd.AddCommand(setAutostartCmd)
	rootCmd.AddCommand(getAutostartCmd)
}

func runSetAutostart(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		return executeSetAutostart(cmd.OutOrStdout(), configuredPaths(), args[0])
	})
}

func runGetAutostart(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		return executeGetAutostart(cmd.OutOrStdout(), configuredPaths())
	})
}

func executeSetAutostart(w io.Writer, p *state.Paths, value string) error {
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value %q (expected true or false)", value)
	}
	if err := state.SetAutostart(p, enabled); err != nil {
		return fmt.Errorf("autostart: %w", err)
	}
	fmt.Fprintf(w, "autostart: %t\n", enabled)
	return nil
}

func executeGetAutostart(w io.Writer, p *state.Paths) error {
	fmt.Fprintln(w, state.GetAutostart(p))
	return nil
}
