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
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	verboseStatus bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the zaprett service is running",
	Long: `Prints "zaprett is working" or "zaprett is stopped".

With --verbose the NFQUEUE rules and the conntrack setting are checked as well.`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&verboseStatus, "verbose", "v", false, "Also report the interception rules and conntrack setting")
}

func runStatus(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		svc, err := newService()
		if err != nil {
			return err
		}
		return executeStatus(cmd.Context(), cmd.OutOrStdout(), svc, verboseStatus)
	})
}

func executeStatus(ctx context.Context, w io.Writer, svc ServiceInterface, verbose bool) error {
	st, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "zaprett is %s\n", st)

	if !verbose {
		return nil
	}
	installed, err := svc.RulesInstalled()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Interception rules: %s\n", boolToPresent(installed))

	liberal, err := svc.ConntrackLiberal()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Liberal conntrack: %s\n", boolToOnOff(liberal))
	return nil
}

func boolToOnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func boolToPresent(b bool) string {
	if b {
		return "installed"
	}
	return "missing"
}
