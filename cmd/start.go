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

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the zaprett service",
	Long: `Builds the engine arguments from config.json and the active lists,
installs the NFQUEUE rules and starts the engine in the background.

Fails if the service is already running.`,
	Args: cobra.NoArgs,
	Run:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the zaprett service",
	Long:  `Removes the NFQUEUE rules and kills the engine. Stopping a stopped service does nothing.`,
	Args:  cobra.NoArgs,
	Run:   runStop,
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the zaprett service",
	Args:  cobra.NoArgs,
	Run:   runRestart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
}

func runStart(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		svc, err := newService()
		if err != nil {
			return err
		}
		return executeStart(cmd.Context(), cmd.OutOrStdout(), svc)
	})
}

func runStop(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		svc, err := newService()
		if err != nil {
			return err
		}
		return executeStop(cmd.Context(), cmd.OutOrStdout(), svc)
	})
}

func runRestart(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		svc, err := newService()
		if err != nil {
			return err
		}
		return executeRestart(cmd.Context(), cmd.OutOrStdout(), svc)
	})
}

func executeStart(ctx context.Context, w io.Writer, svc ServiceInterface) error {
	fmt.Fprintln(w, "Starting zaprett service...")
	if err := svc.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "zaprett service started!")
	return nil
}

func executeStop(ctx context.Context, w io.Writer, svc ServiceInterface) error {
	if err := svc.Stop(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "zaprett service stopped")
	return nil
}

func executeRestart(ctx context.Context, w io.Writer, svc ServiceInterface) error {
	if err := svc.Restart(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "zaprett service restarted!")
	return nil
}
