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

	"github.com/spf13/cobra"
	"github.com/zaprett/zaprett/engine"
	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/system"
	"github.com/zaprett/zaprett/types"
)

var versionEngine string

var moduleVersionCmd = &cobra.Command{
	Use:   "module-version",
	Short: "Print the installed module version from module.prop",
	Args:  cobra.NoArgs,
	Run:   runModuleVersion,
}

var binaryVersionCmd = &cobra.Command{
	Use:   "binary-version",
	Short: "Print the engine version",
	Args:  cobra.NoArgs,
	Run:   runBinaryVersion,
}

func init() {
	rootCmd.AddCommand(moduleVersionCmd)
	rootCmd.AddCommand(binaryVersionCmd)
	binaryVersionCmd.Flags().StringVar(&versionEngine, "engine", string(types.EngineNfqws), "engine variant: nfqws or nfqws2")
}

func runModuleVersion(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		return executeModuleVersion(cmd.OutOrStdout(), configuredPaths())
	})
}

func runBinaryVersion(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		return executeBinaryVersion(cmd.OutOrStdout(), system.NewDefaultCommandRunner(), configuredPaths(), versionEngine)
	})
}

func executeModuleVersion(w io.Writer, p *state.Paths) error {
	v, err := state.ModuleVersion(p)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, v)
	return nil
}

func executeBinaryVersion(w io.Writer, runner system.CommandRunner, p *state.Paths, variant string) error {
	v, err := types.ParseEngineVariant(variant)
	if err != nil {
		return err
	}
	ver, err := engine.BinaryVersion(runner, v, p.BinDir())
	if err != nil {
		return err
	}
	fmt.Fprintln(w, ver)
	return nil
}
