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
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zaprett/zaprett/daemon"
	"github.com/zaprett/zaprett/engine"
	"github.com/zaprett/zaprett/system"
	"github.com/zaprett/zaprett/types"
)

var runCmd = &cobra.Command{
	Use:   "run [--engine nfqws|nfqws2] [engine args...]",
	Short: "Run the engine in the foreground",
	Long: `Runs the engine directly with the given arguments, bypassing the
service: no rules are installed and nothing is daemonized. Without
arguments the engine runs verbose.

Every argument after the optional --engine is passed to the engine.`,
	DisableFlagParsing: true,
	Run:                runRun,
}

var engineCmd = &cobra.Command{
	Use:                daemon.EngineCommand + " <variant> <argv...>",
	Hidden:             true,
	DisableFlagParsing: true,
	Args:               cobra.MinimumNArgs(2),
	Run:                runEngine,
}

// exitWithCode ends the process with the engine's status.
var exitWithCode = func(code int) {
	os.Exit(code)
}

// runEngineFunc runs the engine; tests replace it.
var runEngineFunc = engine.Run

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(engineCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		_ = cmd.Help()
		return
	}
	code, err := executeRun(cmd.ErrOrStderr(), configuredPaths().BinDir(), args)
	if err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
	}
	exitWithCode(code)
}

func runEngine(cmd *cobra.Command, args []string) {
	code, err := executeEngine(configuredPaths().BinDir(), args)
	if err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
	}
	exitWithCode(code)
}

// splitEngineFlag takes a leading --engine option off args.
func splitEngineFlag(args []string) (types.EngineVariant, []string, error) {
	if len(args) == 0 {
		return types.EngineNfqws, args, nil
	}

	var value string
	switch {
	case args[0] == "--engine":
		if len(args) < 2 {
			return "", nil, fmt.Errorf("--engine needs a value")
		}
		value, args = args[1], args[2:]
	case strings.HasPrefix(args[0], "--engine="):
		value, args = strings.TrimPrefix(args[0], "--engine="), args[1:]
	default:
		return types.EngineNfqws, args, nil
	}

	v, err := types.ParseEngineVariant(value)
	if err != nil {
		return "", nil, err
	}
	return v, args, nil
}

func executeRun(w io.Writer, binDir string, args []string) (int, error) {
	v, rest, err := splitEngineFlag(args)
	if err != nil {
		return 2, err
	}
	if !system.IsRoot() {
		fmt.Fprintln(w, "[WARN] not running as root, the engine will likely fail to bind its queue")
	}
	argv := engine.BuildArgv(v, strings.Join(rest, " "), system.DefaultQueueNum)
	return runEngineFunc(v, argv, binDir)
}

// executeEngine is the body of a daemonized child: args are the variant
// followed by the full engine argv.
func executeEngine(binDir string, args []string) (int, error) {
	v, err := types.ParseEngineVariant(args[0])
	if err != nil {
		return 2, err
	}
	return runEngineFunc(v, args[1:], binDir)
}
