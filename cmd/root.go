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

// Package cmd implements the zaprett CLI using cobra.
// It provides the root command structure, path configuration and version
// management.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zaprett/zaprett/daemon/logger"
	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/types"
	"golang.org/x/sys/unix"
)

// Version is the application version string.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const banner = "zaprett installed. Join us: t.me/zaprett_module"

var rootCmd = &cobra.Command{
	Use:   "zaprett",
	Short: "zaprett - DPI bypass service for Android",
	Long: `zaprett supervises the nfqws packet desync engine.

It diverts traffic into an NFQUEUE with iptables, runs the engine
detached on that queue, and stops both on request.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), banner)
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("zaprett v%s (built: %s)\n", Version, BuildTime))

	defaults := state.DefaultPaths()
	flags := rootCmd.PersistentFlags()
	flags.String("module-root", defaults.ModuleRoot, "Magisk module directory")
	flags.String("data-dir", defaults.DataDir, "user data directory (config, lists, strategies)")
	flags.String("libs-dir", "", "engine lua library directory (default <module-root>/libs)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("identity-check", string(types.IdentitySelf), "process name expected behind pid.lock: self or engine")

	viper.SetEnvPrefix("ZAPRETT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{"module-root", "data-dir", "libs-dir", "log-level", "identity-check"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// Execute runs the root command and handles any errors.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()
	defer logger.Close()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		exitWithError()
	}
}

// SetVersion updates the version and build time for display in help and version output.
func SetVersion(version, buildTime string) {
	Version = version
	BuildTime = buildTime
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("zaprett v%s (built: %s)\n", version, buildTime))
}

// exitWithError is a helper function that exits with code 1.
// It can be overridden in tests to avoid actual exit.
var exitWithError = func() {
	logger.Close()
	os.Exit(1)
}

// configuredPaths builds the filesystem layout from flags, ZAPRETT_*
// environment variables and defaults, in that order of precedence.
func configuredPaths() *state.Paths {
	p := state.DefaultPaths()
	if root := viper.GetString("module-root"); root != "" {
		p.ModuleRoot = filepath.Clean(root)
	}
	if dir := viper.GetString("data-dir"); dir != "" {
		p.DataDir = filepath.Clean(dir)
	}
	p.LibsDir = filepath.Join(p.ModuleRoot, "libs")
	if dir := viper.GetString("libs-dir"); dir != "" {
		p.LibsDir = filepath.Clean(dir)
	}
	return p
}

// initLogger installs the terminal backend and, when the module directory
// is writable, the JSON log file.
func initLogger(stderr io.Writer, p *state.Paths) logger.Logger {
	backends := []logger.Backend{logger.NewHclogBackend(stderr, "zaprett")}
	if fb, err := logger.NewFileBackend(p.LogFile()); err == nil {
		backends = append(backends, fb)
	} else {
		fmt.Fprintf(stderr, "[WARN] file logging disabled: %v\n", err)
	}
	logger.Init(logger.Config{Level: viper.GetString("log-level")}, backends...)
	return logger.Get()
}

// runAction wires the standard error handling around a command body.
func runAction(cmd *cobra.Command, fn func() error) {
	if err := fn(); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}
