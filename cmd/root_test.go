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
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaprett/zaprett/daemon"
	"github.com/zaprett/zaprett/daemon/logger"
	"github.com/zaprett/zaprett/state"
)

// TestRootCmdExists tests that root command is properly initialized
func TestRootCmdExists(t *testing.T) {
	assert.NotNil(t, rootCmd, "root command should exist")
	assert.Equal(t, "zaprett", rootCmd.Use)
	assert.Contains(t, rootCmd.Short, "zaprett")
}

// TestRootCmdHasCommands tests that subcommands are registered
func TestRootCmdHasCommands(t *testing.T) {
	expectedCommands := []string{
		"start",
		"stop",
		"restart",
		"status",
		"set-autostart",
		"get-autostart",
		"module-version",
		"binary-version",
		"run",
		"validate",
		"logs",
		daemon.EngineCommand,
	}

	commands := rootCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	for _, expected := range expectedCommands {
		assert.Contains(t, commandNames, expected, "command %s should be registered", expected)
	}
	assert.True(t, engineCmd.Hidden)
	assert.True(t, runCmd.DisableFlagParsing)
}

// TestRootBanner tests the output without a subcommand
func TestRootBanner(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, banner+"\n", buf.String())
}

// TestConfiguredPathsDefaults tests the built-in layout
func TestConfiguredPathsDefaults(t *testing.T) {
	p := configuredPaths()
	assert.Equal(t, state.DefaultModuleRoot, p.ModuleRoot)
	assert.Equal(t, state.DefaultDataDir, p.DataDir)
	assert.Equal(t, filepath.Join(state.DefaultModuleRoot, "libs"), p.LibsDir)
}

// TestConfiguredPathsEnv tests ZAPRETT_* overrides
func TestConfiguredPathsEnv(t *testing.T) {
	t.Setenv("ZAPRETT_MODULE_ROOT", "/tmp/zmod/")
	t.Setenv("ZAPRETT_DATA_DIR", "/tmp/zdata")

	p := configuredPaths()
	assert.Equal(t, "/tmp/zmod", p.ModuleRoot)
	assert.Equal(t, "/tmp/zdata", p.DataDir)
	assert.Equal(t, "/tmp/zmod/libs", p.LibsDir)
	assert.Equal(t, "/tmp/zmod/tmp/pid.lock", p.PidLock())

	t.Setenv("ZAPRETT_LIBS_DIR", "/vendor/lua")
	assert.Equal(t, "/vendor/lua", configuredPaths().LibsDir)
}

// TestInitLogger tests that the log file lands in the module root
func TestInitLogger(t *testing.T) {
	p := &state.Paths{ModuleRoot: t.TempDir()}
	var stderr bytes.Buffer

	log := initLogger(&stderr, p)
	log.Warn("rules missing")
	require.NoError(t, logger.Close())

	assert.Contains(t, stderr.String(), "rules missing")
	assert.FileExists(t, p.LogFile())
}

// TestInitLoggerUnwritable tests the fallback to terminal-only logging
func TestInitLoggerUnwritable(t *testing.T) {
	p := &state.Paths{ModuleRoot: "/proc/zaprett-does-not-exist"}
	var stderr bytes.Buffer

	log := initLogger(&stderr, p)
	log.Info("still logged")
	require.NoError(t, logger.Close())

	assert.Contains(t, stderr.String(), "file logging disabled")
	assert.Contains(t, stderr.String(), "still logged")
}
