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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zaprett/zaprett/daemon/logger"
	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/types"
)

var (
	logsFollow    bool
	logsLines     int
	logsEngine    bool
	logsLevel     string
	logsComponent string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show zaprett logs",
	Long: `Display the service log from <module root>/zaprett.log.

With --engine the captured stdout and stderr of the engine are shown
instead, for the engine variant selected in config.json.`,
	Args: cobra.NoArgs,
	Run:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output in real-time")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().BoolVar(&logsEngine, "engine", false, "Show the engine's output instead of the service log")
	logsCmd.Flags().StringVar(&logsLevel, "level", "debug", "Minimum level to show (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component name")
}

// logFilter selects service log entries.
type logFilter struct {
	level     logger.LogLevel
	component string
}

func (f logFilter) match(e *logger.Entry) bool {
	if logger.ParseLevel(e.Level) < f.level {
		return false
	}
	return f.component == "" || e.Component == f.component
}

func runLogs(cmd *cobra.Command, args []string) {
	runAction(cmd, func() error {
		p := configuredPaths()
		files := []string{p.LogFile()}
		if logsEngine {
			cfg, err := state.LoadServiceConfig(p)
			if err != nil {
				return err
			}
			files = engineLogFiles(p, cfg.Variant())
		}

		if logsFollow {
			return followLogs(cmd.Context(), cmd.OutOrStdout(), files, logsLines)
		}

		w := cmd.OutOrStdout()
		if logsEngine {
			return executeEngineLogs(w, files, logsLines)
		}
		filter := logFilter{level: logger.ParseLevel(logsLevel), component: logsComponent}
		return executeLogs(w, files[0], logsLines, filter)
	})
}

func engineLogFiles(p *state.Paths, v types.EngineVariant) []string {
	return []string{p.EngineStdout(v), p.EngineStderr(v)}
}

// executeLogs prints the last n matching entries of the service log as
// text. Lines that are not JSON entries are printed as written unless a
// component is requested.
func executeLogs(w io.Writer, path string, n int, filter logFilter) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("log file not found: %s (has zaprett been started yet?)", path)
		}
		return types.NewIOError("open log", path, err)
	}
	defer f.Close()

	lines, err := lastLines(f, n, func(line string) (string, bool) {
		var entry logger.Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return line, filter.component == ""
		}
		if !filter.match(&entry) {
			return "", false
		}
		return entry.ToText(), true
	})
	if err != nil {
		return types.NewIOError("read log", path, err)
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

// executeEngineLogs prints the tail of each engine output file that exists,
// headed by its path.
func executeEngineLogs(w io.Writer, files []string, n int) error {
	shown := 0
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return types.NewIOError("open engine output", path, err)
		}
		lines, err := lastLines(f, n, func(line string) (string, bool) { return line, true })
		f.Close()
		if err != nil {
			return types.NewIOError("read engine output", path, err)
		}

		if shown > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "==> %s <==\n", path)
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
		shown++
	}
	if shown == 0 {
		return fmt.Errorf("no engine output found (has the engine been started yet?)")
	}
	return nil
}

// lastLines keeps the last n lines accepted by keep, rewritten by it.
// n <= 0 keeps everything.
func lastLines(r io.Reader, n int, keep func(string) (string, bool)) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line, ok := keep(sc.Text())
		if !ok {
			continue
		}
		out = append(out, line)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
	}
	return out, sc.Err()
}

// followLogs hands off to tail(1) until ctx is cancelled.
func followLogs(ctx context.Context, w io.Writer, files []string, n int) error {
	args := []string{"-F", "-n", strconv.Itoa(n)}
	args = append(args, files...)

	tail := exec.CommandContext(ctx, "tail", args...) //nolint:gosec // fixed binary, paths from the module layout
	tail.Stdout = w
	tail.Stderr = os.Stderr
	if err := tail.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run tail: %w", err)
	}
	return nil
}
