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

package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/zaprett/zaprett/daemon/logger"
	"github.com/zaprett/zaprett/engine"
	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/system"
	"github.com/zaprett/zaprett/types"
	"golang.org/x/sys/unix"
)

// EngineCommand is the hidden CLI command a daemonized child runs.
const EngineCommand = "__engine"

// commLen is the kernel's TASK_COMM_LEN without the terminating NUL.
const commLen = 15

// LaunchSpec describes one detached engine process.
type LaunchSpec struct {
	Variant types.EngineVariant
	Argv    []string
	Dir     string
	Stdout  string
	Stderr  string
	Env     []string // added to the inherited environment
}

// Launcher starts a detached engine process and returns its pid without
// waiting for it.
type Launcher interface {
	Launch(spec LaunchSpec) (int, error)
}

// ExecLauncher re-executes the zaprett binary as a session leader that runs
// EngineCommand. The child keeps zaprett's process name while it runs a
// native engine entry, and takes the engine's name once it execs an engine
// binary.
type ExecLauncher struct {
	executable string
}

// NewExecLauncher creates a launcher for the running executable.
func NewExecLauncher() (*ExecLauncher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate own executable: %w", err)
	}
	return &ExecLauncher{executable: exe}, nil
}

// Executable returns the binary the launcher re-executes.
func (l *ExecLauncher) Executable() string {
	return l.executable
}

func (l *ExecLauncher) Launch(spec LaunchSpec) (int, error) {
	stdin, err := os.Open(os.DevNull)
	if err != nil {
		return 0, types.NewIOError("open", os.DevNull, err)
	}
	defer stdin.Close()

	stdout, err := os.OpenFile(spec.Stdout, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, types.NewIOError("open engine output", spec.Stdout, err)
	}
	defer stdout.Close()

	stderr, err := os.OpenFile(spec.Stderr, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, types.NewIOError("open engine output", spec.Stderr, err)
	}
	defer stderr.Close()

	args := append([]string{EngineCommand, string(spec.Variant)}, spec.Argv...)
	cmd := exec.Command(l.executable, args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, types.NewOSError("spawn engine", err)
	}
	pid := cmd.Process.Pid
	// The child outlives us; nothing will Wait for it.
	_ = cmd.Process.Release()
	return pid, nil
}

// SelfName returns the process name the kernel reports for this executable.
func SelfName() string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return CommName(filepath.Base(exe))
}

// CommName truncates name the way the kernel does for /proc/<pid>/comm.
func CommName(name string) string {
	if len(name) > commLen {
		return name[:commLen]
	}
	return name
}

// Supervisor owns the engine process: it daemonizes it, decides whether it
// is alive and kills it.
type Supervisor struct {
	paths    *state.Paths
	queueNum int
	launcher Launcher
	procs    system.ProcTable
	signaler system.Signaler
	identity types.IdentityCheck
	selfName string
	log      logger.Logger
}

// NewSupervisor creates a Supervisor using the self identity check.
func NewSupervisor(p *state.Paths, queueNum int, launcher Launcher, procs system.ProcTable, signaler system.Signaler) *Supervisor {
	return &Supervisor{
		paths:    p,
		queueNum: queueNum,
		launcher: launcher,
		procs:    procs,
		signaler: signaler,
		identity: types.IdentitySelf,
		selfName: SelfName(),
		log:      logger.Nop(),
	}
}

// SetIdentity changes the liveness policy. selfName is only used by
// IdentitySelf; an empty name keeps the current one.
func (s *Supervisor) SetIdentity(check types.IdentityCheck, selfName string) {
	s.identity = check
	if selfName != "" {
		s.selfName = CommName(selfName)
	}
}

// SetLogger sets the logger used for process events.
func (s *Supervisor) SetLogger(l logger.Logger) {
	s.log = l.With(logger.Field{Key: "component", Value: "supervisor"})
}

// Daemonize starts the engine detached with its output captured in the
// workspace and records its pid. The workspace must exist.
func (s *Supervisor) Daemonize(variant types.EngineVariant, args string) (int, error) {
	spec := LaunchSpec{
		Variant: variant,
		Argv:    engine.BuildArgv(variant, args, s.queueNum),
		Dir:     s.paths.Workspace(),
		Stdout:  s.paths.EngineStdout(variant),
		Stderr:  s.paths.EngineStderr(variant),
		Env:     []string{"ZAPRETT_MODULE_ROOT=" + s.paths.ModuleRoot},
	}

	pid, err := s.launcher.Launch(spec)
	if err != nil {
		return 0, err
	}

	if err := os.WriteFile(s.paths.PidLock(), []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		// Without a pid.lock nothing could ever stop the child.
		if kerr := s.signaler.Signal(pid, unix.SIGKILL); kerr != nil {
			s.log.Warn("Failed to kill unrecorded engine", logger.Field{Key: "pid", Value: pid}, logger.Err(kerr))
		}
		return 0, types.NewIOError("write pid", s.paths.PidLock(), err)
	}

	s.log.Info("Engine daemonized",
		logger.Field{Key: "engine", Value: string(variant)},
		logger.Field{Key: "pid", Value: pid})
	return pid, nil
}

// ReadPid returns the pid recorded in pid.lock.
func (s *Supervisor) ReadPid() (int, error) {
	path := s.paths.PidLock()
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, types.NewIOError("read pid", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, types.NewIOError("parse pid", path, fmt.Errorf("invalid pid %q", strings.TrimSpace(string(data))))
	}
	return pid, nil
}

// IsRunning reports whether the pid in pid.lock belongs to a live process
// with the expected name. A missing or unparsable pid.lock means stopped.
func (s *Supervisor) IsRunning() bool {
	pid, err := s.ReadPid()
	if err != nil {
		return false
	}
	comm, err := s.procs.Comm(pid)
	if err != nil {
		s.log.Debug("Recorded pid is not alive", logger.Field{Key: "pid", Value: pid})
		return false
	}
	return s.matches(strings.TrimSpace(comm))
}

// engineVariants are the names an exec'd engine binary reports.
var engineVariants = []types.EngineVariant{types.EngineNfqws, types.EngineNfqws2}

func (s *Supervisor) matches(comm string) bool {
	for _, v := range engineVariants {
		if comm != string(v) {
			continue
		}
		if s.identity == types.IdentityEngine {
			return true
		}
		// Without a native entry the child execs the engine binary.
		if _, native := engine.Lookup(v); !native {
			return true
		}
	}
	return s.identity != types.IdentityEngine && comm == s.selfName
}

// Terminate sends SIGKILL to pid.
func (s *Supervisor) Terminate(pid int) error {
	if err := s.signaler.Signal(pid, unix.SIGKILL); err != nil {
		return types.NewOSError(fmt.Sprintf("kill %d", pid), err)
	}
	s.log.Info("Engine killed", logger.Field{Key: "pid", Value: pid})
	return nil
}

// isGone reports whether err means the process no longer exists.
func isGone(err error) bool {
	return errors.Is(err, unix.ESRCH)
}
