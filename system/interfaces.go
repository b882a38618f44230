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

// Package system provides low-level system integration: packet filter rules,
// sysctl writes, the process table and signal delivery.
package system

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coreos/go-iptables/iptables"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// RuleTable abstracts packet filter rule manipulation for testability.
// *iptables.IPTables satisfies it.
type RuleTable interface {
	Insert(table, chain string, pos int, rulespec ...string) error
	Append(table, chain string, rulespec ...string) error
	Delete(table, chain string, rulespec ...string) error
	Exists(table, chain string, rulespec ...string) (bool, error)
}

// SysctlClient abstracts sysctl operations for testability.
type SysctlClient interface {
	// Get reads a sysctl value
	Get(key string) (string, error)
	// Set writes a sysctl value
	Set(key, value string) error
}

// FilesystemClient abstracts filesystem operations for testability.
type FilesystemClient interface {
	// ReadFile reads the entire file content
	ReadFile(filename string) ([]byte, error)
	// WriteFile writes data to a file
	WriteFile(filename string, data []byte, perm uint32) error
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	// Run executes a command and returns its combined output
	Run(name string, args ...string) ([]byte, error)
}

// ProcTable looks up live processes by pid.
type ProcTable interface {
	// Comm returns the kernel's short name (comm) of the process.
	Comm(pid int) (string, error)
}

// Signaler delivers signals to processes.
type Signaler interface {
	Signal(pid int, sig unix.Signal) error
}

// DefaultRuleTable implements RuleTable with go-iptables. The iptables
// binary is probed on first use, not at construction.
type DefaultRuleTable struct {
	once sync.Once
	ipt  *iptables.IPTables
	err  error
}

// NewDefaultRuleTable creates a new DefaultRuleTable.
func NewDefaultRuleTable() *DefaultRuleTable {
	return &DefaultRuleTable{}
}

func (t *DefaultRuleTable) get() (*iptables.IPTables, error) {
	t.once.Do(func() {
		t.ipt, t.err = iptables.New()
	})
	return t.ipt, t.err
}

func (t *DefaultRuleTable) Insert(table, chain string, pos int, rulespec ...string) error {
	ipt, err := t.get()
	if err != nil {
		return err
	}
	return ipt.Insert(table, chain, pos, rulespec...)
}

func (t *DefaultRuleTable) Append(table, chain string, rulespec ...string) error {
	ipt, err := t.get()
	if err != nil {
		return err
	}
	return ipt.Append(table, chain, rulespec...)
}

func (t *DefaultRuleTable) Delete(table, chain string, rulespec ...string) error {
	ipt, err := t.get()
	if err != nil {
		return err
	}
	return ipt.Delete(table, chain, rulespec...)
}

func (t *DefaultRuleTable) Exists(table, chain string, rulespec ...string) (bool, error) {
	ipt, err := t.get()
	if err != nil {
		return false, err
	}
	return ipt.Exists(table, chain, rulespec...)
}

// DefaultSysctlClient implements SysctlClient by reading and writing under
// a sysctl root, normally /proc/sys.
type DefaultSysctlClient struct {
	fs   FilesystemClient
	root string
}

// NewDefaultSysctlClient creates a new DefaultSysctlClient.
func NewDefaultSysctlClient(fs FilesystemClient, root string) *DefaultSysctlClient {
	return &DefaultSysctlClient{fs: fs, root: root}
}

func (c *DefaultSysctlClient) path(key string) string {
	return filepath.Join(c.root, strings.ReplaceAll(key, ".", "/"))
}

func (c *DefaultSysctlClient) Get(key string) (string, error) {
	data, err := c.fs.ReadFile(c.path(key))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *DefaultSysctlClient) Set(key, value string) error {
	return c.fs.WriteFile(c.path(key), []byte(value), 0644)
}

// DefaultFilesystemClient implements FilesystemClient using real filesystem operations.
type DefaultFilesystemClient struct{}

// NewDefaultFilesystemClient creates a new DefaultFilesystemClient.
func NewDefaultFilesystemClient() *DefaultFilesystemClient {
	return &DefaultFilesystemClient{}
}

func (c *DefaultFilesystemClient) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

func (c *DefaultFilesystemClient) WriteFile(filename string, data []byte, perm uint32) error {
	return os.WriteFile(filename, data, os.FileMode(perm))
}

// DefaultCommandRunner implements CommandRunner using real command execution.
type DefaultCommandRunner struct{}

// NewDefaultCommandRunner creates a new DefaultCommandRunner.
func NewDefaultCommandRunner() *DefaultCommandRunner {
	return &DefaultCommandRunner{}
}

func (c *DefaultCommandRunner) Run(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// DefaultProcTable implements ProcTable over a procfs mount.
type DefaultProcTable struct {
	root string
}

// NewDefaultProcTable creates a ProcTable reading from the procfs at root.
func NewDefaultProcTable(root string) *DefaultProcTable {
	return &DefaultProcTable{root: root}
}

func (t *DefaultProcTable) Comm(pid int) (string, error) {
	fs, err := procfs.NewFS(t.root)
	if err != nil {
		return "", err
	}
	p, err := fs.Proc(pid)
	if err != nil {
		return "", err
	}
	return p.Comm()
}

// DefaultSignaler implements Signaler with kill(2).
type DefaultSignaler struct{}

// NewDefaultSignaler creates a new DefaultSignaler.
func NewDefaultSignaler() *DefaultSignaler {
	return &DefaultSignaler{}
}

func (s *DefaultSignaler) Signal(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// IsRoot reports whether the process runs with effective uid 0.
func IsRoot() bool {
	return unix.Geteuid() == 0
}
