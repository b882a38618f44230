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

package system

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// MockRuleTable is a mock implementation of RuleTable for testing.
// It keeps an ordered rule list per table/chain, duplicates included.
type MockRuleTable struct {
	mu sync.Mutex

	// State, keyed by "table/chain"
	Chains map[string][]string

	// Call counters for verification
	InsertCalls int
	AppendCalls int
	DeleteCalls int
	ExistsCalls int

	// Error injection for testing error paths
	InsertError error
	AppendError error
	DeleteError error
	ExistsError error
}

// NewMockRuleTable creates a new MockRuleTable.
func NewMockRuleTable() *MockRuleTable {
	return &MockRuleTable{
		Chains: make(map[string][]string),
	}
}

func chainKey(table, chain string) string {
	return table + "/" + chain
}

func (m *MockRuleTable) Insert(table, chain string, pos int, rulespec ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++

	if m.InsertError != nil {
		return m.InsertError
	}

	key := chainKey(table, chain)
	rules := m.Chains[key]
	if pos < 1 || pos > len(rules)+1 {
		return fmt.Errorf("index of insertion too big")
	}
	rule := strings.Join(rulespec, " ")
	rules = append(rules, "")
	copy(rules[pos:], rules[pos-1:])
	rules[pos-1] = rule
	m.Chains[key] = rules
	return nil
}

func (m *MockRuleTable) Append(table, chain string, rulespec ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++

	if m.AppendError != nil {
		return m.AppendError
	}

	key := chainKey(table, chain)
	m.Chains[key] = append(m.Chains[key], strings.Join(rulespec, " "))
	return nil
}

func (m *MockRuleTable) Delete(table, chain string, rulespec ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++

	if m.DeleteError != nil {
		return m.DeleteError
	}

	key := chainKey(table, chain)
	rule := strings.Join(rulespec, " ")
	rules := m.Chains[key]
	for i, r := range rules {
		if r == rule {
			m.Chains[key] = append(rules[:i:i], rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("Bad rule (does a matching rule exist in that chain?)")
}

func (m *MockRuleTable) Exists(table, chain string, rulespec ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls++

	if m.ExistsError != nil {
		return false, m.ExistsError
	}

	rule := strings.Join(rulespec, " ")
	for _, r := range m.Chains[chainKey(table, chain)] {
		if r == rule {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the total number of rules across all chains.
func (m *MockRuleTable) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, rules := range m.Chains {
		n += len(rules)
	}
	return n
}

// MockSysctlClient is a mock implementation of SysctlClient for testing.
type MockSysctlClient struct {
	mu sync.Mutex

	// State
	Values map[string]string

	// Call counters
	GetCalls int
	SetCalls int

	// Error injection
	GetError error
	SetError error
}

// NewMockSysctlClient creates a new MockSysctlClient.
func NewMockSysctlClient() *MockSysctlClient {
	return &MockSysctlClient{
		Values: make(map[string]string),
	}
}

func (m *MockSysctlClient) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	if m.GetError != nil {
		return "", m.GetError
	}

	val, ok := m.Values[key]
	if !ok {
		return "", fmt.Errorf("sysctl key not found: %s", key)
	}
	return val, nil
}

func (m *MockSysctlClient) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++

	if m.SetError != nil {
		return m.SetError
	}

	m.Values[key] = value
	return nil
}

// MockFilesystemClient is a mock implementation of FilesystemClient for testing.
type MockFilesystemClient struct {
	mu sync.Mutex

	// State
	Files map[string][]byte

	// Call counters
	ReadFileCalls  int
	WriteFileCalls int

	// Error injection
	ReadFileError  error
	WriteFileError error
}

// NewMockFilesystemClient creates a new MockFilesystemClient.
func NewMockFilesystemClient() *MockFilesystemClient {
	return &MockFilesystemClient{
		Files: make(map[string][]byte),
	}
}

func (m *MockFilesystemClient) ReadFile(filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadFileCalls++

	if m.ReadFileError != nil {
		return nil, m.ReadFileError
	}

	data, ok := m.Files[filename]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", filename)
	}
	return data, nil
}

func (m *MockFilesystemClient) WriteFile(filename string, data []byte, perm uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteFileCalls++

	if m.WriteFileError != nil {
		return m.WriteFileError
	}

	m.Files[filename] = data
	return nil
}

// MockCommandRunner is a mock implementation of CommandRunner for testing.
type MockCommandRunner struct {
	mu sync.Mutex

	// State
	CommandOutputs map[string][]byte

	// Call tracking
	Commands [][]string
	RunCalls int

	// Error injection
	RunError error
}

// NewMockCommandRunner creates a new MockCommandRunner.
func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{
		CommandOutputs: make(map[string][]byte),
		Commands:       make([][]string, 0),
	}
}

func (m *MockCommandRunner) Run(name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunCalls++

	cmd := append([]string{name}, args...)
	m.Commands = append(m.Commands, cmd)

	if m.RunError != nil {
		return nil, m.RunError
	}

	output, ok := m.CommandOutputs[strings.Join(cmd, " ")]
	if !ok {
		return []byte{}, nil
	}
	return output, nil
}

// SetOutput sets the output for a specific command.
func (m *MockCommandRunner) SetOutput(name string, args []string, output []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CommandOutputs[strings.Join(append([]string{name}, args...), " ")] = output
}

// MockProcTable is a mock implementation of ProcTable for testing.
type MockProcTable struct {
	mu sync.Mutex

	// State: pid -> comm
	Procs map[int]string

	CommCalls int
}

// NewMockProcTable creates a new MockProcTable.
func NewMockProcTable() *MockProcTable {
	return &MockProcTable{
		Procs: make(map[int]string),
	}
}

func (m *MockProcTable) Comm(pid int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommCalls++

	comm, ok := m.Procs[pid]
	if !ok {
		return "", fmt.Errorf("process %d not found", pid)
	}
	return comm, nil
}

// MockSignaler is a mock implementation of Signaler for testing.
// A delivered SIGKILL removes the pid from Procs when Procs is set.
type MockSignaler struct {
	mu sync.Mutex

	Procs *MockProcTable

	// Call tracking
	Signals []SentSignal

	// Error injection
	SignalError error
}

// SentSignal records one Signal call.
type SentSignal struct {
	Pid    int
	Signal unix.Signal
}

// NewMockSignaler creates a new MockSignaler bound to a process table.
func NewMockSignaler(procs *MockProcTable) *MockSignaler {
	return &MockSignaler{Procs: procs}
}

func (m *MockSignaler) Signal(pid int, sig unix.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Signals = append(m.Signals, SentSignal{Pid: pid, Signal: sig})

	if m.SignalError != nil {
		return m.SignalError
	}

	if m.Procs != nil {
		m.Procs.mu.Lock()
		defer m.Procs.mu.Unlock()
		if _, ok := m.Procs.Procs[pid]; !ok {
			return unix.ESRCH
		}
		if sig == unix.SIGKILL {
			delete(m.Procs.Procs, pid)
		}
	}
	return nil
}
