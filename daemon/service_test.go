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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaprett/zaprett/daemon/logger"
	"github.com/zaprett/zaprett/engine"
	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/system"
	"github.com/zaprett/zaprett/types"
	"golang.org/x/sys/unix"
)

// fakeLauncher registers every launched engine in a mock process table.
type fakeLauncher struct {
	procs   *system.MockProcTable
	comm    string
	nextPid int
	specs   []LaunchSpec
	err     error
}

func (l *fakeLauncher) Launch(spec LaunchSpec) (int, error) {
	l.specs = append(l.specs, spec)
	if l.err != nil {
		return 0, l.err
	}
	l.nextPid++
	l.procs.Procs[l.nextPid] = l.comm
	return l.nextPid, nil
}

type harness struct {
	paths     *state.Paths
	table     *system.MockRuleTable
	sysctl    *system.MockSysctlClient
	procs     *system.MockProcTable
	signaler  *system.MockSignaler
	launcher  *fakeLauncher
	logs      *logger.BufferBackend
	root      bool
	available bool
	svc       *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		paths: &state.Paths{
			ModuleRoot: filepath.Join(dir, "module"),
			DataDir:    filepath.Join(dir, "data"),
			LibsDir:    filepath.Join(dir, "module", "libs"),
		},
		table:     system.NewMockRuleTable(),
		sysctl:    system.NewMockSysctlClient(),
		procs:     system.NewMockProcTable(),
		logs:      logger.NewBufferBackend(),
		root:      true,
		available: true,
	}
	h.signaler = system.NewMockSignaler(h.procs)
	h.launcher = &fakeLauncher{procs: h.procs, comm: "zaprett", nextPid: 1000}

	sup := NewSupervisor(h.paths, system.DefaultQueueNum, h.launcher, h.procs, h.signaler)
	sup.SetIdentity(types.IdentitySelf, "zaprett")

	h.svc = NewService(h.paths,
		system.NewRuleManager(h.table, h.sysctl, system.DefaultQueueNum),
		sup,
		WithIsRoot(func() bool { return h.root }),
		WithAvailability(func(types.EngineVariant) bool { return h.available }),
		WithLogger(logger.New(logger.Config{Level: "debug"}, h.logs)),
	)
	return h
}

func (h *harness) writeConfig(t *testing.T, cfg *types.Config) {
	t.Helper()
	require.NoError(t, state.SaveJSON(h.paths.ConfigFile(), cfg))
}

func (h *harness) status(t *testing.T) types.ServiceState {
	t.Helper()
	st, err := h.svc.Status(context.Background())
	require.NoError(t, err)
	return st
}

// TestStart tests a successful start from a fresh install
func TestStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx))

	assert.Equal(t, 3, h.table.Count())
	assert.Equal(t, "1", h.sysctl.Values[system.ConntrackLiberalKey])

	pidData, err := os.ReadFile(h.paths.PidLock())
	require.NoError(t, err)
	assert.Equal(t, "1001\n", string(pidData))

	require.Len(t, h.launcher.specs, 1)
	spec := h.launcher.specs[0]
	assert.Equal(t, types.EngineNfqws, spec.Variant)
	assert.Equal(t, []string{"nfqws", "--uid=0:0", "--qnum=200"}, spec.Argv[:3])
	assert.Equal(t, h.paths.Workspace(), spec.Dir)
	assert.Equal(t, h.paths.EngineStdout(types.EngineNfqws), spec.Stdout)
	assert.Equal(t, h.paths.EngineStderr(types.EngineNfqws), spec.Stderr)

	_, err = os.Stat(h.paths.ConfigFile())
	assert.NoError(t, err, "default config must be written on first start")

	assert.Equal(t, types.StateRunning, h.status(t))
	assert.Contains(t, h.logs.Messages("info"), "zaprett started")
}

// TestStartTwiceConflicts tests that a second start neither duplicates rules nor spawns
func TestStartTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx))
	rules := h.table.Count()

	err := h.svc.Start(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConflict))
	assert.Contains(t, err.Error(), "already running")

	assert.Equal(t, rules, h.table.Count())
	assert.Len(t, h.launcher.specs, 1)
	assert.Equal(t, types.StateRunning, h.status(t))
}

// TestStopWhenStopped tests that stopping a stopped service is a no-op
func TestStopWhenStopped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Stop(ctx))
	require.NoError(t, h.svc.Stop(ctx))
	assert.Equal(t, 0, h.table.DeleteCalls)
	assert.Empty(t, h.signaler.Signals)

	require.NoError(t, h.svc.Start(ctx))
	assert.Equal(t, 3, h.table.Count())
}

// TestStop tests rule removal and engine termination
func TestStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx))
	require.NoError(t, h.svc.Stop(ctx))

	assert.Equal(t, 0, h.table.Count())
	require.Len(t, h.signaler.Signals, 1)
	assert.Equal(t, system.SentSignal{Pid: 1001, Signal: unix.SIGKILL}, h.signaler.Signals[0])
	assert.Equal(t, types.StateStopped, h.status(t))

	_, err := os.Stat(h.paths.PidLock())
	assert.NoError(t, err, "pid.lock is left in place")

	require.NoError(t, h.svc.Stop(ctx))
	assert.Equal(t, 3, h.table.DeleteCalls, "second stop must not delete again")
}

// TestStopAttemptsEveryStep tests that a rule failure does not prevent the kill
func TestStopAttemptsEveryStep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx))
	h.table.DeleteError = errors.New("iptables: Resource temporarily unavailable")

	err := h.svc.Stop(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOS))
	assert.Equal(t, 3, h.table.DeleteCalls)
	assert.Len(t, h.signaler.Signals, 1)
	assert.Equal(t, types.StateStopped, h.status(t))
	assert.Contains(t, h.logs.Messages("error"), "Failed to remove interception rules")
}

// TestStopEngineAlreadyGone tests that ESRCH from the kill is not an error
func TestStopEngineAlreadyGone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx))
	h.signaler.SignalError = unix.ESRCH

	require.NoError(t, h.svc.Stop(ctx))
	assert.Equal(t, 0, h.table.Count())
}

// TestStopKillFailure tests that other signal errors are reported
func TestStopKillFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx))
	h.signaler.SignalError = unix.EPERM

	err := h.svc.Stop(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOS))
	assert.True(t, errors.Is(err, unix.EPERM))
	assert.Equal(t, 0, h.table.Count(), "rules are removed even when the kill fails")
}

// TestStaleLock tests that a pid.lock without a matching process means stopped
func TestStaleLock(t *testing.T) {
	tests := []struct {
		name  string
		lock  string
		procs map[int]string
	}{
		{name: "dead pid", lock: "4242\n"},
		{name: "garbage", lock: "not-a-pid"},
		{name: "empty", lock: ""},
		{name: "pid reused by another program", lock: "77\n", procs: map[int]string{77: "surfaceflinger"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for pid, comm := range tt.procs {
				h.procs.Procs[pid] = comm
			}
			require.NoError(t, os.MkdirAll(h.paths.Workspace(), 0755))
			require.NoError(t, os.WriteFile(h.paths.PidLock(), []byte(tt.lock), 0644))

			assert.Equal(t, types.StateStopped, h.status(t))
			require.NoError(t, h.svc.Stop(context.Background()))
			assert.Empty(t, h.signaler.Signals)

			require.NoError(t, h.svc.Start(context.Background()))
			assert.Equal(t, types.StateRunning, h.status(t))
		})
	}
}

// TestPermissionDenied tests the privilege gate on every operation
func TestPermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.root = false
	ctx := context.Background()

	ops := map[string]func() error{
		"start":   func() error { return h.svc.Start(ctx) },
		"stop":    func() error { return h.svc.Stop(ctx) },
		"restart": func() error { return h.svc.Restart(ctx) },
		"status": func() error {
			_, err := h.svc.Status(ctx)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrPermission))
			assert.Equal(t, name+": permission denied", err.Error())
		})
	}

	assert.Equal(t, 0, h.table.InsertCalls+h.table.AppendCalls+h.table.DeleteCalls)
	assert.Empty(t, h.launcher.specs)
	_, err := os.Stat(h.paths.ModuleRoot)
	assert.True(t, os.IsNotExist(err), "nothing may be written without root")
}

// TestStartWipesWorkspace tests that leftovers from a previous run are removed
func TestStartWipesWorkspace(t *testing.T) {
	h := newHarness(t)
	stale := h.paths.Artifact("leftover")
	require.NoError(t, os.MkdirAll(h.paths.Workspace(), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	require.NoError(t, h.svc.Start(context.Background()))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(h.paths.Artifact("hostlist"))
	assert.NoError(t, err)
}

// TestStartBlacklist tests that blacklist mode reaches the engine as -exclude flags
func TestStartBlacklist(t *testing.T) {
	h := newHarness(t)
	lists := t.TempDir()
	exclude := filepath.Join(lists, "exclude.txt")
	require.NoError(t, os.WriteFile(exclude, []byte("bank.example\n"), 0644))
	strat := filepath.Join(lists, "strategy.txt")
	require.NoError(t, os.WriteFile(strat, []byte("--filter-tcp=443 $hostlist ${ipset} --dpi-desync=fake"), 0644))

	cfg := types.DefaultConfig()
	cfg.ListMode = types.ListBlacklist
	cfg.ActiveExcludeLists = []string{exclude}
	cfg.StrategyPath = strat
	h.writeConfig(t, cfg)

	require.NoError(t, h.svc.Start(context.Background()))

	require.Len(t, h.launcher.specs, 1)
	argv := h.launcher.specs[0].Argv
	assert.Equal(t, []string{
		"nfqws", "--uid=0:0", "--qnum=200",
		"--filter-tcp=443",
		"--hostlist-exclude=" + h.paths.Artifact("hostlist-exclude"),
		"--ipset-exclude=" + h.paths.Artifact("ipset-exclude"),
		"--dpi-desync=fake",
	}, argv)

	data, err := os.ReadFile(h.paths.Artifact("hostlist-exclude"))
	require.NoError(t, err)
	assert.Equal(t, "bank.example\n", string(data))
}

// TestStartSecondaryEngine tests that nfqws2 uses its own strategy and output files
func TestStartSecondaryEngine(t *testing.T) {
	h := newHarness(t)
	cfg := types.DefaultConfig()
	cfg.EngineVariant = types.EngineNfqws2
	h.writeConfig(t, cfg)

	require.NoError(t, h.svc.Start(context.Background()))

	spec := h.launcher.specs[0]
	assert.Equal(t, types.EngineNfqws2, spec.Variant)
	assert.Equal(t, "nfqws2", spec.Argv[0])
	assert.True(t, strings.HasSuffix(spec.Stdout, "nfqws2.out"))
	assert.Contains(t, strings.Join(spec.Argv, " "), h.paths.LibsDir)
}

// TestStartEngineUnavailable tests the variant-config mismatch conflict
func TestStartEngineUnavailable(t *testing.T) {
	h := newHarness(t)
	h.available = false

	err := h.svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConflict))
	assert.Contains(t, err.Error(), "nfqws is not installed")
	assert.Equal(t, 0, h.table.Count())
	assert.Empty(t, h.launcher.specs)
}

// TestStartMalformedConfig tests that a broken config aborts before any rule change
func TestStartMalformedConfig(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.paths.DataDir, 0755))
	require.NoError(t, os.WriteFile(h.paths.ConfigFile(), []byte(`{"service_type": "nfqws3"}`), 0644))

	err := h.svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfig))
	assert.Equal(t, 0, h.sysctl.SetCalls)
	assert.Equal(t, 0, h.table.Count())
}

// TestStartListMissing tests that an unreadable list aborts with an IOError
func TestStartListMissing(t *testing.T) {
	h := newHarness(t)
	missing := filepath.Join(t.TempDir(), "gone.txt")
	cfg := types.DefaultConfig()
	cfg.ActiveLists = []string{missing}
	h.writeConfig(t, cfg)

	err := h.svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrIO))
	assert.Contains(t, err.Error(), missing)
	assert.Equal(t, 0, h.table.Count())
}

// TestStartInstallFailureLeavesRules tests that a partial install is not rolled back
func TestStartInstallFailureLeavesRules(t *testing.T) {
	h := newHarness(t)
	h.table.AppendError = errors.New("iptables: No chain/target/match by that name")

	err := h.svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOS))
	assert.Equal(t, 2, h.table.Count())
	assert.Empty(t, h.launcher.specs)
	assert.Equal(t, types.StateStopped, h.status(t))
}

// TestStartLaunchFailure tests that a spawn failure is reported and no pid is written
func TestStartLaunchFailure(t *testing.T) {
	h := newHarness(t)
	h.launcher.err = types.NewOSError("spawn engine", unix.ENOEXEC)

	err := h.svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOS))

	_, err = os.Stat(h.paths.PidLock())
	assert.True(t, os.IsNotExist(err))
}

// TestRestart tests that restart replaces the running engine
func TestRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx))
	require.NoError(t, h.svc.Restart(ctx))

	assert.Equal(t, 3, h.table.Count())
	require.Len(t, h.launcher.specs, 2)
	require.Len(t, h.signaler.Signals, 1)
	assert.Equal(t, 1001, h.signaler.Signals[0].Pid)

	pidData, err := os.ReadFile(h.paths.PidLock())
	require.NoError(t, err)
	assert.Equal(t, "1002\n", string(pidData))
	assert.Equal(t, types.StateRunning, h.status(t))
}

// TestRestartWhenStopped tests that restart of a stopped service starts it
func TestRestartWhenStopped(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.svc.Restart(context.Background()))
	assert.Equal(t, types.StateRunning, h.status(t))
	assert.Empty(t, h.signaler.Signals)
}

// TestOperationLock tests that a held lock blocks start until the context ends
func TestOperationLock(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.paths.ModuleRoot, 0755))

	other := flock.New(h.paths.OperationLock())
	require.NoError(t, other.Lock())
	defer other.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := h.svc.Start(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrIO))
	assert.Equal(t, 0, h.table.Count())

	require.NoError(t, other.Unlock())
	require.NoError(t, h.svc.Start(context.Background()))
}

// TestRulesInstalled tests the rule presence check
func TestRulesInstalled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ok, err := h.svc.RulesInstalled()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.svc.Start(ctx))
	ok, err = h.svc.RulesInstalled()
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestStopCleansRulesAfterFailedLaunch tests that stop removes the rules a
// failed start left behind, so the next start does not stack a second set
func TestStopCleansRulesAfterFailedLaunch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.launcher.err = types.NewOSError("spawn engine", unix.ENOEXEC)

	require.Error(t, h.svc.Start(ctx))
	assert.Equal(t, 3, h.table.Count())
	assert.Equal(t, types.StateStopped, h.status(t))

	require.NoError(t, h.svc.Stop(ctx))
	assert.Equal(t, 0, h.table.Count())
	assert.Empty(t, h.signaler.Signals)
	assert.Contains(t, h.logs.Messages("info"), "Removed leftover interception rules")

	h.launcher.err = nil
	require.NoError(t, h.svc.Start(ctx))
	assert.Equal(t, 3, h.table.Count())
}

// TestStopCleansPartialInstall tests cleanup when only some rules were installed
func TestStopCleansPartialInstall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.table.AppendError = errors.New("iptables: No chain/target/match by that name")

	require.Error(t, h.svc.Start(ctx))
	require.Equal(t, 2, h.table.Count())

	h.table.AppendError = nil
	require.NoError(t, h.svc.Stop(ctx))
	assert.Equal(t, 0, h.table.Count())
	assert.Equal(t, 2, h.table.DeleteCalls)
}

// TestStopLeftoverCheckFailure tests that a failing rule check is reported
func TestStopLeftoverCheckFailure(t *testing.T) {
	h := newHarness(t)
	h.table.ExistsError = errors.New("iptables: can't initialize")

	err := h.svc.Stop(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOS))
}

// TestRestartAfterFailedStart tests that restart does not stack rules
func TestRestartAfterFailedStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.launcher.err = types.NewOSError("spawn engine", unix.ENOEXEC)
	require.Error(t, h.svc.Start(ctx))

	h.launcher.err = nil
	require.NoError(t, h.svc.Restart(ctx))
	assert.Equal(t, 3, h.table.Count())
	assert.Equal(t, types.StateRunning, h.status(t))
}

// TestStartTwiceConflictsExecEngine tests the running check when the child
// execs the engine binary and reports the engine's name
func TestStartTwiceConflictsExecEngine(t *testing.T) {
	tests := []struct {
		name    string
		variant types.EngineVariant
	}{
		{name: "nfqws", variant: types.EngineNfqws},
		{name: "nfqws2", variant: types.EngineNfqws2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := engine.Lookup(tt.variant); ok {
				t.Skip("native entry linked")
			}
			h := newHarness(t)
			ctx := context.Background()
			h.launcher.comm = string(tt.variant)
			cfg := types.DefaultConfig()
			cfg.EngineVariant = tt.variant
			h.writeConfig(t, cfg)

			require.NoError(t, h.svc.Start(ctx))
			assert.Equal(t, types.StateRunning, h.status(t))

			err := h.svc.Start(ctx)
			assert.True(t, errors.Is(err, types.ErrConflict))
			assert.Equal(t, 3, h.table.Count())
			assert.Len(t, h.launcher.specs, 1)

			require.NoError(t, h.svc.Stop(ctx))
			assert.Equal(t, 0, h.table.Count())
			assert.Len(t, h.signaler.Signals, 1)
		})
	}
}

// TestStartNativeEngineIgnoresEngineName tests that with a linked engine a
// foreign process named like the engine is not taken for ours
func TestStartNativeEngineIgnoresEngineName(t *testing.T) {
	registerNativeEntries(t)
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.paths.Workspace(), 0755))
	h.procs.Procs[555] = "nfqws"
	require.NoError(t, os.WriteFile(h.paths.PidLock(), []byte("555\n"), 0644))

	assert.Equal(t, types.StateStopped, h.status(t))
	require.NoError(t, h.svc.Start(context.Background()))
	assert.Equal(t, types.StateRunning, h.status(t))
}

// TestConntrackLiberal tests the conntrack report and its privilege gate
func TestConntrackLiberal(t *testing.T) {
	h := newHarness(t)
	h.sysctl.Values[system.ConntrackLiberalKey] = "0"

	on, err := h.svc.ConntrackLiberal()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, h.svc.Start(context.Background()))
	on, err = h.svc.ConntrackLiberal()
	require.NoError(t, err)
	assert.True(t, on)

	h.root = false
	_, err = h.svc.ConntrackLiberal()
	assert.True(t, errors.Is(err, types.ErrPermission))
}
