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

package state

import (
	"path/filepath"

	"github.com/zaprett/zaprett/types"
)

const (
	DefaultModuleRoot = "/data/adb/modules/zaprett"
	DefaultDataDir    = "/storage/emulated/0/zaprett"
	DefaultProcRoot   = "/proc"
	DefaultSysctlRoot = "/proc/sys"
)

// Paths is the filesystem layout of one installation. It is built once at
// process start and handed to every component, so tests can point the whole
// service at a temporary directory.
type Paths struct {
	ModuleRoot string // module install root, holds tmp/, autostart, module.prop
	DataDir    string // user-visible data dir, substituted for $zaprettdir
	LibsDir    string // engine support files, substituted for $libsdir
	ProcRoot   string
	SysctlRoot string
}

// DefaultPaths returns the on-device layout.
func DefaultPaths() *Paths {
	return &Paths{
		ModuleRoot: DefaultModuleRoot,
		DataDir:    DefaultDataDir,
		LibsDir:    filepath.Join(DefaultModuleRoot, "libs"),
		ProcRoot:   DefaultProcRoot,
		SysctlRoot: DefaultSysctlRoot,
	}
}

// Workspace is recreated from empty on every start.
func (p *Paths) Workspace() string {
	return filepath.Join(p.ModuleRoot, "tmp")
}

// PidLock holds the pid of the daemonized engine process.
func (p *Paths) PidLock() string {
	return filepath.Join(p.Workspace(), "pid.lock")
}

// Artifact returns the path of a merged list file inside the workspace.
func (p *Paths) Artifact(name string) string {
	return filepath.Join(p.Workspace(), name)
}

// EngineStdout is where the daemonized engine's stdout is captured.
func (p *Paths) EngineStdout(v types.EngineVariant) string {
	return filepath.Join(p.Workspace(), string(v)+".out")
}

// EngineStderr is where the daemonized engine's stderr is captured.
func (p *Paths) EngineStderr(v types.EngineVariant) string {
	return filepath.Join(p.Workspace(), string(v)+".err")
}

func (p *Paths) Autostart() string {
	return filepath.Join(p.ModuleRoot, "autostart")
}

func (p *Paths) ModuleProp() string {
	return filepath.Join(p.ModuleRoot, "module.prop")
}

// BinDir may hold standalone engine binaries.
func (p *Paths) BinDir() string {
	return filepath.Join(p.ModuleRoot, "bin")
}

// OperationLock serializes start/stop/restart across processes. It lives
// outside the workspace because start wipes the workspace.
func (p *Paths) OperationLock() string {
	return filepath.Join(p.ModuleRoot, "zaprett.lock")
}

func (p *Paths) LogFile() string {
	return filepath.Join(p.ModuleRoot, "zaprett.log")
}

func (p *Paths) ConfigFile() string {
	return filepath.Join(p.DataDir, "config.json")
}
