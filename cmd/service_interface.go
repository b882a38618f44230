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
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/zaprett/zaprett/daemon"
	"github.com/zaprett/zaprett/system"
	"github.com/zaprett/zaprett/types"
)

// ServiceInterface is the part of daemon.Service the lifecycle commands use.
// Tests replace newService with a mock.
type ServiceInterface interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	Status(ctx context.Context) (types.ServiceState, error)
	RulesInstalled() (bool, error)
	ConntrackLiberal() (bool, error)
}

// newService builds the real service from the configured paths.
var newService = func() (ServiceInterface, error) {
	p := configuredPaths()
	identity, err := types.ParseIdentityCheck(viper.GetString("identity-check"))
	if err != nil {
		return nil, fmt.Errorf("invalid --identity-check: %w", err)
	}
	log := initLogger(os.Stderr, p)

	launcher, err := daemon.NewExecLauncher()
	if err != nil {
		return nil, err
	}

	fs := system.NewDefaultFilesystemClient()
	rules := system.NewRuleManager(
		system.NewDefaultRuleTable(),
		system.NewDefaultSysctlClient(fs, p.SysctlRoot),
		system.DefaultQueueNum,
	)

	sup := daemon.NewSupervisor(p, system.DefaultQueueNum, launcher,
		system.NewDefaultProcTable(p.ProcRoot), system.NewDefaultSignaler())
	sup.SetIdentity(identity, "")
	sup.SetLogger(log)

	return daemon.NewService(p, rules, sup, daemon.WithLogger(log)), nil
}
