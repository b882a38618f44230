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

	"github.com/zaprett/zaprett/types"
)

// mockService is a mock implementation of ServiceInterface for testing.
type mockService struct {
	startFunc   func(ctx context.Context) error
	stopFunc    func(ctx context.Context) error
	restartFunc func(ctx context.Context) error
	state       types.ServiceState
	statusErr   error
	installed   bool
	rulesErr    error
	liberal     bool
	liberalErr  error

	calls []string
}

func (m *mockService) Start(ctx context.Context) error {
	m.calls = append(m.calls, "start")
	if m.startFunc != nil {
		return m.startFunc(ctx)
	}
	return nil
}

func (m *mockService) Stop(ctx context.Context) error {
	m.calls = append(m.calls, "stop")
	if m.stopFunc != nil {
		return m.stopFunc(ctx)
	}
	return nil
}

func (m *mockService) Restart(ctx context.Context) error {
	m.calls = append(m.calls, "restart")
	if m.restartFunc != nil {
		return m.restartFunc(ctx)
	}
	return nil
}

func (m *mockService) Status(ctx context.Context) (types.ServiceState, error) {
	m.calls = append(m.calls, "status")
	return m.state, m.statusErr
}

func (m *mockService) RulesInstalled() (bool, error) {
	m.calls = append(m.calls, "rules")
	return m.installed, m.rulesErr
}

func (m *mockService) ConntrackLiberal() (bool, error) {
	m.calls = append(m.calls, "conntrack")
	return m.liberal, m.liberalErr
}
