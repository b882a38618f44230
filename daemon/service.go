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

// Package daemon implements the zaprett service lifecycle: starting the
// packet desync engine behind its NFQUEUE rules, stopping it, and reporting
// whether it runs.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/zaprett/zaprett/daemon/logger"
	"github.com/zaprett/zaprett/engine"
	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/strategy"
	"github.com/zaprett/zaprett/system"
	"github.com/zaprett/zaprett/types"
)

// lockRetryInterval is how often a blocked operation retries the lock.
const lockRetryInterval = 50 * time.Millisecond

// Service is the orchestrator behind start, stop, restart and status.
//
// The running check in start is the only guard against installing the
// interception rules twice. start, stop and restart hold an exclusive file
// lock so that two invocations cannot both pass that check.
type Service struct {
	paths      *state.Paths
	rules      *system.RuleManager
	supervisor *Supervisor
	builder    *strategy.Builder
	isRoot     func() bool
	available  func(types.EngineVariant) bool
	log        logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIsRoot replaces the privilege check.
func WithIsRoot(fn func() bool) Option {
	return func(s *Service) { s.isRoot = fn }
}

// WithAvailability replaces the engine availability check.
func WithAvailability(fn func(types.EngineVariant) bool) Option {
	return func(s *Service) { s.available = fn }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service over the given rule manager and supervisor.
func NewService(p *state.Paths, rules *system.RuleManager, sup *Supervisor, opts ...Option) *Service {
	s := &Service{
		paths:      p,
		rules:      rules,
		supervisor: sup,
		builder:    strategy.NewBuilder(p),
		isRoot:     system.IsRoot,
		log:        logger.Nop(),
	}
	s.available = func(v types.EngineVariant) bool {
		return engine.Available(v, p.BinDir())
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Field{Key: "component", Value: "service"})
	return s
}

func (s *Service) checkRoot(op string) error {
	if !s.isRoot() {
		return types.NewPermissionError(op)
	}
	return nil
}

func (s *Service) lock(ctx context.Context) (*flock.Flock, error) {
	path := s.paths.OperationLock()
	if err := os.MkdirAll(s.paths.ModuleRoot, 0755); err != nil {
		return nil, types.NewIOError("create module root", s.paths.ModuleRoot, err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, types.NewIOError("acquire lock", path, err)
	}
	if !locked {
		return nil, types.NewIOError("acquire lock", path, errors.New("lock not acquired"))
	}
	return fl, nil
}

func (s *Service) unlock(fl *flock.Flock) {
	if err := fl.Close(); err != nil {
		s.log.Debug("Failed to release lock", logger.Field{Key: "path", Value: fl.Path()}, logger.Err(err))
	}
}

// Start launches the engine. It fails with ErrConflict if the engine is
// already running or the configured variant is not installed.
func (s *Service) Start(ctx context.Context) error {
	if err := s.checkRoot("start"); err != nil {
		return err
	}
	fl, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer s.unlock(fl)

	return s.start(ctx)
}

func (s *Service) start(ctx context.Context) error {
	if s.supervisor.IsRunning() {
		return types.NewConflictError("start", "zaprett is already running")
	}

	if err := s.resetWorkspace(); err != nil {
		return err
	}

	cfg, err := state.LoadOrCreateConfig(s.paths)
	if err != nil {
		return err
	}
	variant := cfg.Variant()
	if !s.available(variant) {
		return types.NewConflictError("start", fmt.Sprintf("configured engine %s is not installed", variant))
	}

	args, err := s.builder.Build(ctx, cfg)
	if err != nil {
		return err
	}
	s.log.Debug("Engine arguments resolved",
		logger.Field{Key: "engine", Value: string(variant)},
		logger.Field{Key: "list_mode", Value: string(cfg.Mode())})

	if err := s.rules.Tune(); err != nil {
		return err
	}
	// No rollback past this point: a failure leaves the rules for stop.
	if err := s.rules.Install(); err != nil {
		return err
	}
	s.log.Info("Interception rules installed", logger.Field{Key: "queue", Value: s.rules.QueueNum()})

	pid, err := s.supervisor.Daemonize(variant, args)
	if err != nil {
		return err
	}
	s.log.Info("zaprett started", logger.Field{Key: "pid", Value: pid})
	return nil
}

func (s *Service) resetWorkspace() error {
	ws := s.paths.Workspace()
	if err := os.RemoveAll(ws); err != nil {
		return types.NewIOError("remove workspace", ws, err)
	}
	if err := os.MkdirAll(ws, 0755); err != nil {
		return types.NewIOError("create workspace", ws, err)
	}
	return nil
}

// Stop removes the interception rules and kills the engine. Stopping a
// stopped service only removes rules left behind by a failed start, and
// succeeds when there are none. Every step is attempted; the failures are
// returned together.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.checkRoot("stop"); err != nil {
		return err
	}
	fl, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer s.unlock(fl)

	return s.stop()
}

func (s *Service) stop() error {
	if !s.supervisor.IsRunning() {
		// A start that failed after installing rules leaves them behind.
		removed, err := s.rules.RemovePresent()
		if removed > 0 {
			s.log.Info("Removed leftover interception rules", logger.Field{Key: "count", Value: removed})
		}
		if err != nil {
			s.log.Error("Failed to remove leftover interception rules", logger.Err(err))
			return err
		}
		s.log.Info("zaprett is not running")
		return nil
	}

	var errs []error
	if err := s.rules.Remove(); err != nil {
		s.log.Error("Failed to remove interception rules", logger.Err(err))
		errs = append(errs, err)
	}

	pid, err := s.supervisor.ReadPid()
	if err != nil {
		errs = append(errs, err)
	} else if err := s.supervisor.Terminate(pid); err != nil {
		if isGone(err) {
			s.log.Debug("Engine already exited", logger.Field{Key: "pid", Value: pid})
		} else {
			s.log.Error("Failed to kill engine", logger.Field{Key: "pid", Value: pid}, logger.Err(err))
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		s.log.Info("zaprett stopped")
	}
	return errors.Join(errs...)
}

// Restart stops and starts the service under one lock.
func (s *Service) Restart(ctx context.Context) error {
	if err := s.checkRoot("restart"); err != nil {
		return err
	}
	fl, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer s.unlock(fl)

	if err := s.stop(); err != nil {
		return err
	}
	return s.start(ctx)
}

// Status returns the current state without side effects.
func (s *Service) Status(ctx context.Context) (types.ServiceState, error) {
	if err := s.checkRoot("status"); err != nil {
		return types.StateStopped, err
	}
	if s.supervisor.IsRunning() {
		return types.StateRunning, nil
	}
	return types.StateStopped, nil
}

// RulesInstalled reports whether all interception rules are present.
func (s *Service) RulesInstalled() (bool, error) {
	if err := s.checkRoot("status"); err != nil {
		return false, err
	}
	return s.rules.Installed()
}

// ConntrackLiberal reports whether liberal TCP conntrack is enabled.
func (s *Service) ConntrackLiberal() (bool, error) {
	if err := s.checkRoot("status"); err != nil {
		return false, err
	}
	return s.rules.Tuned()
}
