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

package strategy

import (
	"context"
	"fmt"

	"github.com/zaprett/zaprett/state"
	"github.com/zaprett/zaprett/types"
	"golang.org/x/sync/errgroup"
)

// ListGroup is the list selection for one run. Only one group is ever
// active: whitelist mode uses the plain lists, blacklist mode the exclude
// lists.
type ListGroup struct {
	Hosts     []string
	IPSets    []string
	HostName  string // flag name and workspace artifact name
	IPSetName string
}

// SelectLists applies the list mode rule to cfg.
func SelectLists(cfg *types.Config) ListGroup {
	if cfg.Mode() == types.ListBlacklist {
		return ListGroup{
			Hosts:     cfg.ActiveExcludeLists,
			IPSets:    cfg.ActiveExcludeIPSets,
			HostName:  "hostlist-exclude",
			IPSetName: "ipset-exclude",
		}
	}
	return ListGroup{
		Hosts:     cfg.ActiveLists,
		IPSets:    cfg.ActiveIPSets,
		HostName:  "hostlist",
		IPSetName: "ipset",
	}
}

// Builder produces the engine argument string for a configuration. It
// writes the merged lists into the workspace, which must exist.
type Builder struct {
	paths *state.Paths
}

// NewBuilder creates a Builder for the given layout.
func NewBuilder(p *state.Paths) *Builder {
	return &Builder{paths: p}
}

// Bindings merges the selected list group and returns the values for every
// placeholder. Host and ipset lists are merged concurrently; the first
// failure is returned.
func (b *Builder) Bindings(ctx context.Context, cfg *types.Config) (Bindings, error) {
	group := SelectLists(cfg)
	hostPath := b.paths.Artifact(group.HostName)
	ipsetPath := b.paths.Artifact(group.IPSetName)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return Merge(group.Hosts, hostPath)
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return Merge(group.IPSets, ipsetPath)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Bindings{
		PlaceholderHostlist:   fmt.Sprintf("--%s=%s", group.HostName, hostPath),
		PlaceholderIPSet:      fmt.Sprintf("--%s=%s", group.IPSetName, ipsetPath),
		PlaceholderZaprettDir: b.paths.DataDir,
		PlaceholderLibsDir:    b.paths.LibsDir,
	}, nil
}

// Build resolves the strategy template for cfg and fills its placeholders.
func (b *Builder) Build(ctx context.Context, cfg *types.Config) (string, error) {
	bindings, err := b.Bindings(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to merge lists: %w", err)
	}
	return Substitute(Resolve(cfg), bindings), nil
}
