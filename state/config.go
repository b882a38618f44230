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
	"errors"
	"fmt"
	"os"

	"github.com/zaprett/zaprett/types"
)

// LoadServiceConfig loads config.json without creating it.
// A missing file yields the default configuration.
func LoadServiceConfig(p *Paths) (*types.Config, error) {
	path := p.ConfigFile()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.DefaultConfig(), nil
		}
		return nil, types.NewIOError("read config", path, err)
	}

	cfg := &types.Config{}
	if err := UnmarshalJSON(data, cfg); err != nil {
		return nil, types.NewConfigError(path, err)
	}
	return cfg, nil
}

// LoadOrCreateConfig loads config.json, writing the defaults first if the
// file does not exist yet. The service never writes an existing config.
func LoadOrCreateConfig(p *Paths) (*types.Config, error) {
	path := p.ConfigFile()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := types.DefaultConfig()
		if err := SaveJSON(path, cfg); err != nil {
			return nil, types.NewIOError("create default config", path, err)
		}
		return cfg, nil
	} else if err != nil {
		return nil, types.NewIOError("stat config", path, err)
	}

	cfg, err := LoadServiceConfig(p)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
