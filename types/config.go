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

// Package types defines the core data structures for zaprett's configuration.
// It includes the persisted service configuration written by the settings UI,
// the engine variants, list modes and the error taxonomy shared by all packages.
package types

import (
	"encoding/json"
	"fmt"
)

// EngineVariant selects which packet engine build is launched.
type EngineVariant string

const (
	EngineNfqws  EngineVariant = "nfqws"  // primary engine
	EngineNfqws2 EngineVariant = "nfqws2" // secondary engine
)

// ListMode selects which list group scopes the strategy.
type ListMode string

const (
	ListWhitelist ListMode = "whitelist"
	ListBlacklist ListMode = "blacklist"
)

// AppListMode is consumed by the settings UI, not by the service itself.
type AppListMode string

const (
	AppListNone      AppListMode = "none"
	AppListBlacklist AppListMode = "blacklist"
	AppListWhitelist AppListMode = "whitelist"
)

// Config represents <data dir>/config.json.
//
// Every field is optional on disk. Absent keys keep their zero value, and the
// zero value of each enum is its default (nfqws, whitelist, none).
type Config struct {
	EngineVariant         EngineVariant `json:"service_type"`
	ListMode              ListMode      `json:"list_type"`
	ActiveLists           []string      `json:"active_lists"`
	ActiveIPSets          []string      `json:"active_ipsets"`
	ActiveExcludeLists    []string      `json:"active_exclude_lists"`
	ActiveExcludeIPSets   []string      `json:"active_exclude_ipsets"`
	StrategyPath          string        `json:"strategy"`
	StrategyPathSecondary string        `json:"strategy_nfqws2"`
	AppListMode           AppListMode   `json:"app_list"`
	Whitelist             []string      `json:"whitelist"`
	Blacklist             []string      `json:"blacklist"`
}

// DefaultConfig returns the configuration written on first start.
func DefaultConfig() *Config {
	return &Config{
		EngineVariant:       EngineNfqws,
		ListMode:            ListWhitelist,
		ActiveLists:         []string{},
		ActiveIPSets:        []string{},
		ActiveExcludeLists:  []string{},
		ActiveExcludeIPSets: []string{},
		AppListMode:         AppListNone,
		Whitelist:           []string{},
		Blacklist:           []string{},
	}
}

// Variant returns the engine variant, treating an empty value as nfqws.
func (c *Config) Variant() EngineVariant {
	if c.EngineVariant == "" {
		return EngineNfqws
	}
	return c.EngineVariant
}

// Mode returns the list mode, treating an empty value as whitelist.
func (c *Config) Mode() ListMode {
	if c.ListMode == "" {
		return ListWhitelist
	}
	return c.ListMode
}

// VariantStrategyPath returns the user strategy file for the active engine.
func (c *Config) VariantStrategyPath() string {
	if c.Variant() == EngineNfqws2 {
		return c.StrategyPathSecondary
	}
	return c.StrategyPath
}

// ParseEngineVariant converts a string into an EngineVariant.
func ParseEngineVariant(s string) (EngineVariant, error) {
	switch EngineVariant(s) {
	case EngineNfqws, EngineNfqws2:
		return EngineVariant(s), nil
	default:
		return "", fmt.Errorf("unknown service type %q (expected nfqws or nfqws2)", s)
	}
}

// UnmarshalJSON rejects unknown engine names.
func (v *EngineVariant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEngineVariant(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnmarshalJSON rejects unknown list modes.
func (m *ListMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch ListMode(s) {
	case ListWhitelist, ListBlacklist:
		*m = ListMode(s)
		return nil
	default:
		return fmt.Errorf("unknown list type %q (expected whitelist or blacklist)", s)
	}
}

// UnmarshalJSON rejects unknown app list modes.
func (m *AppListMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch AppListMode(s) {
	case AppListNone, AppListBlacklist, AppListWhitelist:
		*m = AppListMode(s)
		return nil
	default:
		return fmt.Errorf("unknown app list type %q", s)
	}
}
