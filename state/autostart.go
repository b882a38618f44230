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
	"os"

	"github.com/joho/godotenv"
	"github.com/zaprett/zaprett/types"
)

// SetAutostart creates or removes the autostart sentinel. Removing an absent
// sentinel is not an error.
func SetAutostart(p *Paths, enabled bool) error {
	path := p.Autostart()

	if enabled {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return types.NewIOError("create autostart flag", path, err)
		}
		return f.Close()
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.NewIOError("remove autostart flag", path, err)
	}
	return nil
}

// GetAutostart reports whether the sentinel exists. It says nothing about
// whether the service is running.
func GetAutostart(p *Paths) bool {
	_, err := os.Stat(p.Autostart())
	return err == nil
}

// ModuleVersion returns the version key of module.prop.
func ModuleVersion(p *Paths) (string, error) {
	path := p.ModuleProp()

	props, err := godotenv.Read(path)
	if err != nil {
		return "", types.NewIOError("read module.prop", path, err)
	}

	version, ok := props["version"]
	if !ok {
		return "", types.NewIOError("read module.prop", path, errors.New("no version key"))
	}
	return version, nil
}
