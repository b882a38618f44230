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

package types

import "fmt"

// ServiceState is the externally visible state of the service.
type ServiceState int

const (
	StateStopped ServiceState = iota
	StateRunning
)

func (s ServiceState) String() string {
	if s == StateRunning {
		return "working"
	}
	return "stopped"
}

// IdentityCheck selects which process name the liveness check expects
// behind the pid recorded in pid.lock.
type IdentityCheck string

const (
	// IdentitySelf expects the name the daemonized child actually ends up
	// with. A child running a linked engine entry keeps the orchestrator's
	// executable name; a child that exec'd an engine binary reports the
	// engine's name (nfqws, nfqws2).
	IdentitySelf IdentityCheck = "self"

	// IdentityEngine expects only the engine name (nfqws, nfqws2).
	IdentityEngine IdentityCheck = "engine"
)

// ParseIdentityCheck converts a string into an IdentityCheck.
func ParseIdentityCheck(s string) (IdentityCheck, error) {
	switch IdentityCheck(s) {
	case IdentitySelf, IdentityEngine:
		return IdentityCheck(s), nil
	case "":
		return IdentitySelf, nil
	default:
		return "", fmt.Errorf("unknown identity check %q (expected self or engine)", s)
	}
}
