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

package system

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zaprett/zaprett/types"
)

const (
	// DefaultQueueNum is the NFQUEUE number the engine binds to.
	DefaultQueueNum = 200

	// ConntrackLiberalKey relaxes TCP window tracking so the engine's
	// out-of-window desync segments are not dropped as invalid.
	ConntrackLiberalKey = "net.netfilter.nf_conntrack_tcp_be_liberal"
)

// InterceptRule places the NFQUEUE jump in one chain.
type InterceptRule struct {
	Table  string
	Chain  string
	Insert bool // insert at position 1; otherwise append
}

// InterceptRules are installed in order and removed in the same order.
var InterceptRules = []InterceptRule{
	{Table: "mangle", Chain: "POSTROUTING", Insert: true},
	{Table: "mangle", Chain: "PREROUTING", Insert: true},
	{Table: "filter", Chain: "FORWARD", Insert: false},
}

// RuleManager owns the kernel side of the service: the NFQUEUE diversion
// rules and the conntrack sysctl.
//
// Install is not idempotent. Calling it twice without Remove duplicates every
// rule; the service's running check is what prevents that.
type RuleManager struct {
	table    RuleTable
	sysctl   SysctlClient
	queueNum int
}

// NewRuleManager creates a new RuleManager with the given clients.
func NewRuleManager(table RuleTable, sysctl SysctlClient, queueNum int) *RuleManager {
	return &RuleManager{
		table:    table,
		sysctl:   sysctl,
		queueNum: queueNum,
	}
}

// QueueNum returns the interception queue number.
func (m *RuleManager) QueueNum() int {
	return m.queueNum
}

// RuleSpec returns the iptables target arguments shared by all rules.
// --queue-bypass lets traffic through when nothing is bound to the queue.
func (m *RuleManager) RuleSpec() []string {
	return []string{"-j", "NFQUEUE", "--queue-num", strconv.Itoa(m.queueNum), "--queue-bypass"}
}

// Install adds the interception rules. It stops at the first failure and
// leaves already inserted rules in place.
func (m *RuleManager) Install() error {
	spec := m.RuleSpec()
	for _, r := range InterceptRules {
		var err error
		if r.Insert {
			err = m.table.Insert(r.Table, r.Chain, 1, spec...)
		} else {
			err = m.table.Append(r.Table, r.Chain, spec...)
		}
		if err != nil {
			return types.NewOSError(fmt.Sprintf("install rule %s/%s", r.Table, r.Chain), err)
		}
	}
	return nil
}

// Remove deletes one instance of each interception rule. Every deletion is
// attempted; failures are joined.
func (m *RuleManager) Remove() error {
	spec := m.RuleSpec()
	var errs []error
	for _, r := range InterceptRules {
		if err := m.table.Delete(r.Table, r.Chain, spec...); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", r.Table, r.Chain, err))
		}
	}
	if len(errs) > 0 {
		return types.NewOSError("remove rules", errors.Join(errs...))
	}
	return nil
}

// maxLeftover bounds RemovePresent per chain.
const maxLeftover = 64

// RemovePresent deletes every instance of the interception rules that is
// present, skipping chains that hold none. It cleans up after a start that
// failed past rule installation, where no engine is running and any subset
// of the rules may be present. It returns the number of rules deleted.
func (m *RuleManager) RemovePresent() (int, error) {
	spec := m.RuleSpec()
	removed := 0
	var errs []error
	for _, r := range InterceptRules {
		for i := 0; i < maxLeftover; i++ {
			ok, err := m.table.Exists(r.Table, r.Chain, spec...)
			if err == nil && ok {
				err = m.table.Delete(r.Table, r.Chain, spec...)
				if err == nil {
					removed++
					continue
				}
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", r.Table, r.Chain, err))
			}
			break
		}
	}
	if len(errs) > 0 {
		return removed, types.NewOSError("remove leftover rules", errors.Join(errs...))
	}
	return removed, nil
}

// Installed reports whether every interception rule is present.
func (m *RuleManager) Installed() (bool, error) {
	spec := m.RuleSpec()
	for _, r := range InterceptRules {
		ok, err := m.table.Exists(r.Table, r.Chain, spec...)
		if err != nil {
			return false, types.NewOSError(fmt.Sprintf("check rule %s/%s", r.Table, r.Chain), err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Tuned reports whether liberal TCP conntrack is enabled.
func (m *RuleManager) Tuned() (bool, error) {
	v, err := m.sysctl.Get(ConntrackLiberalKey)
	if err != nil {
		return false, types.NewOSError("read "+ConntrackLiberalKey, err)
	}
	return v == "1", nil
}

// Tune enables liberal TCP conntrack.
func (m *RuleManager) Tune() error {
	if err := m.sysctl.Set(ConntrackLiberalKey, "1"); err != nil {
		return types.NewOSError("set "+ConntrackLiberalKey, err)
	}
	return nil
}
