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

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/zaprett/zaprett/strategy"
	"github.com/zaprett/zaprett/types"
)

// maxErrorsPerFile keeps a broken list from flooding the report.
const maxErrorsPerFile = 10

// Result is the outcome of checking one input.
type Result struct {
	Name string // file path, or a label for built-in input
	Kind string // hostlist, ipset, strategy
	Err  error
}

// OK reports whether the input passed.
func (r Result) OK() bool {
	return r.Err == nil
}

// entries calls fn for every non-empty, non-comment line of path.
func entries(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ec := NewCollector(maxErrorsPerFile)
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ec.CheckMsg(fn(line), fmt.Sprintf("line %d", n))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return ec.Error()
}

// ValidateHostlist checks that every entry of a hostlist is a domain.
func ValidateHostlist(path string) error {
	return entries(path, ValidateDomain)
}

// ValidateIPSet checks that every entry of an ipset is an address or subnet.
func ValidateIPSet(path string) error {
	return entries(path, ValidateIPSetEntry)
}

// ValidateStrategy checks the --filter-tcp and --filter-udp port lists of a
// strategy. Other engine options are not interpreted.
func ValidateStrategy(text string) error {
	ec := NewCollector(maxErrorsPerFile)
	for _, field := range strings.Fields(text) {
		for _, flag := range []string{"--filter-tcp=", "--filter-udp="} {
			if ports, ok := strings.CutPrefix(field, flag); ok {
				ec.CheckMsg(ValidatePortList(ports), strings.TrimSuffix(flag, "="))
			}
		}
	}
	return ec.Error()
}

// ValidateConfig checks the inputs the next start would use: the lists of
// the selected list group and the resolved strategy.
func ValidateConfig(cfg *types.Config) []Result {
	group := strategy.SelectLists(cfg)

	var results []Result
	for _, path := range group.Hosts {
		results = append(results, Result{Name: path, Kind: group.HostName, Err: ValidateHostlist(path)})
	}
	for _, path := range group.IPSets {
		results = append(results, Result{Name: path, Kind: group.IPSetName, Err: ValidateIPSet(path)})
	}

	name := cfg.VariantStrategyPath()
	if _, err := os.Stat(name); name == "" || err != nil {
		name = "built-in " + string(cfg.Variant()) + " strategy"
	}
	results = append(results, Result{Name: name, Kind: "strategy", Err: ValidateStrategy(strategy.Resolve(cfg))})
	return results
}
