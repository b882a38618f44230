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

// Package validation checks zaprett's inputs before the service uses them:
// hostlist and ipset files, and the port filters of a strategy.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// ValidatePort validates that a port number is in the valid range [1, 65535].
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of valid range [1, 65535]", port)
	}
	return nil
}

// ValidatePortString validates a port number or port range string.
// Valid formats: "80", "50000-50100"
func ValidatePortString(portStr string) error {
	if portStr == "" {
		return fmt.Errorf("port string cannot be empty")
	}

	if strings.Contains(portStr, "-") {
		parts := strings.Split(portStr, "-")
		if len(parts) != 2 {
			return fmt.Errorf("invalid port range format: %s (expected format: 'start-end')", portStr)
		}

		start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return fmt.Errorf("invalid start port in range %s: %w", portStr, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid end port in range %s: %w", portStr, err)
		}
		if err := ValidatePort(start); err != nil {
			return fmt.Errorf("invalid start port in range %s: %w", portStr, err)
		}
		if err := ValidatePort(end); err != nil {
			return fmt.Errorf("invalid end port in range %s: %w", portStr, err)
		}
		if start > end {
			return fmt.Errorf("invalid port range %s: start port must not exceed end port", portStr)
		}
		return nil
	}

	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return fmt.Errorf("invalid port number %s: %w", portStr, err)
	}
	return ValidatePort(port)
}

// ValidatePortList validates the comma separated port filter of
// --filter-tcp and --filter-udp, e.g. "80,443,50000-50100".
func ValidatePortList(list string) error {
	for _, item := range strings.Split(list, ",") {
		if err := ValidatePortString(item); err != nil {
			return err
		}
	}
	return nil
}

// ValidateIP validates that a string is a valid IPv4 or IPv6 address.
func ValidateIP(ip string) error {
	if ip == "" {
		return fmt.Errorf("IP address cannot be empty")
	}
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid IP address: %s", ip)
	}
	return nil
}

// ValidateCIDR validates that a string is valid CIDR notation.
func ValidateCIDR(cidr string) error {
	if cidr == "" {
		return fmt.Errorf("CIDR cannot be empty")
	}
	if _, _, err := net.ParseCIDR(cidr); err != nil {
		return fmt.Errorf("invalid CIDR notation %s: %w", cidr, err)
	}
	return nil
}

// ValidateIPSetEntry accepts a single address or a subnet.
func ValidateIPSetEntry(entry string) error {
	if strings.Contains(entry, "/") {
		return ValidateCIDR(entry)
	}
	return ValidateIP(entry)
}

// RFC 1035 labels, with an optional leading wildcard.
var domainRegex = regexp.MustCompile(`^(\*\.)?([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidateDomain validates a DNS domain name.
// Allows standard domain names and wildcards (e.g., "*.example.com").
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain name cannot be empty")
	}
	if len(domain) > 253 {
		return fmt.Errorf("domain name too long: %s (max 253 characters)", domain)
	}
	if !domainRegex.MatchString(domain) {
		return fmt.Errorf("invalid domain name: %s", domain)
	}
	return nil
}
