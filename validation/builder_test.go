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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCollectorEmpty(t *testing.T) {
	ec := NewCollector(0)
	ec.Check(nil)
	ec.CheckMsg(nil, "line 1")

	assert.Equal(t, 0, ec.Len())
	assert.NoError(t, ec.Error())
}

func TestErrorCollectorContext(t *testing.T) {
	base := errors.New("invalid domain name: -x")
	ec := NewCollector(0).WithContext("hosts.txt")
	ec.CheckMsg(base, "line 3")

	err := ec.Error()
	require.Error(t, err)
	assert.Equal(t, "hosts.txt: line 3: invalid domain name: -x", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestErrorCollectorJoinsAll(t *testing.T) {
	ec := NewCollector(0)
	ec.Check(errors.New("first"))
	ec.Check(errors.New("second"))

	assert.Equal(t, 2, ec.Len())
	assert.False(t, ec.Truncated())
	assert.Equal(t, "first\nsecond", ec.Error().Error())
}

func TestErrorCollectorTruncates(t *testing.T) {
	ec := NewCollector(2)
	for _, msg := range []string{"a", "b", "c", "d"} {
		ec.Check(errors.New(msg))
	}

	assert.True(t, ec.Truncated())
	assert.Equal(t, "a\nb\nand 2 more", ec.Error().Error())
	// Error must not clobber the collected slice.
	assert.Equal(t, 4, ec.Len())
	assert.Equal(t, "a\nb\nand 2 more", ec.Error().Error())
}
