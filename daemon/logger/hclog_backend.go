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

package logger

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// HclogBackend renders entries through go-hclog, for terminal output.
// Level filtering is done by the Logger, so the hclog logger accepts all.
type HclogBackend struct {
	log hclog.Logger
}

// NewHclogBackend creates a backend writing human-readable lines to w.
func NewHclogBackend(w io.Writer, name string) *HclogBackend {
	return &HclogBackend{
		log: hclog.New(&hclog.LoggerOptions{
			Name:        name,
			Level:       hclog.Trace,
			Output:      w,
			DisableTime: true,
			Color:       hclog.ColorOff,
		}),
	}
}

func (b *HclogBackend) Write(entry *Entry) error {
	l := b.log
	if entry.Component != "" {
		l = l.Named(entry.Component)
	}

	args := make([]interface{}, 0, 2*len(entry.Fields))
	for _, k := range entry.Keys() {
		args = append(args, k, entry.Fields[k])
	}

	switch entry.Level {
	case "debug":
		l.Debug(entry.Message, args...)
	case "warn":
		l.Warn(entry.Message, args...)
	case "error":
		l.Error(entry.Message, args...)
	default:
		l.Info(entry.Message, args...)
	}
	return nil
}

func (b *HclogBackend) Close() error {
	return nil
}
