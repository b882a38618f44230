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

import "sync"

// BufferBackend keeps entries in memory. Tests use it to assert on what a
// component logged.
type BufferBackend struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewBufferBackend creates an empty BufferBackend.
func NewBufferBackend() *BufferBackend {
	return &BufferBackend{}
}

func (b *BufferBackend) Write(entry *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
	return nil
}

func (b *BufferBackend) Close() error {
	return nil
}

// Entries returns a copy of the recorded entries.
func (b *BufferBackend) Entries() []*Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Messages returns the recorded messages at level, or all when level is "".
func (b *BufferBackend) Messages(level string) []string {
	var out []string
	for _, e := range b.Entries() {
		if level == "" || e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
