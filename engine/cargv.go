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

//go:build cgo && (nfqws || nfqws2)

package engine

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// cArgv is a NULL-terminated char** allocated in C memory.
type cArgv struct {
	argc  int
	ptr   **C.char
	items []*C.char
}

func newCArgv(argv []string) *cArgv {
	n := len(argv)
	ptr := (**C.char)(C.malloc(C.size_t(n+1) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	items := unsafe.Slice(ptr, n+1)
	for i, s := range argv {
		items[i] = C.CString(s)
	}
	items[n] = nil
	return &cArgv{argc: n, ptr: ptr, items: items}
}

func (a *cArgv) free() {
	for _, p := range a.items[:a.argc] {
		C.free(unsafe.Pointer(p))
	}
	C.free(unsafe.Pointer(a.ptr))
}
