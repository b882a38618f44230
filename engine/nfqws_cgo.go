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

//go:build cgo && nfqws

package engine

/*
#cgo LDFLAGS: -lnfqws
extern int nfqws_main(int argc, char **argv);
*/
import "C"

import "github.com/zaprett/zaprett/types"

func init() {
	Register(types.EngineNfqws, func(argv []string) int {
		a := newCArgv(argv)
		defer a.free()
		return int(C.nfqws_main(C.int(a.argc), a.ptr))
	})
}
