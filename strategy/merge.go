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

// Package strategy turns the service configuration into the engine's
// argument string: it merges the active list files into the workspace and
// fills the placeholders of the strategy template.
package strategy

import (
	"io"
	"os"

	"github.com/zaprett/zaprett/types"
)

// Merge concatenates the raw bytes of inputs, in order, into output,
// truncating any previous content. An empty input list produces an empty
// file. The first input that cannot be opened aborts the merge.
func Merge(inputs []string, output string) error {
	out, err := os.Create(output)
	if err != nil {
		return types.NewIOError("create merged list", output, err)
	}
	defer out.Close()

	for _, input := range inputs {
		if err := appendFile(out, input); err != nil {
			return err
		}
	}

	if err := out.Close(); err != nil {
		return types.NewIOError("close merged list", output, err)
	}
	return nil
}

func appendFile(out io.Writer, input string) error {
	in, err := os.Open(input)
	if err != nil {
		return types.NewIOError("open list", input, err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return types.NewIOError("copy list", input, err)
	}
	return nil
}
