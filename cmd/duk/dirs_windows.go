// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
)

func configFiles() []string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(dir, "duk", "config.jsonc")}
}
