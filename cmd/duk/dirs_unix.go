// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

//go:build unix

package main

import (
	"path/filepath"
	"slices"

	"go4.org/xdgdir"
)

// configFiles returns the configuration files to read
// in increasing order of precedence.
func configFiles() []string {
	dirs := xdgdir.Config.SearchPaths()
	paths := make([]string, 0, len(dirs))
	for _, dir := range slices.Backward(dirs) {
		paths = append(paths, filepath.Join(dir, "duk", "config.jsonc"))
	}
	return paths
}
