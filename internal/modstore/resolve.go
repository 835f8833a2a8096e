// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

// Package modstore provides sources of JavaScript modules for require.
//
// Module identifiers follow CommonJS conventions.
// Identifiers starting with "./" or "../" are resolved
// relative to the directory of the requiring module.
// Other identifiers are resolved from the root of the source.
// A ".js" extension is added to identifiers that do not have an extension.
package modstore

import (
	"fmt"
	"io/fs"
	slashpath "path"
	"strings"
)

// ResolveID returns the canonical identifier for the module id
// required from the module with the canonical identifier parent.
// parent is empty for code that is not a module.
func ResolveID(id, parent string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty module id")
	}
	var p string
	if strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../") {
		p = slashpath.Join(slashpath.Dir(parent), id)
	} else {
		p = slashpath.Clean(strings.TrimPrefix(id, "/"))
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("module %q (required from %q) is outside the module root", id, parent)
	}
	if slashpath.Ext(p) == "" {
		p += ".js"
	}
	if !fs.ValidPath(p) || p == "." {
		return "", fmt.Errorf("invalid module id %q", id)
	}
	return p, nil
}
