// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package modstore

import (
	"context"
	"fmt"
	"io/fs"

	"zombiezen.com/go/log"
)

// Dir is a module source backed by a file system.
type Dir struct {
	fsys fs.FS
}

// NewDir returns a module source that reads modules from fsys.
func NewDir(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// Resolve returns the canonical identifier of the module id
// and verifies that the module exists.
func (d *Dir) Resolve(ctx context.Context, id, parent string) (string, error) {
	canonical, err := ResolveID(id, parent)
	if err != nil {
		return "", err
	}
	info, err := fs.Stat(d.fsys, canonical)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", canonical)
	}
	log.Debugf(ctx, "Resolved module %q from %q to %s", id, parent, canonical)
	return canonical, nil
}

// Load returns the source of the module with the given canonical identifier.
func (d *Dir) Load(ctx context.Context, id string) (string, error) {
	data, err := fs.ReadFile(d.fsys, id)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
