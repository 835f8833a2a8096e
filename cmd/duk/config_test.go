// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGlobalConfigMergeFiles(t *testing.T) {
	dir := t.TempDir()
	var paths [3]string
	paths[0] = filepath.Join(dir, "config1.jsonc")
	if err := os.WriteFile(paths[0], []byte(`{
		// Comments are allowed.
		"debug": true,
		"modulePath": "/foo",
		"unknown": {"nested": [1, 2]},
	}`+"\n"), 0o666); err != nil {
		t.Fatal(err)
	}
	paths[1] = filepath.Join(dir, "does-not-exist.jsonc")
	paths[2] = filepath.Join(dir, "config2.jsonc")
	if err := os.WriteFile(paths[2], []byte(`{"modulePath": "/bar", "moduleDB": "/bar/modules.db", "console": false}`+"\n"), 0o666); err != nil {
		t.Fatal(err)
	}

	g := defaultGlobalConfig()
	if err := g.mergeFiles(slices.Values(paths[:])); err != nil {
		t.Error("mergeFiles:", err)
	}
	want := &globalConfig{
		Debug:      true,
		ModulePath: "/bar",
		ModuleDB:   "/bar/modules.db",
		Console:    false,
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestGlobalConfigMergeFilesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte(`["not", "an", "object"]`), 0o666); err != nil {
		t.Fatal(err)
	}
	g := defaultGlobalConfig()
	if err := g.mergeFiles(slices.Values([]string{path})); err == nil {
		t.Error("mergeFiles did not return an error")
	}
}

func TestGlobalConfigMergeEnvironment(t *testing.T) {
	t.Setenv("DUK_MODULE_PATH", "/env/modules")
	t.Setenv("DUK_MODULE_DB", "")
	g := defaultGlobalConfig()
	g.ModuleDB = "/from/file.db"
	g.mergeEnvironment()
	if g.ModulePath != "/env/modules" {
		t.Errorf("ModulePath = %q; want %q", g.ModulePath, "/env/modules")
	}
	if g.ModuleDB != "/from/file.db" {
		t.Errorf("ModuleDB = %q; want %q", g.ModuleDB, "/from/file.db")
	}
}

func TestParseJSONArgs(t *testing.T) {
	got, err := parseJSONArgs([]string{`1`, `"two"`, `{"three": [3]}`, `null`})
	if err != nil {
		t.Fatal(err)
	}
	want := []any{1.0, "two", map[string]any{"three": []any{3.0}}, nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseJSONArgs(...) (-want +got):\n%s", diff)
	}
	if _, err := parseJSONArgs([]string{`{`}); err == nil {
		t.Error("parseJSONArgs({) did not return an error")
	}
}
