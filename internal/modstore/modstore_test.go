// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package modstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"duk.256lights.llc/pkg/internal/testcontext"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"zombiezen.com/go/log/testlog"
)

func TestMain(m *testing.M) {
	testlog.Main(nil)
	os.Exit(m.Run())
}

func TestResolveID(t *testing.T) {
	tests := []struct {
		id      string
		parent  string
		want    string
		wantErr bool
	}{
		{id: "foo", parent: "", want: "foo.js"},
		{id: "foo.js", parent: "", want: "foo.js"},
		{id: "lib/foo", parent: "a/b.js", want: "lib/foo.js"},
		{id: "./foo", parent: "", want: "foo.js"},
		{id: "./foo", parent: "lib/main.js", want: "lib/foo.js"},
		{id: "../foo", parent: "lib/sub/main.js", want: "lib/foo.js"},
		{id: "./data.json", parent: "lib/main.js", want: "lib/data.json"},
		{id: "/abs/mod", parent: "x.js", want: "abs/mod.js"},
		{id: "../foo", parent: "main.js", wantErr: true},
		{id: "./../../foo", parent: "lib/main.js", wantErr: true},
		{id: "", parent: "", wantErr: true},
		{id: ".", parent: "", wantErr: true},
	}
	for _, test := range tests {
		got, err := ResolveID(test.id, test.parent)
		if test.wantErr {
			if err == nil {
				t.Errorf("ResolveID(%q, %q) = %q, <nil>; want error", test.id, test.parent, got)
			}
			continue
		}
		if err != nil || got != test.want {
			t.Errorf("ResolveID(%q, %q) = %q, %v; want %q, <nil>", test.id, test.parent, got, err, test.want)
		}
	}
}

var testFS = fstest.MapFS{
	"main.js":     {Data: []byte("exports.main = true;\n")},
	"lib/util.js": {Data: []byte("exports.util = 1;\n")},
	"lib/README":  {Data: []byte("not a module\n")},
}

func TestDir(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	d := NewDir(testFS)

	id, err := d.Resolve(ctx, "./util", "lib/main.js")
	if err != nil {
		t.Fatal(err)
	}
	if want := "lib/util.js"; id != want {
		t.Errorf("Resolve(...) = %q; want %q", id, want)
	}
	source, err := d.Load(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if want := "exports.util = 1;\n"; source != want {
		t.Errorf("Load(%q) = %q; want %q", id, source, want)
	}

	if _, err := d.Resolve(ctx, "nope", ""); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Resolve(nope) error = %v; want %v", err, fs.ErrNotExist)
	}
	if _, err := d.Resolve(ctx, "lib", ""); err == nil {
		t.Error("Resolve(lib) did not return an error")
	}
}

func TestStore(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	store, err := Open(filepath.Join(t.TempDir(), "sub", "modules.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Error("Close:", err)
		}
	}()

	n, err := store.Import(ctx, testFS)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Import(...) = %d; want 2", n)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []ModuleInfo{
		{ID: "lib/util.js", Size: int64(len("exports.util = 1;\n"))},
		{ID: "main.js", Size: int64(len("exports.main = true;\n"))},
	}
	if diff := cmp.Diff(want, list, cmpopts.IgnoreFields(ModuleInfo{}, "UpdatedAt")); diff != "" {
		t.Errorf("List(...) (-want +got):\n%s", diff)
	}

	id, err := store.Resolve(ctx, "../main", "lib/util.js")
	if err != nil {
		t.Fatal(err)
	}
	if id != "main.js" {
		t.Errorf("Resolve(...) = %q; want %q", id, "main.js")
	}
	source, err := store.Load(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if want := "exports.main = true;\n"; source != want {
		t.Errorf("Load(%q) = %q; want %q", id, source, want)
	}

	if err := store.Put(ctx, "main", "exports.main = 2;\n"); err != nil {
		t.Fatal(err)
	}
	source, err = store.Load(ctx, "main.js")
	if err != nil {
		t.Fatal(err)
	}
	if want := "exports.main = 2;\n"; source != want {
		t.Errorf("after Put, Load(main.js) = %q; want %q", source, want)
	}

	if _, err := store.Resolve(ctx, "missing", ""); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Resolve(missing) error = %v; want %v", err, fs.ErrNotExist)
	}
	if _, err := store.Load(ctx, "missing.js"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(missing.js) error = %v; want %v", err, fs.ErrNotExist)
	}
}
