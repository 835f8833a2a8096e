// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package modstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	slashpath "path"
	"path/filepath"

	"zombiezen.com/go/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Store is a module source backed by a SQLite database,
// suitable for bundling a tree of modules into a single file.
// It is safe to use from multiple goroutines.
type Store struct {
	pool *sqlitemigration.Pool
}

// ModuleInfo describes a module in a [Store].
type ModuleInfo struct {
	ID        string
	Size      int64
	UpdatedAt string
}

// Open opens the module database at path, creating it if necessary.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, fmt.Errorf("open module store: %v", err)
	}
	var schema sqlitemigration.Schema
	for i := 1; ; i++ {
		migration, err := fs.ReadFile(sqlFiles(), fmt.Sprintf("schema/%02d.sql", i))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("open module store: read migrations: %v", err)
		}
		schema.Migrations = append(schema.Migrations, string(migration))
	}
	return &Store{
		pool: sqlitemigration.NewPool(path, schema, sqlitemigration.Options{
			Flags:       sqlite.OpenCreate | sqlite.OpenReadWrite,
			PrepareConn: prepareConn,
		}),
	}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode=wal;", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys=on;", nil); err != nil {
		return err
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Resolve returns the canonical identifier of the module id
// and verifies that the module is in the store.
func (s *Store) Resolve(ctx context.Context, id, parent string) (string, error) {
	canonical, err := ResolveID(id, parent)
	if err != nil {
		return "", err
	}
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %v", id, err)
	}
	defer s.pool.Put(conn)

	found := false
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "exists.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":id": canonical,
		},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = stmt.GetBool("found")
			return nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("resolve %q: %v", id, err)
	}
	if !found {
		return "", fmt.Errorf("resolve %q: %s: %w", id, canonical, fs.ErrNotExist)
	}
	return canonical, nil
}

// Load returns the source of the module with the given canonical identifier.
func (s *Store) Load(ctx context.Context, id string) (string, error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load %s: %v", id, err)
	}
	defer s.pool.Put(conn)

	var source string
	found := false
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "get.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":id": id,
		},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			source = stmt.GetText("source")
			found = true
			return nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("load %s: %v", id, err)
	}
	if !found {
		return "", fmt.Errorf("load %s: %w", id, fs.ErrNotExist)
	}
	return source, nil
}

// Put stores the source of a module, replacing any previous version.
func (s *Store) Put(ctx context.Context, id, source string) error {
	canonical, err := ResolveID(id, "")
	if err != nil {
		return fmt.Errorf("put %q: %v", id, err)
	}
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("put %s: %v", canonical, err)
	}
	defer s.pool.Put(conn)
	if err := put(conn, canonical, source); err != nil {
		return fmt.Errorf("put %s: %v", canonical, err)
	}
	return nil
}

func put(conn *sqlite.Conn, id, source string) error {
	return sqlitex.ExecuteTransientFS(conn, sqlFiles(), "put.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":id":     id,
			":source": source,
		},
	})
}

// Import copies every ".js" file in fsys into the store
// in a single transaction and returns the number of modules imported.
func (s *Store) Import(ctx context.Context, fsys fs.FS) (n int, err error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("import modules: %v", err)
	}
	defer s.pool.Put(conn)

	defer func() {
		if err != nil {
			n = 0
			err = fmt.Errorf("import modules: %w", err)
		}
	}()
	defer sqlitex.Save(conn)(&err)

	err = fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() || slashpath.Ext(path) != ".js" {
			return nil
		}
		source, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		log.Debugf(ctx, "Importing module %s (%d bytes)", path, len(source))
		if err := put(conn, path, string(source)); err != nil {
			return fmt.Errorf("%s: %v", path, err)
		}
		n++
		return nil
	})
	return n, err
}

// List returns information about every module in the store,
// sorted by identifier.
func (s *Store) List(ctx context.Context) ([]ModuleInfo, error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("list modules: %v", err)
	}
	defer s.pool.Put(conn)

	var list []ModuleInfo
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "list.sql", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			list = append(list, ModuleInfo{
				ID:        stmt.GetText("id"),
				Size:      stmt.GetInt64("size"),
				UpdatedAt: stmt.GetText("updated_at"),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list modules: %v", err)
	}
	return list, nil
}

//go:embed sql
var rawSQLFiles embed.FS

func sqlFiles() fs.FS {
	fsys, err := fs.Sub(rawSQLFiles, "sql")
	if err != nil {
		panic(err)
	}
	return fsys
}
