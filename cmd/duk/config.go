// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"iter"
	"os"

	"duk.256lights.llc/pkg"
	"duk.256lights.llc/pkg/internal/modstore"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/tailscale/hujson"
)

type globalConfig struct {
	Debug      bool   `json:"debug"`
	ModulePath string `json:"modulePath"`
	ModuleDB   string `json:"moduleDB"`
	Console    bool   `json:"console"`
}

func defaultGlobalConfig() *globalConfig {
	return &globalConfig{
		ModulePath: ".",
		Console:    true,
	}
}

func (g *globalConfig) mergeEnvironment() {
	if path := os.Getenv("DUK_MODULE_PATH"); path != "" {
		g.ModulePath = path
	}
	if path := os.Getenv("DUK_MODULE_DB"); path != "" {
		g.ModuleDB = path
	}
}

func (g *globalConfig) mergeFiles(paths iter.Seq[string]) error {
	for path := range paths {
		huJSONData, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		jsonData, err := hujson.Standardize(huJSONData)
		if err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
		if err := jsonv2.Unmarshal(jsonData, g, jsonv2.RejectUnknownMembers(false)); err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
	}
	return nil
}

// UnmarshalJSONFrom unmarshals the configuration object from the JSON decoder,
// merging any fields in the JSON object with existing values.
func (g *globalConfig) UnmarshalJSONFrom(in *jsontext.Decoder) error {
	tok, err := in.ReadToken()
	if err != nil {
		return err
	}
	if got := tok.Kind(); got != '{' {
		return fmt.Errorf("config must be an object not a %v", got)
	}

	for {
		keyToken, err := in.ReadToken()
		if err != nil {
			return err
		}
		switch kind := keyToken.Kind(); kind {
		case '}':
			return nil
		case '"':
			// Keep going.
		default:
			return fmt.Errorf("unexpected non-string key (%v) in object", kind)
		}

		switch k := keyToken.String(); k {
		case "debug":
			if err := jsonv2.UnmarshalDecode(in, &g.Debug); err != nil {
				return fmt.Errorf("unmarshal config.debug: %w", err)
			}
		case "modulePath":
			if err := jsonv2.UnmarshalDecode(in, &g.ModulePath); err != nil {
				return fmt.Errorf("unmarshal config.modulePath: %w", err)
			}
		case "moduleDB":
			if err := jsonv2.UnmarshalDecode(in, &g.ModuleDB); err != nil {
				return fmt.Errorf("unmarshal config.moduleDB: %w", err)
			}
		case "console":
			if err := jsonv2.UnmarshalDecode(in, &g.Console); err != nil {
				return fmt.Errorf("unmarshal config.console: %w", err)
			}
		default:
			if reject, _ := jsonv2.GetOption(in.Options(), jsonv2.RejectUnknownMembers); reject {
				return fmt.Errorf("unmarshal config: unknown field %q", k)
			}
			if err := in.SkipValue(); err != nil {
				return err
			}
		}
	}
}

// newContext returns a new JavaScript context configured from g.
// The returned function releases the context and its module source.
func (g *globalConfig) newContext() (_ *duk.Context, closeFunc func() error, err error) {
	opts := &duk.Options{Console: g.Console}
	closeSource := func() error { return nil }
	switch {
	case g.ModuleDB != "":
		store, err := modstore.Open(g.ModuleDB)
		if err != nil {
			return nil, nil, err
		}
		opts.ResolveModule = store.Resolve
		opts.LoadModule = store.Load
		closeSource = store.Close
	case g.ModulePath != "":
		dir := modstore.NewDir(os.DirFS(g.ModulePath))
		opts.ResolveModule = dir.Resolve
		opts.LoadModule = dir.Load
	}

	c, err := duk.New(opts)
	if err != nil {
		closeSource()
		return nil, nil, err
	}
	return c, func() error {
		err1 := c.Close()
		err2 := closeSource()
		return errors.Join(err1, err2)
	}, nil
}
