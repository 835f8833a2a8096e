// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"context"
	"fmt"

	"zombiezen.com/go/log"
)

// installRequire sets the global require function
// used by code that is not itself a module.
func (c *Context) installRequire() error {
	return c.Register("require", c.requireFunc(""))
}

// requireFunc returns a require function for the module with the given canonical id.
func (c *Context) requireFunc(parent string) func(ctx context.Context, id string) (*Reference, error) {
	return func(ctx context.Context, id string) (*Reference, error) {
		return c.require(ctx, parent, id)
	}
}

// require returns a Reference to the exports of the module id,
// loading and running it if it has not been loaded yet.
// A module's record is cached before its body runs,
// so a require cycle observes the partially filled exports object.
func (c *Context) require(ctx context.Context, parent, id string) (*Reference, error) {
	if c.resolveModule == nil || c.loadModule == nil {
		return nil, &JsError{Kind: KindError, Message: "modules not available"}
	}
	canonical, err := c.resolveModule(ctx, id, parent)
	if err != nil {
		return nil, &JsError{
			Kind:    KindError,
			Message: fmt.Sprintf("cannot find module %q: %v", id, err),
		}
	}
	if rec := c.modules[canonical]; rec != nil {
		return rec.Get(ctx, "exports")
	}

	log.Debugf(ctx, "Loading module %s", canonical)
	source, err := c.loadModule(ctx, canonical)
	if err != nil {
		return nil, &JsError{
			Kind:    KindError,
			Message: fmt.Sprintf("load module %s: %v", canonical, err),
		}
	}
	fn, err := c.EvalStringFilename(ctx, "(function (exports, require, module) {"+source+"\n})", canonical)
	if err != nil {
		return nil, err
	}
	defer fn.Close()

	rec, err := c.Wrap(moduleRecord{ID: canonical, Exports: Object{}})
	if err != nil {
		return nil, err
	}
	c.modules[canonical] = rec
	exports, err := rec.Get(ctx, "exports")
	if err != nil {
		c.forgetModule(canonical)
		return nil, err
	}
	defer exports.Close()

	result, err := fn.CallWithThis(ctx, exports, exports, c.requireFunc(canonical), rec)
	if err != nil {
		c.forgetModule(canonical)
		return nil, err
	}
	result.Close()
	if err := rec.Set(ctx, "loaded", true); err != nil {
		return nil, err
	}
	return rec.Get(ctx, "exports")
}

type moduleRecord struct {
	ID      string `duk:"id"`
	Exports Object `duk:"exports"`
	Loaded  bool   `duk:"loaded"`
}

func (c *Context) forgetModule(id string) {
	if rec := c.modules[id]; rec != nil {
		rec.Close()
		delete(c.modules, id)
	}
}
