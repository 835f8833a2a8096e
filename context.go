// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"duk.256lights.llc/pkg/internal/dukstack"
	"github.com/google/uuid"
	"zombiezen.com/go/log"
)

// Options is the set of optional parameters to [New].
type Options struct {
	// ResolveModule maps a module identifier passed to require
	// to a canonical module identifier.
	// parent is the canonical identifier of the requiring module,
	// or the empty string for code that is not a module.
	ResolveModule func(ctx context.Context, id, parent string) (string, error)
	// LoadModule returns the source code of the module
	// with the given canonical identifier.
	LoadModule func(ctx context.Context, id string) (string, error)

	// If Console is true, then a global console object is installed
	// that writes messages to the logger in the calling [context.Context].
	Console bool
}

// Context is a Duktape heap.
// A Context is not safe to use from multiple goroutines concurrently,
// but independent Contexts can be used in parallel.
type Context struct {
	s  *dukstack.Stack
	id uuid.UUID

	nextSlot atomic.Uint32

	// hostCtx is the context passed to the outermost call into the VM.
	// It is handed to host functions.
	hostCtx context.Context

	resolveModule func(ctx context.Context, id, parent string) (string, error)
	loadModule    func(ctx context.Context, id string) (string, error)
	modules       map[string]*Reference
}

// Heap stash keys for values created by [New].
const (
	stashGetProp    = "duk:getprop"
	stashSetProp    = "duk:setprop"
	stashHasProp    = "duk:hasprop"
	stashKeys       = "duk:keys"
	stashTrampoline = "duk:trampoline"
)

// helpersSource removes the engine's built-in module loader
// and evaluates to the helper functions stored in the heap stash.
const helpersSource = `delete this.require;
if (typeof Duktape === 'object') {
	delete Duktape.modSearch;
}
({
	getprop: function (o, k) { return o[k]; },
	setprop: function (o, k, v) { o[k] = v; },
	hasprop: function (o, k) { return k in o; },
	keys: function (o) { return Object.keys(o); },
	trampoline: (function (ctors) {
		return function (call) {
			return function () {
				var r = call.apply(this, arguments);
				if (r[0]) {
					return r[1];
				}
				var C = ctors[r[2]];
				if (C === undefined) {
					throw r[1];
				}
				throw new C(r[1]);
			};
		};
	})({
		Error: Error,
		EvalError: EvalError,
		RangeError: RangeError,
		ReferenceError: ReferenceError,
		SyntaxError: SyntaxError,
		TypeError: TypeError,
		URIError: URIError
	})
})`

// New returns a new Context with a fresh heap.
// opts may be nil, which is treated the same as the zero value.
func New(opts *Options) (*Context, error) {
	if opts == nil {
		opts = new(Options)
	}
	c := &Context{
		s:             dukstack.New(),
		id:            uuid.New(),
		resolveModule: opts.ResolveModule,
		loadModule:    opts.LoadModule,
	}
	if err := c.installHelpers(); err != nil {
		c.s.Close()
		return nil, fmt.Errorf("duk: new context: %v", err)
	}
	if c.resolveModule != nil && c.loadModule != nil {
		c.modules = make(map[string]*Reference)
		if err := c.installRequire(); err != nil {
			c.s.Close()
			return nil, fmt.Errorf("duk: new context: %v", err)
		}
	}
	if opts.Console {
		if err := c.installConsole(); err != nil {
			c.s.Close()
			return nil, fmt.Errorf("duk: new context: %v", err)
		}
	}
	return c, nil
}

func (c *Context) installHelpers() error {
	s := c.s
	g := s.Guard()
	defer g.Release()

	if err := s.Compile(helpersSource, "<duk>"); err != nil {
		return errorAt(c, -1)
	}
	if err := s.PCall(0); err != nil {
		return errorAt(c, -1)
	}
	helpers := s.Abs(-1)
	s.PushHeapStash()
	stash := s.Abs(-1)
	for _, name := range [...][2]string{
		{"getprop", stashGetProp},
		{"setprop", stashSetProp},
		{"hasprop", stashHasProp},
		{"keys", stashKeys},
		{"trampoline", stashTrampoline},
	} {
		s.GetPropString(helpers, name[0])
		s.PutPropString(stash, name[1])
	}
	return nil
}

// pushStashed pushes the heap stash value with the given key.
func (c *Context) pushStashed(key string) {
	c.s.PushHeapStash()
	c.s.GetPropString(-1, key)
	c.s.Remove(-2)
}

// getProp reads a property of the object at obj in protected mode.
// The key must be on top of the stack.
// getProp replaces the key with the property value,
// or with the thrown value if a getter throws.
func (c *Context) getProp(obj dukstack.Index) error {
	s := c.s
	obj = s.Abs(obj)
	c.pushStashed(stashGetProp)
	s.Dup(obj)
	s.Dup(-3)
	err := s.PCall(2)
	s.Remove(-2)
	return err
}

// getPropString is like getProp but pushes the key.
func (c *Context) getPropString(obj dukstack.Index, key string) error {
	obj = c.s.Abs(obj)
	c.s.PushString(key)
	return c.getProp(obj)
}

// getPropIndex is like getProp but pushes the key.
func (c *Context) getPropIndex(obj dukstack.Index, i uint32) error {
	obj = c.s.Abs(obj)
	c.s.PushNumber(float64(i))
	return c.getProp(obj)
}

// hasPropString reports whether key is in the object at obj
// (including inherited properties).
// A throwing proxy trap is reported as a [*JsError].
// The stack height is unchanged.
func (c *Context) hasPropString(obj dukstack.Index, key string) (bool, error) {
	s := c.s
	obj = s.Abs(obj)
	g := s.Guard()
	defer g.Release()
	c.pushStashed(stashHasProp)
	s.Dup(obj)
	s.PushString(key)
	if s.PCall(2) != nil {
		return false, errorAt(c, -1)
	}
	return s.Boolean(-1), nil
}

// ownKeys returns the own enumerable string-keyed property names
// of the object at obj, in enumeration order.
// The stack height is unchanged.
func (c *Context) ownKeys(obj dukstack.Index) ([]string, error) {
	s := c.s
	obj = s.Abs(obj)
	g := s.Guard()
	defer g.Release()
	c.pushStashed(stashKeys)
	s.Dup(obj)
	if s.PCall(1) != nil {
		return nil, errorAt(c, -1)
	}
	arr := s.Abs(-1)
	n := s.Length(arr)
	keys := make([]string, 0, n)
	for i := range n {
		s.GetPropIndex(arr, uint32(i))
		keys = append(keys, s.String(-1))
		s.Pop()
	}
	return keys, nil
}

// Close releases all resources associated with the Context.
// Any [Reference] values minted by c must not be used afterward,
// except to call [*Reference.Close], which becomes a no-op.
// Calling Close more than once is a no-op.
func (c *Context) Close() error {
	if c.s.Closed() {
		return nil
	}
	for _, ref := range c.modules {
		ref.Close()
	}
	c.modules = nil
	c.resolveModule = nil
	c.loadModule = nil
	c.s.Close()
	return nil
}

// String returns the Context's unique identifier.
func (c *Context) String() string {
	return "duk.Context(" + c.id.String() + ")"
}

// enter records ctx as the context for host functions
// and returns a function that restores the previous one.
// Re-entrant calls from a host function keep the outermost context
// unless ctx is non-nil.
func (c *Context) enter(ctx context.Context) (exit func()) {
	prev := c.hostCtx
	if ctx != nil {
		c.hostCtx = ctx
	} else if c.hostCtx == nil {
		c.hostCtx = context.Background()
	}
	return func() { c.hostCtx = prev }
}

func (c *Context) currentContext() context.Context {
	if c.hostCtx == nil {
		return context.Background()
	}
	return c.hostCtx
}

// EvalString evaluates JavaScript source code
// and returns a [Reference] to the value of its last expression.
func (c *Context) EvalString(ctx context.Context, source string) (*Reference, error) {
	return c.EvalStringFilename(ctx, source, "eval")
}

// EvalStringFilename is like [*Context.EvalString]
// but uses the given file name in errors and stack traces.
func (c *Context) EvalStringFilename(ctx context.Context, source, filename string) (*Reference, error) {
	defer c.enter(ctx)()
	s := c.s
	g := s.Guard()
	defer g.Release()

	if log.IsEnabled(log.Debug) {
		log.Debugf(c.currentContext(), "%v: evaluating %s", c, filename)
	}
	if err := s.Compile(source, filename); err != nil {
		return nil, errorAt(c, -1)
	}
	if err := s.PCall(0); err != nil {
		return nil, errorAt(c, -1)
	}
	return c.popReference(), nil
}

// EvalFile reads the file at path and evaluates it
// using path as the file name.
func (c *Context) EvalFile(ctx context.Context, path string) (*Reference, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("duk: eval file: %w", err)
	}
	return c.EvalStringFilename(ctx, string(source), path)
}

// Global returns a [Reference] to the global object.
func (c *Context) Global() *Reference {
	c.s.PushGlobalObject()
	return c.popReference()
}

// CallGlobal calls the global function with the given name.
// See [*Reference.Call] for how arguments are converted.
func (c *Context) CallGlobal(ctx context.Context, name string, args ...any) (*Reference, error) {
	global := c.Global()
	defer global.Close()
	return global.CallMethod(ctx, name, args...)
}

// Register sets a global variable to a JavaScript function that calls fn.
// fn must be a Go function; see [*Context.Wrap] for how it is called.
func (c *Context) Register(name string, fn any) error {
	s := c.s
	g := s.Guard()
	defer g.Release()

	s.PushGlobalObject()
	if err := c.newEncoder().push(fn); err != nil {
		return err
	}
	s.PutPropString(-2, name)
	return nil
}

// Wrap converts v to a JavaScript value and returns a [Reference] to it.
//
// Go values are converted as follows:
//
//   - nil, nil pointers, nil slices, and nil maps become null.
//   - Booleans, numbers, and strings become their JavaScript equivalents.
//     All numbers are converted to float64.
//   - Byte slices become plain buffers.
//   - Other slices and arrays become arrays.
//   - Maps become objects. Keys must be strings, integers,
//     or implement [encoding.TextMarshaler].
//   - Structs become objects. The "duk" struct tag controls field names
//     like "encoding/json" does.
//     A struct that has a blank field tagged `duk:",tuple"` becomes an array
//     of its fields in declaration order.
//   - [Value] values are converted as-is.
//   - [*Reference] values are pushed directly.
//     The Reference must belong to c.
//   - Functions become JavaScript functions.
//     Arguments are converted with the same rules as [*Reference.Decode].
//     If the first parameter is a [context.Context],
//     it receives the context passed to the call that entered the VM.
//     If the last result is an error and it is non-nil,
//     the function throws.
//   - Types registered with [RegisterSum] are converted to variants.
func (c *Context) Wrap(v any) (*Reference, error) {
	if err := c.newEncoder().push(v); err != nil {
		return nil, err
	}
	return c.popReference(), nil
}
