// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"context"
	"fmt"
)

// Reference is a handle to a JavaScript value stored in a [Context]'s heap.
// The value stays reachable until the Reference is closed.
//
// A Reference can only be used with the Context that created it.
// Passing it to another Context panics.
type Reference struct {
	c    *Context
	slot uint32
}

// popReference stores the value on top of the stack in a new heap stash slot,
// pops it, and returns a Reference to it.
func (c *Context) popReference() *Reference {
	slot := c.nextSlot.Add(1)
	s := c.s
	s.PushHeapStash()
	s.Dup(-2)
	s.PutPropIndex(-2, slot)
	s.PopN(2)
	return &Reference{c: c, slot: slot}
}

// Context returns the Context that r belongs to,
// or nil if r has been closed.
func (r *Reference) Context() *Context {
	return r.c
}

// context returns r's Context, panicking if r has been closed.
func (r *Reference) context() *Context {
	if r == nil || r.c == nil {
		panic("duk: use of closed Reference")
	}
	return r.c
}

// checkContext panics if r does not belong to c.
func (r *Reference) checkContext(c *Context) {
	if rc := r.context(); rc != c {
		panic(fmt.Sprintf("duk: Reference from %v used with %v", rc, c))
	}
}

// push pushes the referenced value onto the stack.
func (r *Reference) push() {
	s := r.context().s
	s.PushHeapStash()
	s.GetPropIndex(-1, r.slot)
	s.Remove(-2)
}

// with pushes the referenced value, calls f, then pops the stack
// back to where it was before the push.
// Values f leaves on the stack are discarded.
func (r *Reference) with(f func()) {
	s := r.context().s
	g := s.Guard()
	defer g.Release()
	r.push()
	f()
}

// Close releases the referenced value.
// Calling Close more than once, or after the Context is closed, is a no-op.
func (r *Reference) Close() {
	if r == nil || r.c == nil {
		return
	}
	c := r.c
	r.c = nil
	if c.s.Closed() {
		return
	}
	s := c.s
	s.PushHeapStash()
	s.DelPropIndex(-1, r.slot)
	s.Pop()
}

// String returns a human-readable rendering of the referenced value.
func (r *Reference) String() string {
	if r == nil || r.c == nil {
		return "<closed>"
	}
	if r.c.s.Closed() {
		return "<context closed>"
	}
	return FormatValue(r.Value())
}

// Value returns a snapshot of the referenced value.
func (r *Reference) Value() Value {
	var v Value
	r.with(func() {
		v = valueAt(r.c, -1)
	})
	return v
}

// Decode converts the referenced value into the Go value pointed to by target.
// Conversion follows the rules documented on [*Context.Wrap] in reverse.
// In addition, an "any" target receives
// nil, bool, float64, string, []byte, []any, or map[string]any.
func (r *Reference) Decode(target any) error {
	var err error
	r.with(func() {
		err = r.c.newDecoder().decode(-1, target)
	})
	return err
}

// Get returns a [Reference] to the property of the referenced value named by key.
// key is converted like any other argument.
// Getters are run in protected mode: if one throws, Get returns a [*JsError].
func (r *Reference) Get(ctx context.Context, key any) (*Reference, error) {
	c := r.context()
	defer c.enter(ctx)()
	s := c.s
	var result *Reference
	var err error
	r.with(func() {
		if !s.IsObjectCoercible(-1) {
			err = &JsError{
				Kind:    KindType,
				Message: fmt.Sprintf("cannot read property of %v", s.Type(-1)),
			}
			return
		}
		obj := s.Abs(-1)
		c.pushStashed(stashGetProp)
		s.Dup(obj)
		if err = c.newEncoder().push(key); err != nil {
			err = within(err, "key")
			return
		}
		if s.PCall(2) != nil {
			err = errorAt(c, -1)
			return
		}
		result = c.popReference()
	})
	return result, err
}

// Set assigns value to the property of the referenced value named by key.
// Setters are run in protected mode: if one throws, Set returns a [*JsError].
func (r *Reference) Set(ctx context.Context, key, value any) error {
	c := r.context()
	defer c.enter(ctx)()
	s := c.s
	var err error
	r.with(func() {
		obj := s.Abs(-1)
		c.pushStashed(stashSetProp)
		s.Dup(obj)
		enc := c.newEncoder()
		if err = enc.push(key); err != nil {
			err = within(err, "key")
			return
		}
		if err = enc.push(value); err != nil {
			err = within(err, "value")
			return
		}
		if s.PCall(3) != nil {
			err = errorAt(c, -1)
		}
	})
	return err
}
