// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"context"

	"zombiezen.com/go/log"
)

type callMode int

const (
	callPlain callMode = iota
	callWithThis
	callMethod
	callNew
)

// Call calls the referenced function with undefined as the this binding
// and returns a [Reference] to its return value.
//
// Each argument is converted as documented on [*Context.Wrap].
// If an argument cannot be converted,
// Call returns a [*ConversionError] without calling the function.
// If the function throws, Call returns a [*JsError].
func (r *Reference) Call(ctx context.Context, args ...any) (*Reference, error) {
	return r.invoke(ctx, callPlain, nil, "", args)
}

// CallWithThis is like [*Reference.Call] but uses this as the this binding.
func (r *Reference) CallWithThis(ctx context.Context, this any, args ...any) (*Reference, error) {
	return r.invoke(ctx, callWithThis, this, "", args)
}

// CallMethod calls the method with the given name on the referenced value,
// using the referenced value as the this binding.
func (r *Reference) CallMethod(ctx context.Context, name string, args ...any) (*Reference, error) {
	return r.invoke(ctx, callMethod, nil, name, args)
}

// New calls the referenced function as a constructor
// and returns a [Reference] to the constructed object.
func (r *Reference) New(ctx context.Context, args ...any) (*Reference, error) {
	return r.invoke(ctx, callNew, nil, "", args)
}

func (r *Reference) invoke(ctx context.Context, mode callMode, this any, name string, args []any) (*Reference, error) {
	c := r.context()
	defer c.enter(ctx)()
	s := c.s

	var result *Reference
	var err error
	r.with(func() {
		target := s.Abs(-1)
		enc := c.newEncoder()
		switch mode {
		case callPlain, callNew:
			s.Dup(target)
		case callWithThis:
			s.Dup(target)
			if err = enc.push(this); err != nil {
				err = within(err, "this")
				return
			}
		case callMethod:
			s.PushString(name)
		}
		for i, arg := range args {
			if err = enc.push(arg); err != nil {
				err = within(err, "argument %d", i)
				return
			}
		}

		var callErr error
		switch mode {
		case callPlain:
			callErr = s.PCall(len(args))
		case callWithThis:
			callErr = s.PCallMethod(len(args))
		case callMethod:
			callErr = s.PCallProp(target, len(args))
		case callNew:
			callErr = s.PNew(len(args))
		}
		if callErr != nil {
			jsErr := errorAt(c, -1)
			if log.IsEnabled(log.Debug) {
				log.Debugf(c.currentContext(), "%v: call threw: %v", c, jsErr)
			}
			err = jsErr
			return
		}
		result = c.popReference()
	})
	return result, err
}
