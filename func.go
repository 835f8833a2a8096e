// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"duk.256lights.llc/pkg/internal/dukstack"
	"zombiezen.com/go/log"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// hostFunc is a Go function exposed to JavaScript.
type hostFunc struct {
	fn     reflect.Value
	hasCtx bool
	hasErr bool
	// params are the types of the JavaScript-visible parameters.
	// If the function is variadic, the last element is the slice type.
	params   []reflect.Type
	variadic bool
}

func newHostFunc(fn reflect.Value) *hostFunc {
	t := fn.Type()
	hf := &hostFunc{
		fn:       fn,
		variadic: t.IsVariadic(),
	}
	start := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		hf.hasCtx = true
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		hf.params = append(hf.params, t.In(i))
	}
	if n := t.NumOut(); n > 0 && t.Out(n-1) == errorType {
		hf.hasErr = true
	}
	return hf
}

// pushFunc pushes a JavaScript function that calls the Go function fn.
func (c *Context) pushFunc(fn reflect.Value) error {
	hf := newHostFunc(fn)
	s := c.s
	c.pushStashed(stashTrampoline)
	s.PushFunction(func(s *dukstack.Stack) int {
		return c.callHost(s, hf)
	})
	if s.PCall(1) != nil {
		return conversionErrorf("wrap %v: %v", fn.Type(), errorAt(c, -1))
	}
	return nil
}

// callHost runs hf with the arguments on the callee's stack frame
// and pushes a [ok, payload, constructor name] record for the trampoline.
// callHost never panics.
func (c *Context) callHost(s *dukstack.Stack, hf *hostFunc) int {
	results, err := c.invokeHost(s, hf)
	defer func() {
		for _, r := range results {
			if r.Type() == referenceType {
				r.Interface().(*Reference).Close()
			}
		}
	}()

	rec := s.PushArray()
	if err == nil {
		err = c.newEncoder().push(hostResult(results))
		if err == nil {
			s.PutPropIndex(rec, 1)
			s.PushBoolean(true)
			s.PutPropIndex(rec, 0)
			return 1
		}
		err = &JsError{Kind: KindType, Message: err.Error()}
	}

	kind, msg := KindError, err.Error()
	var jsErr *JsError
	if errors.As(err, &jsErr) {
		kind, msg = jsErr.Kind, jsErr.Message
	}
	if log.IsEnabled(log.Debug) {
		log.Debugf(c.currentContext(), "%v: host function %v failed: %v", c, hf.fn.Type(), err)
	}
	s.PushBoolean(false)
	s.PutPropIndex(rec, 0)
	s.PushString(msg)
	s.PutPropIndex(rec, 1)
	s.PushString(kind.constructorName())
	s.PutPropIndex(rec, 2)
	return 1
}

func (c *Context) invokeHost(s *dukstack.Stack, hf *hostFunc) (results []reflect.Value, err error) {
	defer func() {
		if x := recover(); x != nil {
			results = nil
			err = fmt.Errorf("panic: %v", x)
		}
	}()

	nargs := s.Top()
	in := make([]reflect.Value, 0, len(hf.params)+1)
	if hf.hasCtx {
		in = append(in, reflect.ValueOf(c.currentContext()))
	}
	d := c.newDecoder()
	fixed := len(hf.params)
	if hf.variadic {
		fixed--
	}
	for i := range fixed {
		pv := reflect.New(hf.params[i])
		if i < nargs {
			if err := d.decode(dukstack.Index(i), pv.Interface()); err != nil {
				return nil, &JsError{Kind: KindType, Message: within(err, "argument %d", i).Error()}
			}
		}
		in = append(in, pv.Elem())
	}
	if hf.variadic {
		elemType := hf.params[fixed].Elem()
		for i := fixed; i < nargs; i++ {
			pv := reflect.New(elemType)
			if err := d.decode(dukstack.Index(i), pv.Interface()); err != nil {
				return nil, &JsError{Kind: KindType, Message: within(err, "argument %d", i).Error()}
			}
			in = append(in, pv.Elem())
		}
	}

	results = hf.fn.Call(in)
	if hf.hasErr {
		last := results[len(results)-1]
		results = results[:len(results)-1]
		if !last.IsNil() {
			return results, last.Interface().(error)
		}
	}
	return results, nil
}

// hostResult converts a host function's non-error results
// to the single value returned to JavaScript.
func hostResult(results []reflect.Value) any {
	switch len(results) {
	case 0:
		return Undefined{}
	case 1:
		return results[0].Interface()
	default:
		a := make([]any, len(results))
		for i, r := range results {
			a[i] = r.Interface()
		}
		return a
	}
}
