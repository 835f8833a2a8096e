// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"duk.256lights.llc/pkg/internal/dukstack"
	"duk.256lights.llc/pkg/internal/xmaps"
	"github.com/go-json-experiment/json/jsontext"
)

// Value is a snapshot of a JavaScript value.
// Values are plain Go data: they hold no reference into the VM
// and can outlive the [Context] they came from.
//
// The concrete types are
// [Undefined], [Null], [Boolean], [Number], [String],
// [Array], [Object], [Bytes], and [Foreign].
type Value interface {
	value()
}

// Undefined is the JavaScript undefined value.
type Undefined struct{}

// Null is the JavaScript null value.
type Null struct{}

// Boolean is a JavaScript boolean.
type Boolean bool

// Number is a JavaScript number.
type Number float64

// String is a JavaScript string.
type String string

// Array is a JavaScript array.
type Array []Value

// Object is a JavaScript object's own enumerable properties.
// Pushing an Object onto the stack sets its properties in sorted key order.
type Object map[string]Value

// Bytes is a Duktape plain buffer.
type Bytes []byte

// Foreign is a VM value with no Go counterpart, like a raw pointer.
// The string is a short tag describing the value.
// Foreign values are pushed as undefined.
type Foreign string

func (Undefined) value() {}
func (Null) value()      {}
func (Boolean) value()   {}
func (Number) value()    {}
func (String) value()    {}
func (Array) value()     {}
func (Object) value()    {}
func (Bytes) value()     {}
func (Foreign) value()   {}

// String returns a short description of the value.
func (v Undefined) String() string { return "undefined" }

// String returns a short description of the value.
func (v Null) String() string { return "null" }

// Foreign tags.
const (
	foreignPointer   Foreign = "pointer"
	foreignLightFunc Foreign = "lightfunc"
	foreignCycle     Foreign = "cycle"
	foreignThrows    Foreign = "throws"
	foreignTooDeep   Foreign = "too deep"
	foreignUnknown   Foreign = "unknown"
)

// valueAt converts the value at idx into a [Value].
// The conversion is total: unrepresentable values become [Foreign],
// as do properties whose getters throw.
// The stack height is unchanged.
func valueAt(c *Context, idx dukstack.Index) Value {
	return (&valueReader{c: c}).read(c.s.Abs(idx))
}

type valueReader struct {
	c *Context
	// path is the set of objects currently being converted.
	path map[uintptr]struct{}
}

func (r *valueReader) read(idx dukstack.Index) Value {
	s := r.c.s
	switch tp := s.Type(idx); tp {
	case dukstack.TypeUndefined, dukstack.TypeNone:
		return Undefined{}
	case dukstack.TypeNull:
		return Null{}
	case dukstack.TypeBoolean:
		return Boolean(s.Boolean(idx))
	case dukstack.TypeNumber:
		return Number(s.Number(idx))
	case dukstack.TypeString:
		return String(s.String(idx))
	case dukstack.TypeBuffer:
		return Bytes(s.Bytes(idx))
	case dukstack.TypePointer:
		return foreignPointer
	case dukstack.TypeLightFunc:
		return foreignLightFunc
	case dukstack.TypeObject:
		ptr := s.HeapPtr(idx)
		if _, visiting := r.path[ptr]; visiting {
			return foreignCycle
		}
		if !s.Reserve(8) {
			return foreignTooDeep
		}
		if r.path == nil {
			r.path = make(map[uintptr]struct{})
		}
		r.path[ptr] = struct{}{}
		defer delete(r.path, ptr)

		if s.IsArray(idx) {
			return r.readArray(idx)
		}
		return r.readObject(idx)
	default:
		return foreignUnknown
	}
}

func (r *valueReader) readArray(idx dukstack.Index) Array {
	s := r.c.s
	n := s.Length(idx)
	arr := make(Array, 0, n)
	for i := range n {
		if r.c.getPropIndex(idx, uint32(i)) != nil {
			arr = append(arr, foreignThrows)
		} else {
			arr = append(arr, r.read(s.Abs(-1)))
		}
		s.Pop()
	}
	return arr
}

func (r *valueReader) readObject(idx dukstack.Index) Value {
	s := r.c.s
	keys, err := r.c.ownKeys(idx)
	if err != nil {
		return foreignThrows
	}
	obj := make(Object, len(keys))
	for _, key := range keys {
		if r.c.getPropString(idx, key) != nil {
			obj[key] = foreignThrows
		} else {
			obj[key] = r.read(s.Abs(-1))
		}
		s.Pop()
	}
	return obj
}

// pushValue pushes v onto the stack.
// A nil Value is pushed as undefined.
func pushValue(s *dukstack.Stack, v Value) {
	switch v := v.(type) {
	case nil, Undefined, Foreign:
		s.PushUndefined()
	case Null:
		s.PushNull()
	case Boolean:
		s.PushBoolean(bool(v))
	case Number:
		s.PushNumber(float64(v))
	case String:
		s.PushString(string(v))
	case Bytes:
		s.PushBytes(v)
	case Array:
		arr := s.PushArray()
		for i, elem := range v {
			pushValue(s, elem)
			s.PutPropIndex(arr, uint32(i))
		}
	case Object:
		obj := s.PushObject()
		for k, elem := range xmaps.Sorted(v) {
			pushValue(s, elem)
			s.PutPropString(obj, k)
		}
	default:
		panic(fmt.Sprintf("duk: unhandled Value type %T", v))
	}
}

// MarshalJSONTo writes v as JSON.
// Undefined, Foreign values, and non-finite numbers are written as null.
// Bytes are written as a base64 string.
func (v Undefined) MarshalJSONTo(enc *jsontext.Encoder) error {
	return enc.WriteToken(jsontext.Null)
}

// MarshalJSONTo writes null.
func (v Null) MarshalJSONTo(enc *jsontext.Encoder) error {
	return enc.WriteToken(jsontext.Null)
}

// MarshalJSONTo writes null.
func (v Foreign) MarshalJSONTo(enc *jsontext.Encoder) error {
	return enc.WriteToken(jsontext.Null)
}

// MarshalJSONTo writes a JSON boolean.
func (v Boolean) MarshalJSONTo(enc *jsontext.Encoder) error {
	return enc.WriteToken(jsontext.Bool(bool(v)))
}

// MarshalJSONTo writes a JSON number, or null if v is not finite.
func (v Number) MarshalJSONTo(enc *jsontext.Encoder) error {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return enc.WriteToken(jsontext.Null)
	}
	return enc.WriteToken(jsontext.Float(f))
}

// MarshalJSONTo writes a JSON string.
func (v String) MarshalJSONTo(enc *jsontext.Encoder) error {
	return enc.WriteToken(jsontext.String(string(v)))
}

// MarshalJSONTo writes a base64-encoded JSON string.
func (v Bytes) MarshalJSONTo(enc *jsontext.Encoder) error {
	return enc.WriteToken(jsontext.String(base64.StdEncoding.EncodeToString(v)))
}

// MarshalJSONTo writes a JSON array.
func (v Array) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return err
	}
	for _, elem := range v {
		if err := marshalValueJSON(enc, elem); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndArray)
}

// MarshalJSONTo writes a JSON object with keys in sorted order.
func (v Object) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for k, elem := range xmaps.Sorted(v) {
		if err := enc.WriteToken(jsontext.String(k)); err != nil {
			return err
		}
		if err := marshalValueJSON(enc, elem); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

func marshalValueJSON(enc *jsontext.Encoder, v Value) error {
	if v == nil {
		return enc.WriteToken(jsontext.Null)
	}
	return v.(interface {
		MarshalJSONTo(*jsontext.Encoder) error
	}).MarshalJSONTo(enc)
}

// FormatValue returns a human-readable rendering of v
// similar to what a JavaScript console prints.
// Strings at the top level are returned without quotes.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case nil, Undefined:
		return "undefined"
	case String:
		return string(v)
	case Number:
		return formatNumber(float64(v))
	case Foreign:
		return "[" + string(v) + "]"
	}
	buf := new(bytes.Buffer)
	if err := marshalValueJSON(jsontext.NewEncoder(buf), v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
