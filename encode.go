// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"encoding"
	"reflect"
	"strconv"
	"unicode/utf8"

	"duk.256lights.llc/pkg/internal/xmaps"
)

var (
	valueType     = reflect.TypeFor[Value]()
	referenceType = reflect.TypeFor[*Reference]()
	textMarshaler = reflect.TypeFor[encoding.TextMarshaler]()
)

// encoder pushes Go values onto a Context's stack.
type encoder struct {
	c *Context
}

func (c *Context) newEncoder() *encoder {
	return &encoder{c: c}
}

// push converts v and pushes it onto the stack.
// On failure, push returns a [*ConversionError] and leaves the stack unchanged.
func (e *encoder) push(v any) error {
	g := e.c.s.Guard()
	defer g.Release()
	if err := e.encodeValue(reflect.ValueOf(v)); err != nil {
		return err
	}
	g.Push()
	return nil
}

// encodeValue pushes exactly one value on success.
func (e *encoder) encodeValue(rv reflect.Value) error {
	s := e.c.s
	if !s.Reserve(4) {
		return conversionErrorf("value nested too deeply")
	}
	if !rv.IsValid() {
		s.PushNull()
		return nil
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			s.PushNull()
			return nil
		}
		return e.encodeValue(rv.Elem())
	}

	switch t := rv.Type(); {
	case t == referenceType:
		ref := rv.Interface().(*Reference)
		if ref == nil {
			s.PushNull()
			return nil
		}
		ref.checkContext(e.c)
		ref.push()
		return nil
	case t.Implements(valueType):
		pushValue(s, rv.Interface().(Value))
		return nil
	}
	if vi := lookupVariant(rv.Type()); vi != nil {
		return e.encodeVariant(vi, rv)
	}
	return e.encodeKind(rv)
}

func (e *encoder) encodeKind(rv reflect.Value) error {
	s := e.c.s
	switch rv.Kind() {
	case reflect.Bool:
		s.PushBoolean(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s.PushNumber(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		s.PushNumber(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		s.PushNumber(rv.Float())
	case reflect.String:
		str := rv.String()
		if !utf8.ValidString(str) {
			return conversionErrorf("string is not valid UTF-8")
		}
		s.PushString(str)
	case reflect.Slice:
		if rv.IsNil() {
			s.PushNull()
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			s.PushBytes(rv.Bytes())
			return nil
		}
		return e.encodeArray(rv)
	case reflect.Array:
		return e.encodeArray(rv)
	case reflect.Map:
		if rv.IsNil() {
			s.PushNull()
			return nil
		}
		return e.encodeMap(rv)
	case reflect.Struct:
		fields := cachedFields(rv.Type())
		if fields.tuple {
			return e.encodeTuple(rv, fields)
		}
		return e.encodeStruct(rv, fields)
	case reflect.Pointer:
		if rv.IsNil() {
			s.PushNull()
			return nil
		}
		return e.encodeValue(rv.Elem())
	case reflect.Func:
		if rv.IsNil() {
			s.PushNull()
			return nil
		}
		return e.c.pushFunc(rv)
	default:
		return conversionErrorf("cannot convert %v to JavaScript", rv.Type())
	}
	return nil
}

func (e *encoder) encodeArray(rv reflect.Value) error {
	s := e.c.s
	arr := s.PushArray()
	for i := range rv.Len() {
		if err := e.encodeValue(rv.Index(i)); err != nil {
			return within(err, "element %d", i)
		}
		s.PutPropIndex(arr, uint32(i))
	}
	return nil
}

func (e *encoder) encodeTuple(rv reflect.Value, fields *structFields) error {
	s := e.c.s
	arr := s.PushArray()
	for i, f := range fields.list {
		if err := e.encodeValue(rv.Field(f.index)); err != nil {
			return within(err, "field %s", f.name)
		}
		s.PutPropIndex(arr, uint32(i))
	}
	return nil
}

func (e *encoder) encodeStruct(rv reflect.Value, fields *structFields) error {
	s := e.c.s
	obj := s.PushObject()
	for _, f := range fields.list {
		fv := rv.Field(f.index)
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		if err := e.encodeValue(fv); err != nil {
			return within(err, "field %s", f.name)
		}
		s.PutPropString(obj, f.name)
	}
	return nil
}

func (e *encoder) encodeMap(rv reflect.Value) error {
	entries := make(map[string]reflect.Value, rv.Len())
	for iter := rv.MapRange(); iter.Next(); {
		k, err := mapKeyString(iter.Key())
		if err != nil {
			return err
		}
		if _, dup := entries[k]; dup {
			return conversionErrorf("duplicate map key %q", k)
		}
		entries[k] = iter.Value()
	}

	s := e.c.s
	obj := s.PushObject()
	for k, v := range xmaps.Sorted(entries) {
		if err := e.encodeValue(v); err != nil {
			return within(err, "key %q", k)
		}
		s.PutPropString(obj, k)
	}
	return nil
}

func mapKeyString(k reflect.Value) (string, error) {
	if k.Type().Implements(textMarshaler) {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", conversionErrorf("nil map key")
		}
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", conversionErrorf("map key: %v", err)
		}
		return string(text), nil
	}
	switch k.Kind() {
	case reflect.String:
		if !utf8.ValidString(k.String()) {
			return "", conversionErrorf("map key is not valid UTF-8")
		}
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", conversionErrorf("unsupported map key type %v", k.Type())
	}
}

func (e *encoder) encodeVariant(vi *variantInfo, rv reflect.Value) error {
	s := e.c.s
	if vi.shape == unitVariant {
		s.PushString(vi.name)
		return nil
	}
	obj := s.PushObject()
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return conversionErrorf("nil %s variant", vi.name)
		}
		rv = rv.Elem()
	}
	var err error
	switch vi.shape {
	case tupleVariant:
		if rv.Kind() == reflect.Array {
			err = e.encodeArray(rv)
		} else {
			err = e.encodeTuple(rv, cachedFields(rv.Type()))
		}
	case recordVariant:
		err = e.encodeStruct(rv, cachedFields(rv.Type()))
	default:
		err = e.encodeKind(rv)
	}
	if err != nil {
		return within(err, "variant %s", vi.name)
	}
	s.PutPropString(obj, vi.name)
	return nil
}
