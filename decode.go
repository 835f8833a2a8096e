// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"encoding"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"duk.256lights.llc/pkg/internal/dukstack"
)

var textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

// decoder reads stack values into Go values.
type decoder struct {
	c *Context
}

func (c *Context) newDecoder() *decoder {
	return &decoder{c: c}
}

// decode converts the value at idx into the value pointed to by target.
// The stack height is unchanged.
func (d *decoder) decode(idx dukstack.Index, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return conversionErrorf("decode target must be a non-nil pointer (got %T)", target)
	}
	s := d.c.s
	if !s.Valid(idx) {
		return conversionErrorf("index %d out of bounds (stack has %d values)", idx, s.Top())
	}
	g := s.Guard()
	defer g.Release()
	return d.decodeValue(s.Abs(idx), rv.Elem())
}

func typeMismatch(want string, got dukstack.Type) *ConversionError {
	return conversionErrorf("expected %s, got %v", want, got)
}

func (d *decoder) decodeValue(idx dukstack.Index, rv reflect.Value) error {
	s := d.c.s
	if !s.Reserve(8) {
		return conversionErrorf("value nested too deeply")
	}
	t := rv.Type()
	tp := s.Type(idx)

	switch {
	case t == referenceType:
		s.Dup(idx)
		rv.Set(reflect.ValueOf(d.c.popReference()))
		return nil
	case t == valueType:
		rv.Set(reflect.ValueOf(valueAt(d.c, idx)))
		return nil
	case t.Kind() != reflect.Interface && t.Implements(valueType):
		v := reflect.ValueOf(valueAt(d.c, idx))
		if v.Type() != t {
			return conversionErrorf("expected %v, got %v", t, tp)
		}
		rv.Set(v)
		return nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if sum := lookupSum(t); sum != nil {
			return d.decodeVariant(idx, rv, sum)
		}
		if t.NumMethod() != 0 {
			return conversionErrorf("cannot decode into %v", t)
		}
		if v := valueToAny(valueAt(d.c, idx)); v != nil {
			rv.Set(reflect.ValueOf(v))
		} else {
			rv.SetZero()
		}
		return nil
	case reflect.Pointer:
		if tp == dukstack.TypeNull || tp == dukstack.TypeUndefined {
			rv.SetZero()
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(t.Elem()))
		}
		return d.decodeValue(idx, rv.Elem())
	case reflect.Bool:
		if tp != dukstack.TypeBoolean {
			return typeMismatch("boolean", tp)
		}
		rv.SetBool(s.Boolean(idx))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := d.integer(idx, tp)
		if err != nil {
			return err
		}
		if n < math.MinInt64 || n >= math.MaxInt64 || rv.OverflowInt(int64(n)) {
			return conversionErrorf("number %g out of range for %v", n, t)
		}
		rv.SetInt(int64(n))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := d.integer(idx, tp)
		if err != nil {
			return err
		}
		if n < 0 || n >= math.MaxUint64 || rv.OverflowUint(uint64(n)) {
			return conversionErrorf("number %g out of range for %v", n, t)
		}
		rv.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		if tp != dukstack.TypeNumber {
			return typeMismatch("number", tp)
		}
		rv.SetFloat(s.Number(idx))
		return nil
	case reflect.String:
		if tp != dukstack.TypeString {
			return typeMismatch("string", tp)
		}
		str := s.String(idx)
		if !utf8.ValidString(str) {
			return conversionErrorf("malformed UTF-8 in string")
		}
		rv.SetString(str)
		return nil
	case reflect.Slice:
		if tp == dukstack.TypeNull || tp == dukstack.TypeUndefined {
			rv.SetZero()
			return nil
		}
		if t.Elem().Kind() == reflect.Uint8 && tp == dukstack.TypeBuffer {
			rv.SetBytes(s.Bytes(idx))
			return nil
		}
		if tp != dukstack.TypeObject || !s.IsArray(idx) {
			return typeMismatch("array", tp)
		}
		n := s.Length(idx)
		rv.Set(reflect.MakeSlice(t, n, n))
		return d.decodeElements(idx, rv)
	case reflect.Array:
		if tp != dukstack.TypeObject || !s.IsArray(idx) {
			return typeMismatch("array", tp)
		}
		if n := s.Length(idx); n != rv.Len() {
			return conversionErrorf("expected array of length %d, got length %d", rv.Len(), n)
		}
		return d.decodeElements(idx, rv)
	case reflect.Map:
		if tp == dukstack.TypeNull || tp == dukstack.TypeUndefined {
			rv.SetZero()
			return nil
		}
		if tp != dukstack.TypeObject {
			return typeMismatch("object", tp)
		}
		return d.decodeMap(idx, rv)
	case reflect.Struct:
		fields := cachedFields(t)
		if fields.tuple {
			return d.decodeTuple(idx, rv, fields)
		}
		if tp != dukstack.TypeObject {
			return typeMismatch("object", tp)
		}
		return d.decodeStruct(idx, rv, fields)
	default:
		return conversionErrorf("cannot decode into %v", t)
	}
}

// integer reads a number to be stored in an integer,
// truncating toward zero.
func (d *decoder) integer(idx dukstack.Index, tp dukstack.Type) (float64, error) {
	if tp != dukstack.TypeNumber {
		return 0, typeMismatch("number", tp)
	}
	n := d.c.s.Number(idx)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, conversionErrorf("cannot store %g in an integer", n)
	}
	return math.Trunc(n), nil
}

// Property values are read in protected mode.
// A getter that throws aborts the conversion with a [*JsError].

func (d *decoder) decodeElements(idx dukstack.Index, rv reflect.Value) error {
	s := d.c.s
	g := s.Guard()
	defer g.Release()
	for i := range rv.Len() {
		if d.c.getPropIndex(idx, uint32(i)) != nil {
			return errorAt(d.c, -1)
		}
		if err := d.decodeValue(s.Abs(-1), rv.Index(i)); err != nil {
			return within(err, "element %d", i)
		}
		s.Pop()
	}
	return nil
}

func (d *decoder) decodeTuple(idx dukstack.Index, rv reflect.Value, fields *structFields) error {
	s := d.c.s
	tp := s.Type(idx)
	if tp != dukstack.TypeObject || !s.IsArray(idx) {
		return typeMismatch("array", tp)
	}
	if n := s.Length(idx); n != len(fields.list) {
		return conversionErrorf("expected array of length %d, got length %d", len(fields.list), n)
	}
	g := s.Guard()
	defer g.Release()
	for i, f := range fields.list {
		if d.c.getPropIndex(idx, uint32(i)) != nil {
			return errorAt(d.c, -1)
		}
		if err := d.decodeValue(s.Abs(-1), rv.Field(f.index)); err != nil {
			return within(err, "field %s", f.name)
		}
		s.Pop()
	}
	return nil
}

func (d *decoder) decodeStruct(idx dukstack.Index, rv reflect.Value, fields *structFields) error {
	s := d.c.s
	g := s.Guard()
	defer g.Release()
	for _, f := range fields.list {
		has, err := d.c.hasPropString(idx, f.name)
		if err != nil {
			return err
		}
		if !has {
			if f.required {
				return conversionErrorf("missing required field %s", f.name)
			}
			continue
		}
		if d.c.getPropString(idx, f.name) != nil {
			return errorAt(d.c, -1)
		}
		if err := d.decodeValue(s.Abs(-1), rv.Field(f.index)); err != nil {
			return within(err, "field %s", f.name)
		}
		s.Pop()
	}
	return nil
}

func (d *decoder) decodeMap(idx dukstack.Index, rv reflect.Value) error {
	s := d.c.s
	t := rv.Type()
	keys, err := d.c.ownKeys(idx)
	if err != nil {
		return err
	}
	if rv.IsNil() {
		rv.Set(reflect.MakeMapWithSize(t, len(keys)))
	}
	g := s.Guard()
	defer g.Release()
	for _, key := range keys {
		if !utf8.ValidString(key) {
			return conversionErrorf("malformed UTF-8 in object key")
		}
		kv, err := parseMapKey(key, t.Key())
		if err != nil {
			return err
		}
		if d.c.getPropString(idx, key) != nil {
			return errorAt(d.c, -1)
		}
		ev := reflect.New(t.Elem()).Elem()
		if err := d.decodeValue(s.Abs(-1), ev); err != nil {
			return within(err, "key %q", key)
		}
		rv.SetMapIndex(kv, ev)
		s.Pop()
	}
	return nil
}

func parseMapKey(key string, t reflect.Type) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(textUnmarshaler) {
		kv := reflect.New(t)
		if err := kv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(key)); err != nil {
			return reflect.Value{}, conversionErrorf("key %q: %v", key, err)
		}
		return kv.Elem(), nil
	}
	kv := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		kv.SetString(key)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, conversionErrorf("key %q is not a valid %v", key, t)
		}
		kv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, conversionErrorf("key %q is not a valid %v", key, t)
		}
		kv.SetUint(n)
	default:
		return reflect.Value{}, conversionErrorf("unsupported map key type %v", t)
	}
	return kv, nil
}

func (d *decoder) decodeVariant(idx dukstack.Index, rv reflect.Value, sum *sumInfo) error {
	s := d.c.s
	switch tp := s.Type(idx); tp {
	case dukstack.TypeString:
		name := s.String(idx)
		vi := sum.byName[name]
		if vi == nil {
			return conversionErrorf("unknown variant %q for %v", name, sum.typ)
		}
		if vi.shape != unitVariant {
			return conversionErrorf("variant %s requires a payload", name)
		}
		rv.Set(newVariant(vi))
		return nil
	case dukstack.TypeObject:
	default:
		return typeMismatch("string or object variant", tp)
	}

	keys, err := d.c.ownKeys(idx)
	if err != nil {
		return err
	}
	switch len(keys) {
	case 0:
		return conversionErrorf("invalid value for %v: variant object has no properties", sum.typ)
	case 1:
	default:
		return conversionErrorf("invalid value for %v: variant object has more than one property", sum.typ)
	}
	name := keys[0]
	g := s.Guard()
	defer g.Release()
	if d.c.getPropString(idx, name) != nil {
		return errorAt(d.c, -1)
	}
	payload := s.Abs(-1)
	vi := sum.byName[name]
	if vi == nil {
		return conversionErrorf("unknown variant %q for %v", name, sum.typ)
	}
	v := newVariant(vi)
	if vi.shape != unitVariant {
		elem := v
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if err := d.decodeValue(payload, elem); err != nil {
			return within(err, "variant %s", name)
		}
	}
	rv.Set(v)
	return nil
}

// newVariant returns a new value of the variant's type.
// Pointer variants are allocated.
func newVariant(vi *variantInfo) reflect.Value {
	if vi.typ.Kind() == reflect.Pointer {
		return reflect.New(vi.typ.Elem())
	}
	return reflect.New(vi.typ).Elem()
}

// valueToAny converts a [Value] to the types produced by decoding into an "any".
func valueToAny(v Value) any {
	switch v := v.(type) {
	case Boolean:
		return bool(v)
	case Number:
		return float64(v)
	case String:
		return string(v)
	case Bytes:
		return []byte(v)
	case Array:
		a := make([]any, len(v))
		for i, elem := range v {
			a[i] = valueToAny(elem)
		}
		return a
	case Object:
		m := make(map[string]any, len(v))
		for k, elem := range v {
			m[k] = valueToAny(elem)
		}
		return m
	default:
		return nil
	}
}
