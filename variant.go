// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"fmt"
	"reflect"
	"sync"
)

// VariantNamer is implemented by variant types
// that want a name other than their Go type name.
type VariantNamer interface {
	VariantName() string
}

type variantShape int

const (
	// unitVariant is a struct with no encoded fields. It is encoded as "Name".
	unitVariant variantShape = iota
	// newtypeVariant is encoded as {Name: payload}.
	newtypeVariant
	// tupleVariant is an array or tuple struct. It is encoded as {Name: [...]}.
	tupleVariant
	// recordVariant is a struct. It is encoded as {Name: {...}}.
	recordVariant
)

type variantInfo struct {
	name  string
	typ   reflect.Type
	shape variantShape
	sum   reflect.Type
}

type sumInfo struct {
	typ    reflect.Type
	byName map[string]*variantInfo
}

var variantRegistry struct {
	mu        sync.RWMutex
	sums      map[reflect.Type]*sumInfo
	byVariant map[reflect.Type]*variantInfo
}

// RegisterSum records that the concrete types of variants
// are the alternatives of the interface type T.
// Values of those types are converted to JavaScript
// as externally tagged variants:
//
//   - A struct with no fields becomes the string "Name".
//   - An array or a tuple struct becomes {"Name": [...]}.
//   - Any other struct becomes {"Name": {...}}.
//   - Any other type becomes {"Name": payload}.
//
// The name is the result of the VariantName method if the type has one,
// or the Go type name otherwise.
// Decoding into a T reverses the conversion.
//
// RegisterSum panics if T is not an interface type,
// if a variant does not implement T,
// or if two variants have the same name.
// Like [encoding/gob.Register], it is intended to be called from init functions.
func RegisterSum[T any](variants ...T) {
	sum := reflect.TypeFor[T]()
	if sum.Kind() != reflect.Interface {
		panic(fmt.Sprintf("duk: RegisterSum: %v is not an interface", sum))
	}
	info := &sumInfo{
		typ:    sum,
		byName: make(map[string]*variantInfo),
	}
	var vs []*variantInfo
	for _, v := range variants {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			panic(fmt.Sprintf("duk: RegisterSum: nil variant for %v", sum))
		}
		vi := &variantInfo{
			name:  variantName(rv),
			typ:   rv.Type(),
			shape: shapeOf(rv.Type()),
			sum:   sum,
		}
		if _, dup := info.byName[vi.name]; dup {
			panic(fmt.Sprintf("duk: RegisterSum: duplicate variant name %q for %v", vi.name, sum))
		}
		info.byName[vi.name] = vi
		vs = append(vs, vi)
	}

	variantRegistry.mu.Lock()
	defer variantRegistry.mu.Unlock()
	if variantRegistry.sums == nil {
		variantRegistry.sums = make(map[reflect.Type]*sumInfo)
		variantRegistry.byVariant = make(map[reflect.Type]*variantInfo)
	}
	variantRegistry.sums[sum] = info
	for _, vi := range vs {
		variantRegistry.byVariant[vi.typ] = vi
	}
}

func variantName(rv reflect.Value) string {
	if namer, ok := rv.Interface().(VariantNamer); ok {
		return namer.VariantName()
	}
	t := rv.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func shapeOf(t reflect.Type) variantShape {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		fields := cachedFields(t)
		switch {
		case fields.tuple:
			return tupleVariant
		case len(fields.list) == 0:
			return unitVariant
		default:
			return recordVariant
		}
	case reflect.Array:
		return tupleVariant
	default:
		return newtypeVariant
	}
}

func lookupSum(t reflect.Type) *sumInfo {
	variantRegistry.mu.RLock()
	defer variantRegistry.mu.RUnlock()
	return variantRegistry.sums[t]
}

func lookupVariant(t reflect.Type) *variantInfo {
	variantRegistry.mu.RLock()
	defer variantRegistry.mu.RUnlock()
	return variantRegistry.byVariant[t]
}
