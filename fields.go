// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"reflect"
	"strings"
	"sync"
)

type field struct {
	name      string
	index     int
	omitEmpty bool
	required  bool
}

type structFields struct {
	list  []field
	tuple bool
}

var fieldCache sync.Map // map[reflect.Type]*structFields

// cachedFields returns the encoded fields of the struct type t
// in declaration order.
func cachedFields(t reflect.Type) *structFields {
	if f, ok := fieldCache.Load(t); ok {
		return f.(*structFields)
	}
	f, _ := fieldCache.LoadOrStore(t, typeFields(t))
	return f.(*structFields)
}

func typeFields(t reflect.Type) *structFields {
	sf := new(structFields)
	for i := range t.NumField() {
		f := t.Field(i)
		tag, hasTag := f.Tag.Lookup("duk")
		name, opts, _ := strings.Cut(tag, ",")
		if f.Name == "_" {
			if hasOption(opts, "tuple") {
				sf.tuple = true
			}
			continue
		}
		if !f.IsExported() || name == "-" && opts == "" {
			continue
		}
		if !hasTag || name == "" {
			name = f.Name
		}
		sf.list = append(sf.list, field{
			name:      name,
			index:     i,
			omitEmpty: hasOption(opts, "omitempty"),
			required:  hasOption(opts, "required"),
		})
	}
	return sf
}

func hasOption(opts string, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}
