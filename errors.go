// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

//go:generate go tool stringer -type=ErrorKind -trimprefix=Kind -output=errorkind_string.go

package duk

import (
	"fmt"
	"math"
	"strings"

	"duk.256lights.llc/pkg/internal/dukstack"
)

// ErrorKind is the class of a thrown JavaScript value.
type ErrorKind int

// Error kinds.
const (
	// KindGeneric is used for thrown values that are not Error instances,
	// as in `throw "foo"`.
	KindGeneric ErrorKind = iota
	KindError
	KindEval
	KindRange
	KindReference
	KindSyntax
	KindType
	KindURI
)

// constructorName returns the name of the global constructor for the kind,
// or the empty string for [KindGeneric].
func (k ErrorKind) constructorName() string {
	switch k {
	case KindError:
		return "Error"
	case KindEval:
		return "EvalError"
	case KindRange:
		return "RangeError"
	case KindReference:
		return "ReferenceError"
	case KindSyntax:
		return "SyntaxError"
	case KindType:
		return "TypeError"
	case KindURI:
		return "URIError"
	default:
		return ""
	}
}

func kindFromCode(code dukstack.ErrorCode) ErrorKind {
	switch code {
	case dukstack.ErrNone:
		return KindGeneric
	case dukstack.ErrError:
		return KindError
	case dukstack.ErrEval:
		return KindEval
	case dukstack.ErrRange:
		return KindRange
	case dukstack.ErrReference:
		return KindReference
	case dukstack.ErrSyntax:
		return KindSyntax
	case dukstack.ErrType:
		return KindType
	case dukstack.ErrURI:
		return KindURI
	default:
		panic(fmt.Sprintf("duk: unknown error code %d", code))
	}
}

// JsError is a value thrown by JavaScript code.
// Empty strings and a zero LineNumber mean the information was not available.
type JsError struct {
	Kind       ErrorKind
	Message    string
	FileName   string
	LineNumber int
	Stack      string
}

// Error formats the error like a JavaScript engine would,
// e.g. "TypeError: undefined not callable (at foo.js:3)".
func (e *JsError) Error() string {
	sb := new(strings.Builder)
	if name := e.Kind.constructorName(); name != "" {
		sb.WriteString(name)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.FileName != "" {
		sb.WriteString(" (at ")
		sb.WriteString(e.FileName)
		if e.LineNumber > 0 {
			fmt.Fprintf(sb, ":%d", e.LineNumber)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// errorAt extracts a [*JsError] from the thrown value at idx.
// Properties are read in protected mode:
// a property whose getter throws is treated as absent.
// The stack height is unchanged.
func errorAt(c *Context, idx dukstack.Index) *JsError {
	s := c.s
	idx = s.Abs(idx)
	g := s.Guard()
	defer g.Release()

	e := &JsError{Kind: kindFromCode(s.ErrorCode(idx))}
	isObject := s.Type(idx) == dukstack.TypeObject
	hasMessage := false
	if isObject {
		if c.getPropString(idx, "message") == nil && s.Type(-1) != dukstack.TypeUndefined {
			e.Message = s.SafeString(-1)
			hasMessage = true
		}
		s.Pop()
	}
	if !hasMessage {
		s.Dup(idx)
		e.Message = s.SafeString(-1)
		s.Pop()
	}
	if !isObject {
		return e
	}
	e.FileName = stringProp(c, idx, "fileName")
	e.Stack = stringProp(c, idx, "stack")
	if c.getPropString(idx, "lineNumber") == nil && s.Type(-1) == dukstack.TypeNumber && !s.IsNaN(-1) {
		if n := s.Number(-1); n > 0 && n <= math.MaxInt32 {
			e.LineNumber = int(n)
		}
	}
	s.Pop()
	return e
}

// stringProp returns the string form of obj[key],
// or the empty string if the property is absent or its getter throws.
func stringProp(c *Context, obj dukstack.Index, key string) string {
	s := c.s
	defer s.Pop()
	if c.getPropString(obj, key) != nil {
		return ""
	}
	switch s.Type(-1) {
	case dukstack.TypeUndefined, dukstack.TypeNull:
		return ""
	}
	return s.SafeString(-1)
}

// ConversionError is returned when a value cannot be converted
// between its Go and JavaScript representations.
type ConversionError struct {
	path []string
	msg  string
}

func (e *ConversionError) Error() string {
	if len(e.path) == 0 {
		return "duk: " + e.msg
	}
	return "duk: " + strings.Join(e.path, ": ") + ": " + e.msg
}

func conversionErrorf(format string, args ...any) *ConversionError {
	return &ConversionError{msg: fmt.Sprintf(format, args...)}
}

// within prefixes the error location with an element.
// Errors that are not [*ConversionError] are returned as-is.
func within(err error, format string, args ...any) error {
	ce, ok := err.(*ConversionError)
	if !ok {
		return err
	}
	ce.path = append([]string{fmt.Sprintf(format, args...)}, ce.path...)
	return ce
}
