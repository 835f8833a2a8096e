// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

// Package dukstack provides checked access to a Duktape value stack.
//
// Every method maps to one Duktape C API call.
// Methods that take an [Index] panic if the index is not acceptable,
// since an out-of-range index is a programming error
// and Duktape's own behavior in that case is undefined or fatal.
package dukstack

import (
	"fmt"
	"unsafe"

	"gopkg.in/olebedev/go-duktape.v3"
)

// Type is an enumeration of Duktape value types.
type Type int

// Value types. The numeric values match DUK_TYPE_*.
const (
	TypeNone Type = iota
	TypeUndefined
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeObject
	TypeBuffer
	TypePointer
	TypeLightFunc
)

// String returns the name of the type.
func (tp Type) String() string {
	switch tp {
	case TypeNone:
		return "none"
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeBuffer:
		return "buffer"
	case TypePointer:
		return "pointer"
	case TypeLightFunc:
		return "lightfunc"
	default:
		return fmt.Sprintf("dukstack.Type(%d)", int(tp))
	}
}

// ErrorCode is the error class of a thrown value, as reported by duk_get_error_code.
type ErrorCode int

// Error codes. The numeric values match DUK_ERR_*.
const (
	ErrNone ErrorCode = iota
	ErrError
	ErrEval
	ErrRange
	ErrReference
	ErrSyntax
	ErrType
	ErrURI
)

// Index addresses a slot on the value stack of the current activation.
// A non-negative index is an absolute position from the bottom of the frame.
// A negative index is relative to the top: -1 is the topmost value.
//
// Relative indices shift whenever values are pushed or popped,
// so any operation that changes the stack height
// must resolve its indices with [*Stack.Abs] first.
type Index int

// IsRelative reports whether idx is relative to the stack top.
func (idx Index) IsRelative() bool {
	return idx < 0
}

// Stack is a handle to a Duktape thread's value stack.
// A Stack is not safe to use from multiple goroutines concurrently.
type Stack struct {
	d     *duktape.Context
	owned bool
}

// New creates a new Duktape heap and returns its value stack.
// The heap's fatal error handler aborts the process:
// Duktape offers no way to unwind past it.
func New() *Stack {
	d := duktape.New()
	if d == nil {
		panic("dukstack: could not allocate heap")
	}
	return &Stack{d: d, owned: true}
}

// wrap returns a Stack for a context passed to a Go function callback.
// The returned Stack does not own the heap.
func wrap(d *duktape.Context) *Stack {
	return &Stack{d: d}
}

// Close destroys the heap if s created it.
// Calling Close more than once is a no-op.
func (s *Stack) Close() {
	if s.d == nil {
		return
	}
	if s.owned {
		s.d.DestroyHeap()
	}
	s.d = nil
}

// Closed reports whether s has been closed.
func (s *Stack) Closed() bool {
	return s.d == nil
}

func (s *Stack) ctx() *duktape.Context {
	if s.d == nil {
		panic("dukstack: use of closed stack")
	}
	return s.d
}

// Top returns the number of values in the current frame.
func (s *Stack) Top() int {
	return s.ctx().GetTop()
}

// Abs converts idx into an equivalent absolute index.
// Abs panics if idx does not refer to an existing value.
func (s *Stack) Abs(idx Index) Index {
	top := s.Top()
	switch {
	case idx >= 0 && int(idx) < top:
		return idx
	case idx < 0 && -int(idx) <= top:
		return Index(top + int(idx))
	default:
		panic(fmt.Sprintf("dukstack: unacceptable index %d (top=%d)", idx, top))
	}
}

// Valid reports whether idx refers to an existing value.
func (s *Stack) Valid(idx Index) bool {
	top := s.Top()
	if idx < 0 {
		return -int(idx) <= top
	}
	return int(idx) < top
}

func (s *Stack) checkElems(n int) {
	if n < 0 || s.Top() < n {
		panic("dukstack: not enough elements in the stack")
	}
}

// Reserve ensures there is room to push n more values,
// growing the value stack if needed.
// It reports false if the stack cannot grow.
// Only a small number of pushes are guaranteed without a reservation.
func (s *Stack) Reserve(n int) bool {
	return s.ctx().CheckStack(n)
}

// SetTop sets the stack height to n,
// pushing undefined values or popping values as needed.
func (s *Stack) SetTop(n int) {
	if n < 0 {
		panic("dukstack: negative stack top")
	}
	s.ctx().SetTop(n)
}

// Pop pops the topmost value.
func (s *Stack) Pop() {
	s.checkElems(1)
	s.d.Pop()
}

// PopN pops n values.
func (s *Stack) PopN(n int) {
	if n == 0 {
		return
	}
	s.checkElems(n)
	s.d.PopN(n)
}

// Dup pushes a copy of the value at idx.
func (s *Stack) Dup(idx Index) {
	idx = s.Abs(idx)
	s.d.Dup(int(idx))
}

// Remove removes the value at idx, shifting down the values above it.
func (s *Stack) Remove(idx Index) {
	idx = s.Abs(idx)
	s.d.Remove(int(idx))
}

// Type returns the type of the value at idx,
// or [TypeNone] if idx does not refer to a value.
func (s *Stack) Type(idx Index) Type {
	if !s.Valid(idx) {
		return TypeNone
	}
	return Type(int(s.d.GetType(int(idx))))
}

// IsArray reports whether the value at idx is an Array object.
func (s *Stack) IsArray(idx Index) bool {
	idx = s.Abs(idx)
	return s.d.IsArray(int(idx))
}

// IsCallable reports whether the value at idx is a function.
func (s *Stack) IsCallable(idx Index) bool {
	idx = s.Abs(idx)
	return s.d.IsCallable(int(idx))
}

// IsNaN reports whether the value at idx is a NaN number.
func (s *Stack) IsNaN(idx Index) bool {
	idx = s.Abs(idx)
	return s.d.IsNan(int(idx))
}

// IsObjectCoercible reports whether property access on the value at idx is allowed
// (i.e. it is neither undefined nor null).
func (s *Stack) IsObjectCoercible(idx Index) bool {
	idx = s.Abs(idx)
	return s.d.IsObjectCoercible(int(idx))
}

// Boolean returns the boolean at idx, or false if it is not a boolean.
func (s *Stack) Boolean(idx Index) bool {
	idx = s.Abs(idx)
	return s.d.GetBoolean(int(idx))
}

// Number returns the number at idx, or NaN if it is not a number.
func (s *Stack) Number(idx Index) float64 {
	idx = s.Abs(idx)
	return s.d.GetNumber(int(idx))
}

// String returns the string at idx without coercion.
// The bytes are returned as stored by Duktape and may not be valid UTF-8.
func (s *Stack) String(idx Index) string {
	idx = s.Abs(idx)
	return s.d.GetString(int(idx))
}

// Bytes returns a copy of the plain buffer at idx.
func (s *Stack) Bytes(idx Index) []byte {
	idx = s.Abs(idx)
	ptr, n := s.d.GetBuffer(int(idx))
	if n == 0 || ptr == nil {
		return []byte{}
	}
	return append([]byte(nil), unsafe.Slice((*byte)(ptr), n)...)
}

// Length returns the "length" of the value at idx.
func (s *Stack) Length(idx Index) int {
	idx = s.Abs(idx)
	return s.d.GetLength(int(idx))
}

// HeapPtr returns an identity for the heap-allocated value at idx,
// or zero for primitive values.
// The identity is only stable while the value is reachable.
func (s *Stack) HeapPtr(idx Index) uintptr {
	idx = s.Abs(idx)
	return uintptr(s.d.GetHeapptr(int(idx)))
}

// PushUndefined pushes undefined.
func (s *Stack) PushUndefined() {
	s.ctx().PushUndefined()
}

// PushNull pushes null.
func (s *Stack) PushNull() {
	s.ctx().PushNull()
}

// PushBoolean pushes a boolean.
func (s *Stack) PushBoolean(b bool) {
	s.ctx().PushBoolean(b)
}

// PushNumber pushes a number.
func (s *Stack) PushNumber(n float64) {
	s.ctx().PushNumber(n)
}

// PushString pushes a string.
func (s *Stack) PushString(str string) {
	s.ctx().PushString(str)
}

// PushBytes pushes a fixed plain buffer holding a copy of b.
func (s *Stack) PushBytes(b []byte) {
	ptr := s.ctx().PushFixedBuffer(len(b))
	if len(b) > 0 {
		copy(unsafe.Slice((*byte)(ptr), len(b)), b)
	}
}

// PushObject pushes a new empty object and returns its absolute index.
func (s *Stack) PushObject() Index {
	return Index(s.ctx().PushObject())
}

// PushArray pushes a new empty array and returns its absolute index.
func (s *Stack) PushArray() Index {
	return Index(s.ctx().PushArray())
}

// PushGlobalObject pushes the global object.
func (s *Stack) PushGlobalObject() {
	s.ctx().PushGlobalObject()
}

// PushHeapStash pushes the heap stash,
// an object shared by all threads of the heap
// that script code cannot reach.
func (s *Stack) PushHeapStash() {
	s.ctx().PushHeapStash()
}

// Function is a Go function callable from script.
// It receives a Stack for the callee's frame holding only its arguments
// and returns the number of values it left on the stack to return (0 or 1).
// A Function must not panic: the panic would cross C stack frames.
type Function func(s *Stack) int

// PushFunction pushes a function that calls f with a variable number of arguments.
func (s *Stack) PushFunction(f Function) {
	if f == nil {
		panic("dukstack: nil Function")
	}
	s.ctx().PushGoFunction(func(d *duktape.Context) int {
		return f(wrap(d))
	})
}

// GetPropIndex pushes obj[i] and reports whether the property exists.
func (s *Stack) GetPropIndex(obj Index, i uint32) bool {
	obj = s.Abs(obj)
	return s.d.GetPropIndex(int(obj), uint(i))
}

// GetPropString pushes obj[key] and reports whether the property exists.
// The value at obj must be object coercible.
func (s *Stack) GetPropString(obj Index, key string) bool {
	obj = s.Abs(obj)
	return s.d.GetPropString(int(obj), key)
}

// PutPropIndex pops the top value and assigns it to obj[i].
func (s *Stack) PutPropIndex(obj Index, i uint32) bool {
	obj = s.Abs(obj)
	s.checkElems(1)
	return s.d.PutPropIndex(int(obj), uint(i))
}

// PutPropString pops the top value and assigns it to obj[key].
func (s *Stack) PutPropString(obj Index, key string) bool {
	obj = s.Abs(obj)
	s.checkElems(1)
	return s.d.PutPropString(int(obj), key)
}

// HasPropString reports whether key is in the object at obj.
func (s *Stack) HasPropString(obj Index, key string) bool {
	obj = s.Abs(obj)
	return s.d.HasPropString(int(obj), key)
}

// DelPropIndex deletes obj[i].
func (s *Stack) DelPropIndex(obj Index, i uint32) bool {
	obj = s.Abs(obj)
	return s.d.DelPropIndex(int(obj), uint(i))
}

// EnumOwn pushes an enumerator over the own, enumerable, non-internal
// string-keyed properties of the object at obj.
func (s *Stack) EnumOwn(obj Index) {
	obj = s.Abs(obj)
	s.d.Enum(int(obj), duktape.EnumOwnPropertiesOnly)
}

// Next advances the enumerator at enum.
// If there is another property, Next pushes its key
// (and its value if getValue is true) and returns true.
func (s *Stack) Next(enum Index, getValue bool) bool {
	enum = s.Abs(enum)
	return s.d.Next(int(enum), getValue)
}

// PCall calls the function below nargs arguments in protected mode.
// The function and arguments are replaced by the return value or the thrown value.
func (s *Stack) PCall(nargs int) error {
	s.checkElems(nargs + 1)
	return callResult(s.d.Pcall(nargs))
}

// PCallMethod is like [*Stack.PCall],
// but expects an explicit this binding between the function and the arguments.
func (s *Stack) PCallMethod(nargs int) error {
	s.checkElems(nargs + 2)
	return callResult(s.d.PcallMethod(nargs))
}

// PCallProp calls obj[key] with obj as this,
// where key is the value just below the nargs arguments.
// The key and arguments are replaced by the return value or the thrown value.
func (s *Stack) PCallProp(obj Index, nargs int) error {
	obj = s.Abs(obj)
	s.checkElems(nargs + 1)
	return callResult(s.d.PcallProp(int(obj), nargs))
}

// PNew calls the function below nargs arguments as a constructor in protected mode.
func (s *Stack) PNew(nargs int) error {
	s.checkElems(nargs + 1)
	if err := s.d.Pnew(nargs); err != nil {
		return ErrThrown
	}
	return nil
}

// Compile compiles source as eval code,
// using filename in error messages and stack traces,
// and pushes the resulting function or the thrown value.
func (s *Stack) Compile(source, filename string) error {
	s.PushString(source)
	s.PushString(filename)
	if err := s.d.Pcompile(duktape.CompileEval); err != nil {
		return ErrThrown
	}
	return nil
}

// ErrorCode returns the error class of the value at idx.
func (s *Stack) ErrorCode(idx Index) ErrorCode {
	idx = s.Abs(idx)
	return ErrorCode(s.d.GetErrorCode(int(idx)))
}

// SafeString converts the value at idx to a string
// without letting a throwing toString escape.
// The value on the stack is replaced by the string.
func (s *Stack) SafeString(idx Index) string {
	idx = s.Abs(idx)
	return s.d.SafeToString(int(idx))
}

// ErrThrown is returned by the protected call methods
// when the callee threw.
// The thrown value is on top of the stack.
var ErrThrown = errThrown{}

type errThrown struct{}

func (errThrown) Error() string { return "dukstack: value thrown" }

func callResult(rc int) error {
	if rc != 0 {
		return ErrThrown
	}
	return nil
}
