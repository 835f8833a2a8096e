// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package dukstack

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAbs(t *testing.T) {
	s := New()
	defer s.Close()

	s.PushNumber(1)
	s.PushNumber(2)
	s.PushNumber(3)

	tests := []struct {
		idx  Index
		want Index
	}{
		{0, 0},
		{2, 2},
		{-1, 2},
		{-3, 0},
	}
	for _, test := range tests {
		if got := s.Abs(test.idx); got != test.want {
			t.Errorf("s.Abs(%d) = %d; want %d", test.idx, got, test.want)
		}
	}

	for _, idx := range []Index{3, -4, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("s.Abs(%d) did not panic", idx)
				}
			}()
			s.Abs(idx)
		}()
	}
}

func TestPushRead(t *testing.T) {
	s := New()
	defer s.Close()

	s.PushUndefined()
	s.PushNull()
	s.PushBoolean(true)
	s.PushNumber(4.5)
	s.PushString("héllo")
	s.PushBytes([]byte{1, 2, 3})
	s.PushObject()
	s.PushArray()

	wantTypes := []Type{
		TypeUndefined,
		TypeNull,
		TypeBoolean,
		TypeNumber,
		TypeString,
		TypeBuffer,
		TypeObject,
		TypeObject,
	}
	var gotTypes []Type
	for i := range s.Top() {
		gotTypes = append(gotTypes, s.Type(Index(i)))
	}
	if diff := cmp.Diff(wantTypes, gotTypes); diff != "" {
		t.Errorf("types (-want +got):\n%s", diff)
	}
	if got := s.Type(Index(s.Top())); got != TypeNone {
		t.Errorf("s.Type(top) = %v; want %v", got, TypeNone)
	}

	if !s.Boolean(2) {
		t.Error("s.Boolean(2) = false; want true")
	}
	if got, want := s.Number(3), 4.5; got != want {
		t.Errorf("s.Number(3) = %g; want %g", got, want)
	}
	if got, want := s.String(4), "héllo"; got != want {
		t.Errorf("s.String(4) = %q; want %q", got, want)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, s.Bytes(5)); diff != "" {
		t.Errorf("s.Bytes(5) (-want +got):\n%s", diff)
	}
	if s.IsArray(6) {
		t.Error("s.IsArray(6) = true; want false")
	}
	if !s.IsArray(7) {
		t.Error("s.IsArray(7) = false; want true")
	}
	if s.IsObjectCoercible(0) || s.IsObjectCoercible(1) {
		t.Error("undefined or null reported as object coercible")
	}
	if s.HeapPtr(6) == 0 {
		t.Error("s.HeapPtr(6) = 0 for object")
	}
}

func TestProperties(t *testing.T) {
	s := New()
	defer s.Close()

	obj := s.PushObject()
	s.PushString("bar")
	s.PutPropString(obj, "foo")
	s.PushNumber(7)
	s.PutPropIndex(-2, 3)

	if !s.HasPropString(obj, "foo") {
		t.Error(`HasPropString("foo") = false`)
	}
	if s.HasPropString(obj, "baz") {
		t.Error(`HasPropString("baz") = true`)
	}
	if !s.GetPropString(-1, "foo") {
		t.Error(`GetPropString("foo") = false`)
	}
	if got, want := s.String(-1), "bar"; got != want {
		t.Errorf(`obj.foo = %q; want %q`, got, want)
	}
	s.Pop()

	s.DelPropIndex(obj, 3)
	if s.GetPropIndex(obj, 3) {
		t.Error("obj[3] exists after delete")
	}
	s.Pop()

	var keys []string
	s.EnumOwn(obj)
	for s.Next(-1, false) {
		keys = append(keys, s.String(-1))
		s.Pop()
	}
	s.Pop()
	if diff := cmp.Diff([]string{"foo"}, keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if got, want := s.Top(), 1; got != want {
		t.Errorf("s.Top() = %d; want %d", got, want)
	}
}

func TestCompileAndCall(t *testing.T) {
	s := New()
	defer s.Close()

	if err := s.Compile("(function (a, b) { return a + b; })", "add.js"); err != nil {
		t.Fatal(err)
	}
	if err := s.PCall(0); err != nil {
		t.Fatal(err)
	}
	s.PushNumber(2)
	s.PushNumber(3)
	if err := s.PCall(2); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Number(-1), 5.0; got != want {
		t.Errorf("add(2, 3) = %g; want %g", got, want)
	}
	s.Pop()

	if err := s.Compile("throw new RangeError('nope')", "throw.js"); err != nil {
		t.Fatal(err)
	}
	if err := s.PCall(0); err != ErrThrown {
		t.Fatalf("PCall(0) = %v; want %v", err, ErrThrown)
	}
	if got, want := s.ErrorCode(-1), ErrRange; got != want {
		t.Errorf("ErrorCode(-1) = %d; want %d", got, want)
	}
	s.Pop()

	if err := s.Compile("(", "bad.js"); err != ErrThrown {
		t.Fatalf("Compile(...) = %v; want %v", err, ErrThrown)
	}
	if got, want := s.ErrorCode(-1), ErrSyntax; got != want {
		t.Errorf("ErrorCode(-1) = %d; want %d", got, want)
	}
	s.Pop()

	if got := s.Top(); got != 0 {
		t.Errorf("s.Top() = %d; want 0", got)
	}
}

func TestPushFunction(t *testing.T) {
	s := New()
	defer s.Close()

	s.PushFunction(func(s *Stack) int {
		n := s.Top()
		s.PushNumber(float64(n))
		return 1
	})
	s.PushNull()
	s.PushNull()
	if err := s.PCall(2); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Number(-1), 2.0; got != want {
		t.Errorf("argument count = %g; want %g", got, want)
	}
	s.Pop()

	s.PushString("x")
	if got := s.Number(-1); !math.IsNaN(got) {
		t.Errorf("s.Number(string) = %g; want NaN", got)
	}
	s.Pop()
}

func TestIsNaN(t *testing.T) {
	s := New()
	defer s.Close()

	s.PushNumber(math.NaN())
	if !s.IsNaN(-1) {
		t.Error("s.IsNaN(NaN) = false")
	}
	s.PushNumber(1)
	if s.IsNaN(-1) {
		t.Error("s.IsNaN(1) = true")
	}
	s.PushString("x")
	if s.IsNaN(-1) {
		t.Error(`s.IsNaN("x") = true`)
	}
}

func TestGuard(t *testing.T) {
	s := New()
	defer s.Close()

	s.PushNumber(1)

	t.Run("PopsExtra", func(t *testing.T) {
		g := s.Guard()
		s.PushNumber(2)
		s.PushNumber(3)
		g.Release()
		if got, want := s.Top(), 1; got != want {
			t.Errorf("s.Top() = %d; want %d", got, want)
		}
	})

	t.Run("NeverBelow", func(t *testing.T) {
		g := s.Guard()
		s.PushNumber(2)
		s.Pop()
		s.Pop()
		g.Release()
		if got, want := s.Top(), 0; got != want {
			t.Errorf("s.Top() = %d; want %d", got, want)
		}
		s.PushNumber(1)
	})

	t.Run("Push", func(t *testing.T) {
		g := s.Guard()
		s.PushString("kept")
		g.Push()
		s.PushString("dropped")
		g.Release()
		if got, want := s.Top(), 2; got != want {
			t.Fatalf("s.Top() = %d; want %d", got, want)
		}
		if got, want := s.String(-1), "kept"; got != want {
			t.Errorf("top = %q; want %q", got, want)
		}
		s.Pop()
	})

	t.Run("Panic", func(t *testing.T) {
		func() {
			defer func() { recover() }()
			g := s.Guard()
			defer g.Release()
			s.PushNumber(99)
			panic("bork")
		}()
		if got, want := s.Top(), 1; got != want {
			t.Errorf("s.Top() = %d; want %d", got, want)
		}
	})
}
