// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"duk.256lights.llc/pkg/internal/testcontext"
	"github.com/google/go-cmp/cmp"
)

func TestHostFunction(t *testing.T) {
	type ctxKey struct{}

	tests := []struct {
		name   string
		fn     any
		source string
		want   Value
	}{
		{
			name:   "TruncatesNumber",
			fn:     func(n int) string { return strconv.Itoa(n) },
			source: "f(5.5)",
			want:   String("5"),
		},
		{
			name:   "MissingArguments",
			fn:     func(a, b int) int { return a + b },
			source: "f(4)",
			want:   Number(4),
		},
		{
			name:   "ExtraArguments",
			fn:     func(a int) int { return a * 2 },
			source: "f(4, 'ignored')",
			want:   Number(8),
		},
		{
			name: "Variadic",
			fn: func(prefix string, nums ...float64) string {
				sum := 0.0
				for _, n := range nums {
					sum += n
				}
				return prefix + strconv.FormatFloat(sum, 'g', -1, 64)
			},
			source: "f('sum=', 1, 2, 3.5)",
			want:   String("sum=6.5"),
		},
		{
			name:   "NoResults",
			fn:     func() {},
			source: "f()",
			want:   Undefined{},
		},
		{
			name:   "MultipleResults",
			fn:     func() (int, string) { return 1, "a" },
			source: "f()",
			want:   Array{Number(1), String("a")},
		},
		{
			name:   "NilError",
			fn:     func() (string, error) { return "ok", nil },
			source: "f()",
			want:   String("ok"),
		},
		{
			name: "Context",
			fn: func(ctx context.Context) string {
				s, _ := ctx.Value(ctxKey{}).(string)
				return s
			},
			source: "f()",
			want:   String("from Go"),
		},
		{
			name:   "Struct",
			fn:     func(p testPoint) testPoint { return testPoint{X: p.Y, Y: p.X} },
			source: "f({x: 1, y: 2})",
			want:   Object{"x": Number(2), "y": Number(1)},
		},
		{
			name:   "ReturnsFunction",
			fn:     func(n int) func(int) int { return func(m int) int { return n * m } },
			source: "f(6)(7)",
			want:   Number(42),
		},
		{
			name:   "Value",
			fn:     func(v Value) Value { return Array{v} },
			source: "f({a: [null]})",
			want:   Array{Object{"a": Array{Null{}}}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx, cancel := testcontext.New(t)
			defer cancel()
			ctx = context.WithValue(ctx, ctxKey{}, "from Go")
			c := newTestContext(t, nil)

			if err := c.Register("f", test.fn); err != nil {
				t.Fatal(err)
			}
			ref, err := c.EvalString(ctx, test.source)
			if err != nil {
				t.Fatal(err)
			}
			defer ref.Close()
			if diff := cmp.Diff(test.want, ref.Value()); diff != "" {
				t.Errorf("%s (-want +got):\n%s", test.source, diff)
			}
			if got := c.s.Top(); got != 0 {
				t.Errorf("stack height = %d; want 0", got)
			}
		})
	}
}

func TestHostFunctionErrors(t *testing.T) {
	tests := []struct {
		name        string
		fn          any
		call        string
		wantName    string
		wantMessage string
	}{
		{
			name:        "Panic",
			fn:          func() { panic("bork") },
			call:        "f()",
			wantName:    "Error",
			wantMessage: "panic: bork",
		},
		{
			name:        "GoError",
			fn:          func() error { return errors.New("went wrong") },
			call:        "f()",
			wantName:    "Error",
			wantMessage: "went wrong",
		},
		{
			name:        "JsError",
			fn:          func() (int, error) { return 0, &JsError{Kind: KindRange, Message: "out of range"} },
			call:        "f()",
			wantName:    "RangeError",
			wantMessage: "out of range",
		},
		{
			name:        "BadArgument",
			fn:          func(n int) int { return n },
			call:        "f('five')",
			wantName:    "TypeError",
			wantMessage: "argument 0: expected number, got string",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx, cancel := testcontext.New(t)
			defer cancel()
			c := newTestContext(t, nil)

			if err := c.Register("f", test.fn); err != nil {
				t.Fatal(err)
			}
			ref, err := c.EvalString(ctx, `
				(function () {
					try {
						`+test.call+`;
					} catch (e) {
						return [e instanceof Error, e.name, e.message];
					}
					return [false, 'no exception', ''];
				})()
			`)
			if err != nil {
				t.Fatal(err)
			}
			defer ref.Close()
			var got struct {
				_       struct{} `duk:",tuple"`
				IsError bool
				Name    string
				Message string
			}
			if err := ref.Decode(&got); err != nil {
				t.Fatal(err)
			}
			if !got.IsError || got.Name != test.wantName || !strings.Contains(got.Message, test.wantMessage) {
				t.Errorf("%s threw {instanceof Error: %t, name: %q, message: %q}; want {true, %q, contains %q}",
					test.call, got.IsError, got.Name, got.Message, test.wantName, test.wantMessage)
			}
			if got := c.s.Top(); got != 0 {
				t.Errorf("stack height = %d; want 0", got)
			}
		})
	}
}

func TestHostFunctionGenericThrow(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	c := newTestContext(t, nil)

	err := c.Register("f", func() error {
		return &JsError{Kind: KindGeneric, Message: "raw"}
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.EvalString(ctx, "f()")
	var jsErr *JsError
	if !errors.As(err, &jsErr) {
		t.Fatalf("EvalString(...) = _, %v; want *JsError", err)
	}
	if jsErr.Kind != KindGeneric || jsErr.Message != "raw" {
		t.Errorf("error = {Kind: %v, Message: %q}; want {Kind: %v, Message: %q}", jsErr.Kind, jsErr.Message, KindGeneric, "raw")
	}
}

func TestHostFunctionReentrant(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()
	c := newTestContext(t, nil)

	err := c.Register("apply", func(ctx context.Context, fn *Reference, x int) (*Reference, error) {
		defer fn.Close()
		return fn.Call(ctx, x+1)
	})
	if err != nil {
		t.Fatal(err)
	}
	ref, err := c.EvalString(ctx, "apply(function (y) { return apply(function (z) { return z * 10; }, y); }, 1)")
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Close()
	if diff := cmp.Diff(Value(Number(30)), ref.Value()); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
}
