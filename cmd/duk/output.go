// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"os"

	"duk.256lights.llc/pkg"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"golang.org/x/term"
)

// writeValue writes v to w as a line of JSON.
// Output is indented if w is a terminal.
func writeValue(w io.Writer, v duk.Value) error {
	var opts []jsonv2.Options
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		opts = append(opts, jsontext.Multiline(true), jsontext.WithIndent("  "))
	}
	if err := jsonv2.MarshalWrite(w, v, opts...); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
