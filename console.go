// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package duk

import (
	"context"
	"strings"

	"zombiezen.com/go/log"
)

// installConsole sets the global console object.
func (c *Context) installConsole() error {
	logf := func(f func(ctx context.Context, format string, args ...any)) func(ctx context.Context, args ...Value) {
		return func(ctx context.Context, args ...Value) {
			f(ctx, "%s", formatConsoleArgs(args))
		}
	}
	console := map[string]any{
		"log":   logf(log.Infof),
		"debug": logf(log.Debugf),
		"info":  logf(log.Infof),
		"warn":  logf(log.Warnf),
		"error": logf(log.Errorf),
	}
	s := c.s
	g := s.Guard()
	defer g.Release()
	s.PushGlobalObject()
	if err := c.newEncoder().push(console); err != nil {
		return err
	}
	s.PutPropString(-2, "console")
	return nil
}

func formatConsoleArgs(args []Value) string {
	sb := new(strings.Builder)
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(FormatValue(arg))
	}
	return sb.String()
}
