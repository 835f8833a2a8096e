// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/spf13/cobra"
	"zombiezen.com/go/log"
)

type callOptions struct {
	file     string
	function string
	args     []string
}

func newCallCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "call [options] FILE FUNC [JSON [...]]",
		Short:                 "call a global JavaScript function with JSON arguments",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(2),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runCall(cmd.Context(), g, &callOptions{
			file:     args[0],
			function: args[1],
			args:     args[2:],
		}, cmd.OutOrStdout())
	}
	return c
}

func runCall(ctx context.Context, g *globalConfig, opts *callOptions, w io.Writer) error {
	args, err := parseJSONArgs(opts.args)
	if err != nil {
		return err
	}

	c, closeContext, err := g.newContext()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeContext(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	ref, err := c.EvalFile(ctx, opts.file)
	if err != nil {
		return err
	}
	ref.Close()
	result, err := c.CallGlobal(ctx, opts.function, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.function, err)
	}
	defer result.Close()
	return writeValue(w, result.Value())
}

func parseJSONArgs(rawArgs []string) ([]any, error) {
	args := make([]any, 0, len(rawArgs))
	for i, raw := range rawArgs {
		var arg any
		if err := jsonv2.Unmarshal([]byte(raw), &arg); err != nil {
			return nil, fmt.Errorf("argument %d: %v", i+1, err)
		}
		args = append(args, arg)
	}
	return args, nil
}
