// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"zombiezen.com/go/log"
)

func newEvalCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "eval [options] EXPR [...]",
		Short:                 "evaluate JavaScript expressions",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runEval(cmd.Context(), g, args, cmd.OutOrStdout())
	}
	return c
}

// runEval evaluates each expression in the same context
// and writes the results to w.
func runEval(ctx context.Context, g *globalConfig, exprs []string, w io.Writer) error {
	c, closeContext, err := g.newContext()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeContext(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	for i, expr := range exprs {
		ref, err := c.EvalStringFilename(ctx, expr, fmt.Sprintf("<expr %d>", i+1))
		if err != nil {
			return err
		}
		v := ref.Value()
		ref.Close()
		if err := writeValue(w, v); err != nil {
			return err
		}
	}
	return nil
}
