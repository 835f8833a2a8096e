// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/log"
)

type runOptions struct {
	files []string
	jobs  int
}

func newRunCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "run [options] FILE [...]",
		Short:                 "run JavaScript files",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(runOptions)
	c.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "run at most `n` files at once")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.files = args
		return runRun(cmd.Context(), g, opts)
	}
	return c
}

// runRun runs each file in its own context.
// Once a file fails, no more files are started.
func runRun(ctx context.Context, g *globalConfig, opts *runOptions) error {
	if opts.jobs < 1 {
		return fmt.Errorf("--jobs must be positive (got %d)", opts.jobs)
	}
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.jobs)
	for _, path := range opts.files {
		if grpCtx.Err() != nil {
			break
		}
		grp.Go(func() error {
			if grpCtx.Err() != nil {
				return nil
			}
			return runFile(grpCtx, g, path)
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func runFile(ctx context.Context, g *globalConfig, path string) error {
	c, closeContext, err := g.newContext()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeContext(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	log.Debugf(ctx, "Running %s in %v", path, c)
	ref, err := c.EvalFile(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	ref.Close()
	return nil
}
