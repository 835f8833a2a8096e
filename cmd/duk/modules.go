// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"duk.256lights.llc/pkg/internal/modstore"
	"github.com/spf13/cobra"
	"zombiezen.com/go/log"
)

func newModulesCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:   "modules",
		Short: "manage the module database",
	}
	c.AddCommand(
		newModulesImportCommand(g),
		newModulesListCommand(g),
	)
	return c
}

func newModulesImportCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "import [options] DIR",
		Short:                 "copy a directory of modules into the module database",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runModulesImport(cmd.Context(), g, args[0])
	}
	return c
}

func runModulesImport(ctx context.Context, g *globalConfig, dir string) error {
	store, err := g.openModuleDB()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	n, err := store.Import(ctx, os.DirFS(dir))
	if err != nil {
		return err
	}
	log.Infof(ctx, "Imported %d modules from %s", n, dir)
	return nil
}

func newModulesListCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "list",
		Short:                 "list modules in the module database",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runModulesList(cmd.Context(), g, cmd.OutOrStdout())
	}
	return c
}

func runModulesList(ctx context.Context, g *globalConfig, w io.Writer) error {
	store, err := g.openModuleDB()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, info := range list {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", info.ID, info.Size, info.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (g *globalConfig) openModuleDB() (*modstore.Store, error) {
	if g.ModuleDB == "" {
		return nil, fmt.Errorf("module database not set (use --module-db or DUK_MODULE_DB)")
	}
	return modstore.Open(g.ModuleDB)
}
