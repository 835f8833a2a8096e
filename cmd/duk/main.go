// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

// duk is a command-line JavaScript runner built on the duk package.
package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"sync"

	"github.com/spf13/cobra"
	"zombiezen.com/go/bass/sigterm"
	"zombiezen.com/go/log"
)

func main() {
	rootCommand := &cobra.Command{
		Use:           "duk",
		Short:         "run JavaScript with Duktape",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	g := defaultGlobalConfig()
	configPath := rootCommand.PersistentFlags().String("config", "", "read configuration from `path`")
	showDebug := rootCommand.PersistentFlags().Bool("debug", false, "show debugging output")
	modulePath := rootCommand.PersistentFlags().String("module-path", "", "load modules from `dir`ectory")
	moduleDB := rootCommand.PersistentFlags().String("module-db", "", "load modules from SQLite database at `path`")
	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		paths := slices.Values(configFiles())
		if *configPath != "" {
			paths = slices.Values([]string{*configPath})
		}
		if err := g.mergeFiles(paths); err != nil {
			initLogging(*showDebug)
			return err
		}
		g.mergeEnvironment()
		if cmd.Flags().Changed("module-path") {
			g.ModulePath = *modulePath
		}
		if cmd.Flags().Changed("module-db") {
			g.ModuleDB = *moduleDB
		}
		if cmd.Flags().Changed("debug") {
			g.Debug = *showDebug
		}
		initLogging(g.Debug)
		return nil
	}

	rootCommand.AddCommand(
		newEvalCommand(g),
		newRunCommand(g),
		newCallCommand(g),
		newModulesCommand(g),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), sigterm.Signals()...)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(*showDebug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "duk: ", log.StdFlags, nil),
		})
	})
}
