// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/config"
	"github.com/libraryhub/libraryhub/internal/library"
	"github.com/libraryhub/libraryhub/internal/logging"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	deps       *Deps
	cfg        *config.Config
	logger     *slog.Logger
	jsonOutput bool
}

// NewRootCmd creates the root command for the LibraryHub CLI.
// A nil deps uses the default implementations.
func NewRootCmd(deps *Deps) *cobra.Command {
	c := &cli{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "libraryhub",
		Short: "LibraryHub - library catalog and borrowing manager",
		Long: `LibraryHub manages a library catalog, its members, and the lifecycle of
borrowing requests: pending requests are approved or rejected by an
administrator, and approved loans are returned to the shelf.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "print results as JSON")

	cmd.AddCommand(newServeCmd(c))
	cmd.AddCommand(newMigrateCmd(c))
	cmd.AddCommand(newSeedCmd(c))
	cmd.AddCommand(newStatusCmd(c))
	cmd.AddCommand(newAuditCmd(c))
	cmd.AddCommand(newBookCmd(c))
	cmd.AddCommand(newUserCmd(c))
	cmd.AddCommand(newBorrowCmd(c))

	return cmd
}

// setup loads configuration and installs the process logger.
func (c *cli) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	src := config.Sources{Flags: flags, LookupEnv: c.deps.LookupEnv}
	src.ConfigFile, _ = flags.GetString("config")
	src.EnvFile, _ = flags.GetString("env-file")
	if path, err := c.deps.ConfigFileGetter(); err == nil {
		src.DefaultConfigFile = path
	}
	if path, err := c.deps.EnvFileGetter(); err == nil {
		src.DefaultEnvFile = path
	}

	cfg, err := config.Load(src)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := logging.SetDefault(logging.Options{
		Service: "libraryhub",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

// app is an open backend with the services built on top of it.
type app struct {
	backend   *Backend
	catalog   *library.CatalogService
	borrowing *library.BorrowingService
}

// run opens the backend, bounds ctx with the configured timeout, and calls fn.
func (c *cli) run(cmd *cobra.Command, metrics library.MetricsRecorder, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Timeout)
	defer cancel()

	backend, err := c.deps.BackendOpener(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer closeCancel()
		if closeErr := backend.Close(closeCtx); closeErr != nil {
			c.logger.Warn("error closing store", "error", closeErr)
		}
	}()
	if backend.Driver == config.DriverMemory {
		c.logger.WarnContext(ctx, "using the in-memory store; data is discarded when the command exits",
			"command", cmd.CommandPath())
	}

	return fn(ctx, c.newApp(backend, metrics))
}

func (c *cli) newApp(backend *Backend, metrics library.MetricsRecorder) *app {
	return &app{
		backend:   backend,
		catalog:   library.NewStoreCatalog(backend.Store, c.logger),
		borrowing: library.NewStoreService(backend.Store, metrics, c.logger, c.cfg.Loan.Period),
	}
}
