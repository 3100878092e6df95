// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/libraryhub/libraryhub/internal/config"
	"github.com/libraryhub/libraryhub/internal/library"
	"github.com/libraryhub/libraryhub/internal/observability"
	"github.com/libraryhub/libraryhub/internal/store"
	"github.com/libraryhub/libraryhub/internal/xdg"
)

// Deps contains injectable dependencies for the CLI.
// Nil fields use their default implementations.
type Deps struct {
	// BackendOpener connects to the configured store.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// MigratorFactory creates a PostgreSQL schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ConfigFileGetter returns the default config file path.
	// Default: xdg.ConfigFile
	ConfigFileGetter func() (string, error)

	// EnvFileGetter returns the default dotenv file path.
	// Default: xdg.EnvFile
	EnvFileGetter func() (string, error)

	// LookupEnv reads the process environment.
	// Default: os.LookupEnv
	LookupEnv func(string) (string, bool)
}

// Backend is an open store together with its lifecycle hooks.
type Backend struct {
	Driver string
	Store  library.Store
	// Ping checks that the store is reachable.
	Ping func(ctx context.Context) error
	// EnsureSchema creates indexes for document stores; nil when the
	// schema is managed by migrations.
	EnsureSchema func(ctx context.Context) ([]string, error)
	// Close releases connections.
	Close func(ctx context.Context) error
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.BackendOpener == nil {
		out.BackendOpener = openBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if out.ConfigFileGetter == nil {
		out.ConfigFileGetter = xdg.ConfigFile
	}
	if out.EnvFileGetter == nil {
		out.EnvFileGetter = xdg.EnvFile
	}
	if out.LookupEnv == nil {
		out.LookupEnv = os.LookupEnv
	}
	return &out
}
