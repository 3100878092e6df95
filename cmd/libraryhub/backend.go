// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/libraryhub/libraryhub/internal/config"
	"github.com/libraryhub/libraryhub/internal/library/memory"
	"github.com/libraryhub/libraryhub/internal/library/mongodb"
	"github.com/libraryhub/libraryhub/internal/library/postgres"
	"github.com/libraryhub/libraryhub/internal/store"
)

// openBackend connects to the store named by cfg.Store.Driver.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memoryBackend(memory.New()), nil

	case config.DriverPostgres:
		pool, err := store.OpenPool(ctx, cfg.Store.Postgres.URL, store.PoolConfig{MaxConns: cfg.Store.Postgres.MaxConns})
		if err != nil {
			return nil, err
		}
		logger.Debug("connected to postgres")
		return &Backend{
			Driver: config.DriverPostgres,
			Store:  postgres.NewStore(pool, postgres.WithRetry(cfg.Store.Postgres.MaxRetries, postgres.DefaultRetryBase)),
			Ping:   pool.Ping,
			Close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.Store.Mongo.URI, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Store.Mongo.Database)
		logger.Debug("connected to mongo", "database", cfg.Store.Mongo.Database)
		return &Backend{
			Driver: config.DriverMongo,
			Store:  mongodb.NewStore(db),
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			EnsureSchema: func(ctx context.Context) ([]string, error) {
				return mongodb.EnsureIndexes(ctx, db)
			},
			Close: client.Disconnect,
		}, nil
	}
	return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Store.Driver).Errorf("unknown store driver %q", cfg.Store.Driver)
}

// memoryBackend wraps an in-memory store. Its data lives as long as st.
func memoryBackend(st *memory.Store) *Backend {
	return &Backend{
		Driver: config.DriverMemory,
		Store:  st.Bundle(),
		Ping:   func(context.Context) error { return nil },
		Close:  func(context.Context) error { return nil },
	}
}
