// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/config"
)

// StoreStatus describes the configured store.
type StoreStatus struct {
	Driver        string `json:"driver"`
	Reachable     bool   `json:"reachable"`
	SchemaVersion uint   `json:"schemaVersion,omitempty"`
	LatestVersion uint   `json:"latestVersion,omitempty"`
	Pending       int    `json:"pendingMigrations,omitempty"`
	Dirty         bool   `json:"dirty,omitempty"`
	Books         int    `json:"books"`
	Error         string `json:"error,omitempty"`
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store connectivity and schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, nil, func(ctx context.Context, a *app) error {
				st := c.storeStatus(ctx, a)
				return c.render(cmd, st, func(w io.Writer) { printStatus(w, st) })
			})
		},
	}
}

// storeStatus gathers status without failing; problems land in Error.
func (c *cli) storeStatus(ctx context.Context, a *app) StoreStatus {
	st := StoreStatus{Driver: a.backend.Driver}
	if err := a.backend.Ping(ctx); err != nil {
		st.Error = err.Error()
		return st
	}
	st.Reachable = true

	books, err := a.catalog.ListBooks(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Books = len(books)

	if a.backend.Driver == config.DriverPostgres {
		m, err := c.deps.MigratorFactory(c.cfg.Store.Postgres.URL)
		if err != nil {
			st.Error = err.Error()
			return st
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil {
				c.logger.Debug("error closing migrator", "error", closeErr)
			}
		}()
		ms, err := m.Status()
		if err != nil {
			st.Error = err.Error()
			return st
		}
		st.SchemaVersion = ms.Current
		st.LatestVersion = ms.Latest
		st.Pending = len(ms.Pending)
		st.Dirty = ms.Dirty
	}
	return st
}

func printStatus(w io.Writer, st StoreStatus) {
	reach := "reachable"
	if !st.Reachable {
		reach = "unreachable"
	}
	fmt.Fprintf(w, "Store:\t%s (%s)\n", st.Driver, reach)
	if st.Reachable {
		fmt.Fprintf(w, "Books:\t%d\n", st.Books)
	}
	if st.LatestVersion > 0 {
		fmt.Fprintf(w, "Schema:\tversion %d of %d", st.SchemaVersion, st.LatestVersion)
		if st.Dirty {
			fmt.Fprint(w, " (dirty)")
		}
		fmt.Fprintln(w)
		if st.Pending > 0 {
			fmt.Fprintf(w, "Pending:\t%d migrations\n", st.Pending)
		}
	}
	if st.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", st.Error)
	}
}
