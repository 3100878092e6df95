// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/config"
	"github.com/libraryhub/libraryhub/internal/store"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the store schema",
		Long: `Applies PostgreSQL migrations, or creates the MongoDB indexes the
repositories rely on. The memory store needs no schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.migrateUp(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.migrateUp(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (PostgreSQL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(cmd, func(m Migrator) error {
				cmd.Println("Rolling back all migrations...")
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Rollback complete")
				return nil
			})
		},
	})
	cmd.AddCommand(newMigrateStepsCmd(c))
	cmd.AddCommand(&cobra.Command{
		Use:     "status",
		Aliases: []string{"version"},
		Short:   "Show the applied and pending migrations (PostgreSQL)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(cmd, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Print(formatMigrationStatus(st))
				return nil
			})
		},
	})

	return cmd
}

func newMigrateStepsCmd(c *cli) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "steps <n>",
		Short: "Apply n pending migrations, or roll back n with --down (PostgreSQL)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseSteps(args[0])
			if err != nil {
				return err
			}
			if down {
				n = -n
			}
			return c.withMigrator(cmd, func(m Migrator) error {
				if err := m.Steps(n); err != nil {
					return err
				}
				if down {
					cmd.Printf("Rolled back %d steps\n", -n)
					return nil
				}
				cmd.Printf("Applied %d steps\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back instead of applying")
	return cmd
}

// parseSteps parses a positive migration step count.
func parseSteps(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_ARGUMENT").With("steps", s).Wrapf(err, "steps must be an integer")
	}
	if n <= 0 {
		return 0, oops.Code("INVALID_ARGUMENT").With("steps", s).Errorf("steps must be positive; use --down to roll back")
	}
	return n, nil
}

func (c *cli) migrateUp(cmd *cobra.Command) error {
	switch c.cfg.Store.Driver {
	case config.DriverPostgres:
		return c.withMigrator(cmd, func(m Migrator) error {
			cmd.Println("Running migrations...")
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		})
	case config.DriverMongo:
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			if a.backend.EnsureSchema == nil {
				return nil
			}
			names, err := a.backend.EnsureSchema(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Ensured %d indexes: %s\n", len(names), strings.Join(names, ", "))
			return nil
		})
	default:
		cmd.Printf("The %s store has no schema to migrate\n", c.cfg.Store.Driver)
		return nil
	}
}

// withMigrator opens a PostgreSQL migrator, calls fn, and closes it.
func (c *cli) withMigrator(cmd *cobra.Command, fn func(m Migrator) error) error {
	if c.cfg.Store.Driver != config.DriverPostgres {
		return oops.Code("INVALID_ARGUMENT").With("driver", c.cfg.Store.Driver).
			Errorf("migrate %s needs the postgres store", cmd.Name())
	}
	m, err := c.deps.MigratorFactory(c.cfg.Store.Postgres.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			c.logger.Warn("error closing migrator", "error", closeErr)
		}
	}()
	return fn(m)
}

func formatMigrationStatus(st *store.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current version: %d\n", st.Current)
	fmt.Fprintf(&b, "Latest version:  %d\n", st.Latest)
	if st.Dirty {
		b.WriteString("State:           dirty (a migration failed part way; fix it before migrating again)\n")
	}
	if len(st.Pending) == 0 {
		b.WriteString("Pending:         none\n")
		return b.String()
	}
	b.WriteString("Pending:\n")
	for _, v := range st.Pending {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		fmt.Fprintf(&b, "  %s\n", name)
	}
	return b.String()
}
