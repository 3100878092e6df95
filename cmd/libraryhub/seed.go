// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"bytes"
	"context"
	_ "embed"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/libraryhub/libraryhub/internal/library"
)

//go:embed seed/books.yaml
var defaultCatalog []byte

// Default bootstrap administrator.
const (
	defaultAdminName  = "Admin User"
	defaultAdminEmail = "admin@library.com"
)

type seedFile struct {
	Books []library.BookInput `yaml:"books"`
}

// parseCatalog decodes a seed file. Unknown keys are rejected so typos do
// not silently drop fields.
func parseCatalog(data []byte) ([]library.BookInput, error) {
	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, oops.Code("INVALID_ARGUMENT").With("operation", "parse seed catalog").Wrap(err)
	}
	if len(f.Books) == 0 {
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("seed catalog has no books")
	}
	return f.Books, nil
}

type seedConfig struct {
	adminName  string
	adminEmail string
	file       string
	skipBooks  bool
}

func newSeedCmd(c *cli) *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and sample books",
		Long: `Creates the bootstrap administrator and loads the sample catalog.
This command is idempotent: existing admins and books (matched by isbn) are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, c, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.adminName, "admin-name", defaultAdminName, "administrator display name")
	cmd.Flags().StringVar(&cfg.adminEmail, "admin-email", defaultAdminEmail, "administrator email")
	cmd.Flags().StringVar(&cfg.file, "file", "", "YAML catalog to load instead of the bundled one")
	cmd.Flags().BoolVar(&cfg.skipBooks, "admin-only", false, "only create the administrator")

	return cmd
}

func runSeed(cmd *cobra.Command, c *cli, cfg *seedConfig) error {
	var books []library.BookInput
	if !cfg.skipBooks {
		data := defaultCatalog
		if cfg.file != "" {
			var err error
			data, err = os.ReadFile(cfg.file)
			if err != nil {
				return oops.Code("INVALID_ARGUMENT").With("file", cfg.file).Wrap(err)
			}
		}
		var err error
		books, err = parseCatalog(data)
		if err != nil {
			return err
		}
	}

	return c.run(cmd, nil, func(ctx context.Context, a *app) error {
		admin, created, err := a.catalog.EnsureAdmin(ctx, library.UserInput{
			Name:  cfg.adminName,
			Email: cfg.adminEmail,
		})
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("Created admin %s (%s)\n", admin.Email, admin.ID)
		} else {
			cmd.Printf("Admin %s already exists\n", admin.Email)
		}
		if !admin.IsAdmin() {
			return oops.Code("ADMIN_REQUIRED").With("email", admin.Email).
				Wrapf(library.ErrForbidden, "%s is registered without the admin role", admin.Email)
		}

		if len(books) == 0 {
			return nil
		}
		res, err := a.catalog.Seed(ctx, library.ActorFor(admin), books)
		if res != nil {
			cmd.Printf("Added %d books, skipped %d existing\n", len(res.Added), len(res.Skipped))
		}
		return err
	})
}
