// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/library"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register and look up library members",
	}
	cmd.AddCommand(newUserAddCmd(c))
	cmd.AddCommand(newUserShowCmd(c))
	return cmd
}

func newUserAddCmd(c *cli) *cobra.Command {
	var (
		in   library.UserInput
		role string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Long: `Registers a new member. Creating another administrator with --role admin
requires --as to name an existing administrator.`,
		Args: cobra.NoArgs,
	}
	as := actorFlag(cmd)
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&in.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&role, "role", string(library.RoleUser), "role (user or admin)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		in := in
		in.Role = library.Role(role)
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			if in.Role == library.RoleAdmin {
				actor, err := resolveActor(ctx, a, *as)
				if err != nil {
					return err
				}
				if !actor.IsAdmin() {
					return oops.Code("ADMIN_REQUIRED").With("user_id", actor.UserID.String()).
						Wrapf(library.ErrForbidden, "only an admin can create another admin")
				}
			}
			u, err := a.catalog.RegisterUser(ctx, in)
			if err != nil {
				return err
			}
			return c.render(cmd, toUserJSON(u), func(w io.Writer) { printUser(w, u) })
		})
	}
	return cmd
}

func newUserShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id|email>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, nil, func(ctx context.Context, a *app) error {
				u, err := findUser(ctx, a, args[0])
				if err != nil {
					return err
				}
				return c.render(cmd, toUserJSON(u), func(w io.Writer) { printUser(w, u) })
			})
		},
	}
}
