// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/library"
)

// actorFlag registers --as on cmd and returns where its value lands.
func actorFlag(cmd *cobra.Command) *string {
	var ref string
	cmd.Flags().StringVar(&ref, "as", "", "acting user, by email or id")
	return &ref
}

// findUser looks a user up by id or email.
func findUser(ctx context.Context, a *app, ref string) (*library.User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := ulid.Parse(ref); err == nil {
		return a.catalog.GetUser(ctx, id)
	}
	return a.catalog.FindUser(ctx, ref)
}

// resolveActor turns an --as value into the stored user's identity and role.
func resolveActor(ctx context.Context, a *app, ref string) (library.Actor, error) {
	if strings.TrimSpace(ref) == "" {
		return library.Actor{}, oops.Code("MISSING_IDENTITY").
			Wrapf(library.ErrForbidden, "--as is required to identify the acting user")
	}
	u, err := findUser(ctx, a, ref)
	if err != nil {
		return library.Actor{}, oops.With("as", ref).Wrap(err)
	}
	return library.ActorFor(u), nil
}
