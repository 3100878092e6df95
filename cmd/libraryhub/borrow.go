// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"io"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/library"
)

func newBorrowCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Request, approve, reject, and return loans",
		Long: `A member requests a book, which creates a pending borrowing. An administrator
approves it (taking one copy off the shelf) or rejects it, and records the
return when the copy comes back.`,
	}
	cmd.AddCommand(newBorrowRequestCmd(c))
	cmd.AddCommand(newBorrowTransitionCmd(c, "approve", "Approve a pending request (admin)",
		func(ctx context.Context, a *app, actor library.Actor, id ulid.ULID, _ string) (*library.Borrowing, error) {
			return a.borrowing.Approve(ctx, actor, id)
		}))
	cmd.AddCommand(newBorrowTransitionCmd(c, "reject", "Reject a pending request (admin)",
		func(ctx context.Context, a *app, actor library.Actor, id ulid.ULID, notes string) (*library.Borrowing, error) {
			return a.borrowing.Reject(ctx, actor, id, notes)
		}))
	cmd.AddCommand(newBorrowTransitionCmd(c, "return", "Record the return of a loan (admin)",
		func(ctx context.Context, a *app, actor library.Actor, id ulid.ULID, _ string) (*library.Borrowing, error) {
			return a.borrowing.Return(ctx, actor, id)
		}))
	cmd.AddCommand(newBorrowListCmd(c))
	cmd.AddCommand(newBorrowShowCmd(c))
	return cmd
}

func newBorrowRequestCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <book-id>",
		Short: "Request to borrow a book",
		Args:  cobra.ExactArgs(1),
	}
	as := actorFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		bookID, err := library.ParseID("book", args[0])
		if err != nil {
			return err
		}
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			actor, err := resolveActor(ctx, a, *as)
			if err != nil {
				return err
			}
			view, err := a.borrowing.Create(ctx, actor, bookID)
			if err != nil {
				return err
			}
			t := now()
			return c.render(cmd, toViewJSON(view, t), func(w io.Writer) { printView(w, view, t) })
		})
	}
	return cmd
}

type transitionFunc func(ctx context.Context, a *app, actor library.Actor, id ulid.ULID, notes string) (*library.Borrowing, error)

func newBorrowTransitionCmd(c *cli, use, short string, apply transitionFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <borrowing-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
	}
	as := actorFlag(cmd)
	var notes string
	if use == "reject" {
		cmd.Flags().StringVar(&notes, "notes", "", "reason shown to the member")
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := library.ParseID("borrowing", args[0])
		if err != nil {
			return err
		}
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			actor, err := resolveActor(ctx, a, *as)
			if err != nil {
				return err
			}
			b, err := apply(ctx, a, actor, id, notes)
			if err != nil {
				return err
			}
			t := now()
			return c.render(cmd, toBorrowingJSON(b, t), func(w io.Writer) { printBorrowing(w, b, t) })
		})
	}
	return cmd
}

func newBorrowListCmd(c *cli) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your borrowings, or every borrowing with --all (admin)",
		Args:  cobra.NoArgs,
	}
	as := actorFlag(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "list every member's borrowings")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			actor, err := resolveActor(ctx, a, *as)
			if err != nil {
				return err
			}
			var views []*library.BorrowingView
			if all {
				views, err = a.borrowing.ListAll(ctx, actor)
			} else {
				views, err = a.borrowing.ListForUser(ctx, actor)
			}
			if err != nil {
				return err
			}
			t := now()
			data := make([]borrowingJSON, 0, len(views))
			for _, v := range views {
				data = append(data, toViewJSON(v, t))
			}
			return c.render(cmd, data, func(w io.Writer) { printViews(w, views) })
		})
	}
	return cmd
}

func newBorrowShowCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <borrowing-id>",
		Short: "Show one borrowing",
		Args:  cobra.ExactArgs(1),
	}
	as := actorFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := library.ParseID("borrowing", args[0])
		if err != nil {
			return err
		}
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			actor, err := resolveActor(ctx, a, *as)
			if err != nil {
				return err
			}
			view, err := a.borrowing.Get(ctx, actor, id)
			if err != nil {
				return err
			}
			t := now()
			return c.render(cmd, toViewJSON(view, t), func(w io.Writer) { printView(w, view, t) })
		})
	}
	return cmd
}
