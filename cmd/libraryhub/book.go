// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/library"
)

func newBookCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the catalog",
	}
	cmd.AddCommand(newBookAddCmd(c))
	cmd.AddCommand(newBookListCmd(c))
	cmd.AddCommand(newBookShowCmd(c))
	cmd.AddCommand(newBookUpdateCmd(c))
	cmd.AddCommand(newBookDeleteCmd(c))
	return cmd
}

// bookFields registers the descriptive book flags shared by add and update.
func bookFields(cmd *cobra.Command, in *library.BookInput) {
	cmd.Flags().StringVar(&in.Title, "title", "", "book title")
	cmd.Flags().StringVar(&in.Author, "author", "", "author name")
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&in.Genre, "genre", "", "genre")
	cmd.Flags().StringVar(&in.Description, "description", "", "short description")
	cmd.Flags().IntVar(&in.PublishedYear, "year", 0, "year of publication")
	cmd.Flags().IntVar(&in.TotalCopies, "copies", 1, "number of copies owned")
	cmd.Flags().StringVar(&in.ImageURL, "image", "", "cover image URL")
}

func newBookAddCmd(c *cli) *cobra.Command {
	in := &library.BookInput{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog (admin)",
		Args:  cobra.NoArgs,
	}
	as := actorFlag(cmd)
	bookFields(cmd, in)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			actor, err := resolveActor(ctx, a, *as)
			if err != nil {
				return err
			}
			b, err := a.catalog.AddBook(ctx, actor, *in)
			if err != nil {
				return err
			}
			return c.render(cmd, toBookJSON(b), func(w io.Writer) { printBook(w, b) })
		})
	}
	return cmd
}

func newBookListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the catalog, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, nil, func(ctx context.Context, a *app) error {
				books, err := a.catalog.ListBooks(ctx)
				if err != nil {
					return err
				}
				data := make([]bookJSON, 0, len(books))
				for _, b := range books {
					data = append(data, toBookJSON(b))
				}
				return c.render(cmd, data, func(w io.Writer) {
					fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tISBN\tAVAILABLE")
					for _, b := range books {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.ISBN, b.AvailableCopies, b.TotalCopies)
					}
				})
			})
		},
	}
}

func newBookShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := library.ParseID("book", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, nil, func(ctx context.Context, a *app) error {
				b, err := a.catalog.GetBook(ctx, id)
				if err != nil {
					return err
				}
				return c.render(cmd, toBookJSON(b), func(w io.Writer) { printBook(w, b) })
			})
		},
	}
}

func newBookUpdateCmd(c *cli) *cobra.Command {
	in := &library.BookInput{}
	cmd := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Change book details or the number of copies owned (admin)",
		Long: `Only the flags given are changed. Changing --copies shifts the available
count by the same amount and fails if copies on loan would exceed the new total.`,
		Args: cobra.ExactArgs(1),
	}
	as := actorFlag(cmd)
	bookFields(cmd, in)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := library.ParseID("book", args[0])
		if err != nil {
			return err
		}
		patch := bookPatch(cmd, in)
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			actor, err := resolveActor(ctx, a, *as)
			if err != nil {
				return err
			}
			b, err := a.catalog.UpdateBook(ctx, actor, id, patch)
			if err != nil {
				return err
			}
			return c.render(cmd, toBookJSON(b), func(w io.Writer) { printBook(w, b) })
		})
	}
	return cmd
}

// bookPatch builds a patch from the flags the user actually set.
func bookPatch(cmd *cobra.Command, in *library.BookInput) library.BookPatch {
	var p library.BookPatch
	set := cmd.Flags().Changed
	if set("title") {
		p.Title = &in.Title
	}
	if set("author") {
		p.Author = &in.Author
	}
	if set("isbn") {
		p.ISBN = &in.ISBN
	}
	if set("genre") {
		p.Genre = &in.Genre
	}
	if set("description") {
		p.Description = &in.Description
	}
	if set("year") {
		p.PublishedYear = &in.PublishedYear
	}
	if set("copies") {
		p.TotalCopies = &in.TotalCopies
	}
	if set("image") {
		p.ImageURL = &in.ImageURL
	}
	return p
}

func newBookDeleteCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Remove a book from the catalog (admin)",
		Args:  cobra.ExactArgs(1),
	}
	as := actorFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := library.ParseID("book", args[0])
		if err != nil {
			return err
		}
		return c.run(cmd, nil, func(ctx context.Context, a *app) error {
			actor, err := resolveActor(ctx, a, *as)
			if err != nil {
				return err
			}
			if err := a.catalog.DeleteBook(ctx, actor, id); err != nil {
				return err
			}
			cmd.Printf("Deleted book %s\n", id)
			return nil
		})
	}
	return cmd
}
