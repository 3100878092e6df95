// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/library"
)

// now is the clock used to flag overdue loans in output.
var now = time.Now

// render writes data as indented JSON with --json, otherwise through text
// into an aligned table.
func (c *cli) render(cmd *cobra.Command, data any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if c.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return oops.With("operation", "encode output").Wrap(enc.Encode(data))
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	text(tw)
	return oops.With("operation", "flush output").Wrap(tw.Flush())
}

type bookJSON struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Genre           string    `json:"genre"`
	Description     string    `json:"description,omitempty"`
	PublishedYear   int       `json:"publishedYear"`
	TotalCopies     int       `json:"totalCopies"`
	AvailableCopies int       `json:"availableCopies"`
	ImageURL        string    `json:"imageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toBookJSON(b *library.Book) bookJSON {
	return bookJSON{
		ID:              b.ID.String(),
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Genre:           b.Genre,
		Description:     b.Description,
		PublishedYear:   b.PublishedYear,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		ImageURL:        b.ImageURL,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type userJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserJSON(u *library.User) userJSON {
	return userJSON{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		Phone:     u.Phone,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
	}
}

type summaryJSON struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

type borrowingJSON struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	BookID     string       `json:"bookId"`
	Status     string       `json:"status"`
	BorrowDate time.Time    `json:"borrowDate"`
	DueDate    time.Time    `json:"dueDate"`
	ReturnDate *time.Time   `json:"returnDate,omitempty"`
	ApprovedBy string       `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time   `json:"approvedAt,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	Overdue    bool         `json:"overdue"`
	Book       *summaryJSON `json:"book,omitempty"`
	User       *summaryJSON `json:"user,omitempty"`
	Approver   *summaryJSON `json:"approver,omitempty"`
}

func toBorrowingJSON(b *library.Borrowing, now time.Time) borrowingJSON {
	out := borrowingJSON{
		ID:         b.ID.String(),
		UserID:     b.UserID.String(),
		BookID:     b.BookID.String(),
		Status:     b.Status.String(),
		BorrowDate: b.BorrowDate,
		DueDate:    b.DueDate,
		ReturnDate: b.ReturnDate,
		ApprovedAt: b.ApprovedAt,
		Notes:      b.Notes,
		Overdue:    b.Overdue(now),
	}
	if b.ApprovedBy != nil {
		out.ApprovedBy = b.ApprovedBy.String()
	}
	return out
}

func toViewJSON(v *library.BorrowingView, now time.Time) borrowingJSON {
	out := toBorrowingJSON(&v.Borrowing, now)
	if v.Book != nil {
		out.Book = &summaryJSON{ID: v.Book.ID.String(), Title: v.Book.Title, Author: v.Book.Author}
	}
	if v.User != nil {
		out.User = &summaryJSON{ID: v.User.ID.String(), Name: v.User.Name, Email: v.User.Email}
	}
	if v.Approver != nil {
		out.Approver = &summaryJSON{ID: v.Approver.ID.String(), Name: v.Approver.Name, Email: v.Approver.Email}
	}
	return out
}

func printBook(w io.Writer, b *library.Book) {
	fmt.Fprintf(w, "ID:\t%s\n", b.ID)
	fmt.Fprintf(w, "Title:\t%s\n", b.Title)
	fmt.Fprintf(w, "Author:\t%s\n", b.Author)
	fmt.Fprintf(w, "ISBN:\t%s\n", b.ISBN)
	fmt.Fprintf(w, "Genre:\t%s\n", b.Genre)
	fmt.Fprintf(w, "Published:\t%d\n", b.PublishedYear)
	fmt.Fprintf(w, "Copies:\t%d of %d available\n", b.AvailableCopies, b.TotalCopies)
	if b.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", b.Description)
	}
}

func printUser(w io.Writer, u *library.User) {
	fmt.Fprintf(w, "ID:\t%s\n", u.ID)
	fmt.Fprintf(w, "Name:\t%s\n", u.Name)
	fmt.Fprintf(w, "Email:\t%s\n", u.Email)
	fmt.Fprintf(w, "Role:\t%s\n", u.Role)
	if u.Phone != "" {
		fmt.Fprintf(w, "Phone:\t%s\n", u.Phone)
	}
	if u.Address != "" {
		fmt.Fprintf(w, "Address:\t%s\n", u.Address)
	}
}

func printBorrowing(w io.Writer, b *library.Borrowing, now time.Time) {
	fmt.Fprintf(w, "ID:\t%s\n", b.ID)
	fmt.Fprintf(w, "Status:\t%s\n", b.Status)
	fmt.Fprintf(w, "Book:\t%s\n", b.BookID)
	fmt.Fprintf(w, "User:\t%s\n", b.UserID)
	fmt.Fprintf(w, "Requested:\t%s\n", b.BorrowDate.Format(time.DateOnly))
	fmt.Fprintf(w, "Due:\t%s\n", b.DueDate.Format(time.DateOnly))
	if b.ApprovedAt != nil {
		fmt.Fprintf(w, "Approved:\t%s\n", b.ApprovedAt.Format(time.DateTime))
	}
	if b.ReturnDate != nil {
		fmt.Fprintf(w, "Returned:\t%s\n", b.ReturnDate.Format(time.DateTime))
	}
	if b.Notes != "" {
		fmt.Fprintf(w, "Notes:\t%s\n", b.Notes)
	}
	if b.Overdue(now) {
		fmt.Fprintln(w, "Overdue:\tyes")
	}
}

func printView(w io.Writer, v *library.BorrowingView, now time.Time) {
	printBorrowing(w, &v.Borrowing, now)
	if v.Book != nil {
		fmt.Fprintf(w, "Title:\t%s by %s\n", v.Book.Title, v.Book.Author)
	} else {
		fmt.Fprintln(w, "Title:\t(book deleted)")
	}
	if v.User != nil {
		fmt.Fprintf(w, "Borrower:\t%s <%s>\n", v.User.Name, v.User.Email)
	}
	if v.Approver != nil {
		fmt.Fprintf(w, "Approver:\t%s\n", v.Approver.Name)
	}
}

func printViews(w io.Writer, views []*library.BorrowingView) {
	fmt.Fprintln(w, "ID\tSTATUS\tBOOK\tBORROWER\tDUE")
	for _, v := range views {
		title := "(deleted)"
		if v.Book != nil {
			title = v.Book.Title
		}
		borrower := v.UserID.String()
		if v.User != nil {
			borrower = v.User.Email
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.ID, v.Status, title, borrower, v.DueDate.Format(time.DateOnly))
	}
}
