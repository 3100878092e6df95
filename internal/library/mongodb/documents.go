// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package mongodb

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/libraryhub/libraryhub/internal/library"
)

// Collection names.
const (
	BooksCollection      = "books"
	UsersCollection      = "users"
	BorrowingsCollection = "borrowings"
)

type bookDoc struct {
	ID              string    `bson:"_id"`
	Title           string    `bson:"title"`
	Author          string    `bson:"author"`
	ISBN            string    `bson:"isbn"`
	Genre           string    `bson:"genre"`
	Description     string    `bson:"description"`
	PublishedYear   int       `bson:"published_year"`
	TotalCopies     int       `bson:"total_copies"`
	AvailableCopies int       `bson:"available_copies"`
	ImageURL        string    `bson:"image_url"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toBookDoc(b *library.Book) bookDoc {
	return bookDoc{
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

func (d bookDoc) toBook() (*library.Book, error) {
	id, err := parseID(d.ID, "book_id")
	if err != nil {
		return nil, err
	}
	return &library.Book{
		ID:              id,
		Title:           d.Title,
		Author:          d.Author,
		ISBN:            d.ISBN,
		Genre:           d.Genre,
		Description:     d.Description,
		PublishedYear:   d.PublishedYear,
		TotalCopies:     d.TotalCopies,
		AvailableCopies: d.AvailableCopies,
		ImageURL:        d.ImageURL,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Role      string    `bson:"role"`
	Phone     string    `bson:"phone"`
	Address   string    `bson:"address"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toUserDoc(u *library.User) userDoc {
	return userDoc{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Phone:     u.Phone,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d userDoc) toUser() (*library.User, error) {
	id, err := parseID(d.ID, "user_id")
	if err != nil {
		return nil, err
	}
	return &library.User{
		ID:        id,
		Name:      d.Name,
		Email:     d.Email,
		Role:      library.Role(d.Role),
		Phone:     d.Phone,
		Address:   d.Address,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// borrowingDoc mirrors Status.Active() into the active field so the partial
// unique index can filter on a plain equality.
type borrowingDoc struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"user_id"`
	BookID     string     `bson:"book_id"`
	Status     string     `bson:"status"`
	Active     bool       `bson:"active"`
	BorrowDate time.Time  `bson:"borrow_date"`
	DueDate    time.Time  `bson:"due_date"`
	ReturnDate *time.Time `bson:"return_date,omitempty"`
	ApprovedBy *string    `bson:"approved_by,omitempty"`
	ApprovedAt *time.Time `bson:"approved_at,omitempty"`
	Notes      string     `bson:"notes"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

func toBorrowingDoc(b *library.Borrowing) borrowingDoc {
	d := borrowingDoc{
		ID:         b.ID.String(),
		UserID:     b.UserID.String(),
		BookID:     b.BookID.String(),
		Status:     string(b.Status),
		Active:     b.Status.Active(),
		BorrowDate: b.BorrowDate,
		DueDate:    b.DueDate,
		ReturnDate: b.ReturnDate,
		ApprovedAt: b.ApprovedAt,
		Notes:      b.Notes,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	if b.ApprovedBy != nil {
		s := b.ApprovedBy.String()
		d.ApprovedBy = &s
	}
	return d
}

func (d borrowingDoc) toBorrowing() (*library.Borrowing, error) {
	b := &library.Borrowing{
		Status:     library.Status(d.Status),
		BorrowDate: d.BorrowDate,
		DueDate:    d.DueDate,
		ReturnDate: d.ReturnDate,
		ApprovedAt: d.ApprovedAt,
		Notes:      d.Notes,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	var err error
	if b.ID, err = parseID(d.ID, "borrowing_id"); err != nil {
		return nil, err
	}
	if b.UserID, err = parseID(d.UserID, "user_id"); err != nil {
		return nil, err
	}
	if b.BookID, err = parseID(d.BookID, "book_id"); err != nil {
		return nil, err
	}
	if d.ApprovedBy != nil {
		approver, err := parseID(*d.ApprovedBy, "approved_by")
		if err != nil {
			return nil, err
		}
		b.ApprovedBy = &approver
	}
	return b, nil
}

func parseID(s, field string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.With("operation", "parse "+field).With(field, s).Wrap(err)
	}
	return id, nil
}

func statusStrings(statuses []library.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
