// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// BookRepository manages book persistence.
type BookRepository interface {
	// Get retrieves a book by ID.
	Get(ctx context.Context, id ulid.ULID) (*Book, error)

	// GetByISBN retrieves a book by its isbn.
	GetByISBN(ctx context.Context, isbn string) (*Book, error)

	// List returns every book, newest first.
	List(ctx context.Context) ([]*Book, error)

	// Create persists a new book. A duplicate isbn returns ErrConflict.
	Create(ctx context.Context, b *Book) error

	// Update replaces the descriptive fields of a book and sets its total.
	// AvailableCopies is not written directly: the store shifts it by the
	// change in TotalCopies and returns ErrConflict if that would go negative.
	Update(ctx context.Context, b *Book) error

	// Delete removes a book by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// ReserveCopy decrements AvailableCopies when it is above zero.
	// Returns ErrUnavailable when no copy is left and ErrNotFound when the book is gone.
	ReserveCopy(ctx context.Context, id ulid.ULID, at time.Time) error

	// ReleaseCopy increments AvailableCopies when it is below TotalCopies.
	// Returns ErrCopyCountInvariant when every copy is already on the shelf
	// and ErrNotFound when the book is gone.
	ReleaseCopy(ctx context.Context, id ulid.ULID, at time.Time) error
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Get retrieves a user by ID.
	Get(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create persists a new user. A duplicate email returns ErrConflict.
	Create(ctx context.Context, u *User) error
}

// BorrowingRepository manages borrowing persistence.
type BorrowingRepository interface {
	// Get retrieves a borrowing by ID.
	Get(ctx context.Context, id ulid.ULID) (*Borrowing, error)

	// Create persists a new borrowing. A second active borrowing for the same
	// user and book returns ErrConflict where the store can enforce it.
	Create(ctx context.Context, b *Borrowing) error

	// Transition applies a guarded status change and returns the updated record.
	// Returns ErrNotFound if absent and ErrInvalidState if the status is not in t.From.
	Transition(ctx context.Context, t Transition) (*Borrowing, error)

	// FindActive returns the user's active borrowing for the book, or ErrNotFound.
	FindActive(ctx context.Context, userID, bookID ulid.ULID) (*Borrowing, error)

	// ListByUser returns the user's borrowings, newest first.
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Borrowing, error)

	// List returns every borrowing, newest first.
	List(ctx context.Context) ([]*Borrowing, error)

	// CountActiveByBook returns the number of borrowings per book that hold a
	// copy (approved or borrowed). Books without loans are omitted.
	CountActiveByBook(ctx context.Context) (map[ulid.ULID]int, error)
}

// Transactor runs a function inside a store transaction.
// Repository calls made with the context passed to fn join the transaction.
// If fn returns an error, every write made through that context is discarded.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles one backend's repositories.
type Store struct {
	Books      BookRepository
	Users      UserRepository
	Borrowings BorrowingRepository
	Tx         Transactor
}
