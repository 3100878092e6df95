// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package memory

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/libraryhub/libraryhub/internal/library"
)

// BookRepository implements library.BookRepository in memory.
type BookRepository struct {
	s *Store
}

// Get retrieves a book by ID.
func (r *BookRepository) Get(ctx context.Context, id ulid.ULID) (*library.Book, error) {
	var out *library.Book
	err := r.s.read(ctx, func(t *tables) error {
		b, ok := t.books[id]
		if !ok {
			return library.BookNotFound(id)
		}
		out = &b
		return nil
	})
	return out, err
}

// GetByISBN retrieves a book by isbn.
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*library.Book, error) {
	var out *library.Book
	err := r.s.read(ctx, func(t *tables) error {
		for _, b := range t.books {
			if b.ISBN == isbn {
				out = &b
				return nil
			}
		}
		return library.NotFoundError("book", "isbn", isbn)
	})
	return out, err
}

// List returns every book, newest first.
func (r *BookRepository) List(ctx context.Context) ([]*library.Book, error) {
	var out []*library.Book
	err := r.s.read(ctx, func(t *tables) error {
		out = make([]*library.Book, 0, len(t.books))
		for _, b := range t.books {
			out = append(out, &b)
		}
		return nil
	})
	newestFirst(out,
		func(b *library.Book) time.Time { return b.CreatedAt },
		func(b *library.Book) ulid.ULID { return b.ID })
	return out, err
}

// Create persists a new book.
func (r *BookRepository) Create(ctx context.Context, b *library.Book) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, existing := range t.books {
			if existing.ISBN == b.ISBN {
				return library.DuplicateISBN(b.ISBN)
			}
		}
		t.books[b.ID] = *b
		return nil
	})
}

// Update replaces a book's descriptive fields and shifts its available
// copies by the change in total copies.
func (r *BookRepository) Update(ctx context.Context, b *library.Book) error {
	return r.s.write(ctx, func(t *tables) error {
		cur, ok := t.books[b.ID]
		if !ok {
			return library.BookNotFound(b.ID)
		}
		for id, other := range t.books {
			if id != b.ID && other.ISBN == b.ISBN {
				return library.DuplicateISBN(b.ISBN)
			}
		}
		available := cur.AvailableCopies + b.TotalCopies - cur.TotalCopies
		if available < 0 {
			return library.CopiesOnLoan(b.ID, b.TotalCopies)
		}
		next := *b
		next.AvailableCopies = available
		next.CreatedAt = cur.CreatedAt
		t.books[b.ID] = next
		return nil
	})
}

// Delete removes a book by ID.
func (r *BookRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return r.s.write(ctx, func(t *tables) error {
		if _, ok := t.books[id]; !ok {
			return library.BookNotFound(id)
		}
		delete(t.books, id)
		return nil
	})
}

// ReserveCopy takes one available copy.
func (r *BookRepository) ReserveCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	return r.s.write(ctx, func(t *tables) error {
		b, ok := t.books[id]
		if !ok {
			return library.BookNotFound(id)
		}
		if b.AvailableCopies <= 0 {
			return library.NoCopyLeft(id)
		}
		b.AvailableCopies--
		b.UpdatedAt = at
		t.books[id] = b
		return nil
	})
}

// ReleaseCopy puts one copy back.
func (r *BookRepository) ReleaseCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	return r.s.write(ctx, func(t *tables) error {
		b, ok := t.books[id]
		if !ok {
			return library.BookNotFound(id)
		}
		if b.AvailableCopies >= b.TotalCopies {
			return library.AllCopiesShelved(id)
		}
		b.AvailableCopies++
		b.UpdatedAt = at
		t.books[id] = b
		return nil
	})
}
