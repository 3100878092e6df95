// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package memory

import (
	"context"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/libraryhub/libraryhub/internal/library"
)

// BorrowingRepository implements library.BorrowingRepository in memory.
type BorrowingRepository struct {
	s *Store
}

// Get retrieves a borrowing by ID.
func (r *BorrowingRepository) Get(ctx context.Context, id ulid.ULID) (*library.Borrowing, error) {
	var out *library.Borrowing
	err := r.s.read(ctx, func(t *tables) error {
		b, ok := t.borrowings[id]
		if !ok {
			return library.BorrowingNotFound(id)
		}
		out = &b
		return nil
	})
	return out, err
}

// Create persists a new borrowing, refusing a second active one for the same user and book.
func (r *BorrowingRepository) Create(ctx context.Context, b *library.Borrowing) error {
	return r.s.write(ctx, func(t *tables) error {
		if b.Status.Active() {
			for _, other := range t.borrowings {
				if other.UserID == b.UserID && other.BookID == b.BookID && other.Status.Active() {
					return library.DuplicateRequest(b.UserID, b.BookID)
				}
			}
		}
		t.borrowings[b.ID] = *b
		return nil
	})
}

// Transition applies a guarded status change.
func (r *BorrowingRepository) Transition(ctx context.Context, tr library.Transition) (*library.Borrowing, error) {
	var out *library.Borrowing
	err := r.s.write(ctx, func(t *tables) error {
		b, ok := t.borrowings[tr.ID]
		if !ok {
			return library.BorrowingNotFound(tr.ID)
		}
		if !slices.Contains(tr.From, b.Status) {
			return library.InvalidTransitionTo(tr.ID, b.Status, tr.To)
		}
		next := tr.Apply(b)
		t.borrowings[tr.ID] = next
		out = &next
		return nil
	})
	return out, err
}

// FindActive returns the user's active borrowing for the book.
func (r *BorrowingRepository) FindActive(ctx context.Context, userID, bookID ulid.ULID) (*library.Borrowing, error) {
	var out *library.Borrowing
	err := r.s.read(ctx, func(t *tables) error {
		for _, b := range t.borrowings {
			if b.UserID == userID && b.BookID == bookID && b.Status.Active() {
				out = &b
				return nil
			}
		}
		return library.NotFoundError("borrowing", "book_id", bookID.String())
	})
	return out, err
}

// ListByUser returns the user's borrowings, newest first.
func (r *BorrowingRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*library.Borrowing, error) {
	return r.list(ctx, func(b *library.Borrowing) bool { return b.UserID == userID })
}

// List returns every borrowing, newest first.
func (r *BorrowingRepository) List(ctx context.Context) ([]*library.Borrowing, error) {
	return r.list(ctx, func(*library.Borrowing) bool { return true })
}

func (r *BorrowingRepository) list(ctx context.Context, keep func(*library.Borrowing) bool) ([]*library.Borrowing, error) {
	var out []*library.Borrowing
	err := r.s.read(ctx, func(t *tables) error {
		out = make([]*library.Borrowing, 0, len(t.borrowings))
		for _, b := range t.borrowings {
			if keep(&b) {
				out = append(out, &b)
			}
		}
		return nil
	})
	newestFirst(out,
		func(b *library.Borrowing) time.Time { return b.CreatedAt },
		func(b *library.Borrowing) ulid.ULID { return b.ID })
	return out, err
}

// CountActiveByBook returns the number of copies on loan per book.
func (r *BorrowingRepository) CountActiveByBook(ctx context.Context) (map[ulid.ULID]int, error) {
	counts := make(map[ulid.ULID]int)
	err := r.s.read(ctx, func(t *tables) error {
		for _, b := range t.borrowings {
			if b.Status.OnLoan() {
				counts[b.BookID]++
			}
		}
		return nil
	})
	return counts, err
}
