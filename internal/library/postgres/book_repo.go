// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/libraryhub/libraryhub/internal/library"
)

const bookColumns = `id, title, author, isbn, genre, description, published_year,
		total_copies, available_copies, image_url, created_at, updated_at`

// BookRepository implements library.BookRepository using PostgreSQL.
type BookRepository struct {
	pool poolIface
}

// NewBookRepository creates a new BookRepository.
func NewBookRepository(pool poolIface) *BookRepository {
	return &BookRepository{pool: pool}
}

// Get retrieves a book by ID.
func (r *BookRepository) Get(ctx context.Context, id ulid.ULID) (*library.Book, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id.String())
	b, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.BookNotFound(id)
	}
	if err != nil {
		return nil, oops.With("operation", "get book").With("id", id.String()).Wrap(err)
	}
	return b, nil
}

// GetByISBN retrieves a book by isbn.
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*library.Book, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn = $1`, isbn)
	b, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.NotFoundError("book", "isbn", isbn)
	}
	if err != nil {
		return nil, oops.With("operation", "get book by isbn").With("isbn", isbn).Wrap(err)
	}
	return b, nil
}

// List returns every book, newest first.
func (r *BookRepository) List(ctx context.Context) ([]*library.Book, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+bookColumns+` FROM books ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, oops.With("operation", "list books").Wrap(err)
	}
	defer rows.Close()

	var books []*library.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, oops.With("operation", "scan book").Wrap(err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate books").Wrap(err)
	}
	return books, nil
}

// Create persists a new book.
func (r *BookRepository) Create(ctx context.Context, b *library.Book) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID.String(), b.Title, b.Author, b.ISBN, b.Genre, b.Description, b.PublishedYear,
		b.TotalCopies, b.AvailableCopies, b.ImageURL, b.CreatedAt, b.UpdatedAt)
	if uniqueViolation(err) != "" {
		return library.DuplicateISBN(b.ISBN)
	}
	if err != nil {
		return oops.With("operation", "create book").With("id", b.ID.String()).Wrap(err)
	}
	return nil
}

// Update replaces a book's descriptive fields and shifts available_copies by
// the change in total_copies in the same statement.
func (r *BookRepository) Update(ctx context.Context, b *library.Book) error {
	q := conn(ctx, r.pool)
	result, err := q.Exec(ctx, `
		UPDATE books SET title = $2, author = $3, isbn = $4, genre = $5, description = $6,
		published_year = $7, image_url = $9, updated_at = $10,
		available_copies = available_copies + ($8 - total_copies), total_copies = $8
		WHERE id = $1 AND available_copies + ($8 - total_copies) >= 0
	`, b.ID.String(), b.Title, b.Author, b.ISBN, b.Genre, b.Description, b.PublishedYear,
		b.TotalCopies, b.ImageURL, b.UpdatedAt)
	if uniqueViolation(err) != "" {
		return library.DuplicateISBN(b.ISBN)
	}
	if err != nil {
		return oops.With("operation", "update book").With("id", b.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		found, err := exists(ctx, q, "books", b.ID)
		if err != nil {
			return err
		}
		if !found {
			return library.BookNotFound(b.ID)
		}
		return library.CopiesOnLoan(b.ID, b.TotalCopies)
	}
	return nil
}

// Delete removes a book by ID.
func (r *BookRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM books WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "delete book").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return library.BookNotFound(id)
	}
	return nil
}

// ReserveCopy takes one available copy. The guard and the decrement are one
// statement, so concurrent reservations serialize on the row lock.
func (r *BookRepository) ReserveCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	return r.shift(ctx, id, at, `
		UPDATE books SET available_copies = available_copies - 1, updated_at = $2
		WHERE id = $1 AND available_copies > 0
	`, library.NoCopyLeft)
}

// ReleaseCopy puts one copy back, never past total_copies.
func (r *BookRepository) ReleaseCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	return r.shift(ctx, id, at, `
		UPDATE books SET available_copies = available_copies + 1, updated_at = $2
		WHERE id = $1 AND available_copies < total_copies
	`, library.AllCopiesShelved)
}

// shift runs a guarded counter update and tells a missing row apart from a failed guard.
func (r *BookRepository) shift(ctx context.Context, id ulid.ULID, at time.Time, sql string, guardErr func(ulid.ULID) error) error {
	q := conn(ctx, r.pool)
	result, err := q.Exec(ctx, sql, id.String(), at)
	if err != nil {
		return oops.With("operation", "update available copies").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}
	found, err := exists(ctx, q, "books", id)
	if err != nil {
		return err
	}
	if !found {
		return library.BookNotFound(id)
	}
	return guardErr(id)
}

func scanBook(row pgx.Row) (*library.Book, error) {
	var (
		b     library.Book
		idStr string
	)
	if err := row.Scan(&idStr, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Description, &b.PublishedYear,
		&b.TotalCopies, &b.AvailableCopies, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	id, err := parseULID(idStr, "book_id")
	if err != nil {
		return nil, err
	}
	b.ID = id
	return &b, nil
}
