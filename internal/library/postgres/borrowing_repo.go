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

const borrowingColumns = `id, user_id, book_id, status, borrow_date, due_date, return_date,
		approved_by, approved_at, notes, created_at, updated_at`

// activeBorrowingIndex is the partial unique index over non-terminal borrowings.
const activeBorrowingIndex = "borrowings_active_user_book"

// BorrowingRepository implements library.BorrowingRepository using PostgreSQL.
type BorrowingRepository struct {
	pool poolIface
}

// NewBorrowingRepository creates a new BorrowingRepository.
func NewBorrowingRepository(pool poolIface) *BorrowingRepository {
	return &BorrowingRepository{pool: pool}
}

// Get retrieves a borrowing by ID.
func (r *BorrowingRepository) Get(ctx context.Context, id ulid.ULID) (*library.Borrowing, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+borrowingColumns+` FROM borrowings WHERE id = $1`, id.String())
	b, err := scanBorrowing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.BorrowingNotFound(id)
	}
	if err != nil {
		return nil, oops.With("operation", "get borrowing").With("id", id.String()).Wrap(err)
	}
	return b, nil
}

// Create persists a new borrowing. The partial unique index turns a second
// active borrowing for the same user and book into a conflict.
func (r *BorrowingRepository) Create(ctx context.Context, b *library.Borrowing) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO borrowings (`+borrowingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID.String(), b.UserID.String(), b.BookID.String(), string(b.Status), b.BorrowDate, b.DueDate,
		b.ReturnDate, ulidToStringPtr(b.ApprovedBy), b.ApprovedAt, b.Notes, b.CreatedAt, b.UpdatedAt)
	if c := uniqueViolation(err); c == activeBorrowingIndex {
		return library.DuplicateRequest(b.UserID, b.BookID)
	}
	if foreignKeyViolation(err) {
		return library.UserNotFound(b.UserID)
	}
	if err != nil {
		return oops.With("operation", "create borrowing").With("id", b.ID.String()).Wrap(err)
	}
	return nil
}

// Transition applies a guarded status change in a single UPDATE. When the
// guard matches nothing it reads the row back to report why.
func (r *BorrowingRepository) Transition(ctx context.Context, t library.Transition) (*library.Borrowing, error) {
	q := conn(ctx, r.pool)
	row := q.QueryRow(ctx, `
		UPDATE borrowings SET status = $2,
		approved_by = COALESCE($3, approved_by),
		approved_at = CASE WHEN $2::text = 'approved' THEN $4 ELSE approved_at END,
		return_date = CASE WHEN $2::text = 'returned' THEN $4 ELSE return_date END,
		notes = CASE WHEN $5::text = '' THEN notes ELSE $5::text END,
		updated_at = $4
		WHERE id = $1 AND status = ANY($6)
		RETURNING `+borrowingColumns,
		t.ID.String(), string(t.To), ulidToStringPtr(t.ApprovedBy), t.At, t.Notes, statusStrings(t.From))
	b, err := scanBorrowing(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("operation", "transition borrowing").With("id", t.ID.String()).Wrap(err)
	}

	var current string
	err = q.QueryRow(ctx, `SELECT status FROM borrowings WHERE id = $1`, t.ID.String()).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.BorrowingNotFound(t.ID)
	}
	if err != nil {
		return nil, oops.With("operation", "read borrowing status").With("id", t.ID.String()).Wrap(err)
	}
	return nil, library.InvalidTransitionTo(t.ID, library.Status(current), t.To)
}

// FindActive returns the user's active borrowing for the book.
func (r *BorrowingRepository) FindActive(ctx context.Context, userID, bookID ulid.ULID) (*library.Borrowing, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+borrowingColumns+` FROM borrowings
		WHERE user_id = $1 AND book_id = $2 AND status = ANY($3)
		LIMIT 1
	`, userID.String(), bookID.String(), statusStrings(library.ActiveStatuses))
	b, err := scanBorrowing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.NotFoundError("borrowing", "book_id", bookID.String())
	}
	if err != nil {
		return nil, oops.With("operation", "find active borrowing").
			With("user_id", userID.String()).
			With("book_id", bookID.String()).
			Wrap(err)
	}
	return b, nil
}

// ListByUser returns the user's borrowings, newest first.
func (r *BorrowingRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*library.Borrowing, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+borrowingColumns+` FROM borrowings
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC
	`, userID.String())
	if err != nil {
		return nil, oops.With("operation", "list borrowings by user").With("user_id", userID.String()).Wrap(err)
	}
	defer rows.Close()
	return scanBorrowings(rows)
}

// List returns every borrowing, newest first.
func (r *BorrowingRepository) List(ctx context.Context) ([]*library.Borrowing, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+borrowingColumns+` FROM borrowings ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, oops.With("operation", "list borrowings").Wrap(err)
	}
	defer rows.Close()
	return scanBorrowings(rows)
}

// CountActiveByBook returns the number of copies on loan per book.
func (r *BorrowingRepository) CountActiveByBook(ctx context.Context) (map[ulid.ULID]int, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT book_id, COUNT(*) FROM borrowings WHERE status = ANY($1) GROUP BY book_id
	`, statusStrings(library.LoanStatuses))
	if err != nil {
		return nil, oops.With("operation", "count active loans").Wrap(err)
	}
	defer rows.Close()

	counts := make(map[ulid.ULID]int)
	for rows.Next() {
		var (
			idStr string
			n     int
		)
		if err := rows.Scan(&idStr, &n); err != nil {
			return nil, oops.With("operation", "scan loan count").Wrap(err)
		}
		id, err := parseULID(idStr, "book_id")
		if err != nil {
			return nil, err
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate loan counts").Wrap(err)
	}
	return counts, nil
}

// borrowingScanFields holds intermediate scan values for borrowing parsing.
type borrowingScanFields struct {
	idStr         string
	userIDStr     string
	bookIDStr     string
	status        string
	approvedByStr *string
}

func scanBorrowing(row pgx.Row) (*library.Borrowing, error) {
	var (
		b library.Borrowing
		f borrowingScanFields
	)
	var returnDate, approvedAt *time.Time
	if err := row.Scan(&f.idStr, &f.userIDStr, &f.bookIDStr, &f.status, &b.BorrowDate, &b.DueDate,
		&returnDate, &f.approvedByStr, &approvedAt, &b.Notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	var err error
	if b.ID, err = parseULID(f.idStr, "borrowing_id"); err != nil {
		return nil, err
	}
	if b.UserID, err = parseULID(f.userIDStr, "user_id"); err != nil {
		return nil, err
	}
	if b.BookID, err = parseULID(f.bookIDStr, "book_id"); err != nil {
		return nil, err
	}
	if b.ApprovedBy, err = parseOptionalULID(f.approvedByStr, "approved_by"); err != nil {
		return nil, err
	}
	b.Status = library.Status(f.status)
	b.ReturnDate = returnDate
	b.ApprovedAt = approvedAt
	return &b, nil
}

func scanBorrowings(rows pgx.Rows) ([]*library.Borrowing, error) {
	var out []*library.Borrowing
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, oops.With("operation", "scan borrowing").Wrap(err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate borrowings").Wrap(err)
	}
	return out, nil
}
